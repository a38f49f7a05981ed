package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/config"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/httpclient"
)

func newTestHeliusClient(t *testing.T, serverURL string, pageSize int) *HeliusClient {
	t.Helper()

	session := httpclient.NewSession(config.HTTPConfig{PoolSize: 4, Timeout: 5 * time.Second})
	t.Cleanup(session.Close)

	return NewHeliusClient(config.HeliusConfig{
		APIKey:      "test-key",
		RPCURL:      serverURL,
		PageSize:    pageSize,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	}, session, zap.NewNop())
}

func fungibleItem(mint, name, symbol string, balance int64, decimals int) string {
	return fmt.Sprintf(`{"interface":"FungibleToken","id":%q,"content":{"metadata":{"name":%q}},"token_info":{"symbol":%q,"balance":%d,"decimals":%d}}`,
		mint, name, symbol, balance, decimals)
}

func writeDAS(w http.ResponseWriter, items []string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"jsonrpc":"2.0","id":"wallet-watcher","result":{"total":%d,"items":[%s]}}`,
		len(items), strings.Join(items, ","))
}

func TestHeliusClient_GetAssetsByOwner(t *testing.T) {
	t.Run("sends request and parses fungible items", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.URL.Query().Get("api-key"))

			var req dasRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "getAssetsByOwner", req.Method)
			assert.Equal(t, "owner1", req.Params.OwnerAddress)
			assert.True(t, req.Params.DisplayOptions.ShowFungible)

			writeDAS(w, []string{
				fungibleItem("mintA", "Bonk", "BONK", 1500000, 5),
				`{"interface":"V1_NFT","id":"nft1"}`,
			})
		}))
		defer server.Close()

		holdings, err := newTestHeliusClient(t, server.URL, 100).GetAssetsByOwner(context.Background(), "owner1")
		require.NoError(t, err)
		require.Len(t, holdings, 1)

		assert.Equal(t, "mintA", holdings[0].Mint)
		assert.Equal(t, "BONK", holdings[0].Symbol)
		assert.Equal(t, 5, holdings[0].Decimals)
		assert.Equal(t, "15", holdings[0].DisplayAmount().String())
	})

	t.Run("pages until a short page", func(t *testing.T) {
		var pages []int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req dasRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			pages = append(pages, req.Params.Page)

			switch req.Params.Page {
			case 1:
				writeDAS(w, []string{fungibleItem("m1", "A", "A", 1, 0), fungibleItem("m2", "B", "B", 2, 0)})
			default:
				writeDAS(w, []string{fungibleItem("m3", "C", "C", 3, 0)})
			}
		}))
		defer server.Close()

		holdings, err := newTestHeliusClient(t, server.URL, 2).GetAssetsByOwner(context.Background(), "owner1")
		require.NoError(t, err)
		assert.Len(t, holdings, 3)
		assert.Equal(t, []int{1, 2}, pages)
	})

	t.Run("retries on 503", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			writeDAS(w, nil)
		}))
		defer server.Close()

		holdings, err := newTestHeliusClient(t, server.URL, 100).GetAssetsByOwner(context.Background(), "owner1")
		require.NoError(t, err)
		assert.Empty(t, holdings)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestHeliusClient(t, server.URL, 100).GetAssetsByOwner(context.Background(), "owner1")
		require.Error(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := newTestHeliusClient(t, server.URL, 100).GetAssetsByOwner(context.Background(), "owner1")
		require.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("surfaces json-rpc errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":"wallet-watcher","error":{"code":-32602,"message":"invalid owner"}}`)
		}))
		defer server.Close()

		_, err := newTestHeliusClient(t, server.URL, 100).GetAssetsByOwner(context.Background(), "bad")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid owner")
	})
}

func TestParseFungibleAssets(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"interface":"FungibleAsset","id":"m1","content":{"metadata":{"name":"","symbol":"META"}},"token_info":{"balance":42}}`),
		json.RawMessage(`{"interface":"FungibleToken","id":"m2","content":{"metadata":{}}}`),
		json.RawMessage(`{"interface":"FungibleToken","id":12345}`),
		json.RawMessage(`"not an object"`),
		json.RawMessage(`{"interface":"ProgrammableNFT","id":"nft"}`),
	}

	holdings := parseFungibleAssets(items, zap.NewNop())
	require.Len(t, holdings, 2)

	assert.Equal(t, defaultAssetName, holdings[0].Name)
	assert.Equal(t, "META", holdings[0].Symbol)
	assert.Equal(t, "42", holdings[0].RawAmount.String())
	assert.Equal(t, 0, holdings[0].Decimals)

	assert.Equal(t, defaultAssetSymbol, holdings[1].Symbol)
	assert.True(t, holdings[1].RawAmount.IsZero())
}

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, time.Duration(0), parseRetryAfter(h))

	h.Set("Retry-After", "3")
	assert.Equal(t, 3*time.Second, parseRetryAfter(h))

	h.Set("Retry-After", "soon")
	assert.Equal(t, time.Duration(0), parseRetryAfter(h))
}

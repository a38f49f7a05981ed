package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"resty.dev/v3"

	"github.com/bimakw/wallet-watcher/internal/config"
	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/httpclient"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/retry"
)

const (
	defaultAssetName   = "Unknown Token"
	defaultAssetSymbol = "UNKNOWN"
)

// fungibleInterfaces are the DAS interface tags treated as fungible tokens
var fungibleInterfaces = map[string]bool{
	"FungibleToken": true,
	"FungibleAsset": true,
}

// HeliusClient queries the Helius DAS API
type HeliusClient struct {
	client   *resty.Client
	session  *httpclient.Session
	endpoint string
	pageSize int
	policy   retry.Policy
	logger   *zap.Logger
}

// NewHeliusClient creates a DAS client on top of the shared HTTP session
func NewHeliusClient(cfg config.HeliusConfig, session *httpclient.Session, logger *zap.Logger) *HeliusClient {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &HeliusClient{
		client:   httpclient.NewRestyClient(session, limiter, logger),
		session:  session,
		endpoint: cfg.DASEndpoint(),
		pageSize: pageSize,
		policy:   newPolicy(cfg.MaxAttempts, cfg.RetryDelay, "helius_das", logger),
		logger:   logger,
	}
}

type dasRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  dasParams `json:"params"`
}

type dasParams struct {
	OwnerAddress   string            `json:"ownerAddress"`
	Page           int               `json:"page"`
	Limit          int               `json:"limit"`
	DisplayOptions dasDisplayOptions `json:"displayOptions"`
}

type dasDisplayOptions struct {
	ShowFungible bool `json:"showFungible"`
}

type dasResponse struct {
	Result *struct {
		Total int               `json:"total"`
		Page  int               `json:"page"`
		Items []json.RawMessage `json:"items"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type dasAsset struct {
	Interface string `json:"interface"`
	ID        string `json:"id"`
	Content   struct {
		Metadata struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		} `json:"metadata"`
	} `json:"content"`
	TokenInfo *struct {
		Symbol   string           `json:"symbol"`
		Balance  *decimal.Decimal `json:"balance"`
		Decimals *int             `json:"decimals"`
	} `json:"token_info"`
}

// GetAssetsByOwner returns all fungible token holdings of owner, paging until
// a short page is returned
func (c *HeliusClient) GetAssetsByOwner(ctx context.Context, owner string) ([]entities.TokenHolding, error) {
	_, release, err := c.session.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	holdings := make([]entities.TokenHolding, 0)
	for page := 1; ; page++ {
		var items []json.RawMessage
		err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
			var err error
			items, err = c.fetchPage(ctx, owner, page)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get assets page %d: %w", page, err)
		}

		holdings = append(holdings, parseFungibleAssets(items, c.logger)...)

		if len(items) < c.pageSize {
			break
		}
	}

	c.logger.Debug("Fetched token holdings",
		zap.String("owner", owner),
		zap.Int("count", len(holdings)),
	)

	return holdings, nil
}

func (c *HeliusClient) fetchPage(ctx context.Context, owner string, page int) ([]json.RawMessage, error) {
	req := dasRequest{
		JSONRPC: "2.0",
		ID:      "wallet-watcher",
		Method:  "getAssetsByOwner",
		Params: dasParams{
			OwnerAddress:   owner,
			Page:           page,
			Limit:          c.pageSize,
			DisplayOptions: dasDisplayOptions{ShowFungible: true},
		},
	}

	var out dasResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(c.endpoint)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &retry.StatusError{
			StatusCode: resp.StatusCode(),
			Wait:       parseRetryAfter(resp.Header()),
		}
	}
	if out.Error != nil {
		return nil, fmt.Errorf("das error %d: %s", out.Error.Code, out.Error.Message)
	}
	if out.Result == nil {
		return nil, nil
	}

	return out.Result.Items, nil
}

// parseFungibleAssets converts DAS items to holdings, skipping anything that
// is not fungible or cannot be decoded
func parseFungibleAssets(items []json.RawMessage, logger *zap.Logger) []entities.TokenHolding {
	holdings := make([]entities.TokenHolding, 0, len(items))

	for i, item := range items {
		var asset dasAsset
		if err := sonic.Unmarshal(item, &asset); err != nil {
			logger.Warn("Skipping malformed asset entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		if !fungibleInterfaces[asset.Interface] {
			continue
		}

		holding := entities.TokenHolding{
			Mint:      asset.ID,
			Name:      asset.Content.Metadata.Name,
			Symbol:    asset.Content.Metadata.Symbol,
			RawAmount: decimal.Zero,
		}
		if holding.Name == "" {
			holding.Name = defaultAssetName
		}
		if asset.TokenInfo != nil {
			if asset.TokenInfo.Symbol != "" {
				holding.Symbol = asset.TokenInfo.Symbol
			}
			if asset.TokenInfo.Balance != nil {
				holding.RawAmount = *asset.TokenInfo.Balance
			}
			if asset.TokenInfo.Decimals != nil {
				holding.Decimals = *asset.TokenInfo.Decimals
			}
		}
		if holding.Symbol == "" {
			holding.Symbol = defaultAssetSymbol
		}

		holdings = append(holdings, holding)
	}

	return holdings
}

// parseRetryAfter reads a Retry-After header given in seconds
func parseRetryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

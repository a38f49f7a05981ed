package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBatch(t *testing.T) {
	t.Run("decodes a single object", func(t *testing.T) {
		txs, skipped, err := DecodeBatch([]byte(`{"signature":"sig1","type":"SWAP","feePayer":"F"}`))
		require.NoError(t, err)
		assert.Equal(t, 0, skipped)
		require.Len(t, txs, 1)
		assert.Equal(t, "sig1", txs[0].Signature)
		assert.Equal(t, "SWAP", txs[0].Type)
	})

	t.Run("decodes an array and skips non-object items", func(t *testing.T) {
		txs, skipped, err := DecodeBatch([]byte(` [{"signature":"a"}, 42, {"signature":"b"}]`))
		require.NoError(t, err)
		assert.Equal(t, 1, skipped)
		require.Len(t, txs, 2)
		assert.Equal(t, "b", txs[1].Signature)
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		_, _, err := DecodeBatch([]byte(`[{"signature":`))
		assert.Error(t, err)
	})

	t.Run("rejects empty body", func(t *testing.T) {
		_, _, err := DecodeBatch([]byte("  "))
		assert.ErrorIs(t, err, ErrEmptyBody)
	})
}

func TestRawTransaction_UnmarshalJSON(t *testing.T) {
	t.Run("applies defaults for missing fields", func(t *testing.T) {
		txs, _, err := DecodeBatch([]byte(`{}`))
		require.NoError(t, err)
		require.Len(t, txs, 1)

		assert.Equal(t, TxTypeUnknown, txs[0].TypeOrDefault())
		assert.Equal(t, TxTypeUnknown, txs[0].FeePayerOrDefault())
		assert.Empty(t, txs[0].TokenTransfers)
	})

	t.Run("drops malformed legs individually", func(t *testing.T) {
		body := `{
			"signature": "sig",
			"type": "TRANSFER",
			"timestamp": "not-a-number",
			"tokenTransfers": [
				{"mint": "M1", "tokenAmount": 1.5, "fromUserAccount": "A", "toUserAccount": "B"},
				{"mint": "M2", "tokenAmount": {"bad": true}},
				{"mint": "M3", "tokenAmount": "2", "rawTokenAmount": {"tokenAmount": "2000", "decimals": 3}}
			],
			"accountData": [{"account": "A", "nativeBalanceChange": -5000}, "junk"]
		}`

		txs, skipped, err := DecodeBatch([]byte(body))
		require.NoError(t, err)
		assert.Equal(t, 0, skipped)
		require.Len(t, txs, 1)

		tx := txs[0]
		assert.Equal(t, "sig", tx.Signature)
		assert.Equal(t, int64(0), tx.Timestamp)
		assert.Equal(t, 2, tx.DroppedLegs)
		require.Len(t, tx.TokenTransfers, 2)
		assert.Equal(t, "1.5", tx.TokenTransfers[0].TokenAmount.String())
		assert.Equal(t, DefaultDecimals, tx.TokenTransfers[0].LegDecimals())
		assert.Equal(t, 3, tx.TokenTransfers[1].LegDecimals())
		require.Len(t, tx.AccountData, 1)
		assert.Equal(t, int64(-5000), tx.AccountData[0].NativeBalanceChange)
	})
}

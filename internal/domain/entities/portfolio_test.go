package entities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenHolding_DisplayAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      int64
		decimals int
		expected string
	}{
		{"six decimals", 123456, 6, "0.123456"},
		{"nine decimals", 1500000000, 9, "1.5"},
		{"zero decimals", 42, 0, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := TokenHolding{RawAmount: decimal.NewFromInt(tt.raw), Decimals: tt.decimals}
			assert.Equal(t, tt.expected, h.DisplayAmount().String())
		})
	}
}

func TestDecodeHoldings(t *testing.T) {
	t.Run("defaults missing decimals to nine", func(t *testing.T) {
		holdings := DecodeHoldings(`[{"mint":"M1","symbol":"AAA","amount":"1000000000"}]`)
		require.Len(t, holdings, 1)
		assert.Equal(t, DefaultDecimals, holdings[0].Decimals)
		assert.Equal(t, "1", holdings[0].DisplayAmount().String())
	})

	t.Run("keeps explicit zero decimals", func(t *testing.T) {
		holdings := DecodeHoldings(`[{"mint":"M1","amount":5,"decimals":0}]`)
		require.Len(t, holdings, 1)
		assert.Equal(t, 0, holdings[0].Decimals)
	})

	t.Run("skips non-object entries", func(t *testing.T) {
		holdings := DecodeHoldings(`[1, "x", {"mint":"M2","amount":"7","decimals":2}, null]`)
		require.Len(t, holdings, 1)
		assert.Equal(t, "M2", holdings[0].Mint)
	})

	t.Run("returns nil for empty or invalid snapshot", func(t *testing.T) {
		assert.Nil(t, DecodeHoldings(""))
		assert.Nil(t, DecodeHoldings("not json"))
	})

	t.Run("round trips encoded holdings", func(t *testing.T) {
		in := []TokenHolding{{Mint: "M1", Name: "One", Symbol: "ONE", RawAmount: decimal.NewFromInt(123456), Decimals: 6}}
		raw, err := EncodeHoldings(in)
		require.NoError(t, err)

		out := DecodeHoldings(raw)
		require.Len(t, out, 1)
		assert.Equal(t, "0.123456", out[0].DisplayAmount().String())
	})
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "7xKXtg...gAsU", ShortAddress("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"))
	assert.Equal(t, "Unknown", ShortAddress("Unknown"))
}

package entities

import (
	"encoding/json"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is assumed when a holding does not carry its precision
const DefaultDecimals = 9

// TokenHolding represents a single fungible token balance in a portfolio
type TokenHolding struct {
	Mint      string          `json:"mint"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	RawAmount decimal.Decimal `json:"amount"` // base units
	Decimals  int             `json:"decimals"`
	Verified  *bool           `json:"verified,omitempty"`
}

// DisplayAmount returns the balance scaled by the token decimals
func (h TokenHolding) DisplayAmount() decimal.Decimal {
	return h.RawAmount.Shift(-int32(h.Decimals))
}

// UnmarshalJSON applies DefaultDecimals when the field is absent
func (h *TokenHolding) UnmarshalJSON(data []byte) error {
	type holdingAlias TokenHolding
	aux := struct {
		*holdingAlias
		Decimals *int `json:"decimals"`
	}{holdingAlias: (*holdingAlias)(h)}

	if err := sonic.Unmarshal(data, &aux); err != nil {
		return err
	}

	h.Decimals = DefaultDecimals
	if aux.Decimals != nil {
		h.Decimals = *aux.Decimals
	}
	return nil
}

// WalletPortfolio is the result of a live portfolio fetch
type WalletPortfolio struct {
	Address    string         `json:"address"`
	SolBalance float64        `json:"sol_balance"`
	Holdings   []TokenHolding `json:"holdings"`
}

// EncodeHoldings serializes holdings for storage
func EncodeHoldings(holdings []TokenHolding) (string, error) {
	if holdings == nil {
		holdings = []TokenHolding{}
	}
	data, err := sonic.Marshal(holdings)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeHoldings parses a stored snapshot, skipping entries that are not
// well-formed objects
func DecodeHoldings(raw string) []TokenHolding {
	if raw == "" {
		return nil
	}

	var entries []json.RawMessage
	if err := sonic.UnmarshalString(raw, &entries); err != nil {
		return nil
	}

	holdings := make([]TokenHolding, 0, len(entries))
	for _, entry := range entries {
		if len(entry) == 0 || entry[0] != '{' {
			continue
		}
		var h TokenHolding
		if err := sonic.Unmarshal(entry, &h); err != nil {
			continue
		}
		holdings = append(holdings, h)
	}
	return holdings
}

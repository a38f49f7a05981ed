package entities

const (
	UnknownTokenName   = "Unknown Token"
	UnknownTokenSymbol = "UNK"
)

// TokenInfo is the display identity of a token mint
type TokenInfo struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// UnknownToken is returned whenever metadata cannot be resolved
func UnknownToken() TokenInfo {
	return TokenInfo{Name: UnknownTokenName, Symbol: UnknownTokenSymbol}
}

// IsUnknown reports whether info carries the fallback values
func (t TokenInfo) IsUnknown() bool {
	return t.Name == UnknownTokenName && t.Symbol == UnknownTokenSymbol
}

package entities

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates no wallet matches the given address or alias
	ErrNotFound = errors.New("wallet not found")

	// ErrAlreadyExists indicates the address or alias is already monitored
	ErrAlreadyExists = errors.New("wallet already exists")
)

// Wallet represents a monitored address and its cached portfolio state
type Wallet struct {
	Address        string  `db:"address"`
	Alias          string  `db:"alias"`
	LastChecked    int64   `db:"last_checked"`
	TxCount        int64   `db:"tx_count"`
	SolBalance     float64 `db:"sol_balance"`
	Tokens         string  `db:"tokens"` // JSON snapshot of []TokenHolding
	LastAssetCheck int64   `db:"last_asset_check"`
	LastActivityAt int64   `db:"last_activity_at"`
}

// Holdings decodes the stored token snapshot
func (w *Wallet) Holdings() []TokenHolding {
	return DecodeHoldings(w.Tokens)
}

// ShortAddress abbreviates an address for display, e.g. "7xKXtg...sgAsU"
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// NormalizeAlias returns the stored form of a user supplied alias
func NormalizeAlias(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}

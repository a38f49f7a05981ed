package repositories

import (
	"context"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
)

// WalletRepository defines the interface for monitored wallet storage
type WalletRepository interface {
	// GetWallet retrieves a wallet by address or case-insensitive alias.
	// Returns nil, nil when nothing matches.
	GetWallet(ctx context.Context, identifier string) (*entities.Wallet, error)

	// LoadAllWallets retrieves every monitored wallet
	LoadAllWallets(ctx context.Context) ([]entities.Wallet, error)

	// GetAllAddresses returns the addresses of all monitored wallets
	GetAllAddresses(ctx context.Context) ([]string, error)

	// SaveWallet starts monitoring an address.
	// Returns entities.ErrAlreadyExists if the address or alias is taken.
	SaveWallet(ctx context.Context, address, alias string) error

	// RemoveWallet stops monitoring an address.
	// Returns entities.ErrNotFound if the address is not monitored.
	RemoveWallet(ctx context.Context, address string) error

	// RecordActivity increments tx_count and sets last_activity_at to now
	RecordActivity(ctx context.Context, address string) error

	// UpdatePortfolio stores a fresh balance and token snapshot and sets
	// last_asset_check to now in a single write
	UpdatePortfolio(ctx context.Context, address string, solBalance float64, tokens []entities.TokenHolding) error
}

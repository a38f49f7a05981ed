package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/domain/repositories"
)

// Ensure WalletRepo implements WalletRepository
var _ repositories.WalletRepository = (*WalletRepo)(nil)

const walletColumns = `address, alias, last_checked, tx_count, sol_balance, tokens, last_asset_check, last_activity_at`

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures
const uniqueViolation = "23505"

// WalletRepo implements WalletRepository using PostgreSQL
type WalletRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewWalletRepo creates a new wallet repository
func NewWalletRepo(db *sqlx.DB) *WalletRepo {
	return &WalletRepo{db: db, now: time.Now}
}

// GetWallet retrieves a wallet by address or case-insensitive alias
func (r *WalletRepo) GetWallet(ctx context.Context, identifier string) (*entities.Wallet, error) {
	var wallet entities.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets
		WHERE address = $1 OR LOWER(alias) = LOWER($1)
		ORDER BY (address = $1) DESC
		LIMIT 1`

	if err := r.db.GetContext(ctx, &wallet, query, identifier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &wallet, nil
}

// LoadAllWallets retrieves every monitored wallet ordered by alias
func (r *WalletRepo) LoadAllWallets(ctx context.Context) ([]entities.Wallet, error) {
	var wallets []entities.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets ORDER BY alias`

	if err := r.db.SelectContext(ctx, &wallets, query); err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	return wallets, nil
}

// GetAllAddresses returns the addresses of all monitored wallets
func (r *WalletRepo) GetAllAddresses(ctx context.Context) ([]string, error) {
	var addresses []string
	if err := r.db.SelectContext(ctx, &addresses, `SELECT address FROM wallets`); err != nil {
		return nil, fmt.Errorf("failed to get wallet addresses: %w", err)
	}
	return addresses, nil
}

// SaveWallet inserts a new monitored wallet
func (r *WalletRepo) SaveWallet(ctx context.Context, address, alias string) error {
	query := `
		INSERT INTO wallets (address, alias, last_checked, tokens)
		VALUES ($1, $2, $3, '[]')
	`

	_, err := r.db.ExecContext(ctx, query, address, entities.NormalizeAlias(alias), r.now().Unix())
	if err != nil {
		return mapWriteError("save wallet", err)
	}

	return nil
}

// RemoveWallet deletes a monitored wallet
func (r *WalletRepo) RemoveWallet(ctx context.Context, address string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM wallets WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("failed to remove wallet: %w", err)
	}
	return requireAffected(result)
}

// recordActivityQuery bumps the counter server-side so concurrent updates
// for one wallet never lose an increment
const recordActivityQuery = `
	UPDATE wallets SET
		tx_count = tx_count + 1,
		last_activity_at = $2
	WHERE address = $1
`

// RecordActivity increments the activity counter in a single statement
func (r *WalletRepo) RecordActivity(ctx context.Context, address string) error {
	result, err := r.db.ExecContext(ctx, recordActivityQuery, address, r.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return requireAffected(result)
}

// UpdatePortfolio stores balance, tokens and last_asset_check together
func (r *WalletRepo) UpdatePortfolio(ctx context.Context, address string, solBalance float64, tokens []entities.TokenHolding) error {
	encoded, err := entities.EncodeHoldings(tokens)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}

	now := r.now().Unix()
	query := `
		UPDATE wallets SET
			sol_balance = $2,
			tokens = $3,
			last_asset_check = $4,
			last_checked = $4
		WHERE address = $1
	`

	result, err := r.db.ExecContext(ctx, query, address, solBalance, encoded, now)
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return entities.ErrNotFound
	}
	return nil
}

// mapWriteError translates unique violations into entities.ErrAlreadyExists
func mapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("failed to %s: %w", op, entities.ErrAlreadyExists)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

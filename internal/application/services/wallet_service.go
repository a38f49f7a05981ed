package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/domain/repositories"
)

var (
	// ErrInvalidAddress indicates the address is not a valid Solana public key
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrInvalidAlias indicates an empty alias
	ErrInvalidAlias = errors.New("alias must not be empty")
)

// WalletService manages the set of monitored wallets
type WalletService struct {
	wallets repositories.WalletRepository
	now     func() time.Time
	logger  *zap.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(wallets repositories.WalletRepository, logger *zap.Logger) *WalletService {
	return &WalletService{
		wallets: wallets,
		now:     time.Now,
		logger:  logger,
	}
}

// WalletDTO is the API representation of a monitored wallet
type WalletDTO struct {
	Address string `json:"address"`
	Alias   string `json:"alias"`
}

// WalletStatusDTO is the API representation of a wallet's activity
type WalletStatusDTO struct {
	Address        string  `json:"address"`
	Alias          string  `json:"alias"`
	TxCount        int64   `json:"tx_count"`
	SolBalance     float64 `json:"sol_balance"`
	TokenCount     int     `json:"token_count"`
	LastActivity   string  `json:"last_activity"`
	LastAssetCheck string  `json:"last_asset_check"`
}

// AddWallet starts monitoring address under alias
func (s *WalletService) AddWallet(ctx context.Context, address, alias string) (*WalletDTO, error) {
	address = strings.TrimSpace(address)
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	alias = entities.NormalizeAlias(alias)
	if alias == "" {
		return nil, ErrInvalidAlias
	}

	if err := s.wallets.SaveWallet(ctx, address, alias); err != nil {
		if errors.Is(err, entities.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	s.logger.Info("Added wallet", zap.String("alias", alias), zap.String("address", address))

	return &WalletDTO{Address: address, Alias: alias}, nil
}

// RemoveWallet stops monitoring the wallet matching identifier
func (s *WalletService) RemoveWallet(ctx context.Context, identifier string) (*WalletDTO, error) {
	wallet, err := s.lookup(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := s.wallets.RemoveWallet(ctx, wallet.Address); err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to remove wallet: %w", err)
	}

	s.logger.Info("Removed wallet", zap.String("alias", wallet.Alias), zap.String("address", wallet.Address))

	return &WalletDTO{Address: wallet.Address, Alias: wallet.Alias}, nil
}

// ListWallets returns every monitored wallet
func (s *WalletService) ListWallets(ctx context.Context) ([]WalletDTO, error) {
	wallets, err := s.wallets.LoadAllWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	result := make([]WalletDTO, len(wallets))
	for i, w := range wallets {
		result[i] = WalletDTO{Address: w.Address, Alias: w.Alias}
	}
	return result, nil
}

// GetStatus returns activity and snapshot details for a wallet
func (s *WalletService) GetStatus(ctx context.Context, identifier string) (*WalletStatusDTO, error) {
	wallet, err := s.lookup(ctx, identifier)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &WalletStatusDTO{
		Address:        wallet.Address,
		Alias:          wallet.Alias,
		TxCount:        wallet.TxCount,
		SolBalance:     wallet.SolBalance,
		TokenCount:     len(wallet.Holdings()),
		LastActivity:   FormatTimeAgo(now, wallet.LastActivityAt),
		LastAssetCheck: FormatTimeAgo(now, wallet.LastAssetCheck),
	}, nil
}

func (s *WalletService) lookup(ctx context.Context, identifier string) (*entities.Wallet, error) {
	wallet, err := s.wallets.GetWallet(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, entities.ErrNotFound
	}
	return wallet, nil
}

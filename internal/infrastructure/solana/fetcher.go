package solana

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/metrics"
)

// BalanceSource returns the native balance of an address in SOL
type BalanceSource interface {
	GetBalance(ctx context.Context, address string) (float64, error)
}

// AssetSource returns the fungible token holdings of an address
type AssetSource interface {
	GetAssetsByOwner(ctx context.Context, owner string) ([]entities.TokenHolding, error)
}

// PortfolioFetcher fetches a live portfolio snapshot from both upstreams
type PortfolioFetcher struct {
	balances BalanceSource
	assets   AssetSource
	logger   *zap.Logger
}

// NewPortfolioFetcher creates a new portfolio fetcher
func NewPortfolioFetcher(balances BalanceSource, assets AssetSource, logger *zap.Logger) *PortfolioFetcher {
	return &PortfolioFetcher{
		balances: balances,
		assets:   assets,
		logger:   logger,
	}
}

// FetchPortfolio queries the SOL balance and token holdings concurrently.
// The first failure cancels the other query and is returned.
func (f *PortfolioFetcher) FetchPortfolio(ctx context.Context, address string) (float64, []entities.TokenHolding, error) {
	start := time.Now()
	defer func() {
		metrics.PortfolioFetchDuration.Observe(time.Since(start).Seconds())
	}()

	var (
		balance float64
		tokens  []entities.TokenHolding
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b, err := f.balances.GetBalance(ctx, address)
		if err != nil {
			return fmt.Errorf("failed to fetch SOL balance: %w", err)
		}
		balance = b
		return nil
	})

	g.Go(func() error {
		t, err := f.assets.GetAssetsByOwner(ctx, address)
		if err != nil {
			return fmt.Errorf("failed to fetch token holdings: %w", err)
		}
		tokens = t
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, nil, err
	}

	if tokens == nil {
		tokens = []entities.TokenHolding{}
	}

	f.logger.Info("Fetched portfolio",
		zap.String("address", address),
		zap.Float64("sol_balance", balance),
		zap.Int("token_count", len(tokens)),
	)

	return balance, tokens, nil
}

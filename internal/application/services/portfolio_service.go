package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/domain/repositories"
)

const (
	// topAssetCount is how many holdings the summary text lists
	topAssetCount = 20

	// attachmentThreshold is the summary length above which the full
	// listing is attached
	attachmentThreshold = 3800
)

// PortfolioFetcher retrieves a live portfolio snapshot
type PortfolioFetcher interface {
	FetchPortfolio(ctx context.Context, address string) (float64, []entities.TokenHolding, error)
}

// CacheStatus tells where a displayed portfolio came from
type CacheStatus string

const (
	CacheStatusLive   CacheStatus = "live"
	CacheStatusCached CacheStatus = "cached"
	CacheStatusStale  CacheStatus = "cached, update failed"
)

// PortfolioService serves wallet portfolios, refreshing stale snapshots
type PortfolioService struct {
	wallets repositories.WalletRepository
	fetcher PortfolioFetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(
	wallets repositories.WalletRepository,
	fetcher PortfolioFetcher,
	ttl time.Duration,
	logger *zap.Logger,
) *PortfolioService {
	return &PortfolioService{
		wallets: wallets,
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// PortfolioView is a rendered portfolio
type PortfolioView struct {
	Address        string                  `json:"address"`
	Alias          string                  `json:"alias"`
	SolBalance     float64                 `json:"sol_balance"`
	Tokens         []entities.TokenHolding `json:"tokens"`
	TokenCount     int                     `json:"token_count"`
	Status         CacheStatus             `json:"cache_status"`
	LastAssetCheck int64                   `json:"last_asset_check"`
	LastUpdated    string                  `json:"last_updated"`
	Text           string                  `json:"text"`
	Attachment     string                  `json:"attachment,omitempty"`
}

// GetDisplayPortfolio returns the portfolio of the wallet matching
// identifier (address or alias). A valid cached snapshot is served as is;
// otherwise a live fetch is attempted and, on failure, the stored snapshot
// is served instead.
func (s *PortfolioService) GetDisplayPortfolio(ctx context.Context, identifier string) (*PortfolioView, error) {
	wallet, err := s.wallets.GetWallet(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, entities.ErrNotFound
	}

	now := s.now()
	solBalance := wallet.SolBalance
	tokens := wallet.Holdings()
	lastCheck := wallet.LastAssetCheck
	status := CacheStatusCached

	if !IsCacheValid(now.Unix(), wallet.LastAssetCheck, wallet.LastActivityAt, s.ttl) {
		status = s.refresh(ctx, wallet, now, &solBalance, &tokens, &lastCheck)
	}

	sortHoldings(tokens)

	view := &PortfolioView{
		Address:        wallet.Address,
		Alias:          wallet.Alias,
		SolBalance:     solBalance,
		Tokens:         tokens,
		TokenCount:     len(tokens),
		Status:         status,
		LastAssetCheck: lastCheck,
		LastUpdated:    FormatTimeAgo(now, lastCheck),
	}
	view.Text = renderSummary(view)
	if len(tokens) > topAssetCount || len(view.Text) > attachmentThreshold {
		view.Attachment = renderFullListing(view)
	}

	return view, nil
}

func (s *PortfolioService) refresh(
	ctx context.Context,
	wallet *entities.Wallet,
	now time.Time,
	solBalance *float64,
	tokens *[]entities.TokenHolding,
	lastCheck *int64,
) CacheStatus {
	balance, holdings, err := s.fetcher.FetchPortfolio(ctx, wallet.Address)
	if err != nil {
		s.logger.Error("Portfolio fetch failed, serving stored snapshot",
			zap.String("address", wallet.Address),
			zap.Error(err),
		)
		return CacheStatusStale
	}

	if err := s.wallets.UpdatePortfolio(ctx, wallet.Address, balance, holdings); err != nil {
		s.logger.Error("Failed to store portfolio snapshot",
			zap.String("address", wallet.Address),
			zap.Error(err),
		)
		return CacheStatusStale
	}

	*solBalance = balance
	*tokens = holdings
	*lastCheck = now.Unix()
	return CacheStatusLive
}

// sortHoldings orders holdings by display amount, largest first
func sortHoldings(tokens []entities.TokenHolding) {
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].DisplayAmount().GreaterThan(tokens[j].DisplayAmount())
	})
}

func renderSummary(v *PortfolioView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Portfolio (%s)\n", v.Alias, v.Status)
	fmt.Fprintf(&b, "Last updated: %s\n\n", v.LastUpdated)
	fmt.Fprintf(&b, "SOL Balance: %.4f SOL\n\n", v.SolBalance)
	fmt.Fprintf(&b, "Top Assets (%d total):\n", v.TokenCount)

	if len(v.Tokens) == 0 {
		b.WriteString("No token holdings found\n")
		return b.String()
	}

	for i, t := range v.Tokens {
		if i == topAssetCount {
			break
		}
		fmt.Fprintf(&b, "%2d. %s (%s)\n    %s\n", i+1, t.Name, t.Symbol, t.DisplayAmount().StringFixed(4))
	}
	return b.String()
}

func renderFullListing(v *PortfolioView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio Summary\nWallet: %s\nUpdated: %s\nSOL Balance: %.4f\n\nAssets\n",
		v.Alias, v.LastUpdated, v.SolBalance)
	for i, t := range v.Tokens {
		fmt.Fprintf(&b, "%3d. %s (%s): %s\n", i+1, t.Name, t.Symbol, t.DisplayAmount().StringFixed(4))
	}
	return b.String()
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/testutil"
)

type stubFetcher struct {
	balance float64
	tokens  []entities.TokenHolding
	err     error
	calls   int
}

func (f *stubFetcher) FetchPortfolio(ctx context.Context, address string) (float64, []entities.TokenHolding, error) {
	f.calls++
	return f.balance, f.tokens, f.err
}

func newPortfolioFixture(now time.Time, fetcher PortfolioFetcher, wallets ...entities.Wallet) (*PortfolioService, *testutil.MockWalletRepository) {
	repo := testutil.NewMockWalletRepository()
	repo.Now = func() time.Time { return now }
	repo.AddWallets(wallets...)

	svc := NewPortfolioService(repo, fetcher, 5*time.Minute, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, repo
}

func TestPortfolioService_GetDisplayPortfolio(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	stored := []entities.TokenHolding{testutil.CreateTestHolding(testutil.USDCMint, "USDC", 5_000_000, 6)}

	t.Run("serves valid cache without fetching", func(t *testing.T) {
		fetcher := &stubFetcher{}
		svc, _ := newPortfolioFixture(now, fetcher, testutil.CreateTestWallet(
			testutil.WithActivity(now.Unix()-600, 4),
			testutil.WithSnapshot(now.Unix()-60, 2.5, stored),
		))

		view, err := svc.GetDisplayPortfolio(ctx, "ALICE")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if view.Status != CacheStatusCached {
			t.Errorf("expected cached, got %s", view.Status)
		}
		if fetcher.calls != 0 {
			t.Errorf("expected no fetch, got %d", fetcher.calls)
		}
		if view.SolBalance != 2.5 || view.TokenCount != 1 {
			t.Errorf("unexpected view: %+v", view)
		}
		if !strings.Contains(view.Text, "alice Portfolio (cached)") {
			t.Errorf("unexpected text: %q", view.Text)
		}
		if view.Attachment != "" {
			t.Error("expected no attachment")
		}
	})

	t.Run("refreshes after new activity", func(t *testing.T) {
		fetcher := &stubFetcher{
			balance: 7.25,
			tokens: []entities.TokenHolding{
				testutil.CreateTestHolding(testutil.USDCMint, "USDC", 1_000_000, 6),
				testutil.CreateTestHolding(testutil.BonkMint, "BONK", 500_000_000, 5),
			},
		}
		svc, repo := newPortfolioFixture(now, fetcher, testutil.CreateTestWallet(
			testutil.WithActivity(now.Unix()-30, 4),
			testutil.WithSnapshot(now.Unix()-60, 2.5, stored),
		))

		view, err := svc.GetDisplayPortfolio(ctx, testutil.AliceAddress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if view.Status != CacheStatusLive {
			t.Errorf("expected live, got %s", view.Status)
		}
		if view.SolBalance != 7.25 {
			t.Errorf("expected refreshed balance, got %v", view.SolBalance)
		}
		if view.Tokens[0].Symbol != "BONK" {
			t.Errorf("expected BONK first by display amount, got %s", view.Tokens[0].Symbol)
		}
		if view.LastAssetCheck != now.Unix() {
			t.Errorf("expected last check %d, got %d", now.Unix(), view.LastAssetCheck)
		}
		if repo.CallCount("UpdatePortfolio") != 1 {
			t.Errorf("expected snapshot to be stored")
		}

		w, _ := repo.GetWallet(ctx, testutil.AliceAddress)
		if w.LastAssetCheck != now.Unix() || len(w.Holdings()) != 2 {
			t.Errorf("expected stored snapshot, got %+v", w)
		}
	})

	t.Run("falls back to stored snapshot when fetch fails", func(t *testing.T) {
		fetcher := &stubFetcher{err: errors.New("rpc down")}
		svc, repo := newPortfolioFixture(now, fetcher, testutil.CreateTestWallet(
			testutil.WithSnapshot(now.Unix()-3600, 2.5, stored),
		))

		view, err := svc.GetDisplayPortfolio(ctx, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if view.Status != CacheStatusStale {
			t.Errorf("expected stale status, got %s", view.Status)
		}
		if view.SolBalance != 2.5 {
			t.Errorf("expected stored balance, got %v", view.SolBalance)
		}
		if view.LastUpdated != "1 hour ago" {
			t.Errorf("expected '1 hour ago', got %q", view.LastUpdated)
		}
		if repo.CallCount("UpdatePortfolio") != 0 {
			t.Error("expected no store write")
		}
	})

	t.Run("attaches full listing for large portfolios", func(t *testing.T) {
		tokens := make([]entities.TokenHolding, 25)
		for i := range tokens {
			tokens[i] = testutil.CreateTestHolding(testutil.BonkMint, "T", int64(i+1), 0)
		}
		svc, _ := newPortfolioFixture(now, &stubFetcher{tokens: tokens}, testutil.CreateTestWallet())

		view, err := svc.GetDisplayPortfolio(ctx, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if view.Attachment == "" {
			t.Fatal("expected attachment")
		}
		if strings.Count(view.Text, "\n    ") != 20 {
			t.Errorf("expected 20 listed assets in summary")
		}
		if !strings.Contains(view.Attachment, " 25. ") {
			t.Errorf("expected all assets in attachment")
		}
	})

	t.Run("unknown wallet", func(t *testing.T) {
		svc, _ := newPortfolioFixture(now, &stubFetcher{})

		_, err := svc.GetDisplayPortfolio(ctx, "nobody")
		if !errors.Is(err, entities.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSortHoldings_DefaultDecimals(t *testing.T) {
	stored := `[{"mint":"a","symbol":"A","amount":"5000000000"},{"mint":"b","symbol":"B","amount":"6","decimals":0}]`
	tokens := entities.DecodeHoldings(stored)

	sortHoldings(tokens)

	// A has no decimals so is read as 5 at the default 9 decimals
	if tokens[0].Symbol != "B" {
		t.Errorf("expected B first, got %s", tokens[0].Symbol)
	}
}

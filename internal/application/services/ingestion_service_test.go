package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/testutil"
)

func newIngestionFixture() (*IngestionService, *testutil.MockWalletRepository, *testutil.MockNotifier) {
	repo := testutil.NewMockWalletRepository()
	repo.AddWallets(
		testutil.CreateTestWallet(),
		testutil.CreateTestWallet(testutil.WithAddress(testutil.BobAddress), testutil.WithAlias("bob")),
	)
	notifier := testutil.NewMockNotifier()
	svc := NewIngestionService(repo, newTestResolver(), notifier, 4, zap.NewNop())
	return svc, repo, notifier
}

func TestIngestionService_HandleBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches one notification per transaction", func(t *testing.T) {
		svc, repo, notifier := newIngestionFixture()

		txs := []entities.RawTransaction{
			testutil.CreateTestTransaction(
				testutil.TxWithType(entities.TxTypeTransfer),
				testutil.TxWithDescription(testutil.AliceAddress+" transferred 1 SOL to "+testutil.BobAddress+"."),
				testutil.TxWithNativeChange(testutil.AliceAddress, -1_000_000_000),
				testutil.TxWithNativeChange(testutil.BobAddress, 1_000_000_000),
			),
			testutil.CreateTestTransaction(
				testutil.TxWithType(entities.TxTypeSwap),
				testutil.TxWithFeePayer(testutil.BobAddress),
				testutil.TxWithTokenTransfer(testutil.BobAddress, testutil.CharlieAddress, testutil.USDCMint, "-5", 6),
				testutil.TxWithTokenTransfer(testutil.CharlieAddress, testutil.BobAddress, testutil.BonkMint, "5", 5),
			),
			testutil.CreateTestTransaction(testutil.TxWithType("NFT_SALE")),
		}

		outcomes := svc.HandleBatch(ctx, txs)
		require.Len(t, outcomes, 3)

		for _, o := range outcomes {
			assert.Equal(t, OutcomeNotified, o.Status)
			assert.NoError(t, o.Err)
		}
		assert.Equal(t, entities.NotificationTransfer, outcomes[0].Kind)
		assert.Equal(t, testutil.AliceAddress, outcomes[0].Wallet)
		assert.Equal(t, entities.NotificationSwap, outcomes[1].Kind)
		assert.Equal(t, entities.NotificationGeneric, outcomes[2].Kind)

		assert.Len(t, notifier.Notifications(), 3)
		assert.Equal(t, 3, repo.CallCount("RecordActivity"))
	})

	t.Run("transfer labels both monitored sides", func(t *testing.T) {
		svc, _, notifier := newIngestionFixture()

		tx := testutil.CreateTestTransaction(
			testutil.TxWithType(entities.TxTypeTransfer),
			testutil.TxWithDescription(testutil.AliceAddress+" transferred 1 SOL to "+testutil.BobAddress),
			testutil.TxWithNativeChange(testutil.AliceAddress, -10),
			testutil.TxWithNativeChange(testutil.BobAddress, 10),
		)

		svc.HandleBatch(ctx, []entities.RawTransaction{tx})

		sent := notifier.Notifications()
		require.Len(t, sent, 1)
		n := sent[0]
		assert.Equal(t, "alice", n.Label(testutil.AliceAddress))
		assert.Equal(t, "bob", n.Label(testutil.BobAddress))
		assert.Equal(t, "HN7cAB...YWrH", n.Label(testutil.CharlieAddress))
	})

	t.Run("unknown wallet is ignored without side effects", func(t *testing.T) {
		svc, repo, notifier := newIngestionFixture()

		tx := testutil.CreateTestTransaction(
			testutil.TxWithType(entities.TxTypeSwap),
			testutil.TxWithFeePayer(testutil.CharlieAddress),
		)
		outcomes := svc.HandleBatch(ctx, []entities.RawTransaction{tx})

		assert.Equal(t, OutcomeIgnored, outcomes[0].Status)
		assert.Empty(t, notifier.Notifications())
		assert.Equal(t, 0, repo.CallCount("RecordActivity"))
	})

	t.Run("transfer without monitored address is ignored", func(t *testing.T) {
		svc, _, notifier := newIngestionFixture()

		tx := testutil.CreateTestTransaction(
			testutil.TxWithType(entities.TxTypeTransfer),
			testutil.TxWithDescription("nothing to see"),
		)
		outcomes := svc.HandleBatch(ctx, []entities.RawTransaction{tx})

		assert.Equal(t, OutcomeIgnored, outcomes[0].Status)
		assert.Empty(t, notifier.Notifications())
	})

	t.Run("unparseable swap falls back to generic", func(t *testing.T) {
		svc, _, notifier := newIngestionFixture()

		tx := testutil.CreateTestTransaction(
			testutil.TxWithType(entities.TxTypeSwap),
			testutil.TxWithTokenTransfer(testutil.AliceAddress, testutil.CharlieAddress, "", "-1", 6),
		)
		outcomes := svc.HandleBatch(ctx, []entities.RawTransaction{tx})

		assert.Equal(t, OutcomeNotified, outcomes[0].Status)
		assert.Equal(t, entities.NotificationGeneric, outcomes[0].Kind)
		require.Len(t, notifier.Notifications(), 1)
		assert.Equal(t, entities.TxTypeSwap, notifier.Notifications()[0].TxType)
	})

	t.Run("failures are isolated per item", func(t *testing.T) {
		svc, repo, notifier := newIngestionFixture()
		repo.RecordActivityFunc = func(ctx context.Context, address string) error {
			if address == testutil.BobAddress {
				return errors.New("database error")
			}
			return nil
		}

		txs := []entities.RawTransaction{
			testutil.CreateTestTransaction(testutil.TxWithType("NFT_SALE")),
			testutil.CreateTestTransaction(testutil.TxWithType("NFT_SALE"), testutil.TxWithFeePayer(testutil.BobAddress)),
			testutil.CreateTestTransaction(testutil.TxWithType("STAKE")),
		}
		outcomes := svc.HandleBatch(ctx, txs)

		assert.Equal(t, OutcomeNotified, outcomes[0].Status)
		assert.Equal(t, OutcomeFailed, outcomes[1].Status)
		assert.Error(t, outcomes[1].Err)
		assert.Equal(t, OutcomeNotified, outcomes[2].Status)
		assert.Len(t, notifier.Notifications(), 2)
	})

	t.Run("panics are contained", func(t *testing.T) {
		svc, _, notifier := newIngestionFixture()
		notifier.NotifyFunc = func(ctx context.Context, n entities.Notification) error {
			if n.TxType == "BOOM" {
				panic("sink exploded")
			}
			return nil
		}

		txs := []entities.RawTransaction{
			testutil.CreateTestTransaction(testutil.TxWithType("BOOM")),
			testutil.CreateTestTransaction(testutil.TxWithType("STAKE")),
		}
		outcomes := svc.HandleBatch(ctx, txs)

		assert.Equal(t, OutcomeFailed, outcomes[0].Status)
		assert.Equal(t, OutcomeNotified, outcomes[1].Status)
	})

	t.Run("delivery error marks item failed", func(t *testing.T) {
		svc, _, notifier := newIngestionFixture()
		notifier.NotifyFunc = func(ctx context.Context, n entities.Notification) error {
			return errors.New("telegram down")
		}

		outcomes := svc.HandleBatch(ctx, []entities.RawTransaction{testutil.CreateTestTransaction()})
		assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	})
}

type poisonResolver struct {
	poison string
}

func (r poisonResolver) Resolve(ctx context.Context, mint string) entities.TokenInfo {
	if mint == r.poison {
		panic("poisoned mint")
	}
	return entities.TokenInfo{Name: "Bonk", Symbol: "BONK"}
}

func TestIngestionService_BatchFaultIsolation(t *testing.T) {
	repo := testutil.NewMockWalletRepository()
	repo.AddWallets(testutil.CreateTestWallet())
	notifier := testutil.NewMockNotifier()
	svc := NewIngestionService(repo, poisonResolver{poison: testutil.JUPMint}, notifier, 2, zap.NewNop())

	transfer := func(mint string) entities.RawTransaction {
		return testutil.CreateTestTransaction(
			testutil.TxWithType(entities.TxTypeTransfer),
			testutil.TxWithDescription("received from "+testutil.AliceAddress),
			testutil.TxWithTokenTransfer(testutil.CharlieAddress, testutil.AliceAddress, mint, "1", 5),
		)
	}
	txs := []entities.RawTransaction{
		transfer(testutil.BonkMint),
		transfer(testutil.BonkMint),
		transfer(testutil.JUPMint),
		transfer(testutil.BonkMint),
		transfer(testutil.BonkMint),
	}

	outcomes := svc.HandleBatch(context.Background(), txs)

	for i, o := range outcomes {
		if i == 2 {
			assert.Equal(t, OutcomeFailed, o.Status)
			continue
		}
		assert.Equal(t, OutcomeNotified, o.Status, "item %d", i)
	}
	assert.Len(t, notifier.Notifications(), 4)

	w, _ := repo.GetWallet(context.Background(), testutil.AliceAddress)
	assert.Equal(t, int64(5), w.TxCount, "activity is recorded before parsing")
}

func TestIngestionService_ActivityIdempotence(t *testing.T) {
	svc, repo, _ := newIngestionFixture()
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.Now = func() time.Time { return fixed }

	tx := testutil.CreateTestTransaction(testutil.TxWithType("STAKE"))
	svc.HandleBatch(context.Background(), []entities.RawTransaction{tx, tx, tx})

	w, err := repo.GetWallet(context.Background(), testutil.AliceAddress)
	require.NoError(t, err)
	assert.Equal(t, int64(3), w.TxCount)
	assert.Equal(t, fixed.Unix(), w.LastActivityAt)
}

func TestIngestionService_SubmitAndShutdown(t *testing.T) {
	svc, _, notifier := newIngestionFixture()

	require.NoError(t, svc.Submit([]entities.RawTransaction{testutil.CreateTestTransaction()}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))

	assert.Len(t, notifier.Notifications(), 1)
	assert.ErrorIs(t, svc.Submit(nil), ErrShuttingDown)
}

func TestIngestionService_ShutdownCancelsSlowBatches(t *testing.T) {
	svc, _, notifier := newIngestionFixture()
	notifier.NotifyFunc = func(ctx context.Context, n entities.Notification) error {
		<-ctx.Done()
		return ctx.Err()
	}

	require.NoError(t, svc.Submit([]entities.RawTransaction{testutil.CreateTestTransaction()}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Shutdown(ctx), context.DeadlineExceeded)
	assert.Empty(t, notifier.Notifications())
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/domain/repositories"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/metrics"
)

// ErrShuttingDown is returned by Submit once Shutdown has started
var ErrShuttingDown = errors.New("ingestion service is shutting down")

// Notifier delivers a notification to a sink
type Notifier interface {
	Notify(ctx context.Context, n entities.Notification) error
}

// OutcomeStatus describes what happened to one transaction of a batch
type OutcomeStatus string

const (
	OutcomeNotified OutcomeStatus = "notified"
	OutcomeIgnored  OutcomeStatus = "ignored"
	OutcomeFailed   OutcomeStatus = "failed"
)

// ItemOutcome is the result of processing one transaction
type ItemOutcome struct {
	Signature string
	Wallet    string
	TxType    string
	Kind      entities.NotificationKind
	Status    OutcomeStatus
	Err       error
}

// IngestionService turns webhook batches into notifications
type IngestionService struct {
	wallets    repositories.WalletRepository
	classifier *Classifier
	transfers  *TransferParser
	swaps      *SwapParser
	notifier   Notifier
	logger     *zap.Logger

	maxConcurrency int

	baseCtx context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

// NewIngestionService creates a new ingestion service. maxConcurrency bounds
// the number of transactions of one batch processed at the same time.
func NewIngestionService(
	wallets repositories.WalletRepository,
	resolver TokenResolver,
	notifier Notifier,
	maxConcurrency int,
	logger *zap.Logger,
) *IngestionService {
	if maxConcurrency <= 0 {
		maxConcurrency = 16
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &IngestionService{
		wallets:        wallets,
		classifier:     NewClassifier(wallets, logger),
		transfers:      NewTransferParser(resolver, logger),
		swaps:          NewSwapParser(resolver, logger),
		notifier:       notifier,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		baseCtx:        ctx,
		cancel:         cancel,
	}
}

// HandleBatch processes every transaction of a batch concurrently. A failure
// in one transaction never affects the others; all outcomes are returned in
// input order.
func (s *IngestionService) HandleBatch(ctx context.Context, txs []entities.RawTransaction) []ItemOutcome {
	outcomes := make([]ItemOutcome, len(txs))

	p := pool.New().WithMaxGoroutines(s.maxConcurrency).WithContext(ctx)
	for i := range txs {
		i := i
		p.Go(func(ctx context.Context) error {
			outcomes[i] = s.processSafe(ctx, &txs[i])
			return nil
		})
	}
	_ = p.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Status == OutcomeFailed {
			failed++
		}
	}
	s.logger.Info("Processed transaction batch",
		zap.Int("count", len(txs)),
		zap.Int("failed", failed),
	)

	return outcomes
}

// Submit processes a batch in the background
func (s *IngestionService) Submit(txs []entities.RawTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrShuttingDown
	}

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.HandleBatch(s.baseCtx, txs)
	}()
	return nil
}

// Shutdown stops accepting batches and waits for running ones. If ctx ends
// first the running batches are cancelled.
func (s *IngestionService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func (s *IngestionService) processSafe(ctx context.Context, tx *entities.RawTransaction) (outcome ItemOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Transaction processing panicked",
				zap.String("signature", tx.Signature),
				zap.Any("panic", r),
			)
			outcome = ItemOutcome{
				Signature: tx.Signature,
				TxType:    tx.TypeOrDefault(),
				Status:    OutcomeFailed,
				Err:       fmt.Errorf("panic: %v", r),
			}
		}
		metrics.TransactionsTotal.WithLabelValues(outcome.TxType, string(outcome.Status)).Inc()
	}()

	if tx.DroppedLegs > 0 {
		metrics.MalformedItemsTotal.WithLabelValues("leg").Add(float64(tx.DroppedLegs))
	}

	outcome = s.process(ctx, tx)
	if outcome.Err != nil {
		s.logger.Error("Failed to process transaction",
			zap.String("signature", tx.Signature),
			zap.String("type", outcome.TxType),
			zap.Error(outcome.Err),
		)
	}
	return outcome
}

func (s *IngestionService) process(ctx context.Context, tx *entities.RawTransaction) ItemOutcome {
	outcome := ItemOutcome{
		Signature: tx.Signature,
		TxType:    tx.TypeOrDefault(),
	}

	classified, err := s.classifier.Classify(ctx, tx)
	if err != nil {
		outcome.Status, outcome.Err = OutcomeFailed, err
		return outcome
	}
	outcome.TxType = classified.TxType

	if classified.WalletAddress == "" {
		outcome.Status = OutcomeIgnored
		return outcome
	}

	wallet, err := s.wallets.GetWallet(ctx, classified.WalletAddress)
	if err != nil {
		outcome.Status, outcome.Err = OutcomeFailed, fmt.Errorf("failed to get wallet: %w", err)
		return outcome
	}
	if wallet == nil {
		s.logger.Debug("Ignoring transaction for unknown wallet",
			zap.String("wallet", classified.WalletAddress),
			zap.String("signature", tx.Signature),
		)
		outcome.Status = OutcomeIgnored
		return outcome
	}
	outcome.Wallet = wallet.Address

	if err := s.wallets.RecordActivity(ctx, wallet.Address); err != nil {
		outcome.Status, outcome.Err = OutcomeFailed, fmt.Errorf("failed to record activity: %w", err)
		return outcome
	}

	n := s.buildNotification(ctx, wallet, classified.TxType, tx)
	outcome.Kind = n.Kind

	if err := s.notifier.Notify(ctx, n); err != nil {
		outcome.Status, outcome.Err = OutcomeFailed, fmt.Errorf("failed to deliver notification: %w", err)
		return outcome
	}

	outcome.Status = OutcomeNotified
	return outcome
}

// buildNotification produces exactly one notification for a transaction of
// a monitored wallet
func (s *IngestionService) buildNotification(ctx context.Context, wallet *entities.Wallet, txType string, tx *entities.RawTransaction) entities.Notification {
	n := entities.Notification{
		Kind:          entities.NotificationGeneric,
		WalletAddress: wallet.Address,
		WalletAlias:   wallet.Alias,
		TxType:        txType,
		Timestamp:     tx.Timestamp,
		Signature:     tx.Signature,
		Labels:        map[string]string{wallet.Address: wallet.Alias},
	}

	switch txType {
	case entities.TxTypeTransfer:
		event := s.transfers.Parse(ctx, tx)
		n.Kind = entities.NotificationTransfer
		n.Transfer = event
		s.labelParties(ctx, n.Labels, transferParties(event))

	case entities.TxTypeSwap:
		if event := s.swaps.Parse(ctx, tx); event != nil {
			n.Kind = entities.NotificationSwap
			n.Swap = event
		}
	}

	return n
}

// labelParties adds the alias of every monitored address among parties
func (s *IngestionService) labelParties(ctx context.Context, labels map[string]string, parties []string) {
	for _, addr := range parties {
		if addr == "" || addr == unknownParty {
			continue
		}
		if _, ok := labels[addr]; ok {
			continue
		}

		w, err := s.wallets.GetWallet(ctx, addr)
		if err != nil {
			s.logger.Debug("Failed to look up counterparty", zap.String("address", addr), zap.Error(err))
			continue
		}
		if w != nil && w.Address == addr {
			labels[addr] = w.Alias
		}
	}
}

func transferParties(event *entities.TransferEvent) []string {
	if event == nil {
		return nil
	}
	parties := []string{event.From, event.To}
	for _, leg := range event.Transfers {
		parties = append(parties, leg.From, leg.To)
	}
	return parties
}

package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/config"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/httpclient"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/metrics"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/retry"
)

// ErrAccountNotFound indicates the requested account does not exist
var ErrAccountNotFound = errors.New("account not found")

// Client wraps the Solana RPC client with retry logic
type Client struct {
	rpc     *rpc.Client
	session *httpclient.Session
	policy  retry.Policy
	logger  *zap.Logger
}

// NewClient creates a Solana RPC client on top of the shared HTTP session
func NewClient(cfg config.SolanaConfig, session *httpclient.Session, logger *zap.Logger) *Client {
	rpcClient := rpc.NewWithCustomRPCClient(jsonrpc.NewClientWithOpts(cfg.RPCURL, &jsonrpc.RPCClientOpts{
		HTTPClient: session.HTTPClient(),
	}))

	logger.Info("Configured Solana RPC client", zap.String("rpc_url", cfg.RPCURL))

	return &Client{
		rpc:     rpcClient,
		session: session,
		policy:  newPolicy(cfg.MaxAttempts, cfg.RetryDelay, "solana_rpc", logger),
		logger:  logger,
	}
}

// GetBalance returns the native balance of address in SOL
func (c *Client) GetBalance(ctx context.Context, address string) (float64, error) {
	pubKey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", address, err)
	}

	_, release, err := c.session.Acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	var lamports uint64
	err = retry.Do(ctx, c.policy, func(ctx context.Context) error {
		out, err := c.rpc.GetBalance(ctx, pubKey, rpc.CommitmentConfirmed)
		if err != nil {
			return err
		}
		lamports = out.Value
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL), nil
}

// HealthCheck asks the RPC node whether it is caught up with the cluster
func (c *Client) HealthCheck(ctx context.Context) error {
	status, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("rpc health check failed: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("rpc node reports %q", status)
	}
	return nil
}

// GetAccountData returns the raw data of an account
func (c *Client) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	_, release, err := c.session.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	var data []byte
	err = retry.Do(ctx, c.policy, func(ctx context.Context) error {
		out, err := c.rpc.GetAccountInfo(ctx, account)
		if err != nil {
			if errors.Is(err, rpc.ErrNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		if out == nil || out.Value == nil || out.Value.Data == nil {
			return ErrAccountNotFound
		}
		data = out.Value.Data.GetBinary()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", account, err)
	}

	return data, nil
}

// newPolicy builds the shared bounded exponential retry policy for an upstream
func newPolicy(maxAttempts int, baseDelay time.Duration, operation string, logger *zap.Logger) retry.Policy {
	return retry.Policy{
		MaxAttempts: maxAttempts,
		Backoff:     retry.Exponential(baseDelay, 2, 30*time.Second),
		Retryable:   retry.IsTransient,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			metrics.UpstreamRetriesTotal.WithLabelValues(operation).Inc()
			logger.Warn("Upstream call failed, retrying",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		},
	}
}

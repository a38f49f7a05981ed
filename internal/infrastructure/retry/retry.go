package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"
)

// BackoffFunc returns how long to wait after the given failed attempt (1-based)
type BackoffFunc func(attempt int) time.Duration

// Policy parameterizes Do
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
	Retryable   func(err error) bool

	// OnRetry is called before each wait. Optional.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Exponential returns base, base*factor, base*factor^2, ... capped at max
func Exponential(base time.Duration, factor float64, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		wait := time.Duration(float64(base) * math.Pow(factor, float64(attempt-1)))
		if max > 0 && wait > max {
			return max
		}
		return wait
	}
}

// DefaultPolicy is three attempts with 1s, 2s backoff on transient errors
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Exponential(time.Second, 2, 30*time.Second),
		Retryable:   IsTransient,
	}
}

// Do calls fn until it succeeds, fails with a non-retryable error, runs out of
// attempts, or ctx is done. A server supplied delay (see RetryAfter) replaces
// the computed backoff for that attempt.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if after, ok := RetryAfter(err); ok {
			wait = after
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}

// StatusError is a non-2xx response from an upstream HTTP API
type StatusError struct {
	StatusCode int
	Message    string
	Wait       time.Duration // server supplied retry delay, 0 if none
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

// RetryAfter extracts a server supplied delay from err
func RetryAfter(err error) (time.Duration, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Wait > 0 {
		return statusErr.Wait, true
	}
	return 0, false
}

// IsRetryableStatus reports whether an HTTP status is worth retrying
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTransient classifies rate limiting, 5xx, timeouts and transport failures
// as retryable
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return IsRetryableStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	lower := strings.ToLower(err.Error())
	for _, token := range transientMessageTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// IsRateLimited reports whether err is an HTTP 429
func IsRateLimited(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"too many requests",
	"429",
	"500 internal server error",
	"502 bad gateway",
	"503 service unavailable",
	"504 gateway timeout",
	"connection reset",
	"connection refused",
	"broken pipe",
	"unexpected eof",
	"server closed idle connection",
}

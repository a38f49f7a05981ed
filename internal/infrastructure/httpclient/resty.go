package httpclient

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// NewRestyClient builds a resty client on top of the session's pooled
// transport. When limiter is non-nil every request waits for a token first.
// Retries are left to the caller.
func NewRestyClient(session *Session, limiter *rate.Limiter, logger *zap.Logger) *resty.Client {
	client := resty.NewWithClient(session.HTTPClient()).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
			if limiter == nil {
				return nil
			}
			ctx := r.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := limiter.Wait(ctx); err != nil {
				logger.Warn("Rate limiter wait failed", zap.Error(err))
				return err
			}
			return nil
		}).
		AddResponseMiddleware(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				logger.Warn("HTTP request failed",
					zap.Int("status", resp.StatusCode()),
					zap.String("method", resp.Request.Method),
				)
			}
			return nil
		})

	return client
}

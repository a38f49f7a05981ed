package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"resty.dev/v3"

	"github.com/bimakw/wallet-watcher/internal/config"
	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/httpclient"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/metrics"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/retry"
)

// retryPadding is added to Telegram's retry_after before resending
const retryPadding = 2 * time.Second

// TelegramNotifier delivers notifications to a set of Telegram chats
type TelegramNotifier struct {
	client  *resty.Client
	session *httpclient.Session
	baseURL string
	chatIDs []string
	policy  retry.Policy
	padding time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewTelegramNotifier creates a Bot API sender sharing the process HTTP session
func NewTelegramNotifier(cfg config.TelegramConfig, session *httpclient.Session, logger *zap.Logger) *TelegramNotifier {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 3
	}

	return &TelegramNotifier{
		client:  httpclient.NewRestyClient(session, limiter, logger),
		session: session,
		baseURL: fmt.Sprintf("%s/bot%s", strings.TrimRight(cfg.APIURL, "/"), cfg.BotToken),
		chatIDs: cfg.ChatIDs,
		policy: retry.Policy{
			MaxAttempts: attempts,
			Backoff:     retry.Exponential(time.Second, 2, 30*time.Second),
			Retryable:   retry.IsTransient,
			OnRetry: func(attempt int, err error, wait time.Duration) {
				metrics.UpstreamRetriesTotal.WithLabelValues("telegram").Inc()
				logger.Warn("Retrying Telegram delivery",
					zap.Int("attempt", attempt),
					zap.Duration("wait", wait),
					zap.Error(err),
				)
			},
		},
		padding: retryPadding,
		now:     time.Now,
		logger:  logger,
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Notify sends n to every configured chat. A failing chat does not stop the
// others; all failures are returned joined.
func (t *TelegramNotifier) Notify(ctx context.Context, n entities.Notification) error {
	text := FormatMessage(n, t.now())

	var errs []error
	for _, chatID := range t.chatIDs {
		if err := t.Send(ctx, chatID, text); err != nil {
			t.logger.Error("Failed to deliver Telegram message",
				zap.String("chat_id", chatID),
				zap.String("signature", n.Signature),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("chat %s: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// Send delivers one MarkdownV2 message. If Telegram rejects the markup the
// message is resent once as plain text. The session is held for the whole
// delivery so closing it waits for in-flight sends.
func (t *TelegramNotifier) Send(ctx context.Context, chatID, text string) error {
	_, release, err := t.session.Acquire()
	if err != nil {
		return err
	}
	defer release()

	req := sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "MarkdownV2",
		DisableWebPagePreview: true,
	}

	err = retry.Do(ctx, t.policy, func(ctx context.Context) error {
		return t.sendOnce(ctx, req)
	})
	if isMarkupError(err) {
		t.logger.Warn("Telegram rejected markup, resending as plain text", zap.String("chat_id", chatID))
		req.ParseMode = ""
		req.Text = unescapeMarkdown(text)
		err = retry.Do(ctx, t.policy, func(ctx context.Context) error {
			return t.sendOnce(ctx, req)
		})
	}
	return err
}

func (t *TelegramNotifier) sendOnce(ctx context.Context, req sendMessageRequest) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(t.baseURL + "/sendMessage")
	if err != nil {
		return fmt.Errorf("sendMessage request failed: %w", err)
	}

	var out botResponse
	if body := resp.String(); body != "" {
		if err := sonic.UnmarshalString(body, &out); err != nil && resp.StatusCode() < 300 {
			return fmt.Errorf("failed to decode sendMessage response: %w", err)
		}
	}

	if resp.StatusCode() >= 300 || !out.OK {
		statusErr := &retry.StatusError{StatusCode: resp.StatusCode(), Message: out.Description}
		if resp.StatusCode() == http.StatusTooManyRequests && out.Parameters != nil {
			statusErr.Wait = time.Duration(out.Parameters.RetryAfter)*time.Second + t.padding
		}
		return statusErr
	}
	return nil
}

func isMarkupError(err error) bool {
	var statusErr *retry.StatusError
	return errors.As(err, &statusErr) &&
		statusErr.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(statusErr.Message), "can't parse entities")
}

func unescapeMarkdown(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

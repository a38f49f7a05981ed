package handlers

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/application/services"
	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/metrics"
)

// BatchSubmitter accepts decoded webhook batches for background processing
type BatchSubmitter interface {
	Submit(txs []entities.RawTransaction) error
}

// WebhookHandler receives Helius enhanced transaction webhooks
type WebhookHandler struct {
	ingestion BatchSubmitter
	secret    []byte
	maxBody   int64
	logger    *zap.Logger
}

// NewWebhookHandler creates a webhook handler guarded by secret
func NewWebhookHandler(ingestion BatchSubmitter, secret string, maxBody int64, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingestion: ingestion,
		secret:    []byte(secret),
		maxBody:   maxBody,
		logger:    logger,
	}
}

// WebhookResponse acknowledges a dispatched batch
type WebhookResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
	Skipped  int    `json:"skipped"`
}

// RegisterRoutes registers the webhook route on a chi router
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook", h.Receive)
}

// Receive handles POST /webhook. The batch is acknowledged as soon as it is
// handed to the ingestion service; processing continues in the background.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.logger.Warn("Rejected webhook with bad authorization", zap.String("ip", r.RemoteAddr))
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	txs, skipped, err := entities.DecodeBatch(body)
	if err != nil {
		h.logger.Warn("Rejected malformed webhook payload", zap.Error(err))
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if skipped > 0 {
		metrics.MalformedItemsTotal.WithLabelValues("item").Add(float64(skipped))
		h.logger.Warn("Skipped malformed webhook items", zap.Int("skipped", skipped))
	}

	if err := h.ingestion.Submit(txs); err != nil {
		if errors.Is(err, services.ErrShuttingDown) {
			respondError(w, http.StatusServiceUnavailable, "Shutting down")
			return
		}
		h.logger.Error("Failed to submit webhook batch", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}

	h.logger.Debug("Accepted webhook batch", zap.Int("transactions", len(txs)))
	respondJSON(w, http.StatusOK, WebhookResponse{Status: "ok", Accepted: len(txs), Skipped: skipped})
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	got := []byte(r.Header.Get("Authorization"))
	return len(h.secret) > 0 && subtle.ConstantTimeCompare(got, h.secret) == 1
}

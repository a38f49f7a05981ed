package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/application/services"
)

// PortfolioViewer renders wallet portfolios
type PortfolioViewer interface {
	GetDisplayPortfolio(ctx context.Context, identifier string) (*services.PortfolioView, error)
}

// PortfolioHandler handles HTTP requests for wallet portfolio endpoints
type PortfolioHandler struct {
	service PortfolioViewer
	logger  *zap.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(service PortfolioViewer, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the portfolio routes on a chi router
func (h *PortfolioHandler) RegisterRoutes(r chi.Router) {
	r.Get("/wallets/{identifier}/portfolio", h.GetPortfolio)
	r.Get("/wallets/{identifier}/portfolio/full", h.GetFullListing)
}

// GetPortfolio handles GET /api/v1/wallets/{identifier}/portfolio. With
// ?format=text the rendered summary is returned as plain text.
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	view, ok := h.load(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(view.Text))
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// GetFullListing handles GET /api/v1/wallets/{identifier}/portfolio/full and
// serves the complete holdings listing as a text file download
func (h *PortfolioHandler) GetFullListing(w http.ResponseWriter, r *http.Request) {
	view, ok := h.load(w, r)
	if !ok {
		return
	}

	body := view.Attachment
	if body == "" {
		body = view.Text
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_portfolio.txt"`, view.Alias))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (h *PortfolioHandler) load(w http.ResponseWriter, r *http.Request) (*services.PortfolioView, bool) {
	identifier := chi.URLParam(r, "identifier")

	view, err := h.service.GetDisplayPortfolio(r.Context(), identifier)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to get portfolio",
				zap.Error(err),
				zap.String("identifier", identifier),
			)
			respondError(w, status, "Failed to get portfolio")
			return nil, false
		}
		respondError(w, status, err.Error())
		return nil, false
	}
	return view, true
}

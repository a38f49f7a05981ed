package handlers

import (
	"context"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/application/services"
)

// WalletManager is the wallet registry the handler drives
type WalletManager interface {
	AddWallet(ctx context.Context, address, alias string) (*services.WalletDTO, error)
	RemoveWallet(ctx context.Context, identifier string) (*services.WalletDTO, error)
	ListWallets(ctx context.Context) ([]services.WalletDTO, error)
	GetStatus(ctx context.Context, identifier string) (*services.WalletStatusDTO, error)
}

// WalletHandler handles HTTP requests for the monitored wallet registry
type WalletHandler struct {
	service WalletManager
	logger  *zap.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(service WalletManager, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{
		service: service,
		logger:  logger,
	}
}

// AddWalletRequest is the body of POST /wallets
type AddWalletRequest struct {
	Address string `json:"address"`
	Alias   string `json:"alias"`
}

// WalletListResponse wraps the wallet list
type WalletListResponse struct {
	Data  []services.WalletDTO `json:"data"`
	Count int                  `json:"count"`
}

// RegisterRoutes registers the wallet routes on a chi router
func (h *WalletHandler) RegisterRoutes(r chi.Router) {
	r.Get("/wallets", h.ListWallets)
	r.Post("/wallets", h.AddWallet)
	r.Delete("/wallets/{identifier}", h.RemoveWallet)
	r.Get("/wallets/{identifier}/status", h.GetStatus)
}

// AddWallet handles POST /api/v1/wallets
func (h *WalletHandler) AddWallet(w http.ResponseWriter, r *http.Request) {
	var req AddWalletRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	wallet, err := h.service.AddWallet(r.Context(), req.Address, req.Alias)
	if err != nil {
		h.fail(w, err, "Failed to add wallet", zap.String("address", req.Address))
		return
	}

	respondJSON(w, http.StatusCreated, wallet)
}

// RemoveWallet handles DELETE /api/v1/wallets/{identifier}
func (h *WalletHandler) RemoveWallet(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	wallet, err := h.service.RemoveWallet(r.Context(), identifier)
	if err != nil {
		h.fail(w, err, "Failed to remove wallet", zap.String("identifier", identifier))
		return
	}

	respondJSON(w, http.StatusOK, wallet)
}

// ListWallets handles GET /api/v1/wallets
func (h *WalletHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.service.ListWallets(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to list wallets")
		return
	}

	respondJSON(w, http.StatusOK, WalletListResponse{Data: wallets, Count: len(wallets)})
}

// GetStatus handles GET /api/v1/wallets/{identifier}/status
func (h *WalletHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	status, err := h.service.GetStatus(r.Context(), identifier)
	if err != nil {
		h.fail(w, err, "Failed to get wallet status", zap.String("identifier", identifier))
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *WalletHandler) fail(w http.ResponseWriter, err error, message string, fields ...zap.Field) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(message, append(fields, zap.Error(err))...)
		respondError(w, status, message)
		return
	}
	respondError(w, status, err.Error())
}

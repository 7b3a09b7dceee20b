package payout

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kevin07696/book-market-service/internal/handlers/response"
	servicePorts "github.com/kevin07696/book-market-service/internal/services/ports"
	"go.uber.org/zap"
)

// Handler serves the owner sales and payout endpoints
type Handler struct {
	service servicePorts.PayoutService
	logger  *zap.Logger
}

// NewHandler creates a new payout handler
func NewHandler(service servicePorts.PayoutService, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type payoutRequest struct {
	Username      string `json:"username"`
	WalletAddress string `json:"walletAddress"`
}

type usernameRequest struct {
	Username string `json:"username"`
}

// RequestPayout handles POST /request-payout
func (h *Handler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	var req payoutRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	created, err := h.service.RequestPayout(r.Context(), servicePorts.RequestPayoutRequest{
		Username:      strings.TrimSpace(req.Username),
		WalletAddress: strings.TrimSpace(req.WalletAddress),
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, r, h.logger, map[string]interface{}{
		"amount": json.Number(created.Amount.StringFixed(2)),
	})
}

// MySales handles POST /my-sales
func (h *Handler) MySales(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	books, err := h.service.MySales(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, r, h.logger, map[string]interface{}{
		"books": response.NewBooks(books),
	})
}

// ResetSales handles POST /reset-sales
func (h *Handler) ResetSales(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	if err := h.service.ResetSales(r.Context(), strings.TrimSpace(req.Username)); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, r, h.logger, nil)
}

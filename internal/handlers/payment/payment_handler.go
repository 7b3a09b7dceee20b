package payment

import (
	"net/http"
	"strings"

	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/handlers/response"
	servicePorts "github.com/kevin07696/book-market-service/internal/services/ports"
	"go.uber.org/zap"
)

// Handler serves the payment lifecycle endpoints
type Handler struct {
	service servicePorts.PaymentService
	logger  *zap.Logger
}

// NewHandler creates a new payment handler
func NewHandler(service servicePorts.PaymentService, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type approveRequest struct {
	PaymentID string `json:"paymentId"`
	BookID    string `json:"bookId"`
	UserUID   string `json:"userUid"`
}

type completeRequest struct {
	PaymentID string `json:"paymentId"`
	TxID      string `json:"txid"`
}

type resolveRequest struct {
	PaymentID string `json:"paymentId"`
}

// ApprovePayment handles POST /approve-payment
func (h *Handler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	err := h.service.ApprovePayment(r.Context(), servicePorts.ApprovePaymentRequest{
		PaymentID: strings.TrimSpace(req.PaymentID),
		BookID:    strings.TrimSpace(req.BookID),
		UserUID:   strings.TrimSpace(req.UserUID),
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, r, h.logger, nil)
}

// CompletePayment handles POST /complete-payment
func (h *Handler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	resp, err := h.service.CompletePayment(r.Context(), servicePorts.CompletePaymentRequest{
		PaymentID: strings.TrimSpace(req.PaymentID),
		TxID:      strings.TrimSpace(req.TxID),
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, r, h.logger, map[string]interface{}{
		"pdfUrl": resp.PDFURL,
	})
}

// ResolvePending handles POST /resolve-pending. The outcome is logged by the
// service; the caller only learns that the attempt ran.
func (h *Handler) ResolvePending(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	paymentID := strings.TrimSpace(req.PaymentID)
	if paymentID == "" {
		response.Error(w, r, h.logger, domain.MissingData("paymentId"))
		return
	}

	h.service.Resolve(r.Context(), paymentID)
	response.OK(w, r, h.logger, nil)
}

// ListPendingPayments handles GET /pending-payments?userUid=
func (h *Handler) ListPendingPayments(w http.ResponseWriter, r *http.Request) {
	userUID := strings.TrimSpace(r.URL.Query().Get("userUid"))

	pending, err := h.service.ListPendingPayments(r.Context(), userUID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, r, h.logger, map[string]interface{}{
		"pendingPayments": response.NewPendingPayments(pending),
	})
}

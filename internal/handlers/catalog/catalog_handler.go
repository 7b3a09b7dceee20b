package catalog

import (
	"net/http"
	"strings"

	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/handlers/response"
	servicePorts "github.com/kevin07696/book-market-service/internal/services/ports"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handler serves listing and purchased-content endpoints
type Handler struct {
	service servicePorts.CatalogService
	logger  *zap.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(service servicePorts.CatalogService, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// saveBookRequest accepts price as a number or numeric string
type saveBookRequest struct {
	Title       string           `json:"title"`
	Price       decimal.Decimal  `json:"price"`
	Description string           `json:"description"`
	Language    string           `json:"language"`
	PageCount   domain.PageCount `json:"pageCount"`
	Cover       string           `json:"cover"`
	PDF         string           `json:"pdf"`
	Owner       string           `json:"owner"`
	OwnerUID    string           `json:"ownerUid"`
}

type getPDFRequest struct {
	BookID  string `json:"bookId"`
	UserUID string `json:"userUid"`
}

type userRequest struct {
	UserUID string `json:"userUid"`
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Backend running"))
}

// SaveBook handles POST /save-book
func (h *Handler) SaveBook(w http.ResponseWriter, r *http.Request) {
	var req saveBookRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	id, err := h.service.SaveBook(r.Context(), &domain.NewBookInput{
		Title:       req.Title,
		Price:       req.Price,
		Description: req.Description,
		Language:    req.Language,
		PageCount:   req.PageCount,
		Cover:       strings.TrimSpace(req.Cover),
		PDF:         strings.TrimSpace(req.PDF),
		Owner:       strings.TrimSpace(req.Owner),
		OwnerUID:    strings.TrimSpace(req.OwnerUID),
	})
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, r, h.logger, map[string]interface{}{
		"bookId": id,
	})
}

// GetPDF handles POST /get-pdf
func (h *Handler) GetPDF(w http.ResponseWriter, r *http.Request) {
	var req getPDFRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	pdf, err := h.service.GetPDF(r.Context(), strings.TrimSpace(req.BookID), strings.TrimSpace(req.UserUID))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, r, h.logger, map[string]interface{}{
		"pdfUrl": pdf,
	})
}

// MyPurchases handles POST /my-purchases
func (h *Handler) MyPurchases(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	books, err := h.service.MyPurchases(r.Context(), strings.TrimSpace(req.UserUID))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.OK(w, r, h.logger, map[string]interface{}{
		"books": response.NewBooks(books),
	})
}

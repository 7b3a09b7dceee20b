package response

import (
	"encoding/json"

	"github.com/kevin07696/book-market-service/internal/domain"
)

// Book is the wire form of a listing. Price is a JSON number and
// createdAt is unix milliseconds.
type Book struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Price       json.Number `json:"price"`
	Description string      `json:"description"`
	Language    string      `json:"language"`
	PageCount   string      `json:"pageCount"`
	Cover       string      `json:"cover"`
	PDF         string      `json:"pdf"`
	Owner       string      `json:"owner"`
	OwnerUID    string      `json:"ownerUid"`
	SalesCount  int64       `json:"salesCount"`
	CreatedAt   int64       `json:"createdAt"`
}

// NewBook converts a domain book
func NewBook(b *domain.Book) Book {
	return Book{
		ID:          b.ID,
		Title:       b.Title,
		Price:       json.Number(b.Price.String()),
		Description: b.Description,
		Language:    b.Language,
		PageCount:   string(b.PageCount),
		Cover:       b.Cover,
		PDF:         b.PDF,
		Owner:       b.Owner,
		OwnerUID:    b.OwnerUID,
		SalesCount:  b.SalesCount,
		CreatedAt:   b.CreatedAt.UnixMilli(),
	}
}

// NewBooks converts a list, never returning nil so the field encodes as []
func NewBooks(books []*domain.Book) []Book {
	out := make([]Book, 0, len(books))
	for _, b := range books {
		out = append(out, NewBook(b))
	}
	return out
}

// PendingPayment is the wire form of a pending purchase
type PendingPayment struct {
	ID     string `json:"id"`
	BookID string `json:"bookId"`
}

// NewPendingPayments converts pending records, never returning nil
func NewPendingPayments(pending []*domain.PendingPayment) []PendingPayment {
	out := make([]PendingPayment, 0, len(pending))
	for _, p := range pending {
		out = append(out, PendingPayment{ID: p.PaymentID, BookID: p.BookID})
	}
	return out
}

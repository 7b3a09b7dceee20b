package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPageCount is stored when a listing does not say how long the book is.
const DefaultPageCount = "Unknown"

// PageCount is the free-form page count supplied with a listing.
// Clients send either a number or a string, so both are accepted.
type PageCount string

// UnmarshalJSON accepts `123`, `"123"` and `"Unknown"`.
func (p *PageCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PageCount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PageCount(n.String())
	return nil
}

// Book is a listed digital book.
// SalesCount is only changed by payment completion (+1) and payouts (reset).
type Book struct {
	CreatedAt   time.Time       `json:"createdAt"`
	Price       decimal.Decimal `json:"price"`
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Language    string          `json:"language"`
	PageCount   PageCount       `json:"pageCount"`
	Cover       string          `json:"cover"`
	PDF         string          `json:"pdf"`
	Owner       string          `json:"owner"`
	OwnerUID    string          `json:"ownerUid"`
	SalesCount  int64           `json:"salesCount"`
}

// Revenue returns salesCount × price.
func (b *Book) Revenue() decimal.Decimal {
	return b.Price.Mul(decimal.NewFromInt(b.SalesCount))
}

// NewBookInput carries a listing submission.
type NewBookInput struct {
	Price       decimal.Decimal
	Title       string
	Description string
	Language    string
	PageCount   PageCount
	Cover       string
	PDF         string
	Owner       string
	OwnerUID    string
}

// Validate checks that every required listing field is present and the price is positive.
func (in *NewBookInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if in.Price.IsZero() {
		missing = append(missing, "price")
	}
	if strings.TrimSpace(in.Cover) == "" {
		missing = append(missing, "cover")
	}
	if strings.TrimSpace(in.PDF) == "" {
		missing = append(missing, "pdf")
	}
	if strings.TrimSpace(in.Owner) == "" {
		missing = append(missing, "owner")
	}
	if strings.TrimSpace(in.OwnerUID) == "" {
		missing = append(missing, "ownerUid")
	}
	if len(missing) > 0 {
		return MissingData(missing...)
	}
	if in.Price.IsNegative() {
		return NewDomainError(ErrorCodeInvalidInput, "price must be positive").
			WithDetail("price", in.Price.String())
	}
	return nil
}

// ToBook builds the stored form of the listing, applying defaults.
func (in *NewBookInput) ToBook(id string, now time.Time) *Book {
	pageCount := in.PageCount
	if pageCount == "" {
		pageCount = DefaultPageCount
	}
	return &Book{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Price:       in.Price,
		Description: in.Description,
		Language:    in.Language,
		PageCount:   pageCount,
		Cover:       in.Cover,
		PDF:         in.PDF,
		Owner:       in.Owner,
		OwnerUID:    in.OwnerUID,
		SalesCount:  0,
		CreatedAt:   now,
	}
}

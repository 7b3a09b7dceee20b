package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageCount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want PageCount
	}{
		{`123`, "123"},
		{`"123"`, "123"},
		{`" Unknown "`, "Unknown"},
		{`null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var p PageCount
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			assert.Equal(t, tt.want, p)
		})
	}

	var p PageCount
	assert.Error(t, json.Unmarshal([]byte(`{}`), &p))
}

func validListing() *NewBookInput {
	return &NewBookInput{
		Title:    "Go in Practice",
		Price:    decimal.RequireFromString("3.5"),
		Cover:    "https://cdn/cover.jpg",
		PDF:      "https://cdn/book.pdf",
		Owner:    "alice",
		OwnerUID: "uid_alice",
	}
}

func TestNewBookInput_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validListing().Validate())
	})

	t.Run("missing_fields_are_named", func(t *testing.T) {
		in := validListing()
		in.Title = "  "
		in.PDF = ""
		in.Price = decimal.Zero

		err := in.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingData))

		var de *DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, []string{"title", "price", "pdf"}, de.Details["fields"])
	})

	t.Run("negative_price", func(t *testing.T) {
		in := validListing()
		in.Price = decimal.NewFromInt(-2)
		assert.True(t, errors.Is(in.Validate(), ErrInvalidInput))
	})
}

func TestNewBookInput_ToBook(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := validListing()
	in.Title = "  Go in Practice  "

	b := in.ToBook("book_1", now)
	assert.Equal(t, "book_1", b.ID)
	assert.Equal(t, "Go in Practice", b.Title)
	assert.Equal(t, PageCount(DefaultPageCount), b.PageCount)
	assert.Equal(t, int64(0), b.SalesCount)
	assert.Equal(t, now, b.CreatedAt)

	in.PageCount = "240"
	assert.Equal(t, PageCount("240"), in.ToBook("book_2", now).PageCount)
}

func TestBook_Revenue(t *testing.T) {
	b := &Book{Price: decimal.RequireFromString("3.14"), SalesCount: 3}
	assert.True(t, decimal.RequireFromString("9.42").Equal(b.Revenue()))
}

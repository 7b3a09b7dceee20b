package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/testutil/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestError_StatusAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"missing data", domain.MissingData("paymentId", "txid"), http.StatusBadRequest, "MISSING_DATA", "missing data: paymentId, txid"},
		{"not pending", domain.ErrPendingNotFound, http.StatusBadRequest, "PENDING_NOT_FOUND", "payment is not pending"},
		{"below minimum", domain.ErrBelowMinimum, http.StatusBadRequest, "BELOW_MINIMUM", "minimum payout not reached"},
		{"not purchased", domain.ErrNotPurchased, http.StatusForbidden, "NOT_PURCHASED", "not purchased"},
		{
			"gateway message passes through",
			domain.WrapError(domain.ErrorCodeGatewayRejected, "payment already approved", errors.New("x")),
			http.StatusInternalServerError, "GATEWAY_REJECTED", "payment already approved",
		},
		{
			"ledger failure is generic",
			domain.WrapError(domain.ErrorCodeLedgerWriteFailed, "ledger write failed", errors.New("pq: deadlock")),
			http.StatusInternalServerError, "LEDGER_WRITE_FAILED", "internal server error",
		},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL", "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/x", nil)

			Error(rec, req, zaptest.NewLogger(t), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Error)
		})
	}
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)

	OK(rec, req, zaptest.NewLogger(t), map[string]interface{}{"pdfUrl": "https://x/y.pdf"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"pdfUrl":"https://x/y.pdf"}`, rec.Body.String())
}

func TestDecode(t *testing.T) {
	var dst struct {
		PaymentID string `json:"paymentId"`
	}

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"paymentId":"p1"}`))
	require.NoError(t, Decode(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, "p1", dst.PaymentID)

	req = httptest.NewRequest(http.MethodPost, "/x", http.NoBody)
	assert.NoError(t, Decode(httptest.NewRecorder(), req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"paymentId":`))
	err := Decode(httptest.NewRecorder(), req, &dst)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeInvalidInput))
}

func TestNewBook(t *testing.T) {
	book := fixtures.NewBook(fixtures.WithPrice("3.14"), fixtures.WithSales(2))

	out, err := json.Marshal(NewBook(book))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, 3.14, decoded["price"])
	assert.Equal(t, float64(fixtures.FixedTime.UnixMilli()), decoded["createdAt"])
	assert.Equal(t, float64(2), decoded["salesCount"])
}

func TestNewPendingPayments_Empty(t *testing.T) {
	out, err := json.Marshal(NewPendingPayments(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

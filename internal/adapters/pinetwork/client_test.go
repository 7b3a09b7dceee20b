package pinetwork

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"github.com/kevin07696/book-market-service/pkg/resilience"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const paymentJSON = `{
	"identifier": "pay_123",
	"user_uid": "user_1",
	"amount": 3.14,
	"memo": "Book purchase",
	"metadata": {"bookId": "book_1", "userUid": "user_1"},
	"from_address": "GA...",
	"to_address": "GB...",
	"direction": "user_to_app",
	"network": "Pi Testnet",
	"created_at": "2024-03-01T10:00:00.000Z",
	"status": {
		"developer_approved": true,
		"transaction_verified": true,
		"developer_completed": false,
		"cancelled": false,
		"user_cancelled": false
	},
	"transaction": {"txid": "tx_abc", "verified": true, "_link": "https://horizon/tx_abc"}
}`

func newTestClient(t *testing.T, serverURL string, maxRetries int) *Client {
	t.Helper()
	cfg := &Config{
		BaseURL:            serverURL,
		APIKey:             "test-key",
		Timeout:            2 * time.Second,
		MaxRetries:         maxRetries,
		BreakerMaxFailures: 3,
		BreakerOpenTimeout: time.Minute,
	}
	return NewClientWithHTTP(cfg, &http.Client{Timeout: 2 * time.Second}, &resilience.FixedBackoff{Delay: time.Millisecond}, zaptest.NewLogger(t))
}

func TestClient_GetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/payments/pay_123", r.URL.Path)
		assert.Equal(t, "Key test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, paymentJSON)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	p, err := c.GetPayment(context.Background(), "pay_123")
	require.NoError(t, err)

	assert.Equal(t, "pay_123", p.Identifier)
	assert.Equal(t, "book_1", p.Metadata.BookID)
	assert.Equal(t, "user_1", p.Metadata.UserUID)
	assert.Equal(t, "tx_abc", p.TxID())
	assert.Equal(t, "3.14", p.Amount.String())
	assert.True(t, p.Status.DeveloperApproved)
	assert.False(t, p.IsCancelled())
	assert.True(t, p.HasIdentifiers())
}

func TestClient_CompletePayment_SendsTxID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments/pay_123/complete", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tx_abc", body["txid"])

		io.WriteString(w, paymentJSON)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.CompletePayment(context.Background(), "pay_123", "tx_abc")
	require.NoError(t, err)
}

func TestClient_ApprovePayment_Rejected(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/payments/pay_123/approve", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"already_approved","error_message":"Payment already approved"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.ApprovePayment(context.Background(), "pay_123")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "already_approved", apiErr.ErrorName)
	assert.Equal(t, "Payment already approved", apiErr.Message)
	assert.True(t, IsRejection(err))
	assert.NotErrorIs(t, err, ports.ErrGatewayPaymentNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "rejections are not retried")
}

func TestClient_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "payment not found")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.GetPayment(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "payment not found", err.Error())
	assert.ErrorIs(t, err, ports.ErrGatewayPaymentNotFound)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, paymentJSON)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	p, err := c.GetPayment(context.Background(), "pay_123")
	require.NoError(t, err)
	assert.Equal(t, "pay_123", p.Identifier)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_CircuitOpensOnRepeatedFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	for i := 0; i < 3; i++ {
		_, err := c.GetPayment(context.Background(), "pay_123")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())

	_, err := c.GetPayment(context.Background(), "pay_123")
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "open circuit must not reach the server")
}

func TestClient_RejectionsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"bad_request","error_message":"nope"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	for i := 0; i < 5; i++ {
		_, err := c.ApprovePayment(context.Background(), "pay_123")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestClient_ContextCancelledDuringRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &Config{BaseURL: srv.URL, APIKey: "k", MaxRetries: 5, BreakerOpenTimeout: time.Minute}
	c := NewClientWithHTTP(cfg, srv.Client(), &resilience.FixedBackoff{Delay: time.Second}, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetPayment(ctx, "pay_123")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAPIError_Message(t *testing.T) {
	assert.Equal(t, "payment network returned HTTP 502", (&APIError{StatusCode: 502}).Error())
	assert.Equal(t, "x: y", (&APIError{ErrorName: "x", Message: "y"}).Error())
	assert.True(t, (&APIError{StatusCode: 429}).Temporary())
	assert.False(t, (&APIError{StatusCode: 409}).Temporary())
}

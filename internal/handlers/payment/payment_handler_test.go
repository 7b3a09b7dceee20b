package payment

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kevin07696/book-market-service/internal/domain"
	servicePorts "github.com/kevin07696/book-market-service/internal/services/ports"
	"github.com/kevin07696/book-market-service/internal/testutil/fixtures"
	"github.com/kevin07696/book-market-service/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"
)

func post(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestApprovePayment(t *testing.T) {
	svc := &mocks.MockPaymentService{}
	h := NewHandler(svc, zaptest.NewLogger(t))

	svc.On("ApprovePayment", mock.Anything, servicePorts.ApprovePaymentRequest{
		PaymentID: "pay_1", BookID: "book_1", UserUID: "user_1",
	}).Return(nil)

	rec := post(h.ApprovePayment, "/approve-payment", `{"paymentId":"pay_1","bookId":"book_1","userUid":"user_1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestApprovePayment_MissingData(t *testing.T) {
	svc := &mocks.MockPaymentService{}
	h := NewHandler(svc, zaptest.NewLogger(t))

	svc.On("ApprovePayment", mock.Anything, mock.Anything).Return(domain.MissingData("bookId", "userUid"))

	rec := post(h.ApprovePayment, "/approve-payment", `{"paymentId":"pay_1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"missing data: bookId, userUid","code":"MISSING_DATA"}`, rec.Body.String())
}

func TestApprovePayment_GatewayRejected(t *testing.T) {
	svc := &mocks.MockPaymentService{}
	h := NewHandler(svc, zaptest.NewLogger(t))

	svc.On("ApprovePayment", mock.Anything, mock.Anything).Return(
		domain.NewDomainError(domain.ErrorCodeGatewayRejected, "already_approved: payment already approved"))

	rec := post(h.ApprovePayment, "/approve-payment", `{"paymentId":"pay_1","bookId":"b","userUid":"u"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "payment already approved")
}

func TestApprovePayment_MalformedJSON(t *testing.T) {
	svc := &mocks.MockPaymentService{}
	h := NewHandler(svc, zaptest.NewLogger(t))

	rec := post(h.ApprovePayment, "/approve-payment", `{"paymentId":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
	svc.AssertNotCalled(t, "ApprovePayment", mock.Anything, mock.Anything)
}

func TestCompletePayment(t *testing.T) {
	svc := &mocks.MockPaymentService{}
	h := NewHandler(svc, zaptest.NewLogger(t))

	svc.On("CompletePayment", mock.Anything, servicePorts.CompletePaymentRequest{PaymentID: "pay_1", TxID: "tx_1"}).
		Return(&servicePorts.CompletePaymentResponse{PaymentID: "pay_1", PDFURL: "https://cdn/x.pdf"}, nil)

	rec := post(h.CompletePayment, "/complete-payment", `{"paymentId":"pay_1","txid":"tx_1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"pdfUrl":"https://cdn/x.pdf"}`, rec.Body.String())
}

func TestCompletePayment_NotPending(t *testing.T) {
	svc := &mocks.MockPaymentService{}
	h := NewHandler(svc, zaptest.NewLogger(t))

	svc.On("CompletePayment", mock.Anything, mock.Anything).Return(nil, domain.ErrPendingNotFound)

	rec := post(h.CompletePayment, "/complete-payment", `{"paymentId":"pay_1","txid":"tx_1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "PENDING_NOT_FOUND")
}

func TestCompletePayment_LedgerFailureIsGeneric(t *testing.T) {
	svc := &mocks.MockPaymentService{}
	h := NewHandler(svc, zaptest.NewLogger(t))

	svc.On("CompletePayment", mock.Anything, mock.Anything).Return(nil,
		domain.NewDomainError(domain.ErrorCodeLedgerWriteFailed, "ledger write failed"))

	rec := post(h.CompletePayment, "/complete-payment", `{"paymentId":"pay_1","txid":"tx_1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"internal server error","code":"LEDGER_WRITE_FAILED"}`, rec.Body.String())
}

func TestResolvePending(t *testing.T) {
	svc := &mocks.MockPaymentService{}
	h := NewHandler(svc, zaptest.NewLogger(t))

	svc.On("Resolve", mock.Anything, "pay_1").Return()

	rec := post(h.ResolvePending, "/resolve-pending", `{"paymentId":"pay_1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestResolvePending_MissingPaymentID(t *testing.T) {
	svc := &mocks.MockPaymentService{}
	h := NewHandler(svc, zaptest.NewLogger(t))

	rec := post(h.ResolvePending, "/resolve-pending", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestListPendingPayments(t *testing.T) {
	svc := &mocks.MockPaymentService{}
	h := NewHandler(svc, zaptest.NewLogger(t))

	svc.On("ListPendingPayments", mock.Anything, "user_1").Return([]*domain.PendingPayment{
		domain.NewPendingPayment("pay_1", "book_1", "user_1", fixtures.FixedTime),
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/pending-payments?userUid=user_1", nil)
	rec := httptest.NewRecorder()
	h.ListPendingPayments(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"pendingPayments":[{"id":"pay_1","bookId":"book_1"}]}`, rec.Body.String())
}

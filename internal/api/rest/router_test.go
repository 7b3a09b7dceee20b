package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kevin07696/book-market-service/internal/adapters/pinetwork"
	"github.com/kevin07696/book-market-service/internal/adapters/sqlite"
	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/internal/domain/ports"
	catalogHandler "github.com/kevin07696/book-market-service/internal/handlers/catalog"
	paymentHandler "github.com/kevin07696/book-market-service/internal/handlers/payment"
	payoutHandler "github.com/kevin07696/book-market-service/internal/handlers/payout"
	"github.com/kevin07696/book-market-service/internal/services/catalog"
	"github.com/kevin07696/book-market-service/internal/services/payment"
	"github.com/kevin07696/book-market-service/internal/services/payout"
	"github.com/kevin07696/book-market-service/internal/testutil/mocks"
	"github.com/kevin07696/book-market-service/pkg/resilience"
	"github.com/kevin07696/book-market-service/pkg/security"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// fakePiNetwork is an in-memory payment network speaking the approve/complete protocol
type fakePiNetwork struct {
	mu       sync.Mutex
	payments map[string]*ports.GatewayPayment
}

func newFakePiNetwork() *fakePiNetwork {
	return &fakePiNetwork{payments: make(map[string]*ports.GatewayPayment)}
}

// create registers a payment as the payer's wallet would
func (f *fakePiNetwork) create(id, bookID, userUID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[id] = &ports.GatewayPayment{
		Identifier: id,
		UserUID:    userUID,
		Metadata:   ports.PaymentMetadata{BookID: bookID, UserUID: userUID},
	}
}

// pay links a blockchain transaction, as the payer's wallet would after approval
func (f *fakePiNetwork) pay(id, txid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.payments[id]
	p.Transaction = &ports.GatewayTransaction{TxID: txid, Verified: true}
	p.Status.TransactionVerified = true
}

func (f *fakePiNetwork) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "payments" {
		http.NotFound(w, r)
		return
	}
	p, ok := f.payments[parts[1]]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"payment_not_found","error_message":"Payment not found"}`))
		return
	}

	action := ""
	if len(parts) == 3 {
		action = parts[2]
	}
	switch {
	case r.Method == http.MethodGet && action == "":
	case r.Method == http.MethodPost && action == "approve":
		if p.Status.DeveloperApproved {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"already_approved","error_message":"Payment already approved"}`))
			return
		}
		p.Status.DeveloperApproved = true
	case r.Method == http.MethodPost && action == "complete":
		var body struct {
			TxID string `json:"txid"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if p.TxID() == "" || p.TxID() != body.TxID {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"tx_mismatch","error_message":"Transaction does not match"}`))
			return
		}
		if p.Status.DeveloperCompleted {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"already_completed","error_message":"Payment already completed"}`))
			return
		}
		p.Status.DeveloperCompleted = true
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p)
}

type testServer struct {
	router   http.Handler
	pi       *fakePiNetwork
	store    *sqlite.Store
	payments *payment.Service
	logger   *zap.Logger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	pi := newFakePiNetwork()
	piServer := httptest.NewServer(pi)
	t.Cleanup(piServer.Close)

	store, err := sqlite.New(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	gateway := pinetwork.NewClientWithHTTP(&pinetwork.Config{
		BaseURL:            piServer.URL,
		APIKey:             "test-key",
		Timeout:            2 * time.Second,
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: time.Minute,
	}, piServer.Client(), &resilience.FixedBackoff{Delay: time.Millisecond}, logger)

	events := &mocks.RecordingPublisher{}
	svcLogger := security.NewZapLogger(logger)
	payments := payment.NewService(store, gateway, events, svcLogger)

	router := NewRouter(Handlers{
		Payment: paymentHandler.NewHandler(payments, logger),
		Payout:  payoutHandler.NewHandler(payout.NewService(store, events, svcLogger), logger),
		Catalog: catalogHandler.NewHandler(catalog.NewService(store, svcLogger), logger),
	}, RouterConfig{Timeouts: resilience.TestTimeoutConfig()}, logger)

	return &testServer{router: router, pi: pi, store: store, payments: payments, logger: logger}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec.Code, decoded
}

func (s *testServer) saveBook(t *testing.T, owner, price string) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/save-book",
		`{"title":"Book","price":`+price+`,"cover":"https://c/x.jpg","pdf":"https://c/x.pdf","owner":"`+owner+`","ownerUid":"uid_`+owner+`"}`)
	require.Equal(t, http.StatusOK, code, body)
	return body["bookId"].(string)
}

func (s *testServer) salesCount(t *testing.T, bookID string) int64 {
	t.Helper()
	book, err := s.store.Queries().GetBook(context.Background(), bookID)
	require.NoError(t, err)
	return book.SalesCount
}

func (s *testServer) buy(t *testing.T, paymentID, bookID, userUID, txid string) {
	t.Helper()
	s.pi.create(paymentID, bookID, userUID)
	code, body := s.do(t, http.MethodPost, "/approve-payment",
		`{"paymentId":"`+paymentID+`","bookId":"`+bookID+`","userUid":"`+userUID+`"}`)
	require.Equal(t, http.StatusOK, code, body)

	s.pi.pay(paymentID, txid)
	code, body = s.do(t, http.MethodPost, "/complete-payment", `{"paymentId":"`+paymentID+`","txid":"`+txid+`"}`)
	require.Equal(t, http.StatusOK, code, body)
}

func TestIndex(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Backend running", rec.Body.String())
}

func TestPurchaseFlow(t *testing.T) {
	s := newTestServer(t)
	bookID := s.saveBook(t, "alice", "10")

	s.pi.create("pay_1", bookID, "user_1")
	code, body := s.do(t, http.MethodPost, "/approve-payment",
		`{"paymentId":"pay_1","bookId":"`+bookID+`","userUid":"user_1"}`)
	require.Equal(t, http.StatusOK, code, body)

	code, body = s.do(t, http.MethodGet, "/pending-payments?userUid=user_1", "")
	require.Equal(t, http.StatusOK, code)
	pending := body["pendingPayments"].([]interface{})
	require.Len(t, pending, 1)
	assert.Equal(t, "pay_1", pending[0].(map[string]interface{})["id"])

	// Not purchased yet
	code, _ = s.do(t, http.MethodPost, "/get-pdf", `{"bookId":"`+bookID+`","userUid":"user_1"}`)
	assert.Equal(t, http.StatusForbidden, code)

	s.pi.pay("pay_1", "tx_1")
	code, body = s.do(t, http.MethodPost, "/complete-payment", `{"paymentId":"pay_1","txid":"tx_1"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "https://c/x.pdf", body["pdfUrl"])

	assert.Equal(t, int64(1), s.salesCount(t, bookID))

	code, body = s.do(t, http.MethodGet, "/pending-payments?userUid=user_1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["pendingPayments"])

	code, body = s.do(t, http.MethodPost, "/get-pdf", `{"bookId":"`+bookID+`","userUid":"user_1"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "https://c/x.pdf", body["pdfUrl"])

	code, body = s.do(t, http.MethodPost, "/my-purchases", `{"userUid":"user_1"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["books"], 1)

	// Second completion finds no pending record and credits nothing
	code, body = s.do(t, http.MethodPost, "/complete-payment", `{"paymentId":"pay_1","txid":"tx_1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "PENDING_NOT_FOUND", body["code"])
	assert.Equal(t, int64(1), s.salesCount(t, bookID))
}

func TestCompleteWithoutApproval(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/complete-payment", `{"paymentId":"ghost","txid":"tx"}`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "PENDING_NOT_FOUND", body["code"])
}

func TestApproveMissingData(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/approve-payment", `{"paymentId":"pay_1"}`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "MISSING_DATA", body["code"])
	assert.Equal(t, false, body["success"])
}

func TestApproveRejectedByGateway(t *testing.T) {
	s := newTestServer(t)
	bookID := s.saveBook(t, "alice", "10")
	s.pi.create("pay_1", bookID, "user_1")

	code, _ := s.do(t, http.MethodPost, "/approve-payment", `{"paymentId":"pay_1","bookId":"`+bookID+`","userUid":"user_1"}`)
	require.Equal(t, http.StatusOK, code)

	code, body := s.do(t, http.MethodPost, "/approve-payment", `{"paymentId":"pay_1","bookId":"`+bookID+`","userUid":"user_1"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "GATEWAY_REJECTED", body["code"])
	assert.Contains(t, body["error"], "Payment already approved")
}

func TestApproveAfterCompletionLeavesNoPending(t *testing.T) {
	s := newTestServer(t)
	bookID := s.saveBook(t, "alice", "10")
	s.buy(t, "pay_1", bookID, "user_1", "tx_1")

	code, body := s.do(t, http.MethodPost, "/approve-payment", `{"paymentId":"pay_1","bookId":"`+bookID+`","userUid":"user_1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "PENDING_NOT_FOUND", body["code"])

	_, err := s.store.Queries().GetPendingPayment(context.Background(), "pay_1")
	assert.ErrorIs(t, err, domain.ErrPendingNotFound)
	assert.Equal(t, int64(1), s.salesCount(t, bookID))
}

func TestResolvePending(t *testing.T) {
	s := newTestServer(t)
	bookID := s.saveBook(t, "alice", "10")
	s.pi.create("pay_1", bookID, "user_1")

	code, _ := s.do(t, http.MethodPost, "/approve-payment", `{"paymentId":"pay_1","bookId":"`+bookID+`","userUid":"user_1"}`)
	require.Equal(t, http.StatusOK, code)

	// No transaction yet: nothing happens
	code, body := s.do(t, http.MethodPost, "/resolve-pending", `{"paymentId":"pay_1"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, int64(0), s.salesCount(t, bookID))

	// The client paid but never called complete
	s.pi.pay("pay_1", "tx_1")
	code, _ = s.do(t, http.MethodPost, "/resolve-pending", `{"paymentId":"pay_1"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), s.salesCount(t, bookID))

	// Resolving again credits nothing more
	code, _ = s.do(t, http.MethodPost, "/resolve-pending", `{"paymentId":"pay_1"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), s.salesCount(t, bookID))

	code, _ = s.do(t, http.MethodPost, "/resolve-pending", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPayoutFlow(t *testing.T) {
	s := newTestServer(t)
	bookA := s.saveBook(t, "alice", "5")
	bookB := s.saveBook(t, "alice", "4")

	s.buy(t, "pay_1", bookA, "user_1", "tx_1")

	// 0.7 × 5 = 3.50
	code, body := s.do(t, http.MethodPost, "/request-payout", `{"username":"alice","walletAddress":"GW"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "BELOW_MINIMUM", body["code"])
	assert.Equal(t, int64(1), s.salesCount(t, bookA))

	s.buy(t, "pay_2", bookA, "user_2", "tx_2")
	s.buy(t, "pay_3", bookB, "user_1", "tx_3")
	s.buy(t, "pay_4", bookB, "user_2", "tx_4")
	s.buy(t, "pay_5", bookB, "user_3", "tx_5")

	code, body = s.do(t, http.MethodPost, "/my-sales", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["books"], 2)

	// 0.7 × (2×5 + 3×4) = 15.40
	code, body = s.do(t, http.MethodPost, "/request-payout", `{"username":"alice","walletAddress":"GW"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, 15.4, body["amount"])
	assert.Equal(t, int64(0), s.salesCount(t, bookA))
	assert.Equal(t, int64(0), s.salesCount(t, bookB))

	code, body = s.do(t, http.MethodPost, "/request-payout", `{"username":"alice","walletAddress":"GW"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "BELOW_MINIMUM", body["code"])
}

func TestResetSales(t *testing.T) {
	s := newTestServer(t)
	bookID := s.saveBook(t, "alice", "5")
	s.buy(t, "pay_1", bookID, "user_1", "tx_1")

	code, _ := s.do(t, http.MethodPost, "/reset-sales", `{"username":"alice"}`)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(0), s.salesCount(t, bookID))
}

func TestConcurrentCompletionsCountEverySale(t *testing.T) {
	s := newTestServer(t)
	bookID := s.saveBook(t, "alice", "1")

	const buyers = 8
	for i := 0; i < buyers; i++ {
		id := "pay_" + string(rune('a'+i))
		s.pi.create(id, bookID, "user_"+id)
		code, _ := s.do(t, http.MethodPost, "/approve-payment", `{"paymentId":"`+id+`","bookId":"`+bookID+`","userUid":"user_`+id+`"}`)
		require.Equal(t, http.StatusOK, code)
		s.pi.pay(id, "tx_"+id)
	}

	var wg sync.WaitGroup
	codes := make([]int, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "pay_" + string(rune('a'+i))
			req := httptest.NewRequest(http.MethodPost, "/complete-payment", strings.NewReader(`{"paymentId":"`+id+`","txid":"tx_`+id+`"}`))
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, int64(buyers), s.salesCount(t, bookID))
}

func TestCompletionsRacingPayoutsKeepLedgerBalanced(t *testing.T) {
	s := newTestServer(t)
	bookID := s.saveBook(t, "alice", "10")
	price := decimal.NewFromInt(10)

	const seeded, rounds = 5, 30
	for i := 0; i < seeded; i++ {
		s.buy(t, fmt.Sprintf("seed_%d", i), bookID, fmt.Sprintf("user_seed_%d", i), fmt.Sprintf("tx_seed_%d", i))
	}
	for i := 0; i < rounds; i++ {
		id := fmt.Sprintf("race_%d", i)
		s.pi.create(id, bookID, "user_"+id)
		code, _ := s.do(t, http.MethodPost, "/approve-payment", `{"paymentId":"`+id+`","bookId":"`+bookID+`","userUid":"user_`+id+`"}`)
		require.Equal(t, http.StatusOK, code)
		s.pi.pay(id, "tx_"+id)
	}

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		paid = decimal.Zero
	)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			rec := post("/complete-payment", `{"paymentId":"`+id+`","txid":"tx_`+id+`"}`)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		}(fmt.Sprintf("race_%d", i))
		go func() {
			defer wg.Done()
			rec := post("/request-payout", `{"username":"alice","walletAddress":"GW"}`)

			var body struct {
				Amount json.Number `json:"amount"`
				Code   string      `json:"code"`
			}
			dec := json.NewDecoder(rec.Body)
			dec.UseNumber()
			if !assert.NoError(t, dec.Decode(&body)) {
				return
			}
			if rec.Code != http.StatusOK {
				// Nothing sold since the previous payout
				assert.Equal(t, "BELOW_MINIMUM", body.Code)
				return
			}
			amount, err := decimal.NewFromString(body.Amount.String())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			paid = paid.Add(amount)
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Every sale is either paid out or still counted, never both or neither
	remaining := s.salesCount(t, bookID)
	owed := domain.OwnerShare.Mul(price).Mul(decimal.NewFromInt(remaining))
	total := domain.OwnerShare.Mul(price).Mul(decimal.NewFromInt(seeded + rounds))
	assert.True(t, paid.Add(owed).Equal(total), "paid %s + owed %s != %s", paid, owed, total)
	assert.True(t, paid.IsPositive())
}

func TestSweeperReachesPaidPaymentBehindDeadRecords(t *testing.T) {
	s := newTestServer(t)
	bookID := s.saveBook(t, "alice", "10")
	ctx := context.Background()

	// Approvals for ids the network never issued fail but leave pending records
	ghosts := []string{"ghost_1", "ghost_2", "ghost_3"}
	for _, id := range ghosts {
		code, _ := s.do(t, http.MethodPost, "/approve-payment", `{"paymentId":"`+id+`","bookId":"`+bookID+`","userUid":"user_x"}`)
		require.Equal(t, http.StatusInternalServerError, code)
	}

	// Approved payments whose payers never sign
	waiting := []string{"wait_1", "wait_2", "wait_3"}
	for _, id := range waiting {
		s.pi.create(id, bookID, "user_"+id)
		code, _ := s.do(t, http.MethodPost, "/approve-payment", `{"paymentId":"`+id+`","bookId":"`+bookID+`","userUid":"user_`+id+`"}`)
		require.Equal(t, http.StatusOK, code)
	}

	// Paid, but the client never called complete
	s.pi.create("pay_real", bookID, "user_1")
	code, _ := s.do(t, http.MethodPost, "/approve-payment", `{"paymentId":"pay_real","bookId":"`+bookID+`","userUid":"user_1"}`)
	require.Equal(t, http.StatusOK, code)
	s.pi.pay("pay_real", "tx_real")

	time.Sleep(5 * time.Millisecond)
	sweeper := payment.NewSweeper(s.payments, payment.SweeperConfig{
		Interval:  time.Minute,
		MinAge:    time.Millisecond,
		BatchSize: 3,
	}, resilience.TestTimeoutConfig(), security.NewZapLogger(s.logger))

	assert.Equal(t, map[string]int{payment.OutcomeRetired: 3}, sweeper.SweepOnce(ctx))
	assert.Equal(t, map[string]int{payment.OutcomeAwaitingTx: 3}, sweeper.SweepOnce(ctx))
	// Never-swept records go first, then the least recently swept fill the batch
	assert.Equal(t, map[string]int{payment.OutcomeCompleted: 1, payment.OutcomeAwaitingTx: 2}, sweeper.SweepOnce(ctx))
	assert.Equal(t, int64(1), s.salesCount(t, bookID))

	for _, id := range ghosts {
		_, err := s.store.Queries().GetPendingPayment(ctx, id)
		assert.ErrorIs(t, err, domain.ErrPendingNotFound, id)
	}
	for _, id := range waiting {
		p, err := s.store.Queries().GetPendingPayment(ctx, id)
		require.NoError(t, err, id)
		assert.GreaterOrEqual(t, p.SweepAttempts, 1)
		assert.NotNil(t, p.LastSweptAt)
	}

	// The waiting records keep their place in the rotation
	assert.Equal(t, map[string]int{payment.OutcomeAwaitingTx: 3}, sweeper.SweepOnce(ctx))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/books", "")

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

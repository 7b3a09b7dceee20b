// Package rest wires the JSON endpoints onto a chi router.
package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	catalogHandler "github.com/kevin07696/book-market-service/internal/handlers/catalog"
	paymentHandler "github.com/kevin07696/book-market-service/internal/handlers/payment"
	payoutHandler "github.com/kevin07696/book-market-service/internal/handlers/payout"
	"github.com/kevin07696/book-market-service/pkg/middleware"
	"github.com/kevin07696/book-market-service/pkg/observability"
	"github.com/kevin07696/book-market-service/pkg/resilience"
	"go.uber.org/zap"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Payment *paymentHandler.Handler
	Payout  *payoutHandler.Handler
	Catalog *catalogHandler.Handler
}

// RouterConfig holds cross-cutting request settings
type RouterConfig struct {
	AllowedOrigins []string
	Timeouts       *resilience.TimeoutConfig

	// RateLimiter is optional
	RateLimiter *middleware.RateLimiter

	// Production enables HSTS
	Production bool
}

// NewRouter builds the public HTTP handler
func NewRouter(h Handlers, cfg RouterConfig, logger *zap.Logger) http.Handler {
	if cfg.Timeouts == nil {
		cfg.Timeouts = resilience.DefaultTimeoutConfig()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(logger))
	r.Use(recoverer(logger))
	r.Use(middleware.SecurityHeaders(cfg.Production))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(middleware.Timeout(cfg.Timeouts, logger))
	r.Use(chimw.Compress(5, "application/json"))

	r.Get("/", h.Catalog.Index)

	// Payment lifecycle
	r.Post("/approve-payment", h.Payment.ApprovePayment)
	r.Post("/complete-payment", h.Payment.CompletePayment)
	r.Post("/resolve-pending", h.Payment.ResolvePending)
	r.Get("/pending-payments", h.Payment.ListPendingPayments)

	// Owner sales and payouts
	r.Post("/request-payout", h.Payout.RequestPayout)
	r.Post("/my-sales", h.Payout.MySales)
	r.Post("/reset-sales", h.Payout.ResetSales)

	// Catalog
	r.Post("/save-book", h.Catalog.SaveBook)
	r.Post("/get-pdf", h.Catalog.GetPDF)
	r.Post("/my-purchases", h.Catalog.MyPurchases)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"not found","code":"NOT_FOUND"}`))
	})

	return r
}

// accessLog logs one line per request with its status and duration
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			}
			if status >= http.StatusInternalServerError {
				logger.Error("HTTP request failed", fields...)
			} else {
				logger.Info("HTTP request", fields...)
			}
		})
	}
}

// recoverer turns a handler panic into a 500 and logs the stack
func recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("Panic recovered in HTTP handler",
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"success":false,"error":"internal server error","code":"INTERNAL"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

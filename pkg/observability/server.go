package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ready flips to false once shutdown starts so load balancers stop routing
var ready atomic.Bool

func init() {
	ready.Store(true)
}

// MarkNotReady makes /ready return 503
func MarkNotReady() {
	ready.Store(false)
}

func readyHandler(w http.ResponseWriter, _ *http.Request) {
	if ready.Load() {
		_, _ = w.Write([]byte("ready"))
		return
	}
	http.Error(w, "shutting down", http.StatusServiceUnavailable)
}

// NewMetricsHandler serves /metrics, /ready and, when hc is set, /health.
func NewMetricsHandler(hc *HealthChecker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", readyHandler)
	if hc != nil {
		mux.HandleFunc("/health", hc.HealthHandler())
	}
	return mux
}

// StartMetricsServer binds the metrics port before returning, so a port
// conflict fails startup instead of surfacing later in a log line.
func StartMetricsServer(port int, hc *HealthChecker, logger *zap.Logger) (*http.Server, error) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewMetricsHandler(hc),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on metrics port %d: %w", port, err)
	}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	return server, nil
}

// ShutdownMetricsServer stops the metrics server, waiting at most five seconds.
func ShutdownMetricsServer(ctx context.Context, server *http.Server) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

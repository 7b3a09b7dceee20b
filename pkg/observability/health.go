package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/kevin07696/book-market-service/pkg/encoding"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// checkTimeout bounds each dependency check so one hung store cannot stall /health
const checkTimeout = 2 * time.Second

var dependencyUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "dependency_up",
	Help:      "Result of the last health check per dependency (1=up, 0=down)",
}, []string{"dependency"})

// CheckFunc reports whether a dependency is reachable
type CheckFunc func(ctx context.Context) error

// HealthStatus is the body served on /health
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker checks registered dependencies.
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checks: make(map[string]CheckFunc)}
}

// Register adds or replaces a named dependency check.
func (h *HealthChecker) Register(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Check runs every check concurrently and reports "unhealthy" if any fails.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, fn := range h.checks {
		checks[name] = fn
	}
	h.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]string, len(checks))
		healthy = true
	)
	for name, fn := range checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			err := fn(checkCtx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[name] = "unhealthy: " + err.Error()
				healthy = false
				dependencyUp.WithLabelValues(name).Set(0)
				return
			}
			results[name] = "healthy"
			dependencyUp.WithLabelValues(name).Set(1)
		}(name, fn)
	}
	wg.Wait()

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}

// HealthHandler serves the aggregated status, 503 when any dependency is down.
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		body, err := encoding.EncodeJSON(status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write(body)
	}
}

package pinetwork

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kevin07696/book-market-service/internal/domain/ports"
	pkghttp "github.com/kevin07696/book-market-service/pkg/http"
	"github.com/kevin07696/book-market-service/pkg/observability"
	"github.com/kevin07696/book-market-service/pkg/resilience"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultBaseURL is the production payment network API
const DefaultBaseURL = "https://api.minepi.com/v2"

// Config contains payment network client configuration
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration // Per attempt
	MaxRetries int

	// Circuit breaker: consecutive failures before opening, and how long it stays open
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// DefaultConfig returns default client configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		BaseURL:            DefaultBaseURL,
		APIKey:             apiKey,
		Timeout:            15 * time.Second,
		MaxRetries:         2,
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: 30 * time.Second,
	}
}

// APIError is a non-2xx response from the payment network
type APIError struct {
	StatusCode int
	ErrorName  string
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorName != "" && e.Message != "" {
		return fmt.Sprintf("%s: %s", e.ErrorName, e.Message)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.ErrorName != "" {
		return e.ErrorName
	}
	return fmt.Sprintf("payment network returned HTTP %d", e.StatusCode)
}

// Temporary reports whether retrying the call might succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Is lets errors.Is match a 404 against ports.ErrGatewayPaymentNotFound
func (e *APIError) Is(target error) bool {
	return target == ports.ErrGatewayPaymentNotFound && e.StatusCode == http.StatusNotFound
}

// IsRejection reports whether err is a definitive rejection by the payment network
func IsRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && !apiErr.Temporary()
}

// ErrCircuitOpen is returned while the breaker refuses calls
var ErrCircuitOpen = errors.New("payment network circuit breaker is open")

// Client implements ports.PaymentGateway over the payment network REST API
type Client struct {
	config     *Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	backoff    resilience.BackoffStrategy
	logger     *zap.Logger
}

var _ ports.PaymentGateway = (*Client)(nil)

// NewClient creates a payment network client with a tuned transport and circuit breaker
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	httpClient := pkghttp.NewHTTPClient(pkghttp.SingleHostPool(), cfg.Timeout)
	return NewClientWithHTTP(cfg, httpClient, resilience.GatewayBackoff(), logger)
}

// NewClientWithHTTP allows injecting the HTTP client and backoff (for tests)
func NewClientWithHTTP(cfg *Config, httpClient *http.Client, backoff resilience.BackoffStrategy, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        "pi-network",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A rejection means the network is up and answering
		IsSuccessful: func(err error) bool {
			return err == nil || IsRejection(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Payment network circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			observability.SetGatewayCircuitState(breakerStateValue(to))
		},
	}

	logger.Info("Payment network client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("timeout", cfg.Timeout),
	)

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		backoff:    backoff,
		logger:     logger,
	}
}

// State returns the circuit breaker state
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// GetPayment fetches the current state of a payment
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*ports.GatewayPayment, error) {
	return c.call(ctx, "get", http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil)
}

// ApprovePayment approves a payment created by a payer
func (c *Client) ApprovePayment(ctx context.Context, paymentID string) (*ports.GatewayPayment, error) {
	return c.call(ctx, "approve", http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/approve", nil)
}

// CompletePayment confirms the payer's blockchain transaction
func (c *Client) CompletePayment(ctx context.Context, paymentID, txid string) (*ports.GatewayPayment, error) {
	body, err := json.Marshal(map[string]string{"txid": txid})
	if err != nil {
		return nil, fmt.Errorf("marshal complete request: %w", err)
	}
	return c.call(ctx, "complete", http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/complete", body)
}

func (c *Client) call(ctx context.Context, operation, method, path string, body []byte) (*ports.GatewayPayment, error) {
	start := time.Now()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doWithRetry(ctx, operation, method, path, body)
	})

	status := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "circuit_open"
		err = fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	case IsRejection(err):
		status = "rejected"
	case err != nil:
		status = "error"
	}
	observability.RecordGatewayRequest(operation, status, time.Since(start))

	if err != nil {
		return nil, err
	}
	return result.(*ports.GatewayPayment), nil
}

func (c *Client) doWithRetry(ctx context.Context, operation, method, path string, body []byte) (*ports.GatewayPayment, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff.NextDelay(attempt - 1)
			c.logger.Info("Retrying payment network request with exponential backoff",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.config.MaxRetries),
				zap.Duration("backoff_delay", delay),
			)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		payment, err := c.do(ctx, method, path, body)
		if err == nil {
			return payment, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == c.config.MaxRetries {
			break
		}
		c.logger.Warn("Retryable payment network error",
			zap.String("operation", operation),
			zap.Error(err),
			zap.Int("attempt", attempt),
		)
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*ports.GatewayPayment, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("Payment network response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("body_length", len(respBody)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	var payment ports.GatewayPayment
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	return &payment, nil
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var payload struct {
		Error        string `json:"error"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && (payload.Error != "" || payload.ErrorMessage != "") {
		apiErr.ErrorName = payload.Error
		apiErr.Message = payload.ErrorMessage
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

// isRetryable returns true for transport failures and temporary API errors
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func breakerStateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

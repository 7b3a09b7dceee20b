// Package response maps domain results and errors onto the JSON wire format
// shared by every handler.
package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/kevin07696/book-market-service/internal/domain"
	"github.com/kevin07696/book-market-service/pkg/encoding"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

const internalErrorMessage = "internal server error"

// ErrorBody is the failure envelope
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// StatusFor maps an error code to its HTTP status
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.ErrorCodeMissingData,
		domain.ErrorCodeInvalidInput,
		domain.ErrorCodePendingNotFound,
		domain.ErrorCodeBelowMinimum:
		return http.StatusBadRequest
	case domain.ErrorCodeNotPurchased:
		return http.StatusForbidden
	case domain.ErrorCodeBookNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing message. Client errors and gateway
// rejections keep their message; everything else is generic.
func messageFor(err *domain.DomainError) string {
	switch err.Code {
	case domain.ErrorCodeMissingData:
		if fields, ok := err.Details["fields"].([]string); ok && len(fields) > 0 {
			return "missing data: " + strings.Join(fields, ", ")
		}
		return err.Message
	case domain.ErrorCodeInvalidInput,
		domain.ErrorCodePendingNotFound,
		domain.ErrorCodeBelowMinimum,
		domain.ErrorCodeNotPurchased,
		domain.ErrorCodeBookNotFound,
		domain.ErrorCodeGatewayRejected:
		return err.Message
	default:
		return internalErrorMessage
	}
}

// OK writes {"success":true, ...fields}
func OK(w http.ResponseWriter, r *http.Request, logger *zap.Logger, fields map[string]interface{}) {
	body := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true

	write(w, r, logger, http.StatusOK, body)
}

// Error logs err and writes the failure envelope
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		domainErr = domain.WrapError("INTERNAL", internalErrorMessage, err)
	}

	status := StatusFor(domainErr.Code)
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("code", string(domainErr.Code)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if len(domainErr.Details) > 0 {
		fields = append(fields, zap.Any("details", domainErr.Details))
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", fields...)
	} else {
		logger.Info("Request rejected", fields...)
	}

	body := ErrorBody{
		Success: false,
		Error:   messageFor(domainErr),
		Code:    string(domainErr.Code),
	}
	write(w, r, logger, status, body)
}

func write(w http.ResponseWriter, r *http.Request, logger *zap.Logger, status int, body interface{}) {
	payload, err := encoding.EncodeJSON(body)
	if err != nil {
		logger.Error("Failed to encode response",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		status = http.StatusInternalServerError
		payload = []byte(`{"success":false,"error":"internal server error","code":"INTERNAL"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		logger.Debug("Client went away before response was written",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

// Decode reads a JSON body into dst. An empty body leaves dst at its zero
// value so the caller's required-field checks report what is missing.
func Decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return domain.NewDomainError(domain.ErrorCodeInvalidInput, "request body too large")
	}
	return domain.WrapError(domain.ErrorCodeInvalidInput, "invalid JSON body", err)
}

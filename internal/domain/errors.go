package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation Errors
	ErrorCodeMissingData  ErrorCode = "MISSING_DATA"
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Authorization Errors
	ErrorCodeNotPurchased ErrorCode = "NOT_PURCHASED"

	// Payment Errors
	ErrorCodePendingNotFound          ErrorCode = "PENDING_NOT_FOUND"
	ErrorCodeGatewayRejected          ErrorCode = "GATEWAY_REJECTED"
	ErrorCodeInconsistentPaymentState ErrorCode = "INCONSISTENT_PAYMENT_STATE"

	// Ledger Errors
	ErrorCodeLedgerWriteFailed ErrorCode = "LEDGER_WRITE_FAILED"
	ErrorCodeStoreUnavailable  ErrorCode = "STORE_UNAVAILABLE"
	ErrorCodeBookNotFound      ErrorCode = "BOOK_NOT_FOUND"

	// Business rule rejections
	ErrorCodeBelowMinimum ErrorCode = "BELOW_MINIMUM"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code, so that
// sentinel values such as ErrPendingNotFound match wrapped instances.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodePendingNotFound ||
		code == ErrorCodeBookNotFound
}

// IsValidationError checks if an error is a client input error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeMissingData ||
		code == ErrorCodeInvalidInput
}

// MissingData builds a MISSING_DATA error naming the absent fields.
func MissingData(fields ...string) *DomainError {
	err := NewDomainError(ErrorCodeMissingData, "missing data")
	if len(fields) > 0 {
		err.WithDetail("fields", fields)
	}
	return err
}

// Sentinel errors, compared by code via errors.Is.
var (
	ErrMissingData  = NewDomainError(ErrorCodeMissingData, "missing data")
	ErrInvalidInput = NewDomainError(ErrorCodeInvalidInput, "invalid input")

	ErrNotPurchased = NewDomainError(ErrorCodeNotPurchased, "not purchased")

	ErrPendingNotFound          = NewDomainError(ErrorCodePendingNotFound, "payment is not pending")
	ErrGatewayRejected          = NewDomainError(ErrorCodeGatewayRejected, "payment gateway rejected the request")
	ErrInconsistentPaymentState = NewDomainError(ErrorCodeInconsistentPaymentState, "payment metadata is missing book or user identifiers")

	ErrLedgerWriteFailed = NewDomainError(ErrorCodeLedgerWriteFailed, "ledger write failed")
	ErrStoreUnavailable  = NewDomainError(ErrorCodeStoreUnavailable, "store unavailable")
	ErrBookNotFound      = NewDomainError(ErrorCodeBookNotFound, "book not found")

	ErrBelowMinimum = NewDomainError(ErrorCodeBelowMinimum, "minimum payout not reached")
)

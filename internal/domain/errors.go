package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Signature errors (SIGNATURE_*)
	ErrorCodeSignatureMissing ErrorCode = "SIGNATURE_MISSING"
	ErrorCodeSignatureInvalid ErrorCode = "SIGNATURE_INVALID"

	// Credential mapping errors (MAPPING_*)
	ErrorCodeMappingNotFound ErrorCode = "MAPPING_NOT_FOUND"

	// Validation errors (VALIDATION_*)
	ErrorCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"

	// Gateway errors (GATEWAY_*)
	ErrorCodeGatewayError    ErrorCode = "GATEWAY_ERROR"
	ErrorCodeGatewayResponse ErrorCode = "GATEWAY_MALFORMED_RESPONSE"
	ErrorCodeGatewayNetwork  ErrorCode = "GATEWAY_NETWORK_ERROR"

	// Relay delivery errors (DELIVERY_*)
	ErrorCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"

	// Store errors (STORE_*)
	ErrorCodeStoreWrite ErrorCode = "STORE_WRITE_FAILED"
	ErrorCodeStoreRead  ErrorCode = "STORE_READ_FAILED"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
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

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsSignatureError reports whether an error is a webhook authentication failure
func IsSignatureError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeSignatureMissing || code == ErrorCodeSignatureInvalid
}

// IsNotFoundError reports whether an error represents a missing credential mapping
func IsNotFoundError(err error) bool {
	return GetErrorCode(err) == ErrorCodeMappingNotFound
}

// IsDeliveryError reports whether an error came from the relying-party delivery leg
func IsDeliveryError(err error) bool {
	return GetErrorCode(err) == ErrorCodeDeliveryFailed
}

// GatewayError carries the gateway's decoded error envelope. The gateway
// only returns a machine-readable body for non-200/202 responses, so a
// GatewayError always corresponds to a rejected call.
type GatewayError struct {
	GatewayMessage string
	GatewayCode    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error: %s (%s)", e.GatewayMessage, e.GatewayCode)
}

// NewGatewayError creates a GatewayError from the decoded error envelope fields
func NewGatewayError(message, code string) *GatewayError {
	return &GatewayError{GatewayMessage: message, GatewayCode: code}
}

// AsGatewayError extracts a *GatewayError from an error chain
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}

var (
	ErrSignatureMissing = NewDomainError(ErrorCodeSignatureMissing, "webhook signature header is missing")
	ErrSignatureInvalid = NewDomainError(ErrorCodeSignatureInvalid, "webhook signature verification failed")
	ErrMappingNotFound  = NewDomainError(ErrorCodeMappingNotFound, "credential mapping not found")
)

package shipper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ShipperError represents an error from a shipping carrier.
type ShipperError struct {
	Carrier    Code
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *ShipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ShipperError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ShipperError.
func (e *ShipperError) Is(target error) bool {
	t, ok := target.(*ShipperError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewShipperError creates a new ShipperError.
func NewShipperError(carrier Code, code, message string) *ShipperError {
	return &ShipperError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ShipperError) WithCause(err error) *ShipperError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ShipperError) WithStatusCode(code int) *ShipperError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *ShipperError) WithRetryable(retryable bool) *ShipperError {
	e.Retryable = retryable
	return e
}

// FromHTTPStatus classifies a failed vendor response by its status code.
func FromHTTPStatus(carrier Code, status int, message string) *ShipperError {
	e := NewShipperError(carrier, fmt.Sprintf("HTTP_%d", status), message).WithStatusCode(status)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return e.WithCause(ErrAuthenticationFailed)
	case status == http.StatusTooManyRequests:
		return e.WithCause(ErrRateLimitExceeded).WithRetryable(true)
	case status == http.StatusNotFound:
		return e.WithCause(ErrNotFound)
	case status >= 500:
		return e.WithCause(ErrServiceUnavailable).WithRetryable(true)
	default:
		return e.WithCause(ErrVendorRejected)
	}
}

// Sentinel errors for common shipping scenarios.
var (
	// ErrServiceUnavailable indicates the carrier service is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRateLimitExceeded indicates the carrier rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidPackage indicates package dimensions, weight or value are invalid.
	ErrInvalidPackage = errors.New("invalid package")

	// ErrInvalidRequest indicates the request failed validation before reaching the carrier.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound indicates the carrier does not know the referenced entity.
	ErrNotFound = errors.New("not found")

	// ErrVendorRejected indicates the carrier refused the request on business grounds.
	ErrVendorRejected = errors.New("rejected by carrier")

	// ErrNotServiceable indicates the carrier does not serve the lane.
	ErrNotServiceable = errors.New("route not serviceable")

	// ErrRatesUnavailable indicates the carrier returned no usable quote.
	ErrRatesUnavailable = errors.New("rates unavailable")

	// ErrCreationFailed indicates the carrier did not book the shipment.
	ErrCreationFailed = errors.New("shipment creation failed")

	// ErrCancellationNotAllowed indicates the shipment can no longer be cancelled.
	ErrCancellationNotAllowed = errors.New("cancellation not allowed")

	// ErrLabelNotAvailable indicates the label is not yet available.
	ErrLabelNotAvailable = errors.New("label not available")

	// ErrUnsupported indicates the carrier does not offer the operation.
	ErrUnsupported = errors.New("operation not supported by carrier")
)

// Configuration errors. They are fatal for the carrier they concern.
var (
	// ErrCarrierNotFound indicates the code matches no catalog entry.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrCarrierDisabled indicates the operator disabled the carrier.
	ErrCarrierDisabled = errors.New("carrier disabled")

	// ErrMissingCredentials indicates required credentials are not configured.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrUnsupportedCarrier indicates a catalog entry with no adapter implementation.
	ErrUnsupportedCarrier = errors.New("unsupported carrier")
)

// ConfigError reports a configuration problem for one carrier.
type ConfigError struct {
	Carrier Code
	Err     error
	Detail  string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v: %s", e.Carrier, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Carrier, e.Err)
}

// Unwrap returns the sentinel kind.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError of the given kind.
func NewConfigError(carrier Code, kind error, detail string) *ConfigError {
	return &ConfigError{Carrier: carrier, Err: kind, Detail: detail}
}

// ErrorClass groups errors by how callers should react to them.
type ErrorClass string

const (
	ClassNone      ErrorClass = ""
	ClassConfig    ErrorClass = "config"
	ClassAuth      ErrorClass = "auth"
	ClassTransient ErrorClass = "transient"
	ClassBusiness  ErrorClass = "business"
)

// Classify maps an error onto the error taxonomy.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ClassConfig
	}
	if errors.Is(err, ErrAuthenticationFailed) {
		return ClassAuth
	}
	if IsRetryable(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}
	return ClassBusiness
}

// IsUnauthorized reports whether err came from a rejected credential or token.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) && shipperErr.Retryable {
		return true
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded)
}

package providers

import (
	"errors"
	"fmt"
)

// Vendor operations, used in VendorError messages
const (
	OpChat       = "chat"
	OpValidate   = "validate"
	OpListModels = "list models"
)

// VendorError is returned by adapters for any failed vendor call. Its message
// is generic; the vendor's response is only reachable through Unwrap for logging.
type VendorError struct {
	Provider   string
	Op         string
	StatusCode int
	Cause      error
}

// Error implements the error interface
func (e *VendorError) Error() string {
	if e.Op == OpListModels {
		return fmt.Sprintf("failed to list models for provider %s", e.Provider)
	}
	return fmt.Sprintf("%s request to provider %s failed", e.Op, e.Provider)
}

// Unwrap implements error unwrapping
func (e *VendorError) Unwrap() error {
	return e.Cause
}

// NewVendorError creates a new vendor error
func NewVendorError(provider, op string, statusCode int, cause error) *VendorError {
	return &VendorError{
		Provider:   provider,
		Op:         op,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// ErrEmptyResponse is the cause recorded when a vendor returns no text
var ErrEmptyResponse = errors.New("vendor returned no content")

// IsRetryable reports whether err is a vendor error worth retrying
func IsRetryable(err error) bool {
	var vendorErr *VendorError
	if !errors.As(err, &vendorErr) {
		return false
	}
	return IsRetryableStatus(vendorErr.StatusCode)
}

// IsRetryableStatus reports whether a vendor HTTP status signals throttling
// or an upstream outage
func IsRetryableStatus(status int) bool {
	return status == 429 || status >= 500
}

package auth

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of an adapter failure
type ErrorType string

const (
	// ErrorTypeAuth means the provider rejected or the user cancelled authorization
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeAccessToken means an operation needed a token and none was cached
	ErrorTypeAccessToken ErrorType = "access_token"
	// ErrorTypeCheckLogin means the identity endpoint call failed
	ErrorTypeCheckLogin ErrorType = "check_login"
)

var (
	// ErrRedirected is returned by Login once the user agent was sent to the
	// authorization endpoint. The flow resumes with Initialize on the landing URL.
	ErrRedirected = errors.New("redirected to authorization endpoint")

	// ErrNotInitialized is returned by Login when no authorization URL was built
	ErrNotInitialized = errors.New("provider not initialized")

	// ErrUnknownProvider is returned by the registry for an unregistered name
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrDuplicateProvider is returned when a provider name is registered twice
	ErrDuplicateProvider = errors.New("provider already registered")
)

// AdapterError is the structured error every provider operation fails with
type AdapterError struct {
	Provider    string    `json:"provider"`
	Type        ErrorType `json:"type"`
	Description string    `json:"description"`
	Err         error     `json:"-"`
}

// NewError creates an AdapterError carrying the original error payload
func NewError(provider string, errorType ErrorType, description string, err error) *AdapterError {
	return &AdapterError{
		Provider:    provider,
		Type:        errorType,
		Description: description,
		Err:         err,
	}
}

// Error implements the error interface
func (e *AdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s (%v)", e.Provider, e.Type, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Type, e.Description)
}

// Unwrap returns the original error payload
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// TransportError marks a check_login failure caused by the transport rather than
// by the provider's answer. Login surfaces Inner instead of redirecting.
type TransportError struct {
	Inner *AdapterError
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return "transport: " + e.Inner.Error()
}

// Unwrap returns the wrapped AdapterError
func (e *TransportError) Unwrap() error {
	return e.Inner
}

// CallbackError is the payload of an auth error reported on the landing URL
type CallbackError struct {
	Code        string `json:"error"`
	Reason      string `json:"error_reason"`
	Description string `json:"error_description"`
}

// Error implements the error interface
func (e *CallbackError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Reason)
	}
	return e.Code
}

// IsType checks if err is, or wraps, an AdapterError of the given type
func IsType(err error, errorType ErrorType) bool {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Type == errorType
	}
	return false
}

// IsTransport reports whether err is, or wraps, a TransportError
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

package marketapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized marks a missing, expired or rejected credential.
	ErrUnauthorized = errors.New("marketapi: unauthorized")
	// ErrNetwork marks a failed, timed out or non-2xx request.
	ErrNetwork = errors.New("marketapi: request failed")
)

// APIError is a non-2xx answer from the marketplace API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("marketapi: status %d", e.Status)
	}
	return fmt.Sprintf("marketapi: status %d: %s", e.Status, e.Message)
}

// Is maps 401 answers to ErrUnauthorized and everything else to ErrNetwork.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNetwork:
		return e.Status != http.StatusUnauthorized
	}
	return false
}

// IsAuth reports whether err must be escalated to the auth flow.
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// UserMessage extracts the API's message for display, or returns fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "marketapi: " + e.err.Error() }

func (e *transportError) Unwrap() []error { return []error{ErrNetwork, e.err} }

package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoProviderConfigured is returned by a Router when no tier in the
// fallback chain has an available provider.
var ErrNoProviderConfigured = errors.New("pipeline: no provider configured")

// AuthFailed indicates a Transport call failed because the configured
// credentials were rejected by the provider.
type AuthFailed struct {
	Provider string
	Cause    error
}

func (e *AuthFailed) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pipeline: authentication failed for provider %s: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("pipeline: authentication failed for provider %s", e.Provider)
}

func (e *AuthFailed) Unwrap() error { return e.Cause }

// ProviderFailure wraps a non-success response from a Transport call that
// isn't an authentication failure (rate limit, 5xx, malformed response).
type ProviderFailure struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderFailure) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("pipeline: provider %s: %s", e.Provider, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("pipeline: provider %s: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("pipeline: provider %s failed", e.Provider)
}

func (e *ProviderFailure) Unwrap() error { return e.Cause }

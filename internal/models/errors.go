package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every lookup of a missing entity
	ErrNotFound = errors.New("not found")

	// ErrMissingCredential is returned when no API key exists for the resolved provider
	ErrMissingCredential = errors.New("missing credential")

	// ErrBotDisabled is returned when automated replies are switched off
	ErrBotDisabled = errors.New("bot is disabled")
)

// ValidationError rejects operator input before it is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports a setup problem an operator must fix,
// such as an unpriced model or a provider without credentials.
type ConfigurationError struct {
	Provider ProviderType
	Model    string
	Err      error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// MeteringError is logged when a usage record could not be priced.
type MeteringError struct {
	Provider ProviderType
	Model    string
	RecordID string
	Err      error
}

func (e *MeteringError) Error() string {
	return fmt.Sprintf("metering %s/%s (record %s): %v", e.Provider, e.Model, e.RecordID, e.Err)
}

func (e *MeteringError) Unwrap() error { return e.Err }

// TransientProviderError wraps a failed AI provider call. It is never retried here.
type TransientProviderError struct {
	Provider   ProviderType
	StatusCode int
	Auth       bool
	Err        error
}

func (e *TransientProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s returned status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

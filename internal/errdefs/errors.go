// Package errdefs defines the error taxonomy shared across the pipeline:
// configuration errors are fatal at setup, transient dependency errors are
// retryable, and everything else propagates wrapped with %w.
package errdefs

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid configuration value. It is surfaced at
// setup and never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Config builds a ConfigError for the given field
func Config(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfig reports whether err is (or wraps) a ConfigError
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// TransientError marks a dependency failure that is eligible for retry
// with bounded backoff: embedding, vector store, cross-encoder and LLM
// call failures all classify as transient.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError for the named operation
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

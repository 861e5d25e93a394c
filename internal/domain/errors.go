package domain

import (
	"errors"
	"net/http"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable.
// Nothing in the relay retries on its own; this only classifies faults for logs.
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// StorageError wraps a failure of the underlying record medium (file or database)
type StorageError struct {
	Op  string // Operation that failed (e.g., "create_trade", "log_message")
	Err error  // Underlying error
}

func (e *StorageError) Error() string {
	return "storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) IsRetriable() bool {
	return false
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a storage fault for op
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// TransportError represents a failed outbound send.
// Timeouts and other failures map to distinct status codes.
type TransportError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return e.Op + ": timeout: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) IsRetriable() bool {
	return e.Timeout
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode returns 408 for timeouts and 500 for any other send failure
func (e *TransportError) StatusCode() int {
	if e.Timeout {
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// NewTimeoutError creates a transport fault caused by the send deadline
func NewTimeoutError(op string, err error) *TransportError {
	return &TransportError{Op: op, Timeout: true, Err: err}
}

// NewTransportError creates a non-timeout transport fault
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrMalformedEnvelope is returned when a webhook body is not valid JSON
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrInvalidStatus is returned for an unknown trade status value
	ErrInvalidStatus = errors.New("invalid trade status")

	// ErrClearForbidden is returned when a data wipe is requested in production
	ErrClearForbidden = errors.New("clearing data is not allowed in production")
)

package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur while talking to storage and
// other collaborators.
var (
	// ErrRateLimited indicates that a caller exceeded its request rate.
	ErrRateLimited = errors.New("rate limited")

	// ErrStoreClosed indicates that the store has been closed.
	ErrStoreClosed = errors.New("store closed")

	// ErrRecordCorrupted indicates that stored data could not be decoded.
	ErrRecordCorrupted = errors.New("record corrupted")

	// ErrSchemaVersion indicates that a stored record uses an unsupported
	// schema version.
	ErrSchemaVersion = errors.New("unsupported schema version")

	// ErrDuplicateRecord indicates that a record with the same key already
	// exists where a new one was expected.
	ErrDuplicateRecord = errors.New("duplicate record")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// StoreError represents an error from a persistence operation.
// It includes the key and operation that failed.
type StoreError struct {
	// Key is the storage key that was involved in the failed operation.
	Key string

	// Operation is the name of the store operation that failed.
	Operation string

	// Err is the underlying error that caused the store operation to fail.
	Err error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError with the given details.
func NewStoreError(key, operation string, err error) *StoreError {
	return &StoreError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}

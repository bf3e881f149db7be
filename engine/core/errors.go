package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoCurrentContext = errors.New("no graphics context is current on this thread")
	ErrShutdown         = errors.New("system is shut down")

	// Fetch causes.
	ErrNotFound   = errors.New("resource not found")
	ErrPermission = errors.New("permission denied")
	ErrNetwork    = errors.New("network failure")
	ErrAborted    = errors.New("fetch aborted")

	// Decode causes.
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptData       = errors.New("corrupt or malformed data")
	ErrEmptyImage        = errors.New("zero-size image")

	// Upload causes.
	ErrCapability = errors.New("rejected by hardware capabilities")
	ErrDriver     = errors.New("driver error")

	ErrContractViolation = errors.New("contract violation")
)

// FetchError reports that the bytes of a resource could not be retrieved.
type FetchError struct {
	Identifier string
	// StatusCode is the HTTP status of a network fetch, 0 otherwise.
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %q: HTTP %d: %v", e.Identifier, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %q: %v", e.Identifier, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports that fetched bytes could not be turned into pixels.
type DecodeError struct {
	Identifier string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Identifier, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UploadError reports that decoded pixels could not be turned into a GPU texture.
type UploadError struct {
	Identifier string
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q: %v", e.Identifier, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ContractError is the panic value raised on API misuse.
type ContractError struct {
	Msg string
}

func (e *ContractError) Error() string { return "contract violation: " + e.Msg }

func (e *ContractError) Unwrap() error { return ErrContractViolation }

// ContractViolation panics with a *ContractError. It is reserved for
// programming errors; environmental failures are returned as errors.
func ContractViolation(format string, args ...interface{}) {
	err := &ContractError{Msg: fmt.Sprintf(format, args...)}
	LogError(err.Error())
	panic(err)
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field string
	Value string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Field)
}

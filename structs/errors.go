package structs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDataset indicates an unknown dataset id
	ErrInvalidDataset = errors.New("invalid dataset")

	// ErrInvalidRange indicates an unresolvable range preset
	ErrInvalidRange = errors.New("invalid range")

	// ErrMissingRequiredField indicates a query lacking a required part
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrUnsupportedCapability indicates the resolved adapter does not
	// implement the requested operation
	ErrUnsupportedCapability = errors.New("unsupported capability")

	// ErrUnknownAdapter indicates a dataset registration naming an
	// adapter that was never registered
	ErrUnknownAdapter = errors.New("unknown adapter")
)

// TransportError wraps a failure from an external store call. It is
// surfaced to the caller unchanged; retries belong to the store client.
type TransportError struct {
	Backend string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

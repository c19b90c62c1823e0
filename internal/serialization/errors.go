package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrMalformed          = errors.New("malformed payload")
	ErrLayerMismatch      = errors.New("checkpoint does not match network")
)

// MismatchError describes a checkpoint entry that does not fit the network.
type MismatchError struct {
	Index   int    // Layer index of the entry
	Details string // What differs
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("layer %d: %s", e.Index, e.Details)
}

// Unwrap returns ErrLayerMismatch.
func (e *MismatchError) Unwrap() error { return ErrLayerMismatch }

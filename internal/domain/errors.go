package domain

import (
	"errors"
	"fmt"
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrTabNotFound     = errors.New("tab not found")
	ErrTabClosed       = errors.New("tab closed")
	ErrInvalidTree     = errors.New("invalid tree state")

	ErrNoEngine              = errors.New("no rendering engine configured")
	ErrEngineCreateFailed    = errors.New("engine handle creation failed")
	ErrEngineDestroyFailed   = errors.New("engine handle destruction failed")
	ErrNavigationFailed      = errors.New("navigation failed")
	ErrSnapshotCaptureFailed = errors.New("snapshot capture failed")
)

// ValidationError reports a caller bug such as an out-of-range index. It is
// never worth retrying.
type ValidationError struct {
	Op    string
	Index int
	Len   int
	Err   error
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Err, ErrIndexOutOfRange) {
		return fmt.Sprintf("%s: index %d out of range [0,%d)", e.Op, e.Index, e.Len)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func outOfRange(op string, index, length int) error {
	return &ValidationError{Op: op, Index: index, Len: length, Err: ErrIndexOutOfRange}
}

// ResourceError reports a recoverable engine failure for one tab. Kind is one
// of the Err* resource sentinels; Err is the underlying cause.
type ResourceError struct {
	Op    string
	TabID string
	Kind  error
	Err   error
}

func (e *ResourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s tab %s: %v", e.Op, e.TabID, e.Kind)
	}

	return fmt.Sprintf("%s tab %s: %v: %v", e.Op, e.TabID, e.Kind, e.Err)
}

func (e *ResourceError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

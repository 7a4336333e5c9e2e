package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned for operations that need a started runtime.
	ErrNotOpen = errors.New("storage runtime is not open")

	// ErrAlreadyOpen is returned by Start on a runtime that is already open.
	ErrAlreadyOpen = errors.New("storage runtime is already open")

	// ErrCorruptSnapshot marks a snapshot file that cannot be trusted.
	// It is fatal to Start.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// Error records a failed storage operation and the file involved.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

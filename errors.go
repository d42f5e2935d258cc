// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"errors"
	"fmt"
)

// Error is the result code of a buffer operation. Every failure returned by
// this package is an Error, possibly wrapped with context; use ResultOf or
// errors.Is to recover it.
type Error int32

// Result codes. The numeric values match the graphics mapper HAL.
const (
	// None means success. It is never returned as a non-nil error.
	None Error = 0

	// BadDescriptor means the buffer descriptor is empty or corrupt.
	BadDescriptor Error = 1

	// BadBuffer means the handle is nil, malformed, or not a live reference.
	BadBuffer Error = 2

	// BadValue means a caller-supplied argument is out of range.
	BadValue Error = 3

	// NoResources means backing memory could not be obtained.
	NoResources Error = 5

	// Unsupported means the request is valid but cannot be satisfied by
	// this device.
	Unsupported Error = 7
)

var errorNames = map[Error]string{
	None:          "NONE",
	BadDescriptor: "BAD_DESCRIPTOR",
	BadBuffer:     "BAD_BUFFER",
	BadValue:      "BAD_VALUE",
	NoResources:   "NO_RESOURCES",
	Unsupported:   "UNSUPPORTED",
}

// String returns the HAL name of the result.
func (e Error) String() string {
	if s, ok := errorNames[e]; ok {
		return s
	}
	return fmt.Sprintf("Error(%d)", int32(e))
}

// Error implements the error interface.
func (e Error) Error() string {
	return "gralloc: " + e.String()
}

// ResultOf maps err to its result code. A nil error is None; errors that
// carry no result code are reported as NoResources.
func ResultOf(err error) Error {
	if err == nil {
		return None
	}
	var e Error
	if errors.As(err, &e) {
		return e
	}
	return NoResources
}

// errorf wraps code with a formatted reason.
func errorf(code Error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{code}, args...)...)
}

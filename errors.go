package lgtm

import (
	"errors"
	"fmt"
)

// RuntimeError marks a run that could not complete: bad configuration, an unreadable
// or malformed report, or a backend that could not be constructed. Exits with code 2.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError wraps err so the command exits with code 2
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError reports whether a RuntimeError appears anywhere in err's chain
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// NoDataError is returned when no report location held a file. Sources lists the
// locations that were checked, as label=path.
type NoDataError struct {
	Sources []string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no test results found in %d location(s)", len(e.Sources))
}

func NewNoDataError(sources []string) *NoDataError {
	return &NoDataError{Sources: sources}
}

// IsNoDataError reports whether a NoDataError appears anywhere in err's chain
func IsNoDataError(err error) bool {
	var noDataErr *NoDataError
	return err != nil && errors.As(err, &noDataErr)
}

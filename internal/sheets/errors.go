package sheets

import (
	"errors"
	"fmt"
)

// ErrTimeout matches a FetchError whose request was aborted by its deadline.
var ErrTimeout = errors.New("sheet fetch timed out")

// FetchError captures a failed read of a published sheet: either a non-2xx status,
// an aborted request or a transport failure.
type FetchError struct {
	Sheet      string
	StatusCode int
	// Aborted is set only when the request's deadline expired. A cancelled
	// request is reported through Err.
	Aborted bool
	Err     error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Aborted:
		return fmt.Sprintf("fetch sheet %q: aborted", e.Sheet)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch sheet %q: status %d", e.Sheet, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch sheet %q: %v", e.Sheet, e.Err)
	}
	return fmt.Sprintf("fetch sheet %q failed", e.Sheet)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	return target == ErrTimeout && e.Aborted
}

// DecodeError reports an envelope that could not be stripped or a payload that is not JSON.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode sheet response: %s: %v", e.Reason, e.Err)
	}
	return "decode sheet response: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FormatError reports valid JSON that lacks the table.rows shape.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "unexpected sheet format: " + e.Reason
}

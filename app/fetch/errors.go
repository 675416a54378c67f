package fetch

import (
	"fmt"
)

type ErrorKind string

const (
	ErrTimeout     ErrorKind = "timeout"
	ErrTooLarge    ErrorKind = "too_large"
	ErrUnreachable ErrorKind = "unreachable"
	ErrHTTPStatus  ErrorKind = "http_status"
)

// FetchError classifies a failed fetch. Code is set for ErrHTTPStatus only.
type FetchError struct {
	Kind ErrorKind
	Code int
	Err  error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case ErrHTTPStatus:
		return fmt.Sprintf("fetch failed: HTTP %d", e.Code)
	default:
		if e.Err != nil {
			return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("fetch failed (%s)", e.Kind)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Reason is the short form recorded on the feed row and in pass reports.
func (e *FetchError) Reason() string {
	if e.Kind == ErrHTTPStatus {
		return fmt.Sprintf("http_%d", e.Code)
	}
	return string(e.Kind)
}

package feed

import (
	"time"
)

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// Entry is a canonical parsed entry, not yet stored.
type Entry struct {
	GUID        string
	Title       string
	Link        string
	Content     string
	PublishedAt *time.Time
}

// ParseError means the document could not be recognized as any supported
// feed format. Per-entry problems are reported as skip counts instead.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "unrecognized feed document: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

package sync

import (
	"time"
)

type Group struct {
	ID    int64
	Title string
}

type Feed struct {
	ID            int64
	URL           string
	Title         string
	GroupIDs      []int64
	Degraded      bool
	LastFetchedAt *time.Time
}

type Item struct {
	ID          int64
	FeedID      int64
	Title       string
	Content     string
	Link        string
	PublishedAt *time.Time
	IsRead      bool
	IsSaved     bool
	Sequence    int64
}

// ItemFilter narrows an incremental listing. SinceCursor is exclusive.
type ItemFilter struct {
	SinceCursor int64
	FeedID      *int64
	GroupID     *int64
	UnreadOnly  bool
	SavedOnly   bool
	Limit       int
}

// ItemPage is one page of the incremental listing. Resuming from
// NextCursor yields the entries after this page, with no gaps or repeats.
type ItemPage struct {
	Items      []Item
	NextCursor int64
}

type MarkRequest struct {
	EntryIDs []int64
	Read     *bool
	Saved    *bool
}

type Counts struct {
	Unread int
	Saved  int
}

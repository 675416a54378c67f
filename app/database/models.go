package database

import (
	"time"
)

// DegradedThreshold is the number of consecutive fetch failures after which
// a feed is reported as degraded. Degraded feeds are still retried on every
// pass; they are never disabled automatically.
const DegradedThreshold = 10

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	CreatedAt    time.Time
}

type Group struct {
	ID     int64
	UserID int64
	Title  string
}

type Feed struct {
	ID            int64
	URL           string
	Title         string
	ETag          string // Cached validator from the last 200 response
	LastModified  string // Cached Last-Modified header, sent back verbatim
	LastFetchedAt *time.Time
	LastStatus    string // Outcome of the most recent refresh: ok, unchanged, or an error reason
	ErrorStreak   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (f *Feed) Degraded() bool {
	return f.ErrorStreak >= DegradedThreshold
}

type Entry struct {
	ID           int64
	FeedID       int64
	IdentityHash string
	Title        string
	Link         string
	Content      string
	PublishedAt  *time.Time
	Sequence     int64
	CreatedAt    time.Time
}

// UserEntry is an entry joined with the per-user read/saved state.
// A missing entry_states row reads as unread/unsaved.
type UserEntry struct {
	Entry
	IsRead  bool
	IsSaved bool
}

// FeedWithGroups is a feed plus the groups the user's subscriptions place it in.
type FeedWithGroups struct {
	Feed
	GroupIDs []int64
}

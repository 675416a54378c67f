package database

import (
	"context"
	"time"
)

// NewEntry is the write-path payload for a single parsed entry.
type NewEntry struct {
	IdentityHash string
	Title        string
	Link         string
	Content      string
	PublishedAt  *time.Time
}

// EntryFilter selects entries for cursor-based listing. SinceCursor is
// exclusive; results are always ordered by sequence.
type EntryFilter struct {
	SinceCursor int64
	FeedID      *int64
	GroupID     *int64
	UnreadOnly  bool
	SavedOnly   bool
	Limit       int
}

type FeedRepository interface {
	GetDueFeeds(ctx context.Context) ([]Feed, error)
	GetFeedByID(ctx context.Context, feedID int64) (*Feed, error)
	GetFeedByURL(ctx context.Context, feedURL string) (*Feed, error)
	UpsertFeed(ctx context.Context, feedURL, title string) (int64, error)

	MarkFetchSuccess(ctx context.Context, feedID int64, title, etag, lastModified string) error
	MarkFetchUnchanged(ctx context.Context, feedID int64) error
	MarkFetchFailure(ctx context.Context, feedID int64, reason string) error

	GetFeedCount(ctx context.Context) (int, error)
	GetDegradedFeeds(ctx context.Context) ([]Feed, error)
}

type EntryRepository interface {
	InsertEntries(ctx context.Context, feedID int64, entries []NewEntry) ([]int64, error)
	EntriesSince(ctx context.Context, userID int64, filter EntryFilter) ([]UserEntry, int64, error)

	SetState(ctx context.Context, userID int64, entryIDs []int64, read, saved *bool) error
	MarkReadBefore(ctx context.Context, userID int64, cursor int64) error

	UnreadCount(ctx context.Context, userID int64) (int, error)
	SavedCount(ctx context.Context, userID int64) (int, error)
	GetEntryCount(ctx context.Context) (int, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, username, password, email string) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)

	ListGroups(ctx context.Context, userID int64) ([]Group, error)
	ListFeeds(ctx context.Context, userID int64) ([]FeedWithGroups, error)
	GetOrCreateGroup(ctx context.Context, userID int64, title string) (int64, error)
	Subscribe(ctx context.Context, userID, feedID, groupID int64) error
	Unsubscribe(ctx context.Context, userID, feedID int64) error
}

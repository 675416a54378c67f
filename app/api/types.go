package api

import (
	"time"
)

type groupResponse struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type feedResponse struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	GroupIDs      []int64    `json:"group_ids"`
	Degraded      bool       `json:"degraded"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
}

type itemResponse struct {
	ID          int64      `json:"id"`
	FeedID      int64      `json:"feed_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Link        string     `json:"link"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	IsRead      bool       `json:"is_read"`
	IsSaved     bool       `json:"is_saved"`
	Sequence    int64      `json:"sequence"`
}

type itemsResponse struct {
	Items      []itemResponse `json:"items"`
	NextCursor int64          `json:"next_cursor"`
}

type markRequest struct {
	EntryIDs []int64 `json:"entry_ids"`
	Read     *bool   `json:"read,omitempty"`
	Saved    *bool   `json:"saved,omitempty"`
}

type markReadBeforeRequest struct {
	Cursor int64 `json:"cursor"`
}

type countsResponse struct {
	Unread int `json:"unread"`
	Saved  int `json:"saved"`
}

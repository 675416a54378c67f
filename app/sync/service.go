package sync

import (
	"context"
	"fmt"

	"github.com/mkoval/feedsink/app/database"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
	MaxMarkBatch    = 1000
)

// Service implements the cursor-based incremental sync protocol on top of
// the entry store. All ordering is by sequence number; client clocks and
// publisher timestamps play no part.
type Service struct {
	entryRepo database.EntryRepository
	userRepo  database.UserRepository
}

func NewService(entryRepo database.EntryRepository, userRepo database.UserRepository) *Service {
	return &Service{
		entryRepo: entryRepo,
		userRepo:  userRepo,
	}
}

func (s *Service) ListGroups(ctx context.Context, userID int64) ([]Group, error) {
	groups, err := s.userRepo.ListGroups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	out := make([]Group, 0, len(groups))
	for _, group := range groups {
		out = append(out, Group{ID: group.ID, Title: group.Title})
	}

	return out, nil
}

func (s *Service) ListFeeds(ctx context.Context, userID int64) ([]Feed, error) {
	feeds, err := s.userRepo.ListFeeds(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}

	out := make([]Feed, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, Feed{
			ID:            f.ID,
			URL:           f.URL,
			Title:         f.Title,
			GroupIDs:      f.GroupIDs,
			Degraded:      f.Degraded(),
			LastFetchedAt: f.LastFetchedAt,
		})
	}

	return out, nil
}

func (s *Service) ListItems(ctx context.Context, userID int64, filter ItemFilter) (*ItemPage, error) {
	if filter.SinceCursor < 0 {
		return nil, &ProtocolError{Msg: "cursor must not be negative"}
	}
	if filter.Limit < 0 || filter.Limit > MaxPageSize {
		return nil, &ProtocolError{Msg: fmt.Sprintf("limit must be between 0 and %d", MaxPageSize)}
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultPageSize
	}

	entries, nextCursor, err := s.entryRepo.EntriesSince(ctx, userID, database.EntryFilter{
		SinceCursor: filter.SinceCursor,
		FeedID:      filter.FeedID,
		GroupID:     filter.GroupID,
		UnreadOnly:  filter.UnreadOnly,
		SavedOnly:   filter.SavedOnly,
		Limit:       filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	page := &ItemPage{
		Items:      make([]Item, 0, len(entries)),
		NextCursor: nextCursor,
	}
	for _, entry := range entries {
		page.Items = append(page.Items, Item{
			ID:          entry.ID,
			FeedID:      entry.FeedID,
			Title:       entry.Title,
			Content:     entry.Content,
			Link:        entry.Link,
			PublishedAt: entry.PublishedAt,
			IsRead:      entry.IsRead,
			IsSaved:     entry.IsSaved,
			Sequence:    entry.Sequence,
		})
	}

	return page, nil
}

// Mark applies read/saved flags to a batch of entries. Idempotent and
// commutative per entry; concurrent conflicting writes resolve to last
// commit wins.
func (s *Service) Mark(ctx context.Context, userID int64, req MarkRequest) error {
	if len(req.EntryIDs) == 0 {
		return &ProtocolError{Msg: "entry_ids must not be empty"}
	}
	if len(req.EntryIDs) > MaxMarkBatch {
		return &ProtocolError{Msg: fmt.Sprintf("at most %d entries per mark request", MaxMarkBatch)}
	}
	if req.Read == nil && req.Saved == nil {
		return &ProtocolError{Msg: "at least one of read or saved must be set"}
	}

	if err := s.entryRepo.SetState(ctx, userID, req.EntryIDs, req.Read, req.Saved); err != nil {
		return fmt.Errorf("failed to mark entries: %w", err)
	}

	return nil
}

func (s *Service) MarkReadBefore(ctx context.Context, userID int64, cursor int64) error {
	if cursor < 0 {
		return &ProtocolError{Msg: "cursor must not be negative"}
	}

	if err := s.entryRepo.MarkReadBefore(ctx, userID, cursor); err != nil {
		return fmt.Errorf("failed to mark read before cursor: %w", err)
	}

	return nil
}

func (s *Service) GetCounts(ctx context.Context, userID int64) (*Counts, error) {
	unread, err := s.entryRepo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unread count: %w", err)
	}

	saved, err := s.entryRepo.SavedCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get saved count: %w", err)
	}

	return &Counts{Unread: unread, Saved: saved}, nil
}

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mkoval/feedsink/app/database"
	"github.com/mkoval/feedsink/app/feed"
	"github.com/mkoval/feedsink/app/fetch"
)

// RefreshFeedTask runs one feed through fetch, parse, identity resolution
// and storage. State machine: Pending -> Fetching -> {NotModified |
// Parsing -> Storing -> Done} | Failed; no state is retried within a pass.
type RefreshFeedTask struct {
	Task
	Feed      database.Feed
	fetcher   *fetch.Fetcher
	parser    *feed.Parser
	feedRepo  database.FeedRepository
	entryRepo database.EntryRepository
	results   chan<- FeedOutcome
}

func NewRefreshFeedTask(f database.Feed, fetcher *fetch.Fetcher, parser *feed.Parser,
	feedRepo database.FeedRepository, entryRepo database.EntryRepository,
	results chan<- FeedOutcome) *RefreshFeedTask {
	return &RefreshFeedTask{
		Task:      NewTask(TaskTypeRefreshFeed, f.URL),
		Feed:      f,
		fetcher:   fetcher,
		parser:    parser,
		feedRepo:  feedRepo,
		entryRepo: entryRepo,
		results:   results,
	}
}

func (t *RefreshFeedTask) Execute(ctx context.Context) error {
	result, err := t.fetcher.Run(ctx, fetch.Request{
		URL:          t.Feed.URL,
		ETag:         t.Feed.ETag,
		LastModified: t.Feed.LastModified,
	})
	if err != nil {
		var fetchErr *fetch.FetchError
		if errors.As(err, &fetchErr) {
			return t.fail(ctx, fetchErr.Reason(), err)
		}
		// Cancelled mid-fetch: the feed is abandoned for this pass, no
		// outcome and no failure streak.
		return err
	}

	if result.NotModified {
		if err := t.feedRepo.MarkFetchUnchanged(ctx, t.Feed.ID); err != nil {
			return t.fail(ctx, "store_error", err)
		}
		t.emit(FeedOutcome{FeedID: t.Feed.ID, URL: t.Feed.URL, Kind: OutcomeUnchanged})
		return nil
	}

	metadata, entries, skipped, err := t.parser.Run(result.Body)
	if err != nil {
		return t.fail(ctx, "parse_error", err)
	}

	newEntries := make([]database.NewEntry, 0, len(entries))
	for _, entry := range entries {
		newEntries = append(newEntries, database.NewEntry{
			IdentityHash: feed.Identity(entry),
			Title:        entry.Title,
			Link:         entry.Link,
			Content:      entry.Content,
			PublishedAt:  entry.PublishedAt,
		})
	}

	sequences, err := t.entryRepo.InsertEntries(ctx, t.Feed.ID, newEntries)
	if err != nil {
		return t.fail(ctx, "store_error", err)
	}

	if err := t.feedRepo.MarkFetchSuccess(ctx, t.Feed.ID, metadata.Title, result.ETag, result.LastModified); err != nil {
		return t.fail(ctx, "store_error", err)
	}

	t.emit(FeedOutcome{
		FeedID:     t.Feed.ID,
		URL:        t.Feed.URL,
		Kind:       OutcomeUpdated,
		NewEntries: len(sequences),
		Skipped:    skipped,
	})

	slog.Debug("Feed refreshed",
		"feed", t.Feed.URL,
		"duration", t.GetDuration(),
		"parsed", len(entries),
		"new", len(sequences),
		"skipped", skipped)

	return nil
}

// fail records the failure streak and emits a Failed outcome. The error is
// returned for worker logging but never aborts the pass.
func (t *RefreshFeedTask) fail(ctx context.Context, reason string, cause error) error {
	if err := t.feedRepo.MarkFetchFailure(ctx, t.Feed.ID, reason); err != nil {
		slog.Error("Failed to record fetch failure", "feed", t.Feed.URL, "error", err)
	}
	t.emit(FeedOutcome{FeedID: t.Feed.ID, URL: t.Feed.URL, Kind: OutcomeFailed, Reason: reason})
	return fmt.Errorf("feed %s: %w", t.Feed.URL, cause)
}

func (t *RefreshFeedTask) emit(outcome FeedOutcome) {
	select {
	case t.results <- outcome:
	default:
		slog.Warn("Dropped refresh outcome, results channel full", "feed", t.Feed.URL)
	}
}

package database

import (
	"context"
	"database/sql"
	"fmt"
)

type feedRepository struct {
	db *DB
}

func NewFeedRepository(db *DB) FeedRepository {
	return &feedRepository{db: db}
}

const feedColumns = `id, url, title, etag, last_modified, last_fetched_at,
       last_status, error_streak, created_at, updated_at`

func scanFeed(row interface{ Scan(...any) error }) (*Feed, error) {
	var feed Feed
	var lastFetchedAt sql.NullTime
	err := row.Scan(
		&feed.ID, &feed.URL, &feed.Title, &feed.ETag, &feed.LastModified,
		&lastFetchedAt, &feed.LastStatus, &feed.ErrorStreak,
		&feed.CreatedAt, &feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastFetchedAt.Valid {
		t := lastFetchedAt.Time
		feed.LastFetchedAt = &t
	}
	return &feed, nil
}

// GetDueFeeds returns every feed referenced by at least one subscription,
// oldest fetch first. Degraded feeds are included: the failure streak only
// affects reporting, never scheduling.
func (r *feedRepository) GetDueFeeds(ctx context.Context) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+feedColumns+`
		FROM feeds
		WHERE EXISTS (SELECT 1 FROM subscriptions s WHERE s.feed_id = feeds.id)
		ORDER BY last_fetched_at IS NOT NULL, last_fetched_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get due feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

func (r *feedRepository) GetFeedByID(ctx context.Context, feedID int64) (*Feed, error) {
	feed, err := scanFeed(r.db.QueryRowContext(ctx, `
		SELECT `+feedColumns+` FROM feeds WHERE id = ?
	`, feedID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by ID: %w", err)
	}

	return feed, nil
}

func (r *feedRepository) GetFeedByURL(ctx context.Context, feedURL string) (*Feed, error) {
	feed, err := scanFeed(r.db.QueryRowContext(ctx, `
		SELECT `+feedColumns+` FROM feeds WHERE url = ?
	`, feedURL))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by URL: %w", err)
	}

	return feed, nil
}

// UpsertFeed inserts a feed by URL or returns the existing one. Feeds are
// shared across users, so subscribe/import never duplicates a URL.
func (r *feedRepository) UpsertFeed(ctx context.Context, feedURL, title string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO feeds (url, title)
		VALUES (?, ?)
		ON CONFLICT(url) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`, feedURL, title).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert feed: %w", err)
	}
	return id, nil
}

func (r *feedRepository) MarkFetchSuccess(ctx context.Context, feedID int64, title, etag, lastModified string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET title = CASE WHEN ? != '' THEN ? ELSE title END,
		    etag = ?, last_modified = ?,
		    last_fetched_at = CURRENT_TIMESTAMP, last_status = 'ok',
		    error_streak = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, title, title, etag, lastModified, feedID)

	if err != nil {
		return fmt.Errorf("failed to mark fetch success: %w", err)
	}

	return nil
}

func (r *feedRepository) MarkFetchUnchanged(ctx context.Context, feedID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET last_fetched_at = CURRENT_TIMESTAMP, last_status = 'unchanged',
		    error_streak = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, feedID)

	if err != nil {
		return fmt.Errorf("failed to mark fetch unchanged: %w", err)
	}

	return nil
}

func (r *feedRepository) MarkFetchFailure(ctx context.Context, feedID int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET last_fetched_at = CURRENT_TIMESTAMP, last_status = ?,
		    error_streak = error_streak + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, reason, feedID)

	if err != nil {
		return fmt.Errorf("failed to mark fetch failure: %w", err)
	}

	return nil
}

func (r *feedRepository) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

func (r *feedRepository) GetDegradedFeeds(ctx context.Context) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+feedColumns+`
		FROM feeds
		WHERE error_streak >= ?
		ORDER BY error_streak DESC
	`, DegradedThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to get degraded feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

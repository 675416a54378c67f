package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type entryRepository struct {
	db *DB
}

func NewEntryRepository(db *DB) EntryRepository {
	return &entryRepository{db: db}
}

// InsertEntries stores the genuinely-new entries for one feed inside a
// single transaction and returns the assigned sequence numbers, in feed
// order. Entries whose identity hash is already present for the feed are
// skipped without consuming a sequence number. The sequence comes from a
// counter row incremented inside the transaction, so concurrent inserts
// can never produce duplicate or skipped numbers.
func (r *entryRepository) InsertEntries(ctx context.Context, feedID int64, entries []NewEntry) ([]int64, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sequences []int64
	for _, entry := range entries {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM entries WHERE feed_id = ? AND identity_hash = ?
		`, feedID, entry.IdentityHash).Scan(&exists)
		if err == nil {
			// Already seen: republished entries never rewrite stored content.
			continue
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to check entry identity: %w", err)
		}

		var sequence int64
		err = tx.QueryRowContext(ctx, `
			UPDATE counters SET value = value + 1
			WHERE name = 'entry_sequence'
			RETURNING value
		`).Scan(&sequence)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate sequence number: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO entries (feed_id, identity_hash, title, link, content, published_at, sequence)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, feedID, entry.IdentityHash, entry.Title, entry.Link, entry.Content,
			entry.PublishedAt, sequence)
		if err != nil {
			return nil, fmt.Errorf("failed to insert entry: %w", err)
		}

		sequences = append(sequences, sequence)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit entries: %w", err)
	}

	return sequences, nil
}

// EntriesSince returns a page of entries visible to the user, strictly
// ordered by sequence, plus the cursor to resume from. Wall-clock time is
// never used for ordering.
func (r *entryRepository) EntriesSince(ctx context.Context, userID int64, filter EntryFilter) ([]UserEntry, int64, error) {
	query := `
		SELECT e.id, e.feed_id, e.identity_hash, e.title, e.link, e.content,
		       e.published_at, e.sequence, e.created_at,
		       COALESCE(es.is_read, 0), COALESCE(es.is_saved, 0)
		FROM entries e
		JOIN subscriptions s ON s.feed_id = e.feed_id AND s.user_id = ?
		LEFT JOIN entry_states es ON es.entry_id = e.id AND es.user_id = ?
		WHERE e.sequence > ?`
	args := []any{userID, userID, filter.SinceCursor}

	var conds []string
	if filter.FeedID != nil {
		conds = append(conds, "e.feed_id = ?")
		args = append(args, *filter.FeedID)
	}
	if filter.GroupID != nil {
		conds = append(conds, "s.group_id = ?")
		args = append(args, *filter.GroupID)
	}
	if filter.UnreadOnly {
		conds = append(conds, "COALESCE(es.is_read, 0) = 0")
	}
	if filter.SavedOnly {
		conds = append(conds, "COALESCE(es.is_saved, 0) = 1")
	}
	if len(conds) > 0 {
		query += " AND " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY e.sequence LIMIT ?"
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	var items []UserEntry
	nextCursor := filter.SinceCursor
	for rows.Next() {
		var item UserEntry
		var publishedAt sql.NullTime
		var isRead, isSaved int
		err := rows.Scan(
			&item.ID, &item.FeedID, &item.IdentityHash, &item.Title, &item.Link,
			&item.Content, &publishedAt, &item.Sequence, &item.CreatedAt,
			&isRead, &isSaved,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan entry row: %w", err)
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			item.PublishedAt = &t
		}
		item.IsRead = isRead != 0
		item.IsSaved = isSaved != 0
		items = append(items, item)
		nextCursor = item.Sequence
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating entry rows: %w", err)
	}

	return items, nextCursor, nil
}

// SetState applies read/saved flags to the given entries. A nil flag leaves
// that field untouched. State rows are created lazily on first mutation;
// applying the same flag twice is a no-op.
func (r *entryRepository) SetState(ctx context.Context, userID int64, entryIDs []int64, read, saved *bool) error {
	if len(entryIDs) == 0 || (read == nil && saved == nil) {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, entryID := range entryIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entry_states (user_id, entry_id)
			VALUES (?, ?)
			ON CONFLICT(user_id, entry_id) DO NOTHING
		`, userID, entryID)
		if err != nil {
			return fmt.Errorf("failed to create entry state: %w", err)
		}

		if read != nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE entry_states SET is_read = ?, updated_at = CURRENT_TIMESTAMP
				WHERE user_id = ? AND entry_id = ?
			`, boolToInt(*read), userID, entryID)
			if err != nil {
				return fmt.Errorf("failed to update read state: %w", err)
			}
		}
		if saved != nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE entry_states SET is_saved = ?, updated_at = CURRENT_TIMESTAMP
				WHERE user_id = ? AND entry_id = ?
			`, boolToInt(*saved), userID, entryID)
			if err != nil {
				return fmt.Errorf("failed to update saved state: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state changes: %w", err)
	}

	return nil
}

// MarkReadBefore marks every entry visible to the user with sequence <=
// cursor as read, as a single set-insert rather than a scan-and-update.
func (r *entryRepository) MarkReadBefore(ctx context.Context, userID int64, cursor int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entry_states (user_id, entry_id, is_read)
		SELECT ?, e.id, 1
		FROM entries e
		JOIN subscriptions s ON s.feed_id = e.feed_id AND s.user_id = ?
		WHERE e.sequence <= ?
		ON CONFLICT(user_id, entry_id) DO UPDATE SET
			is_read = 1, updated_at = CURRENT_TIMESTAMP
	`, userID, userID, cursor)

	if err != nil {
		return fmt.Errorf("failed to mark read before cursor: %w", err)
	}

	return nil
}

func (r *entryRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM entries e
		JOIN subscriptions s ON s.feed_id = e.feed_id AND s.user_id = ?
		LEFT JOIN entry_states es ON es.entry_id = e.id AND es.user_id = ?
		WHERE COALESCE(es.is_read, 0) = 0
	`, userID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return count, nil
}

func (r *entryRepository) SavedCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM entries e
		JOIN subscriptions s ON s.feed_id = e.feed_id AND s.user_id = ?
		JOIN entry_states es ON es.entry_id = e.id AND es.user_id = ?
		WHERE es.is_saved = 1
	`, userID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get saved count: %w", err)
	}
	return count, nil
}

func (r *entryRepository) GetEntryCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get entry count: %w", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

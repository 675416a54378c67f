package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced whenever a password is set or reset.
const MinPasswordLength = 8

var (
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, username, password, email string) (int64, error) {
	if len(password) < MinPasswordLength {
		return 0, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, email)
		VALUES (?, ?, ?)
		RETURNING id
	`, username, string(hash), email).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	return id, nil
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, email, created_at
		FROM users
		WHERE username = ?
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Authenticate checks the local credential pair and returns the user.
// The same ErrInvalidCredentials is returned for an unknown username and a
// wrong password.
func (r *userRepository) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := r.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (r *userRepository) ListGroups(ctx context.Context, userID int64) ([]Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title
		FROM groups
		WHERE user_id = ?
		ORDER BY title
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var group Group
		if err := rows.Scan(&group.ID, &group.UserID, &group.Title); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group rows: %w", err)
	}

	return groups, nil
}

func (r *userRepository) ListFeeds(ctx context.Context, userID int64) ([]FeedWithGroups, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT f.id, f.url, f.title, f.etag, f.last_modified, f.last_fetched_at,
		       f.last_status, f.error_streak, f.created_at, f.updated_at,
		       s.group_id
		FROM feeds f
		JOIN subscriptions s ON s.feed_id = f.id
		WHERE s.user_id = ?
		ORDER BY f.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	// A (user, feed) pair has at most one subscription, but the query shape
	// stays group-aware in case that invariant is ever relaxed.
	byID := make(map[int64]*FeedWithGroups)
	var order []int64
	for rows.Next() {
		var feed Feed
		var lastFetchedAt sql.NullTime
		var groupID int64
		err := rows.Scan(
			&feed.ID, &feed.URL, &feed.Title, &feed.ETag, &feed.LastModified,
			&lastFetchedAt, &feed.LastStatus, &feed.ErrorStreak,
			&feed.CreatedAt, &feed.UpdatedAt, &groupID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		if lastFetchedAt.Valid {
			t := lastFetchedAt.Time
			feed.LastFetchedAt = &t
		}

		existing, ok := byID[feed.ID]
		if !ok {
			existing = &FeedWithGroups{Feed: feed}
			byID[feed.ID] = existing
			order = append(order, feed.ID)
		}
		existing.GroupIDs = append(existing.GroupIDs, groupID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	feeds := make([]FeedWithGroups, 0, len(order))
	for _, id := range order {
		feeds = append(feeds, *byID[id])
	}

	return feeds, nil
}

func (r *userRepository) GetOrCreateGroup(ctx context.Context, userID int64, title string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM groups WHERE user_id = ? AND title = ?
	`, userID, title).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up group: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO groups (user_id, title) VALUES (?, ?) RETURNING id
	`, userID, title).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create group: %w", err)
	}

	return id, nil
}

// Subscribe creates or moves the user's subscription to the feed. The
// unique (user_id, feed_id) index keeps at most one active subscription.
func (r *userRepository) Subscribe(ctx context.Context, userID, feedID, groupID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, feed_id, group_id)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, feed_id) DO UPDATE SET group_id = excluded.group_id
	`, userID, feedID, groupID)

	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	return nil
}

func (r *userRepository) Unsubscribe(ctx context.Context, userID, feedID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM subscriptions WHERE user_id = ? AND feed_id = ?
	`, userID, feedID)

	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}

	return nil
}

package database

import (
	"context"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

// seedSubscription creates a user, a group, a feed and the subscription
// joining them, returning the three IDs.
func seedSubscription(t *testing.T, db *DB, username, feedURL string) (userID, feedID, groupID int64) {
	t.Helper()
	ctx := context.Background()

	userRepo := NewUserRepository(db)
	feedRepo := NewFeedRepository(db)

	userID, err := userRepo.CreateUser(ctx, username, "correct-horse", username+"@example.com")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	groupID, err = userRepo.GetOrCreateGroup(ctx, userID, "News")
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	feedID, err = feedRepo.UpsertFeed(ctx, feedURL, "Test Feed")
	if err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}

	if err := userRepo.Subscribe(ctx, userID, feedID, groupID); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	return userID, feedID, groupID
}

func boolPtr(b bool) *bool {
	return &b
}

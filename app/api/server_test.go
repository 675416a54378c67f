package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mkoval/feedsink/app/database"
	"github.com/mkoval/feedsink/app/sync"
)

type apiEnv struct {
	router    *gin.Engine
	db        *database.DB
	entryRepo database.EntryRepository
	userID    int64
	feedID    int64
}

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	feedRepo := database.NewFeedRepository(db)
	entryRepo := database.NewEntryRepository(db)
	userRepo := database.NewUserRepository(db)

	ctx := context.Background()
	userID, err := userRepo.CreateUser(ctx, "alice", "correct-horse", "")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	groupID, err := userRepo.GetOrCreateGroup(ctx, userID, "News")
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	feedID, err := feedRepo.UpsertFeed(ctx, "https://example.com/feed", "Test Feed")
	if err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}
	if err := userRepo.Subscribe(ctx, userID, feedID, groupID); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	service := sync.NewService(entryRepo, userRepo)
	handler := NewHandler(service, feedRepo, entryRepo)

	return &apiEnv{
		router:    NewServer(handler, userRepo),
		db:        db,
		entryRepo: entryRepo,
		userID:    userID,
		feedID:    feedID,
	}
}

func (e *apiEnv) request(t *testing.T, method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.SetBasicAuth("alice", "correct-horse")
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) insertEntries(t *testing.T, n int) {
	t.Helper()

	entries := make([]database.NewEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, database.NewEntry{
			IdentityHash: "hash-" + string(rune('a'+i)),
			Title:        "Entry " + string(rune('A'+i)),
			Link:         "https://example.com/" + string(rune('a'+i)),
		})
	}
	if _, err := e.entryRepo.InsertEntries(context.Background(), e.feedID, entries); err != nil {
		t.Fatalf("Failed to insert entries: %v", err)
	}
}

func TestSyncRoutesRequireAuthentication(t *testing.T) {
	env := setupAPI(t)

	for _, path := range []string{"/sync/groups", "/sync/feeds", "/sync/items", "/sync/counts"} {
		w := env.request(t, "GET", path, "", false)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for unauthenticated %s, got: %d", path, w.Code)
		}
		if w.Header().Get("WWW-Authenticate") == "" {
			t.Errorf("Expected a WWW-Authenticate challenge for %s", path)
		}
	}
}

func TestAuthenticationRejectsWrongPassword(t *testing.T) {
	env := setupAPI(t)

	req := httptest.NewRequest("GET", "/sync/items", nil)
	req.SetBasicAuth("alice", "wrong-password")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got: %d", w.Code)
	}
}

func TestHealthIsOpen(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "GET", "/health", "", false)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for /health, got: %d", w.Code)
	}
}

func TestListItemsPaging(t *testing.T) {
	env := setupAPI(t)
	env.insertEntries(t, 3)

	w := env.request(t, "GET", "/sync/items?limit=2", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d (%s)", w.Code, w.Body.String())
	}

	var page struct {
		Items []struct {
			ID       int64  `json:"id"`
			Title    string `json:"title"`
			Sequence int64  `json:"sequence"`
		} `json:"items"`
		NextCursor int64 `json:"next_cursor"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("Expected 2 items on the first page, got: %d", len(page.Items))
	}
	if page.NextCursor != page.Items[1].Sequence {
		t.Errorf("Expected next cursor %d, got: %d", page.Items[1].Sequence, page.NextCursor)
	}

	w = env.request(t, "GET", "/sync/items?limit=2&since=2", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(page.Items) != 1 {
		t.Errorf("Expected 1 item on the last page, got: %d", len(page.Items))
	}
}

func TestListItemsRejectsMalformedQuery(t *testing.T) {
	env := setupAPI(t)

	for _, query := range []string{"since=abc", "limit=many", "feed=xyz", "since=-1", "limit=501"} {
		w := env.request(t, "GET", "/sync/items?"+query, "", true)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %q, got: %d", query, w.Code)
		}
	}
}

func TestMarkItems(t *testing.T) {
	env := setupAPI(t)
	env.insertEntries(t, 2)

	w := env.request(t, "POST", "/sync/items/mark", `{"entry_ids":[1,2],"read":true}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d (%s)", w.Code, w.Body.String())
	}

	unread, err := env.entryRepo.UnreadCount(context.Background(), env.userID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if unread != 0 {
		t.Errorf("Expected 0 unread after marking, got: %d", unread)
	}
}

func TestMarkItemsValidation(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "POST", "/sync/items/mark", `{"entry_ids":[],"read":true}`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty batch, got: %d", w.Code)
	}

	w = env.request(t, "POST", "/sync/items/mark", `{"entry_ids":[1,2]}`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 when neither flag is set, got: %d", w.Code)
	}

	w = env.request(t, "POST", "/sync/items/mark", `not json`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed body, got: %d", w.Code)
	}
}

func TestMarkReadBeforeEndpoint(t *testing.T) {
	env := setupAPI(t)
	env.insertEntries(t, 3)

	w := env.request(t, "POST", "/sync/items/mark-read-before", `{"cursor":2}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d (%s)", w.Code, w.Body.String())
	}

	unread, err := env.entryRepo.UnreadCount(context.Background(), env.userID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if unread != 1 {
		t.Errorf("Expected 1 unread after catch-up, got: %d", unread)
	}

	w = env.request(t, "POST", "/sync/items/mark-read-before", `{"cursor":-1}`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a negative cursor, got: %d", w.Code)
	}
}

func TestGetCountsEndpoint(t *testing.T) {
	env := setupAPI(t)
	env.insertEntries(t, 3)

	w := env.request(t, "GET", "/sync/counts", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d", w.Code)
	}

	var counts struct {
		Unread int `json:"unread"`
		Saved  int `json:"saved"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &counts); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if counts.Unread != 3 || counts.Saved != 0 {
		t.Errorf("Expected 3 unread and 0 saved, got: %d/%d", counts.Unread, counts.Saved)
	}
}

func TestListFeedsEndpoint(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "GET", "/sync/feeds", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d", w.Code)
	}

	var response struct {
		Feeds []struct {
			URL      string  `json:"url"`
			GroupIDs []int64 `json:"group_ids"`
			Degraded bool    `json:"degraded"`
		} `json:"feeds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Feeds) != 1 {
		t.Fatalf("Expected 1 feed, got: %d", len(response.Feeds))
	}
	if response.Feeds[0].URL != "https://example.com/feed" {
		t.Errorf("Unexpected feed URL: %s", response.Feeds[0].URL)
	}
	if len(response.Feeds[0].GroupIDs) != 1 {
		t.Errorf("Expected the feed in 1 group, got: %v", response.Feeds[0].GroupIDs)
	}
}

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkoval/feedsink/app/database"
	"github.com/mkoval/feedsink/app/sync"
)

type Handler struct {
	service   *sync.Service
	feedRepo  database.FeedRepository
	entryRepo database.EntryRepository
}

func NewHandler(service *sync.Service, feedRepo database.FeedRepository,
	entryRepo database.EntryRepository) *Handler {
	return &Handler{
		service:   service,
		feedRepo:  feedRepo,
		entryRepo: entryRepo,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(c.Request.Context()); err == nil {
		health["feeds"] = feedCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := map[string]interface{}{}

	if feedCount, err := h.feedRepo.GetFeedCount(ctx); err == nil {
		stats["feeds"] = feedCount
	}
	if entryCount, err := h.entryRepo.GetEntryCount(ctx); err == nil {
		stats["entries"] = entryCount
	}

	if degraded, err := h.feedRepo.GetDegradedFeeds(ctx); err == nil {
		urls := make([]string, 0, len(degraded))
		for _, f := range degraded {
			urls = append(urls, f.URL)
		}
		stats["degraded_feeds"] = urls
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListGroups(c *gin.Context) {
	user := currentUser(c)

	groups, err := h.service.ListGroups(c.Request.Context(), user.ID)
	if err != nil {
		h.renderError(c, "list_groups", err)
		return
	}

	out := make([]groupResponse, 0, len(groups))
	for _, group := range groups {
		out = append(out, groupResponse{ID: group.ID, Title: group.Title})
	}

	c.JSON(http.StatusOK, gin.H{"groups": out})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	user := currentUser(c)

	feeds, err := h.service.ListFeeds(c.Request.Context(), user.ID)
	if err != nil {
		h.renderError(c, "list_feeds", err)
		return
	}

	out := make([]feedResponse, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, feedResponse{
			ID:            f.ID,
			URL:           f.URL,
			Title:         f.Title,
			GroupIDs:      f.GroupIDs,
			Degraded:      f.Degraded,
			LastFetchedAt: f.LastFetchedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"feeds": out})
}

func (h *Handler) ListItems(c *gin.Context) {
	user := currentUser(c)

	filter, err := parseItemFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.service.ListItems(c.Request.Context(), user.ID, *filter)
	if err != nil {
		h.renderError(c, "list_items", err)
		return
	}

	out := itemsResponse{
		Items:      make([]itemResponse, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, item := range page.Items {
		out.Items = append(out.Items, itemResponse{
			ID:          item.ID,
			FeedID:      item.FeedID,
			Title:       item.Title,
			Content:     item.Content,
			Link:        item.Link,
			PublishedAt: item.PublishedAt,
			IsRead:      item.IsRead,
			IsSaved:     item.IsSaved,
			Sequence:    item.Sequence,
		})
	}

	c.JSON(http.StatusOK, out)
}

func (h *Handler) MarkItems(c *gin.Context) {
	user := currentUser(c)

	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.service.Mark(c.Request.Context(), user.ID, sync.MarkRequest{
		EntryIDs: req.EntryIDs,
		Read:     req.Read,
		Saved:    req.Saved,
	})
	if err != nil {
		h.renderError(c, "mark", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": len(req.EntryIDs)})
}

func (h *Handler) MarkReadBefore(c *gin.Context) {
	user := currentUser(c)

	var req markReadBeforeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.service.MarkReadBefore(c.Request.Context(), user.ID, req.Cursor); err != nil {
		h.renderError(c, "mark_read_before", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) GetCounts(c *gin.Context) {
	user := currentUser(c)

	counts, err := h.service.GetCounts(c.Request.Context(), user.ID)
	if err != nil {
		h.renderError(c, "counts", err)
		return
	}

	c.JSON(http.StatusOK, countsResponse{Unread: counts.Unread, Saved: counts.Saved})
}

func (h *Handler) renderError(c *gin.Context, operation string, err error) {
	var protoErr *sync.ProtocolError
	if errors.As(err, &protoErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": protoErr.Msg})
		return
	}

	slog.Error("Sync request failed", "operation", operation, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func parseItemFilter(c *gin.Context) (*sync.ItemFilter, error) {
	var filter sync.ItemFilter

	var err error
	if filter.SinceCursor, err = queryInt(c, "since", 0); err != nil {
		return nil, err
	}

	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return nil, err
	}
	filter.Limit = int(limit)

	if raw := c.Query("feed"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &sync.ProtocolError{Msg: "feed must be an integer"}
		}
		filter.FeedID = &id
	}
	if raw := c.Query("group"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &sync.ProtocolError{Msg: "group must be an integer"}
		}
		filter.GroupID = &id
	}

	filter.UnreadOnly = c.Query("unread") == "true"
	filter.SavedOnly = c.Query("saved") == "true"

	return &filter, nil
}

func queryInt(c *gin.Context, name string, fallback int64) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &sync.ProtocolError{Msg: name + " must be an integer"}
	}
	return value, nil
}

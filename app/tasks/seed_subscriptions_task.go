package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mkoval/feedsink/app/database"
)

// SeedSubscriptionsTask bootstraps groups, feeds and subscriptions for one
// user from a YAML file. Running it again with the same file is a no-op
// apart from moving feeds between groups.
type SeedSubscriptionsTask struct {
	Task
	Path     string
	UserID   int64
	feedRepo database.FeedRepository
	userRepo database.UserRepository
}

type seedFile struct {
	Groups []struct {
		Title string `yaml:"title"`
		Feeds []struct {
			URL   string `yaml:"url"`
			Title string `yaml:"title"`
		} `yaml:"feeds"`
	} `yaml:"groups"`
}

func NewSeedSubscriptionsTask(path string, userID int64,
	feedRepo database.FeedRepository, userRepo database.UserRepository) *SeedSubscriptionsTask {
	return &SeedSubscriptionsTask{
		Task:     NewTask(TaskTypeSeedSubscriptions, ""),
		Path:     path,
		UserID:   userID,
		feedRepo: feedRepo,
		userRepo: userRepo,
	}
}

func (t *SeedSubscriptionsTask) Execute(ctx context.Context) error {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	subscribed := 0
	for _, group := range seed.Groups {
		if group.Title == "" {
			slog.Warn("Skipping seed group without a title", "file", t.Path)
			continue
		}

		groupID, err := t.userRepo.GetOrCreateGroup(ctx, t.UserID, group.Title)
		if err != nil {
			return fmt.Errorf("failed to create group %q: %w", group.Title, err)
		}

		for _, entry := range group.Feeds {
			if entry.URL == "" {
				slog.Warn("Skipping seed feed without a URL", "group", group.Title)
				continue
			}

			feedID, err := t.feedRepo.UpsertFeed(ctx, entry.URL, entry.Title)
			if err != nil {
				return fmt.Errorf("failed to register feed %q: %w", entry.URL, err)
			}

			if err := t.userRepo.Subscribe(ctx, t.UserID, feedID, groupID); err != nil {
				return fmt.Errorf("failed to subscribe to %q: %w", entry.URL, err)
			}
			subscribed++
		}
	}

	slog.Info("Subscriptions seeded", "file", t.Path, "count", subscribed, "duration", t.GetDuration())

	return nil
}

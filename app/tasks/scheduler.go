package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mkoval/feedsink/app/cfg"
	"github.com/mkoval/feedsink/app/database"
	"github.com/mkoval/feedsink/app/feed"
	"github.com/mkoval/feedsink/app/fetch"
)

// Scheduler drives periodic refresh passes over all subscribed feeds with
// a bounded worker pool. One feed's failure never aborts or delays the
// others; each pass yields an aggregate per-feed report.
type Scheduler struct {
	feedRepo    database.FeedRepository
	entryRepo   database.EntryRepository
	userRepo    database.UserRepository
	fetcher     *fetch.Fetcher
	parser      *feed.Parser
	interval    time.Duration
	workerCount int
	seedFile    string
	seedUserID  int64
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewScheduler(feedRepo database.FeedRepository, entryRepo database.EntryRepository,
	userRepo database.UserRepository, fetcher *fetch.Fetcher, parser *feed.Parser,
	seedUserID int64) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Scheduler{
		feedRepo:    feedRepo,
		entryRepo:   entryRepo,
		userRepo:    userRepo,
		fetcher:     fetcher,
		parser:      parser,
		interval:    time.Duration(c.SchedulerInterval) * time.Second,
		workerCount: c.WorkerCount,
		seedFile:    c.SeedFile,
		seedUserID:  seedUserID,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if s.seedFile != "" {
			seedTask := NewSeedSubscriptionsTask(s.seedFile, s.seedUserID, s.feedRepo, s.userRepo)
			seedTask.Start()
			if err := seedTask.Execute(s.ctx); err != nil {
				slog.Error("Seeding subscriptions failed", "file", s.seedFile, "error", err)
			}
		}

		s.runPassLogged()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runPassLogged()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) runPassLogged() {
	report, err := s.RunPass(s.ctx)
	if err != nil {
		slog.Error("Refresh pass failed to start", "error", err)
		return
	}

	slog.Info("Refresh pass completed",
		"feeds", len(report.Outcomes),
		"updated", report.Count(OutcomeUpdated),
		"unchanged", report.Count(OutcomeUnchanged),
		"failed", report.Count(OutcomeFailed),
		"new_entries", report.NewEntries(),
		"duration", report.Duration)
}

// RunPass refreshes every subscribed feed once and returns the aggregate
// report. The context deadline is advisory: workers finish the feed they
// are on, but no new feed is dispatched after cancellation, and per-feed
// transactions already committed stay committed.
func (s *Scheduler) RunPass(ctx context.Context) (*Report, error) {
	startedAt := time.Now()

	feeds, err := s.feedRepo.GetDueFeeds(ctx)
	if err != nil {
		return nil, err
	}

	jobs := make(chan *RefreshFeedTask)
	results := make(chan FeedOutcome, len(feeds))

	var wg sync.WaitGroup
	for i := 0; i < s.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for task := range jobs {
				if ctx.Err() != nil {
					continue
				}
				task.Start()
				if err := task.Execute(ctx); err != nil {
					slog.Warn("Feed refresh failed",
						"worker_id", workerID,
						"id", task.GetID(),
						"feed", task.GetFeedURL(),
						"error", err)
				}
			}
		}(i)
	}

	for i := range feeds {
		jobs <- NewRefreshFeedTask(feeds[i], s.fetcher, s.parser, s.feedRepo, s.entryRepo, results)
	}
	close(jobs)
	wg.Wait()
	close(results)

	report := &Report{StartedAt: startedAt}
	for outcome := range results {
		report.Outcomes = append(report.Outcomes, outcome)
	}
	report.Duration = time.Since(startedAt)

	return report, nil
}

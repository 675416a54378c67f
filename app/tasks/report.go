package tasks

import (
	"time"
)

type OutcomeKind string

const (
	OutcomeUpdated   OutcomeKind = "updated"
	OutcomeUnchanged OutcomeKind = "unchanged"
	OutcomeFailed    OutcomeKind = "failed"
)

// FeedOutcome is the terminal result of refreshing one feed within a pass.
type FeedOutcome struct {
	FeedID     int64
	URL        string
	Kind       OutcomeKind
	NewEntries int    // set for OutcomeUpdated
	Reason     string // set for OutcomeFailed
	Skipped    int    // parser-skipped entries, informational
}

// Report aggregates the per-feed outcomes of one refresh pass. A pass
// always completes and reports every feed it processed; feeds abandoned by
// cancellation are simply absent.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	Outcomes  []FeedOutcome
}

func (r *Report) Count(kind OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Report) NewEntries() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.NewEntries
	}
	return n
}

package model

import "time"

// Status is the terminal state of one source worker
type Status string

const (
	Success        Status = "success"
	PartialFailure Status = "partial_failure"
	Failure        Status = "failure"
)

// SourceRunResult is produced exactly once per source and never modified
type SourceRunResult struct {
	Source   string        `json:"source"`
	Articles []Article     `json:"articles"`
	Status   Status        `json:"status"`
	Err      *SourceError  `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	Skipped  int           `json:"skipped"`  // Malformed entries dropped by the strategy
	Filtered int           `json:"filtered"` // Entries rejected by the source filters
}

// Cancelled reports whether the source stopped because of the run-wide stop signal
func (r SourceRunResult) Cancelled() bool {
	return r.Err != nil && r.Err.Kind == KindCancelled
}

// AggregationRun is one complete aggregation attempt. The coordinator is its
// only writer; once FinishedAt is set the run is frozen.
type AggregationRun struct {
	ID             string                     `json:"id"`
	StartedAt      time.Time                  `json:"started_at"`
	FinishedAt     time.Time                  `json:"finished_at"`
	Mode           Mode                       `json:"mode"`
	LimitPerSource int                        `json:"limit_per_source"`
	Sources        []string                   `json:"sources"` // Descriptor order
	PerSource      map[string]SourceRunResult `json:"per_source"`
	Articles       []Article                  `json:"articles"` // Deduplicated, deterministic order
	DuplicateCount int                        `json:"duplicate_count"`
	Cancelled      bool                       `json:"cancelled"`
}

// Finished reports whether the run has been frozen
func (r *AggregationRun) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// TotalCollected sums the articles of every source before deduplication
func (r *AggregationRun) TotalCollected() int {
	total := 0
	for _, res := range r.PerSource {
		total += len(res.Articles)
	}
	return total
}

// Results returns the per-source results in descriptor order
func (r *AggregationRun) Results() []SourceRunResult {
	out := make([]SourceRunResult, 0, len(r.Sources))
	for _, name := range r.Sources {
		if res, ok := r.PerSource[name]; ok {
			out = append(out, res)
		}
	}
	return out
}

// CountByStatus returns how many sources ended in each status
func (r *AggregationRun) CountByStatus() map[Status]int {
	counts := make(map[Status]int, 3)
	for _, res := range r.PerSource {
		counts[res.Status]++
	}
	return counts
}

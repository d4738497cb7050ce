// Package backup drives the per-run upload pipeline: it walks the local
// root, filters excluded files, uploads the rest and aggregates outcomes.
package backup

import (
	"sync"
	"time"
)

// Outcome is the result category for a single visited file.
type Outcome string

const (
	OutcomeUploaded Outcome = "uploaded"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Result is the outcome for one regular file. Exactly one Result is
// recorded per file visited during traversal.
type Result struct {
	Key     string
	Outcome Outcome
	Err     error
}

// Stats accumulates per-file outcomes for one run. It is safe for
// concurrent writers; the upload worker pool is the only writer set.
type Stats struct {
	mu       sync.Mutex
	uploaded int
	skipped  int
	failed   int
	errors   []string
	started  time.Time
	finished time.Time
}

// NewStats creates a recorder with the run clock started.
func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

// Record adds one file outcome.
func (s *Stats) Record(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch res.Outcome {
	case OutcomeUploaded:
		s.uploaded++
	case OutcomeSkipped:
		s.skipped++
	case OutcomeFailed:
		s.failed++
		detail := res.Key
		if res.Err != nil {
			detail = res.Key + ": " + res.Err.Error()
		}
		s.errors = append(s.errors, detail)
	}
}

// Finish stops the run clock. Call once, after every dispatched upload has
// completed.
func (s *Stats) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = time.Now()
}

// Summary is a read-only snapshot of a completed run.
type Summary struct {
	Uploaded   int
	Skipped    int
	Failed     int
	Errors     []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Snapshot returns the accumulated counts and error list.
func (s *Stats) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make([]string, len(s.errors))
	copy(errs, s.errors)

	return Summary{
		Uploaded:   s.uploaded,
		Skipped:    s.skipped,
		Failed:     s.failed,
		Errors:     errs,
		StartedAt:  s.started,
		FinishedAt: s.finished,
	}
}

// Total returns the number of regular files visited.
func (s Summary) Total() int {
	return s.Uploaded + s.Skipped + s.Failed
}

// Duration returns the elapsed wall-clock time of the run.
func (s Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Clean reports whether every non-excluded file uploaded successfully.
func (s Summary) Clean() bool {
	return s.Failed == 0
}

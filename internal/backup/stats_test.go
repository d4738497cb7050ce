package backup

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestStatsRecord(t *testing.T) {
	s := NewStats()
	s.Record(Result{Key: "a.txt", Outcome: OutcomeUploaded})
	s.Record(Result{Key: "b.tmp", Outcome: OutcomeSkipped})
	s.Record(Result{Key: "c.log", Outcome: OutcomeFailed, Err: errors.New("connection reset")})
	s.Finish()

	sum := s.Snapshot()
	if sum.Uploaded != 1 || sum.Skipped != 1 || sum.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", sum.Uploaded, sum.Skipped, sum.Failed)
	}
	if sum.Total() != 3 {
		t.Errorf("Total() = %d, want 3", sum.Total())
	}
	if len(sum.Errors) != 1 || sum.Errors[0] != "c.log: connection reset" {
		t.Errorf("Errors = %v", sum.Errors)
	}
	if sum.Clean() {
		t.Error("run with a failure should not be clean")
	}
	if sum.Duration() <= 0 {
		t.Errorf("Duration() = %v, want > 0", sum.Duration())
	}
}

func TestStatsConcurrentWriters(t *testing.T) {
	s := NewStats()

	const workers = 16
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("w%d-f%d", w, i)
				switch i % 3 {
				case 0:
					s.Record(Result{Key: key, Outcome: OutcomeUploaded})
				case 1:
					s.Record(Result{Key: key, Outcome: OutcomeSkipped})
				default:
					s.Record(Result{Key: key, Outcome: OutcomeFailed, Err: errors.New("boom")})
				}
			}
		}(w)
	}
	wg.Wait()
	s.Finish()

	sum := s.Snapshot()
	if sum.Total() != workers*perWorker {
		t.Errorf("Total() = %d, want %d", sum.Total(), workers*perWorker)
	}
	if len(sum.Errors) != sum.Failed {
		t.Errorf("error list length %d != failed count %d", len(sum.Errors), sum.Failed)
	}
}

func TestSummaryDurationUnfinished(t *testing.T) {
	s := NewStats()
	if d := s.Snapshot().Duration(); d != 0 {
		t.Errorf("Duration() before Finish = %v, want 0", d)
	}
}

package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tidesafe/tidesafe/internal/excludes"
	"github.com/tidesafe/tidesafe/internal/storage"
)

// ErrRootNotFound indicates the configured backup root does not exist.
// It is a fatal precondition, reported before any traversal starts.
var ErrRootNotFound = errors.New("backup root does not exist")

// defaultWorkers bounds the upload worker pool.
const defaultWorkers = 4

// Orchestrator walks a local root and uploads every non-excluded regular
// file to the object store. Per-file failures are recorded and contained;
// a single bad file never aborts the remaining traversal.
type Orchestrator struct {
	store   storage.ObjectStore
	filter  excludes.Set
	root    string
	workers int
	logger  zerolog.Logger
}

// NewOrchestrator creates an orchestrator for one run.
func NewOrchestrator(store storage.ObjectStore, filter excludes.Set, root string, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		filter:  filter,
		root:    root,
		workers: defaultWorkers,
		logger:  logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Run performs the upload pass and returns the run summary. The summary
// always satisfies uploaded+skipped+failed == regular files visited; an
// empty root yields all-zero counts and no error.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	info, err := os.Stat(o.root)
	if err != nil {
		if os.IsNotExist(err) {
			return Summary{}, fmt.Errorf("%w: %s", ErrRootNotFound, o.root)
		}
		return Summary{}, fmt.Errorf("stat backup root: %w", err)
	}
	if !info.IsDir() {
		return Summary{}, fmt.Errorf("backup root is not a directory: %s", o.root)
	}

	stats := NewStats()

	var group errgroup.Group
	group.SetLimit(o.workers)

	walkErr := filepath.WalkDir(o.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are logged and passed over; the rest of
			// the tree still gets visited.
			o.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(o.root, path)
		if err != nil {
			o.logger.Warn().Err(err).Str("path", path).Msg("cannot derive relative key")
			return nil
		}
		key := filepath.ToSlash(rel)

		if o.filter.Excluded(path) {
			o.logger.Info().Str("key", key).Msg("skipped (excluded)")
			stats.Record(Result{Key: key, Outcome: OutcomeSkipped})
			return nil
		}

		group.Go(func() error {
			o.uploadFile(ctx, path, key, stats)
			return nil
		})
		return nil
	})

	// Finalize only after every dispatched upload has completed.
	_ = group.Wait()
	stats.Finish()

	if walkErr != nil {
		return stats.Snapshot(), fmt.Errorf("walk backup root: %w", walkErr)
	}
	return stats.Snapshot(), nil
}

// uploadFile uploads one file and records its outcome. All failures are
// contained here.
func (o *Orchestrator) uploadFile(ctx context.Context, path, key string, stats *Stats) {
	f, err := os.Open(path)
	if err != nil {
		o.logger.Error().Err(err).Str("key", key).Msg("open failed")
		stats.Record(Result{Key: key, Outcome: OutcomeFailed, Err: err})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		o.logger.Error().Err(err).Str("key", key).Msg("stat failed")
		stats.Record(Result{Key: key, Outcome: OutcomeFailed, Err: err})
		return
	}

	o.logger.Info().Str("key", key).Msg("uploading")

	if err := o.store.Put(ctx, key, f, info.Size()); err != nil {
		o.logger.Error().Err(err).Str("key", key).Msg("upload failed")
		stats.Record(Result{Key: key, Outcome: OutcomeFailed, Err: err})
		return
	}

	stats.Record(Result{Key: key, Outcome: OutcomeUploaded})
}

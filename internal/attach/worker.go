package attach

import (
	"context"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/starford/algiz/internal/models"
)

// RunWorkers drives the extraction handoff pool until ctx is cancelled.
// Each worker takes a queued attachment, marks it processing, and copies the
// binary into the spool directory where the external extraction pipeline
// picks it up. A failed handoff is recorded as a failed extraction; the note
// itself is never affected. Workers hold no note-level locks.
func (r *Registry) RunWorkers(ctx context.Context, workers int, spoolDir string) error {
	if workers <= 0 {
		workers = 2
	}

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gCtx.Done():
					return nil
				case id := <-r.queue:
					r.dispatch(gCtx, id, spoolDir)
				}
			}
		})
	}
	return g.Wait()
}

func (r *Registry) dispatch(ctx context.Context, id, spoolDir string) {
	a, err := r.MarkExtraction(ctx, id, models.ExtractionProcessing, "")
	if err != nil {
		// Already dispatched, completed elsewhere, or deleted meanwhile.
		r.logger.Debug("attach: skip dispatch",
			slog.String("attachment_id", id),
			slog.String("reason", err.Error()))
		return
	}

	dst := filepath.Join(spoolDir, a.ID)
	if err := r.blobs.CopyTo(a.ID, dst); err != nil {
		r.logger.Warn("attach: spool handoff failed",
			slog.String("attachment_id", a.ID),
			slog.String("error", err.Error()))
		if _, markErr := r.MarkExtraction(ctx, a.ID, models.ExtractionFailed, err.Error()); markErr != nil {
			r.logger.Warn("attach: record handoff failure",
				slog.String("attachment_id", a.ID),
				slog.String("error", markErr.Error()))
		}
		return
	}

	r.logger.Debug("attach: spooled for extraction",
		slog.String("attachment_id", a.ID),
		slog.String("filename", a.Filename))
}

package attach

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/algiz/internal/models"
)

// extractionResult is the file format the external extraction pipeline drops
// into the results directory, named <attachment_id>.json.
type extractionResult struct {
	Status string `json:"status"` // "completed" or "failed"
	Error  string `json:"error,omitempty"`
}

// WatchResults starts an fsnotify watcher on the extraction results
// directory and applies result files until ctx is cancelled. A consumed
// result file is removed. Files already present at startup are applied first
// so results dropped while the service was down are not lost.
func (r *Registry) WatchResults(ctx context.Context, resultsDir string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(resultsDir); err != nil {
		return err
	}

	logger.Info("attach: results watcher started", slog.String("dir", resultsDir))

	r.sweepResults(ctx, resultsDir, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("attach: results watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			r.applyResultFile(ctx, ev.Name, logger)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("attach: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// sweepResults applies any result files already on disk.
func (r *Registry) sweepResults(ctx context.Context, resultsDir string, logger *slog.Logger) {
	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		logger.Warn("attach: sweep failed", slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		r.applyResultFile(ctx, filepath.Join(resultsDir, e.Name()), logger)
	}
}

func (r *Registry) applyResultFile(ctx context.Context, path string, logger *slog.Logger) {
	id := strings.TrimSuffix(filepath.Base(path), ".json")

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("attach: read result failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	var res extractionResult
	if err := json.Unmarshal(data, &res); err != nil {
		logger.Warn("attach: malformed result", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	status := models.ExtractionStatus(res.Status)
	if status != models.ExtractionCompleted && status != models.ExtractionFailed {
		logger.Warn("attach: unusable result status",
			slog.String("path", path),
			slog.String("status", res.Status))
		return
	}

	if _, err := r.MarkExtraction(ctx, id, status, res.Error); err != nil {
		logger.Warn("attach: apply result failed",
			slog.String("attachment_id", id),
			slog.String("error", err.Error()))
		return
	}

	_ = os.Remove(path)
	logger.Debug("attach: extraction result applied",
		slog.String("attachment_id", id),
		slog.String("status", string(status)))
}

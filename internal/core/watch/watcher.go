package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/batch"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/export"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
)

// Watcher batches new supported files that appear in a directory
type Watcher struct {
	dir     string
	runner  *batch.Runner
	options batch.Options
	seen    *batch.Selection

	// SettleTime skips files modified more recently than this, so partial copies are picked up next tick
	SettleTime time.Duration
	now        func() time.Time
}

// NewWatcher creates a watcher for dir that submits batches through runner
func NewWatcher(dir string, runner *batch.Runner, options batch.Options) *Watcher {
	return &Watcher{
		dir:        dir,
		runner:     runner,
		options:    options,
		seen:       batch.NewSelection(),
		SettleTime: 2 * time.Second,
		now:        time.Now,
	}
}

// Scan lists supported files in the directory that have not been submitted yet, sorted by name
func (w *Watcher) Scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if export.IsOutputName(name) {
			log.Debug().Str("file", name).Msg("Skipping OCR output")
			continue
		}
		if !ocr.IsSupported(name) {
			continue
		}

		path := filepath.Join(w.dir, name)
		if w.seen.Contains(path) {
			continue
		}
		if w.SettleTime > 0 {
			info, err := entry.Info()
			if err != nil || w.now().Sub(info.ModTime()) < w.SettleTime {
				continue
			}
		}
		files = append(files, path)
	}

	sort.Strings(files)
	return files, nil
}

// Tick scans once and starts a batch for new files. Files are only marked
// as seen when the batch was accepted, so a busy runner retries them next tick.
func (w *Watcher) Tick(ctx context.Context) (int, error) {
	files, err := w.Scan()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}

	runID, err := w.runner.Start(ctx, files, w.options)
	if errors.Is(err, batch.ErrBatchRunning) {
		log.Debug().Int("pending", len(files)).Msg("⏳ Batch still running, deferring new files")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	w.seen.Add(files...)
	log.Info().Str("run_id", runID.String()).Int("files", len(files)).Str("dir", w.dir).Msg("📥 New files picked up")
	return len(files), nil
}

// JobName is the scheduler job name used for this watcher
func (w *Watcher) JobName() string {
	return "watch:" + w.dir
}

// Schedule registers Tick on the scheduler
func (w *Watcher) Schedule(ctx context.Context, s *Scheduler, schedule string) error {
	return s.AddJob(w.JobName(), schedule, func() {
		if _, err := w.Tick(ctx); err != nil {
			log.Error().Err(err).Str("dir", w.dir).Msg("❌ Watch tick failed")
		}
	})
}

// Unschedule removes the watcher's job so no new tick starts
func (w *Watcher) Unschedule(s *Scheduler) {
	s.RemoveJob(w.JobName())
}

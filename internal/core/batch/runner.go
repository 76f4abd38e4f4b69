package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrBatchRunning is returned by Start while another batch is in flight
var ErrBatchRunning = errors.New("a batch is already running")

// Runner runs at most one batch at a time on a background goroutine
type Runner struct {
	driver    *Driver
	idleDelay time.Duration

	mu      sync.Mutex
	running bool
	gen     uint64
	done    chan struct{}
	last    *Summary
}

// NewRunner creates a runner. After each run the status is reset to idle
// once idleDelay has passed; a zero delay leaves the final status in place.
func NewRunner(driver *Driver, idleDelay time.Duration) *Runner {
	return &Runner{
		driver:    driver,
		idleDelay: idleDelay,
	}
}

// Start launches a batch over files and returns its run ID
func (r *Runner) Start(ctx context.Context, files []string, opts Options) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return uuid.Nil, ErrBatchRunning
	}

	runID := uuid.New()
	files = append([]string(nil), files...)
	done := make(chan struct{})

	r.running = true
	r.gen++
	r.done = done
	gen := r.gen

	go func() {
		defer close(done)

		summary := r.driver.run(ctx, runID, files, opts)

		r.mu.Lock()
		r.running = false
		r.last = &summary
		r.mu.Unlock()

		if r.idleDelay > 0 {
			time.AfterFunc(r.idleDelay, func() { r.resetIdle(gen) })
		}
	}()

	log.Debug().Str("run_id", runID.String()).Int("files", len(files)).Msg("🔨 Batch queued")
	return runID, nil
}

// resetIdle emits StatusIdle unless a newer run has started since gen
func (r *Runner) resetIdle(gen uint64) {
	r.mu.Lock()
	stale := r.running || r.gen != gen
	r.mu.Unlock()
	if !stale {
		r.driver.sink.Emit(StatusChanged{Status: StatusIdle})
	}
}

// Running reports whether a batch is in flight
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Wait blocks until the current batch finishes and returns the latest summary.
// It returns false when no batch has ever been started.
func (r *Runner) Wait() (Summary, bool) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return Summary{}, false
	}
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Summary{}, false
	}
	return *r.last, true
}

package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/batch"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/export"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/history"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
)

// StatusResetDelay is how long a final status stays visible before returning to idle
const StatusResetDelay = 2 * time.Second

// MaxImageLimit caps the per-document image limit option
const MaxImageLimit = 50

var (
	ErrNoAPIKey = errors.New("Please enter API key")
	ErrNoFiles  = errors.New("Please select files")

	ErrOutputNotFound = errors.New("output not found")
)

// App is the application state behind a front-end. Every read and write of
// its state runs on the dispatcher goroutine started by Run; the batch driver
// reaches it only through emitted events.
type App struct {
	selection *batch.Selection
	runner    *batch.Runner
	exports   *export.Service
	history   *history.Service

	events  chan batch.Event
	actions chan func(*state)
	done    chan struct{}
	st      state
}

// New wires a driver and runner that report back into the returned App
func New(ocrService *ocr.Service, exportService *export.Service, historyService *history.Service, apiKey string, opts Options) *App {
	if historyService == nil {
		historyService = history.NewService(nil)
	}
	a := &App{
		selection: batch.NewSelection(),
		exports:   exportService,
		history:   historyService,
		events:    make(chan batch.Event, 256),
		actions:   make(chan func(*state)),
		done:      make(chan struct{}),
		st: state{
			apiKey:  strings.TrimSpace(apiKey),
			options: opts,
			status:  batch.StatusIdle,
			outputs: historyService.Recent(),
		},
	}
	driver := batch.NewDriver(ocrService, exportService, historyService, a)
	a.runner = batch.NewRunner(driver, StatusResetDelay)

	a.st.appendLog(batch.NewLogEntry(batch.LevelInfo, "Ready to process documents"))
	return a
}

// Emit queues an event for the dispatcher. Once the dispatcher has stopped
// the event is dropped.
func (a *App) Emit(e batch.Event) {
	select {
	case a.events <- e:
	case <-a.done:
	}
}

// Run applies events and actions until ctx is done. Pending events are
// applied before each action so callers see the state the driver reported.
func (a *App) Run(ctx context.Context) {
	log.Debug().Msg("🔄 App dispatcher started")
	defer close(a.done)
	for {
		select {
		case e := <-a.events:
			a.st.apply(e)
		case fn := <-a.actions:
			a.drainEvents()
			fn(&a.st)
		case <-ctx.Done():
			log.Debug().Msg("🛑 App dispatcher stopped")
			return
		}
	}
}

func (a *App) drainEvents() {
	for {
		select {
		case e := <-a.events:
			a.st.apply(e)
		default:
			return
		}
	}
}

// do runs fn on the dispatcher and waits for it. fn is skipped when the
// dispatcher has stopped.
func (a *App) do(fn func(*state)) {
	finished := make(chan struct{})
	select {
	case a.actions <- func(st *state) {
		fn(st)
		close(finished)
	}:
	case <-a.done:
		return
	}
	<-finished
}

// Runner exposes the batch runner, e.g. for waiting on shutdown
func (a *App) Runner() *batch.Runner {
	return a.runner
}

// AddFiles admits paths into the selection and returns how many were new
func (a *App) AddFiles(paths []string) int {
	return a.selection.Admit(paths, a)
}

// ClearFiles empties the selection
func (a *App) ClearFiles() {
	a.selection.Clear()
	a.do(func(st *state) {
		st.appendLog(batch.NewLogEntry(batch.LevelInfo, "Cleared all files"))
	})
}

// RemoveFile drops path from the selection and reports whether it was selected
func (a *App) RemoveFile(path string) bool {
	if !a.selection.Remove(path) {
		return false
	}
	a.do(func(st *state) {
		st.appendLog(batch.NewLogEntry(batch.LevelInfo, "Removed "+filepath.Base(path)))
	})
	return true
}

// Files returns the current selection
func (a *App) Files() []string {
	return a.selection.Files()
}

// Options returns the current processing options
func (a *App) Options() Options {
	var opts Options
	a.do(func(st *state) { opts = st.options })
	return opts
}

// HasAPIKey reports whether an API key is configured
func (a *App) HasAPIKey() bool {
	var ok bool
	a.do(func(st *state) { ok = st.apiKey != "" })
	return ok
}

// SetOptions validates and stores opts
func (a *App) SetOptions(opts Options) error {
	format, err := export.ParseFormat(string(opts.Format))
	if err != nil {
		return err
	}
	if opts.ImageLimit < 0 || opts.ImageLimit > MaxImageLimit {
		return fmt.Errorf("image_limit must be between 0 and %d", MaxImageLimit)
	}
	opts.Format = format
	a.do(func(st *state) { st.options = opts })
	return nil
}

// SetAPIKey replaces the API key used for new runs
func (a *App) SetAPIKey(key string) {
	key = strings.TrimSpace(key)
	a.do(func(st *state) { st.apiKey = key })
}

// Process starts a batch over the current selection
func (a *App) Process(ctx context.Context) (uuid.UUID, error) {
	var runOpts batch.Options
	a.do(func(st *state) {
		runOpts = batch.Options{
			APIKey:        st.apiKey,
			Format:        st.options.Format,
			IncludeImages: st.options.IncludeImages,
			ImageLimit:    st.options.ImageLimit,
		}
	})

	if runOpts.APIKey == "" {
		return uuid.Nil, ErrNoAPIKey
	}
	files := a.selection.Files()
	if len(files) == 0 {
		return uuid.Nil, ErrNoFiles
	}

	return a.runner.Start(ctx, files, runOpts)
}

// Status returns a status snapshot
func (a *App) Status() StatusView {
	view := StatusView{
		Running: a.runner.Running(),
		Files:   a.selection.Len(),
	}
	a.do(func(st *state) {
		view.Status = st.status
		view.OutputFolder = st.outputFolder
		if st.lastRun != nil {
			stats := *st.lastRun
			view.LastRun = &stats
		}
	})
	return view
}

// Log returns a copy of the activity log
func (a *App) Log() []batch.LogEntry {
	var entries []batch.LogEntry
	a.do(func(st *state) { entries = append([]batch.LogEntry(nil), st.log...) })
	return entries
}

// ClearLog empties the activity log, leaving a single "Log cleared" line
func (a *App) ClearLog() {
	a.do(func(st *state) {
		st.log = []batch.LogEntry{batch.NewLogEntry(batch.LevelInfo, "Log cleared")}
	})
}

// Outputs returns the recent outputs, newest last
func (a *App) Outputs() []string {
	var outputs []string
	a.do(func(st *state) { outputs = append([]string(nil), st.outputs...) })
	return outputs
}

// OutputFile resolves ref to an output path and its content type. ref is an
// index into Outputs or "last" for the most recent output in history.
func (a *App) OutputFile(ref string) (string, string, error) {
	var path string
	if ref == "last" {
		last, ok := a.history.Last()
		if !ok {
			return "", "", ErrOutputNotFound
		}
		path = last
	} else {
		i, err := strconv.Atoi(ref)
		outputs := a.Outputs()
		if err != nil || i < 0 || i >= len(outputs) {
			return "", "", ErrOutputNotFound
		}
		path = outputs[i]
	}
	return path, a.exports.ContentType(path), nil
}

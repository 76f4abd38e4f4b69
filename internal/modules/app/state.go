package app

import (
	"path/filepath"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/batch"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/export"
)

// maxLogEntries bounds the in-memory activity log
const maxLogEntries = 1000

// Options are the user-adjustable processing settings
type Options struct {
	Format        export.Format `json:"format"`
	IncludeImages bool          `json:"include_images"`
	ImageLimit    int           `json:"image_limit"`
}

// RunStats summarizes the most recent finished run
type RunStats struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Status    string `json:"status"`
}

// StatusView is a snapshot for the status endpoint
type StatusView struct {
	Status       batch.Status `json:"status"`
	Running      bool         `json:"running"`
	OutputFolder string       `json:"output_folder,omitempty"`
	Files        int          `json:"files"`
	LastRun      *RunStats    `json:"last_run,omitempty"`
}

// state is only touched by the dispatcher goroutine
type state struct {
	apiKey       string
	options      Options
	status       batch.Status
	log          []batch.LogEntry
	outputs      []string
	outputFolder string
	lastRun      *RunStats
}

func (st *state) apply(e batch.Event) {
	switch ev := e.(type) {
	case batch.LogEntry:
		st.appendLog(ev)
	case batch.StatusChanged:
		st.status = ev.Status
	case batch.FileProcessed:
		if ev.Result.OK() {
			st.outputFolder = filepath.Dir(ev.Result.Output)
		}
	case batch.RunFinished:
		st.outputs = ev.Outputs
		st.lastRun = &RunStats{
			RunID:     ev.Summary.RunID.String(),
			Total:     ev.Summary.Total,
			Succeeded: ev.Summary.Succeeded,
			Failed:    ev.Summary.Failed,
			Status:    string(ev.Summary.Status()),
		}
	}
}

func (st *state) appendLog(entry batch.LogEntry) {
	st.log = append(st.log, entry)
	if over := len(st.log) - maxLogEntries; over > 0 {
		st.log = append([]batch.LogEntry(nil), st.log[over:]...)
	}
}

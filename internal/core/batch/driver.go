package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/export"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/history"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
)

// Options are the settings shared by every file in a run
type Options struct {
	APIKey        string
	Format        export.Format
	IncludeImages bool
	ImageLimit    int
}

// FileResult is the outcome of one file
type FileResult struct {
	Path     string
	Output   string
	Pages    int
	Size     int64
	Err      error
	Duration time.Duration
}

// OK reports whether the file produced an output
func (r FileResult) OK() bool {
	return r.Err == nil && r.Output != ""
}

// Summary tallies a finished run
type Summary struct {
	RunID      uuid.UUID
	Total      int
	Succeeded  int
	Failed     int
	Results    []FileResult
	Aborted    error // set when the loop itself panicked
	StartedAt  time.Time
	FinishedAt time.Time
}

// OK reports whether at least one file succeeded and the loop ran to completion
func (s Summary) OK() bool {
	return s.Aborted == nil && s.Succeeded > 0
}

// Status is the final run status
func (s Summary) Status() Status {
	if s.OK() {
		return StatusSuccess
	}
	return StatusFailed
}

// ReportRows converts the results for the xlsx batch report
func (s Summary) ReportRows() []export.ReportRow {
	rows := make([]export.ReportRow, 0, len(s.Results))
	for _, r := range s.Results {
		row := export.ReportRow{
			File:     r.Path,
			Status:   "success",
			Output:   r.Output,
			Pages:    r.Pages,
			Duration: r.Duration,
		}
		if r.Err != nil {
			row.Status = "failed"
			row.Kind = string(ocr.KindOf(r.Err))
			row.Message = r.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

// Driver runs the validate, encode, call, save pipeline over a file list, one file at a time
type Driver struct {
	ocr     *ocr.Service
	export  *export.Service
	history *history.Service
	sink    Sink
}

// NewDriver creates a batch driver. A nil sink discards events.
func NewDriver(ocrService *ocr.Service, exportService *export.Service, historyService *history.Service, sink Sink) *Driver {
	if sink == nil {
		sink = Discard
	}
	if historyService == nil {
		historyService = history.NewService(nil)
	}
	return &Driver{
		ocr:     ocrService,
		export:  exportService,
		history: historyService,
		sink:    sink,
	}
}

// Run processes files in order. A failing file never stops the run.
func (d *Driver) Run(ctx context.Context, files []string, opts Options) Summary {
	return d.run(ctx, uuid.New(), files, opts)
}

func (d *Driver) run(ctx context.Context, runID uuid.UUID, files []string, opts Options) (summary Summary) {
	summary = Summary{
		RunID:     runID,
		Total:     len(files),
		StartedAt: time.Now(),
	}

	logger := log.With().Str("run_id", runID.String()).Logger()
	logger.Info().Int("files", len(files)).Str("format", string(opts.Format)).Msg("🚀 Batch started")

	d.sink.Emit(StatusChanged{Status: StatusProcessing})

	defer func() {
		if r := recover(); r != nil {
			summary.Aborted = fmt.Errorf("%v", r)
			logger.Error().Interface("panic", r).Msg("❌ Batch aborted")
			d.logLine(LevelError, fmt.Sprintf("❌ Error: %v", r), "")
		}
		summary.FinishedAt = time.Now()
		summary.Failed = summary.Total - summary.Succeeded

		d.sink.Emit(StatusChanged{Status: summary.Status()})
		d.sink.Emit(RunFinished{Summary: summary, Outputs: d.history.Recent()})

		logger.Info().
			Int("succeeded", summary.Succeeded).
			Int("total", summary.Total).
			Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
			Msg("🏁 Batch finished")
	}()

	for i, path := range files {
		d.logLine(LevelInfo, fmt.Sprintf("Processing %d/%d: %s", i+1, len(files), filepath.Base(path)), "")

		result := d.processFile(ctx, runID, path, opts)
		summary.Results = append(summary.Results, result)
		if result.OK() {
			summary.Succeeded++
		}

		d.sink.Emit(FileProcessed{Index: i + 1, Total: len(files), Result: result})
	}

	if summary.Succeeded > 0 {
		d.logLine(LevelSuccess, fmt.Sprintf("✅ Processing complete! (%d/%d successful)", summary.Succeeded, summary.Total), "")
	} else {
		d.logLine(LevelError, "❌ No files were processed successfully", "")
	}
	return summary
}

func (d *Driver) processFile(ctx context.Context, runID uuid.UUID, path string, opts Options) FileResult {
	start := time.Now()
	res := FileResult{Path: path}

	if info, err := os.Stat(path); err == nil {
		res.Size = info.Size()
		log.Debug().Str("file", path).Str("size", humanize.IBytes(uint64(info.Size()))).Msg("📄 Submitting file")
	}

	result, err := d.ocr.ProcessFile(ctx, path, opts.APIKey, opts.IncludeImages, opts.ImageLimit)
	if err != nil {
		d.fail(&res, err)
		return finish(res, start)
	}

	output, err := d.export.Save(result, path, opts.Format)
	if err != nil {
		d.fail(&res, err)
		return finish(res, start)
	}

	res.Output = output
	res.Pages = len(result.Pages)

	// the output already exists on disk, so its history row is written even
	// when the batch is being cancelled
	d.history.Record(context.WithoutCancel(ctx), history.Record{
		RunID:      runID,
		SourcePath: path,
		OutputPath: output,
		Format:     string(opts.Format),
		Pages:      res.Pages,
	})

	d.logLine(LevelSuccess, fmt.Sprintf("✓ Saved: %s", filepath.Base(output)), output)
	return finish(res, start)
}

func finish(res FileResult, start time.Time) FileResult {
	res.Duration = time.Since(start)
	return res
}

// fail records err on res and logs it with a prefix matching its kind
func (d *Driver) fail(res *FileResult, err error) {
	kind := ocr.KindOf(err)
	if kind == "" {
		err = &ocr.Error{Kind: ocr.KindInternal, Message: fmt.Sprintf("Failed to process %s: %v", filepath.Base(res.Path), err), Err: err}
		kind = ocr.KindInternal
	}
	res.Err = err

	log.Warn().Err(err).Str("file", res.Path).Str("kind", string(kind)).Msg("⚠️ File failed")

	switch kind {
	case ocr.KindValidation:
		d.logLine(LevelWarn, "⚠️ "+err.Error(), "")
	case ocr.KindPermission, ocr.KindSave:
		d.logLine(LevelError, "❌ "+err.Error(), "")
	default:
		d.logLine(LevelError, err.Error(), "")
	}
}

func (d *Driver) logLine(level Level, message, path string) {
	entry := NewLogEntry(level, message)
	entry.Path = path
	d.sink.Emit(entry)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/batch"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/export"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/history"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/modules/app"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/shared/config"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/shared/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.LoadConfig()

	format := flag.String("format", cfg.OutputFormat, "output format: txt, docx, pdf or html")
	includeImages := flag.Bool("images", cfg.IncludeImages, "ask the service to return extracted images")
	imageLimit := flag.Int("image-limit", cfg.ImageLimit, "maximum images per document (0-50)")
	reportPath := flag.String("report", "", "write an xlsx batch report to this path")
	apiKey := flag.String("api-key", cfg.APIKey(), "OCR API key (defaults to MISTRAL_API_KEY, or OCRSPACE_API_KEY with OCR_PROVIDER=ocrspace)")
	jsonEvents := flag.Bool("json", false, "print events as JSON lines instead of text")
	logLevel := flag.String("log-level", cfg.LogLevel, "diagnostic log level")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: mistral-ocr [flags] files...\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	utils.InitLogger(*logLevel)

	outputFormat, err := export.ParseFormat(*format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *imageLimit < 0 || *imageLimit > 50 {
		fmt.Fprintln(os.Stderr, "image-limit must be between 0 and 50")
		return 2
	}
	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Please enter API key (set MISTRAL_API_KEY or pass -api-key)")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	historyService, closeHistory, err := history.Open(ctx, cfg.HistoryDBPath)
	if err != nil {
		utils.LogWarn("⚠️ Output history unavailable, continuing without persistence", map[string]interface{}{"error": err.Error()})
		historyService, closeHistory = history.NewService(nil), func() error { return nil }
	}
	defer closeHistory()

	events := make(chan batch.Event, 64)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printEvents(os.Stdout, events, *jsonEvents)
	}()

	sink := batch.ChanSink(events)
	selection := batch.NewSelection()
	if selection.Admit(flag.Args(), sink) == 0 {
		close(events)
		<-printed
		fmt.Fprintln(os.Stderr, "Please select files")
		return 2
	}

	ocrService, err := app.NewOCRService(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	log.Debug().Str("provider", ocrService.GetProviderName()).Msg("🔍 Using OCR provider")

	driver := batch.NewDriver(ocrService, export.NewService(), historyService, sink)
	runner := batch.NewRunner(driver, 0)

	if _, err := runner.Start(ctx, selection.Files(), batch.Options{
		APIKey:        *apiKey,
		Format:        outputFormat,
		IncludeImages: *includeImages,
		ImageLimit:    *imageLimit,
	}); err != nil {
		close(events)
		<-printed
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	summary, _ := runner.Wait()
	close(events)
	<-printed

	if *reportPath != "" {
		if err := writeReport(*reportPath, summary); err != nil {
			utils.LogError("❌ Failed to write batch report", err, map[string]interface{}{"path": *reportPath})
		} else {
			utils.LogInfo("📊 Batch report written", map[string]interface{}{"path": *reportPath})
		}
	}

	if !summary.OK() {
		return 1
	}
	return 0
}

// printEvents renders events until the channel is closed
func printEvents(w io.Writer, events <-chan batch.Event, asJSON bool) {
	enc := json.NewEncoder(w)
	for e := range events {
		if asJSON {
			enc.Encode(jsonEvent(e))
			continue
		}
		switch ev := e.(type) {
		case batch.LogEntry:
			fmt.Fprintf(w, "[%s] %s\n", ev.Time.Format("15:04:05"), ev.Message)
		case batch.FileProcessed:
			if ev.Result.OK() {
				fmt.Fprintf(w, "           %s, %d page(s), %s in %s\n",
					ev.Result.Output, ev.Result.Pages, humanize.IBytes(uint64(ev.Result.Size)), ev.Result.Duration.Round(time.Millisecond))
			}
		case batch.RunFinished:
			if len(ev.Outputs) > 0 {
				fmt.Fprintln(w, "Recent outputs:")
				for _, out := range ev.Outputs {
					fmt.Fprintf(w, "  %s\n", out)
				}
			}
		}
	}
}

func jsonEvent(e batch.Event) map[string]interface{} {
	switch ev := e.(type) {
	case batch.LogEntry:
		return map[string]interface{}{"type": "log", "log": ev}
	case batch.StatusChanged:
		return map[string]interface{}{"type": "status", "status": ev.Status}
	case batch.FileProcessed:
		out := map[string]interface{}{
			"type": "file", "index": ev.Index, "total": ev.Total,
			"path": ev.Result.Path, "output": ev.Result.Output, "pages": ev.Result.Pages,
		}
		if ev.Result.Err != nil {
			out["error"] = ev.Result.Err.Error()
			out["kind"] = ocr.KindOf(ev.Result.Err)
		}
		return out
	case batch.RunFinished:
		return map[string]interface{}{
			"type": "done", "run_id": ev.Summary.RunID, "succeeded": ev.Summary.Succeeded,
			"total": ev.Summary.Total, "outputs": ev.Outputs,
		}
	}
	return map[string]interface{}{"type": "unknown"}
}

func writeReport(path string, summary batch.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	title := fmt.Sprintf("OCR batch %s (%d/%d successful)", summary.RunID, summary.Succeeded, summary.Total)
	if err := export.NewReportExporter().Export(title, summary.ReportRows(), f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

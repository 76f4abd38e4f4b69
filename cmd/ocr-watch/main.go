package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/batch"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/export"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/history"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/watch"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/modules/app"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/shared/config"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/shared/utils"
)

func main() {
	cfg := config.LoadConfig()

	dir := flag.String("dir", cfg.WatchDir, "directory to watch (defaults to WATCH_DIR)")
	schedule := flag.String("schedule", cfg.WatchSchedule, "cron expression or descriptor, e.g. \"@every 1m\"")
	format := flag.String("format", cfg.OutputFormat, "output format: txt, docx, pdf or html")
	flag.Parse()

	utils.InitLogger(cfg.LogLevel)

	if *dir == "" {
		log.Fatal().Msg("No watch directory, set WATCH_DIR or pass -dir")
	}
	if cfg.APIKey() == "" {
		log.Fatal().Str("provider", cfg.OCRProvider).Msg("An API key is required (MISTRAL_API_KEY or OCRSPACE_API_KEY)")
	}
	outputFormat, err := export.ParseFormat(*format)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid output format")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	historyService, closeHistory, err := history.Open(ctx, cfg.HistoryDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open output history")
	}
	defer closeHistory()

	ocrService, err := app.NewOCRService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize OCR provider")
	}
	driver := batch.NewDriver(ocrService, export.NewService(), historyService, batch.SinkFunc(logEvent))
	runner := batch.NewRunner(driver, 0)

	watcher := watch.NewWatcher(*dir, runner, batch.Options{
		APIKey:        cfg.APIKey(),
		Format:        outputFormat,
		IncludeImages: cfg.IncludeImages,
		ImageLimit:    cfg.ImageLimit,
	})

	scheduler := watch.NewScheduler()
	if err := watcher.Schedule(ctx, scheduler, *schedule); err != nil {
		log.Fatal().Err(err).Str("schedule", *schedule).Msg("Invalid schedule")
	}

	// pick up whatever is already there without waiting for the first tick
	if _, err := watcher.Tick(ctx); err != nil {
		log.Error().Err(err).Msg("❌ Initial scan failed")
	}

	scheduler.Start()
	log.Info().
		Str("dir", *dir).
		Str("schedule", *schedule).
		Str("format", string(outputFormat)).
		Strs("jobs", scheduler.Jobs()).
		Msg("👀 Watching for documents")

	<-ctx.Done()
	watcher.Unschedule(scheduler)
	<-scheduler.Stop().Done()
	runner.Wait()
	log.Info().Msg("✅ ocr-watch stopped")
}

// logEvent writes batch events to the diagnostic log
func logEvent(e batch.Event) {
	switch ev := e.(type) {
	case batch.LogEntry:
		event := log.Info()
		switch ev.Level {
		case batch.LevelWarn:
			event = log.Warn()
		case batch.LevelError:
			event = log.Error()
		}
		if ev.Path != "" {
			event = event.Str("path", ev.Path)
		}
		event.Msg(ev.Message)
	case batch.RunFinished:
		log.Info().
			Str("run_id", ev.Summary.RunID.String()).
			Int("succeeded", ev.Summary.Succeeded).
			Int("total", ev.Summary.Total).
			Msg("📦 Batch done")
	}
}

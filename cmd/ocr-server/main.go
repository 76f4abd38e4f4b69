package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/export"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/history"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/upload"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/modules/app"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/modules/app/handlers"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/shared/config"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/shared/utils"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.LogLevel)
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("🚀 Starting ocr-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init output history (sqlite)
	historyService, closeHistory, err := history.Open(ctx, cfg.HistoryDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open output history")
	}
	defer closeHistory()

	// Init OCR service (multi-provider support)
	ocrService, err := app.NewOCRService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize OCR provider")
	}
	log.Info().Str("provider", ocrService.GetProviderName()).Dur("timeout", cfg.RequestTimeout).Msg("🔍 Using OCR provider")

	format, err := export.ParseFormat(cfg.OutputFormat)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Falling back to txt output")
		format = export.FormatText
	}

	// Init application state
	state := app.New(ocrService, export.NewService(), historyService, cfg.APIKey(), app.Options{
		Format:        format,
		IncludeImages: cfg.IncludeImages,
		ImageLimit:    cfg.ImageLimit,
	})
	// the dispatcher outlives the signal context so a cancelled batch can
	// still report its final events before shutdown completes
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	go state.Run(dispatchCtx)

	if cfg.APIKey() == "" {
		log.Warn().Str("provider", cfg.OCRProvider).Msg("⚠️ API key not set, use PUT /options to provide one")
	}

	// Init Fiber app
	server := fiber.New(fiber.Config{
		AppName:               "Mistral OCR Batch",
		DisableStartupMessage: cfg.Env == "production",
		BodyLimit:             int(ocr.MaxFileSize) + 1<<20, // one document plus form overhead
	})

	// Middleware
	server.Use(recover.New())
	server.Use(cors.New())

	// Init upload inbox
	var inbox *upload.Inbox
	if cfg.UploadDir != "" {
		inbox, err = upload.NewInbox(cfg.UploadDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize upload inbox")
		}
		log.Info().Str("dir", inbox.Dir()).Msg("📥 Upload inbox enabled")
	}

	handlers.NewOCRHandler(ctx, state, inbox).Register(server)

	go func() {
		<-ctx.Done()
		log.Info().Msg("🛑 Shutting down ocr-server...")
		if err := server.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Failed to shut down server")
		}
	}()

	log.Info().Msgf("✅ ocr-server running at :%s", cfg.Port)
	if err := server.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("Server stopped")
	}

	// an in-flight batch sees ctx cancelled and fails its remaining files fast
	state.Runner().Wait()
	stopDispatch()
}

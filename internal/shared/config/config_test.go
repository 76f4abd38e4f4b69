package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"OCR_PROVIDER", "MISTRAL_API_KEY", "MISTRAL_API_URL", "MISTRAL_OCR_MODEL", "OCR_TIMEOUT_SECONDS",
		"OCR_OUTPUT_FORMAT", "OCR_INCLUDE_IMAGES", "OCR_IMAGE_LIMIT", "PORT", "ENV", "LOG_LEVEL", "WATCH_DIR", "WATCH_SCHEDULE"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	if cfg.MistralAPIURL != "https://api.mistral.ai" || cfg.MistralModel != "mistral-ocr-latest" {
		t.Errorf("api defaults = %s %s", cfg.MistralAPIURL, cfg.MistralModel)
	}
	if cfg.RequestTimeout != 300*time.Second || cfg.ImageLimit != 10 || !cfg.IncludeImages {
		t.Errorf("request defaults = %v %d %t", cfg.RequestTimeout, cfg.ImageLimit, cfg.IncludeImages)
	}
	if cfg.OCRProvider != "mistral" || cfg.OutputFormat != "txt" || cfg.Port != "8080" || cfg.WatchSchedule != "@every 1m" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "  secret  ")
	t.Setenv("OCR_TIMEOUT_SECONDS", "30")
	t.Setenv("OCR_INCLUDE_IMAGES", "false")
	t.Setenv("OCR_IMAGE_LIMIT", "bogus")
	t.Setenv("HISTORY_DB_PATH", "")

	cfg := LoadConfig()
	if cfg.MistralAPIKey != "secret" {
		t.Errorf("MistralAPIKey = %q", cfg.MistralAPIKey)
	}
	if cfg.RequestTimeout != 30*time.Second || cfg.IncludeImages {
		t.Errorf("overrides = %v %t", cfg.RequestTimeout, cfg.IncludeImages)
	}
	if cfg.ImageLimit != 10 {
		t.Errorf("invalid int should fall back, got %d", cfg.ImageLimit)
	}
	if cfg.HistoryDBPath != "" {
		t.Errorf("empty HISTORY_DB_PATH should disable persistence, got %q", cfg.HistoryDBPath)
	}
}

func TestAPIKeyFollowsProvider(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "m")
	t.Setenv("OCRSPACE_API_KEY", "o")

	t.Setenv("OCR_PROVIDER", "")
	if got := LoadConfig().APIKey(); got != "m" {
		t.Errorf("APIKey() with default provider = %q", got)
	}
	t.Setenv("OCR_PROVIDER", " OCRSpace ")
	if got := LoadConfig().APIKey(); got != "o" {
		t.Errorf("APIKey() with ocrspace = %q", got)
	}
}

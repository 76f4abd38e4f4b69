package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OCRProvider    string
	MistralAPIKey  string
	MistralAPIURL  string
	MistralModel   string
	RequestTimeout time.Duration
	OutputFormat   string
	IncludeImages  bool
	ImageLimit     int
	HistoryDBPath  string
	Port           string
	Env            string
	LogLevel       string
	WatchDir       string
	WatchSchedule  string
	UploadDir      string

	OCRSpaceAPIKey   string
	OCRSpaceAPIURL   string
	OCRSpaceLanguage string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		OCRProvider:    strings.ToLower(strings.TrimSpace(os.Getenv("OCR_PROVIDER"))),
		MistralAPIKey:  strings.TrimSpace(os.Getenv("MISTRAL_API_KEY")),
		MistralAPIURL:  os.Getenv("MISTRAL_API_URL"),
		MistralModel:   os.Getenv("MISTRAL_OCR_MODEL"),
		RequestTimeout: time.Duration(envInt("OCR_TIMEOUT_SECONDS", 300)) * time.Second,
		OutputFormat:   os.Getenv("OCR_OUTPUT_FORMAT"),
		IncludeImages:  envBool("OCR_INCLUDE_IMAGES", true),
		ImageLimit:     envInt("OCR_IMAGE_LIMIT", 10),
		Port:           os.Getenv("PORT"),
		Env:            os.Getenv("ENV"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		WatchDir:       os.Getenv("WATCH_DIR"),
		WatchSchedule:  os.Getenv("WATCH_SCHEDULE"),

		OCRSpaceAPIKey:   strings.TrimSpace(os.Getenv("OCRSPACE_API_KEY")),
		OCRSpaceAPIURL:   os.Getenv("OCRSPACE_API_URL"),
		OCRSpaceLanguage: os.Getenv("OCRSPACE_LANGUAGE"),
	}

	// HISTORY_DB_PATH set to an empty string disables persistence
	if v, ok := os.LookupEnv("HISTORY_DB_PATH"); ok {
		cfg.HistoryDBPath = v
	} else {
		cfg.HistoryDBPath = "ocr_history.db"
	}

	// UPLOAD_DIR set to an empty string disables POST /upload
	if v, ok := os.LookupEnv("UPLOAD_DIR"); ok {
		cfg.UploadDir = v
	} else {
		cfg.UploadDir = "uploads"
	}

	// Default values
	if cfg.OCRProvider == "" {
		cfg.OCRProvider = "mistral"
	}
	if cfg.MistralAPIURL == "" {
		cfg.MistralAPIURL = "https://api.mistral.ai"
	}
	if cfg.MistralModel == "" {
		cfg.MistralModel = "mistral-ocr-latest"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "txt"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.WatchSchedule == "" {
		cfg.WatchSchedule = "@every 1m"
	}

	return cfg
}

// APIKey returns the credential for the configured OCR provider
func (c *Config) APIKey() string {
	if c.OCRProvider == "ocrspace" {
		return c.OCRSpaceAPIKey
	}
	return c.MistralAPIKey
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️ Invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("⚠️ Invalid %s=%q, using %t", key, v, def)
		return def
	}
	return b
}

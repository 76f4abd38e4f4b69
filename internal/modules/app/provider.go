package app

import (
	"fmt"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/shared/config"
)

// NewOCRService builds the OCR service for the configured provider
func NewOCRService(cfg *config.Config) (*ocr.Service, error) {
	var provider ocr.Provider
	switch cfg.OCRProvider {
	case "", "mistral":
		provider = ocr.NewMistralProvider(cfg.MistralAPIURL, cfg.MistralModel, cfg.RequestTimeout)
	case "ocrspace":
		provider = ocr.NewOCRSpaceProvider(cfg.OCRSpaceAPIURL, cfg.OCRSpaceLanguage, cfg.RequestTimeout)
	default:
		return nil, fmt.Errorf("unknown OCR provider: %q", cfg.OCRProvider)
	}
	return ocr.NewService(provider), nil
}

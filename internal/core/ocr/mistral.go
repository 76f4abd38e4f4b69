package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultMistralURL   = "https://api.mistral.ai"
	DefaultMistralModel = "mistral-ocr-latest"
	DefaultTimeout      = 300 * time.Second
)

// MistralProvider implements OCR using the Mistral OCR API
type MistralProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewMistralProvider creates a new Mistral OCR provider.
// Empty baseURL/model and a non-positive timeout fall back to defaults.
func NewMistralProvider(baseURL, model string, timeout time.Duration) *MistralProvider {
	if baseURL == "" {
		baseURL = DefaultMistralURL
	}
	if model == "" {
		model = DefaultMistralModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &MistralProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetProviderName returns the provider name
func (p *MistralProvider) GetProviderName() string {
	return "Mistral OCR"
}

// Mistral OCR API request structures
type mistralRequest struct {
	Model              string          `json:"model"`
	Document           mistralDocument `json:"document"`
	IncludeImageBase64 bool            `json:"include_image_base64"`
	ImageLimit         int             `json:"image_limit"`
}

type mistralDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

// Process submits one document. It never retries.
func (p *MistralProvider) Process(ctx context.Context, r *Request) (*Result, error) {
	reqBody := mistralRequest{
		Model: p.model,
		Document: mistralDocument{
			Type:        "document_url",
			DocumentURL: r.DataURL,
		},
		IncludeImageBase64: r.IncludeImages,
		ImageLimit:         r.ImageLimit,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &Error{Kind: KindInternal, Message: fmt.Sprintf("failed to marshal request: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/ocr", bytes.NewReader(jsonData))
	if err != nil {
		return nil, NewNetworkError(err)
	}
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("mistral ocr response")

	if resp.StatusCode != http.StatusOK {
		return nil, NewAPIError(resp.StatusCode, string(body))
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, NewMalformedError(err)
	}
	return &result, nil
}

func classifyTransportError(err error) *Error {
	if isTimeout(err) {
		return NewTimeoutError(err)
	}
	return NewNetworkError(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

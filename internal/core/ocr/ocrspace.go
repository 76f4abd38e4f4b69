package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultOCRSpaceURL = "https://api.ocr.space"

// OCRSpaceProvider implements OCR using the OCR.space API. It accepts the same
// data URLs as Mistral but only handles PDFs and images, and returns plain text per page.
type OCRSpaceProvider struct {
	baseURL  string
	language string
	client   *http.Client
}

// NewOCRSpaceProvider creates a new OCR.space provider
func NewOCRSpaceProvider(baseURL, language string, timeout time.Duration) *OCRSpaceProvider {
	if baseURL == "" {
		baseURL = DefaultOCRSpaceURL
	}
	if language == "" {
		language = "eng"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OCRSpaceProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetProviderName returns the provider name
func (p *OCRSpaceProvider) GetProviderName() string {
	return "OCR.space"
}

// OCR.space API response structure
type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText        string          `json:"ParsedText"`
		FileParseExitCode int             `json:"FileParseExitCode"`
		ErrorMessage      json.RawMessage `json:"ErrorMessage,omitempty"`
	} `json:"ParsedResults"`
	OCRExitCode           int             `json:"OCRExitCode"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage,omitempty"` // string or []string
}

// Process submits one document. Page indices are assigned 0.. in response order.
func (p *OCRSpaceProvider) Process(ctx context.Context, r *Request) (*Result, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"base64Image", r.DataURL},
		{"language", p.language},
		{"isTable", "true"},
		{"OCREngine", "2"},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, &Error{Kind: KindInternal, Message: fmt.Sprintf("failed to write %s: %v", f[0], err), Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &Error{Kind: KindInternal, Message: fmt.Sprintf("failed to close writer: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/parse/image", &buf)
	if err != nil {
		return nil, NewNetworkError(err)
	}
	req.Header.Set("apikey", r.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

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
		Msg("ocrspace response")

	if resp.StatusCode != http.StatusOK {
		return nil, NewAPIError(resp.StatusCode, string(body))
	}

	var ocrResp ocrSpaceResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return nil, NewMalformedError(err)
	}

	// the service reports processing failures with a 200 status
	if ocrResp.IsErroredOnProcessing {
		return nil, NewAPIError(resp.StatusCode, ocrSpaceErrorMessage(ocrResp.ErrorMessage))
	}

	result := &Result{Model: "ocrspace-engine-2"}
	for i, parsed := range ocrResp.ParsedResults {
		result.Pages = append(result.Pages, Page{
			Index:    i,
			Markdown: strings.TrimRight(strings.ReplaceAll(parsed.ParsedText, "\r\n", "\n"), "\n"),
		})
	}
	result.UsageInfo.PagesProcessed = len(result.Pages)
	return result, nil
}

func ocrSpaceErrorMessage(raw json.RawMessage) string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return strings.Join(list, "; ")
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single
	}
	return "unknown error"
}

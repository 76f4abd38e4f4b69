package ocr

import "context"

// Provider interface for OCR services
type Provider interface {
	// Process sends one document to the service and returns its pages
	Process(ctx context.Context, req *Request) (*Result, error)

	// GetProviderName returns the provider name
	GetProviderName() string
}

// Request describes a single document submission
type Request struct {
	DataURL       string
	APIKey        string
	IncludeImages bool
	ImageLimit    int
}

// Result is the service response: an ordered list of pages
type Result struct {
	Pages     []Page    `json:"pages"`
	Model     string    `json:"model,omitempty"`
	UsageInfo UsageInfo `json:"usage_info"`
}

// Page is one page of OCR output. Index is service-assigned.
type Page struct {
	Index    int     `json:"index"`
	Markdown string  `json:"markdown"`
	Images   []Image `json:"images,omitempty"`
}

// Image is an image extracted from a page
type Image struct {
	ID           string `json:"id"`
	TopLeftX     int    `json:"top_left_x"`
	TopLeftY     int    `json:"top_left_y"`
	BottomRightX int    `json:"bottom_right_x"`
	BottomRightY int    `json:"bottom_right_y"`
	ImageBase64  string `json:"image_base64,omitempty"`
}

type UsageInfo struct {
	PagesProcessed int  `json:"pages_processed"`
	DocSizeBytes   *int `json:"doc_size_bytes"`
}

// Service wraps the OCR provider
type Service struct {
	provider Provider
}

// NewService creates a new OCR service with the given provider
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// ProcessFile validates and encodes path, then submits it to the provider
func (s *Service) ProcessFile(ctx context.Context, path, apiKey string, includeImages bool, imageLimit int) (*Result, error) {
	if err := ValidateFile(path); err != nil {
		return nil, err
	}

	dataURL, err := EncodeFile(path)
	if err != nil {
		return nil, err
	}

	return s.provider.Process(ctx, &Request{
		DataURL:       dataURL,
		APIKey:        apiKey,
		IncludeImages: includeImages,
		ImageLimit:    imageLimit,
	})
}

// GetProviderName returns the name of the current provider
func (s *Service) GetProviderName() string {
	return s.provider.GetProviderName()
}

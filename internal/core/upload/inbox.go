package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
)

// Result describes a stored upload
type Result struct {
	Path     string `json:"path"`
	FileName string `json:"file_name"` // client-supplied name
	Size     int64  `json:"size"`
}

// Inbox stores uploaded documents in a local directory so they can be selected for a batch.
// OCR outputs are written beside the stored copy.
type Inbox struct {
	basePath string
	maxSize  int64
	now      func() time.Time
}

// NewInbox creates the inbox directory if needed
func NewInbox(basePath string) (*Inbox, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Inbox{
		basePath: basePath,
		maxSize:  ocr.MaxFileSize,
		now:      time.Now,
	}, nil
}

// Dir returns the inbox directory
func (b *Inbox) Dir() string {
	return b.basePath
}

// Save copies file into the inbox under a unique name. Unsupported types and
// files above the OCR size limit are rejected with a validation error.
func (b *Inbox) Save(file io.Reader, filename string) (*Result, error) {
	// never trust client paths
	filename = filepath.Base(filepath.Clean("/" + filename))
	if !ocr.IsSupported(filename) {
		return nil, ocr.NewValidationError("Unsupported file type: %s", filename)
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	finalName := fmt.Sprintf("%s_%d_%s%s", stem, b.now().Unix(), uuid.New().String()[:8], ext)
	filePath := filepath.Join(b.basePath, finalName)

	out, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	// read one byte past the limit to detect oversized uploads without buffering them
	size, err := io.Copy(out, io.LimitReader(file, b.maxSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if size > b.maxSize {
		os.Remove(filePath)
		return nil, ocr.NewValidationError("File too large: %s (>%dMB)", filename, b.maxSize/(1024*1024))
	}

	log.Debug().Str("file", filename).Str("path", filePath).Int64("size", size).Msg("📥 Upload stored")
	return &Result{Path: filePath, FileName: filename, Size: size}, nil
}

// SaveMultipart stores a multipart form file
func (b *Inbox) SaveMultipart(fileHeader *multipart.FileHeader) (*Result, error) {
	if fileHeader.Size > b.maxSize {
		return nil, ocr.NewValidationError("File too large: %s (%dMB)", fileHeader.Filename, fileHeader.Size/(1024*1024))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	return b.Save(file, fileHeader.Filename)
}

// Delete removes a stored upload. Only files directly inside the inbox can be removed.
func (b *Inbox) Delete(path string) error {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(b.basePath) {
		return fmt.Errorf("not an inbox file: %s", path)
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file not found: %s: %w", filepath.Base(path), os.ErrNotExist)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

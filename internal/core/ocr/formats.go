package ocr

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxFileSize is the per-file upload ceiling (100 MiB)
const MaxFileSize int64 = 100 * 1024 * 1024

const mib = 1024 * 1024

var supportedFormats = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// MIMEType returns the MIME type registered for the file's extension
func MIMEType(path string) (string, bool) {
	mime, ok := supportedFormats[strings.ToLower(filepath.Ext(path))]
	return mime, ok
}

// IsSupported reports whether the extension is in the supported table
func IsSupported(path string) bool {
	_, ok := MIMEType(path)
	return ok
}

// SupportedExtensions returns the accepted extensions, sorted
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ValidateFile checks the extension and size of path without reading it
func ValidateFile(path string) error {
	name := filepath.Base(path)
	if !IsSupported(path) {
		return NewValidationError("Unsupported file type: %s", name)
	}

	info, err := os.Stat(path)
	if err != nil {
		return NewIOError(name, err)
	}
	if info.IsDir() {
		return NewValidationError("Skipped directory: %s", name)
	}
	if info.Size() > MaxFileSize {
		return NewValidationError("File too large: %s (%dMB)", name, info.Size()/mib)
	}
	return nil
}

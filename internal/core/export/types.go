package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
)

// Format represents the output file format
type Format string

const (
	FormatText Format = "txt"
	FormatDocx Format = "docx"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Formats lists every output format in display order
var Formats = []Format{FormatText, FormatDocx, FormatPDF, FormatHTML}

// ParseFormat accepts a format name case-insensitively, with or without a dot
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format: %q", s)
}

// Exporter is the interface for all output formats
type Exporter interface {
	Export(doc *Document, writer io.Writer) error
	GetContentType() string
	GetFileExtension() string
}

// Document is the OCR result of one source file, ready to render
type Document struct {
	SourceName string
	Pages      []ocr.Page
}

// Title is the top-level heading shared by every format
func (d *Document) Title() string {
	return "OCR Results - " + d.SourceName
}

// PageHeading returns the per-page heading text
func PageHeading(p ocr.Page) string {
	return fmt.Sprintf("Page %d", p.Index)
}

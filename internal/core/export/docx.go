package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomutex/godocx"
)

// DocxExporter writes Word documents using godocx: a Title paragraph, then a
// Heading 1 per page followed by the page text. Markdown is not rendered;
// each line of a page becomes its own paragraph.
type DocxExporter struct{}

// NewDocxExporter creates a new Word document exporter
func NewDocxExporter() *DocxExporter {
	return &DocxExporter{}
}

// Export exports the document as .docx
func (e *DocxExporter) Export(doc *Document, writer io.Writer) error {
	document, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("failed to create docx document: %w", err)
	}

	if _, err := document.AddHeading(doc.Title(), 0); err != nil {
		return fmt.Errorf("failed to add title: %w", err)
	}
	for _, page := range doc.Pages {
		if _, err := document.AddHeading(PageHeading(page), 1); err != nil {
			return fmt.Errorf("failed to add heading for page %d: %w", page.Index, err)
		}
		if page.Markdown == "" {
			continue
		}
		for _, line := range strings.Split(strings.ReplaceAll(page.Markdown, "\r\n", "\n"), "\n") {
			document.AddParagraph(line)
		}
	}

	// godocx saves to a path; stage it in a temp dir and stream it out
	tmpDir, err := os.MkdirTemp("", "ocr-docx-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, "document.docx")
	if err := document.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write docx file: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to read docx file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(writer, f); err != nil {
		return fmt.Errorf("failed to write docx file: %w", err)
	}
	return nil
}

// GetContentType returns the MIME type for Word files
func (e *DocxExporter) GetContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// GetFileExtension returns the file extension for Word files
func (e *DocxExporter) GetFileExtension() string {
	return ".docx"
}

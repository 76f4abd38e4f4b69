package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// separatorWidth is the length of the rule under the text header
const separatorWidth = 50

// TextExporter writes a plain UTF-8 text file
type TextExporter struct{}

// NewTextExporter creates a new plain text exporter
func NewTextExporter() *TextExporter {
	return &TextExporter{}
}

// Export writes the header, a separator rule, then each page marker and body.
// Every page is followed by one blank line; empty pages have no body line.
func (e *TextExporter) Export(doc *Document, writer io.Writer) error {
	w := bufio.NewWriter(writer)

	fmt.Fprintf(w, "%s\n", doc.Title())
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", separatorWidth))

	for _, page := range doc.Pages {
		fmt.Fprintf(w, "=== %s ===\n", PageHeading(page))
		if page.Markdown != "" {
			fmt.Fprintf(w, "%s\n", page.Markdown)
		}
		w.WriteString("\n")
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write text file: %w", err)
	}
	return nil
}

// GetContentType returns the MIME type for text files
func (e *TextExporter) GetContentType() string {
	return "text/plain; charset=utf-8"
}

// GetFileExtension returns the file extension for text files
func (e *TextExporter) GetFileExtension() string {
	return ".txt"
}

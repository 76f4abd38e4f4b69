package export

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// HTMLExporter renders page markdown to a standalone HTML page
type HTMLExporter struct {
	md goldmark.Markdown
}

// NewHTMLExporter creates a new HTML exporter with GFM tables enabled
func NewHTMLExporter() *HTMLExporter {
	return &HTMLExporter{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Export exports the document to HTML
func (e *HTMLExporter) Export(doc *Document, writer io.Writer) error {
	var buf bytes.Buffer
	title := html.EscapeString(doc.Title())

	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", title)
	fmt.Fprintf(&buf, "<h1>%s</h1>\n", title)

	for _, page := range doc.Pages {
		fmt.Fprintf(&buf, "<section>\n<h2>%s</h2>\n", html.EscapeString(PageHeading(page)))
		if page.Markdown != "" {
			if err := e.md.Convert([]byte(page.Markdown), &buf); err != nil {
				return fmt.Errorf("failed to render page %d: %w", page.Index, err)
			}
		}
		buf.WriteString("</section>\n")
	}
	buf.WriteString("</body>\n</html>\n")

	if _, err := writer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	return nil
}

// GetContentType returns the MIME type for HTML files
func (e *HTMLExporter) GetContentType() string {
	return "text/html; charset=utf-8"
}

// GetFileExtension returns the file extension for HTML files
func (e *HTMLExporter) GetFileExtension() string {
	return ".html"
}

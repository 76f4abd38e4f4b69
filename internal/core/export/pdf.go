package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter implements PDF output using gofpdf
type PDFExporter struct {
	orientation string
	pageSize    string
	fontFamily  string
	fontSize    float64
}

// NewPDFExporter creates a new PDF exporter
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{
		orientation: "P", // Portrait
		pageSize:    "A4",
		fontFamily:  "Arial",
		fontSize:    10,
	}
}

// Export writes a title, then a heading and the literal markdown body per page
func (p *PDFExporter) Export(doc *Document, writer io.Writer) error {
	pdf := gofpdf.New(p.orientation, "mm", p.pageSize, "")
	pdf.SetTitle(doc.Title(), true)
	pdf.SetCreator("mistral-ocr", true)
	pdf.AddPage()

	// Core fonts are cp1252; translate UTF-8 input so accents survive
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(p.fontFamily, "B", 16)
	pdf.MultiCell(0, 8, tr(doc.Title()), "", "L", false)
	pdf.Ln(4)

	for _, page := range doc.Pages {
		pdf.SetFont(p.fontFamily, "B", 13)
		pdf.Cell(0, 8, tr(PageHeading(page)))
		pdf.Ln(9)

		if page.Markdown != "" {
			pdf.SetFont(p.fontFamily, "", p.fontSize)
			pdf.MultiCell(0, 5, tr(page.Markdown), "", "L", false)
		}
		pdf.Ln(4)
	}

	if err := pdf.Output(writer); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	return nil
}

// GetContentType returns the MIME type for PDF files
func (p *PDFExporter) GetContentType() string {
	return "application/pdf"
}

// GetFileExtension returns the file extension for PDF files
func (p *PDFExporter) GetFileExtension() string {
	return ".pdf"
}

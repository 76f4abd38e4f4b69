package export

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
)

// maxCollisionAttempts bounds the _ocr_<n> search
const maxCollisionAttempts = 10000

// Service renders OCR results and saves them beside their source files
type Service struct {
	exporters map[Format]Exporter
}

// NewService creates a new export service with every known format
func NewService() *Service {
	return &Service{
		exporters: map[Format]Exporter{
			FormatText: NewTextExporter(),
			FormatDocx: NewDocxExporter(),
			FormatPDF:  NewPDFExporter(),
			FormatHTML: NewHTMLExporter(),
		},
	}
}

// Exporter returns the exporter registered for format
func (s *Service) Exporter(format Format) (Exporter, error) {
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
	return exporter, nil
}

// GetFileExtension returns the file extension for the given format
func (s *Service) GetFileExtension(format Format) string {
	if exporter, ok := s.exporters[format]; ok {
		return exporter.GetFileExtension()
	}
	return ".bin"
}

// OutputPath returns <dir>/<stem>_ocr<ext> for n == 0 and <dir>/<stem>_ocr_<n><ext> otherwise
func OutputPath(sourcePath, ext string, n int) string {
	dir := filepath.Dir(sourcePath)
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if n == 0 {
		return filepath.Join(dir, stem+"_ocr"+ext)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_ocr_%d%s", stem, n, ext))
}

// outputName matches names produced by OutputPath for every registered format
var outputName = regexp.MustCompile(`_ocr(_[0-9]+)?\.(txt|docx|pdf|html)$`)

// IsOutputName reports whether name looks like a file written by Save
func IsOutputName(name string) bool {
	return outputName.MatchString(name)
}

// ContentType returns the MIME type of a saved output, based on its extension
func (s *Service) ContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for _, exporter := range s.exporters {
		if exporter.GetFileExtension() == ext {
			return exporter.GetContentType()
		}
	}
	return "application/octet-stream"
}

// Save renders result in format and writes it next to sourcePath.
// The file is created exclusively, so an existing file is never overwritten.
func (s *Service) Save(result *ocr.Result, sourcePath string, format Format) (string, error) {
	if result == nil || len(result.Pages) == 0 {
		return "", ocr.ErrNoContent
	}

	exporter, err := s.Exporter(format)
	if err != nil {
		return "", &ocr.Error{Kind: ocr.KindSave, Message: fmt.Sprintf("Save error: %v", err), Err: err}
	}

	doc := &Document{
		SourceName: filepath.Base(sourcePath),
		Pages:      result.Pages,
	}

	var buf bytes.Buffer
	if err := exporter.Export(doc, &buf); err != nil {
		return "", saveError(err)
	}

	outputDir := filepath.Dir(sourcePath)
	ext := exporter.GetFileExtension()

	for n := 0; n < maxCollisionAttempts; n++ {
		candidate := OutputPath(sourcePath, ext, n)
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if errors.Is(err, fs.ErrPermission) {
			return "", permissionError(outputDir, err)
		}
		if err != nil {
			return "", saveError(err)
		}

		if _, err := f.Write(buf.Bytes()); err != nil {
			f.Close()
			os.Remove(candidate)
			return "", saveError(err)
		}
		if err := f.Close(); err != nil {
			os.Remove(candidate)
			return "", saveError(err)
		}

		log.Debug().
			Str("source", sourcePath).
			Str("output", candidate).
			Str("format", string(format)).
			Int("pages", len(result.Pages)).
			Msg("ocr result saved")
		return candidate, nil
	}

	return "", saveError(fmt.Errorf("no free output name for %s after %d attempts", doc.SourceName, maxCollisionAttempts))
}

func permissionError(dir string, err error) *ocr.Error {
	return &ocr.Error{
		Kind:    ocr.KindPermission,
		Message: fmt.Sprintf("Permission denied: Cannot save to %s", dir),
		Err:     err,
	}
}

func saveError(err error) *ocr.Error {
	return &ocr.Error{
		Kind:    ocr.KindSave,
		Message: fmt.Sprintf("Save error: %v", err),
		Err:     err,
	}
}

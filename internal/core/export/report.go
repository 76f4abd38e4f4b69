package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReportRow is one processed file in a batch report
type ReportRow struct {
	File     string
	Status   string
	Kind     string
	Message  string
	Output   string
	Pages    int
	Duration time.Duration
}

var reportHeaders = []string{"File", "Status", "Error Kind", "Message", "Output", "Pages", "Duration (s)"}

// column index -> width; the path and message columns need the room
var reportColumnWidths = map[int]float64{0: 40, 3: 60, 4: 50}

const (
	reportSheet      = "Batch"
	reportFont       = "Arial"
	reportFontSize   = 10
	reportHeaderFill = "4472C4"
	reportFailedFill = "FCE4E4"
)

// ReportExporter writes batch reports as Excel workbooks using excelize
type ReportExporter struct{}

// NewReportExporter creates a new batch report exporter
func NewReportExporter() *ReportExporter {
	return &ReportExporter{}
}

// Export writes a title row, a frozen and filterable header, then one row per file.
// Failed files are shaded.
func (e *ReportExporter) Export(title string, rows []ReportRow, writer io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", reportSheet)

	rowIndex := 1
	if title != "" {
		f.SetCellValue(reportSheet, "A1", title)
		titleStyle, _ := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true, Size: 14, Family: reportFont},
		})
		f.SetCellStyle(reportSheet, "A1", "A1", titleStyle)
		rowIndex += 2 // blank row after the title
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: reportFontSize, Family: reportFont, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{reportHeaderFill}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	okStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: reportFontSize, Family: reportFont},
	})
	failedStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: reportFontSize, Family: reportFont},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{reportFailedFill}},
	})

	headerRow := rowIndex
	for colIndex, header := range reportHeaders {
		colName := columnNumberToName(colIndex + 1)
		cell := colName + strconv.Itoa(rowIndex)
		f.SetCellValue(reportSheet, cell, header)
		f.SetCellStyle(reportSheet, cell, cell, headerStyle)
		if width, ok := reportColumnWidths[colIndex]; ok {
			f.SetColWidth(reportSheet, colName, colName, width)
		}
	}
	rowIndex++

	for _, row := range rows {
		style := okStyle
		if row.Status != "success" {
			style = failedStyle
		}
		values := []interface{}{
			row.File,
			row.Status,
			row.Kind,
			row.Message,
			row.Output,
			row.Pages,
			row.Duration.Round(time.Millisecond).Seconds(),
		}
		for colIndex, value := range values {
			cell := columnNumberToName(colIndex+1) + strconv.Itoa(rowIndex)
			f.SetCellValue(reportSheet, cell, value)
			f.SetCellStyle(reportSheet, cell, cell, style)
		}
		rowIndex++
	}

	f.SetPanes(reportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
		ActivePane:  "bottomLeft",
	})
	lastCol := columnNumberToName(len(reportHeaders))
	f.AutoFilter(reportSheet, fmt.Sprintf("A%d:%s%d", headerRow, lastCol, headerRow+len(rows)), nil)

	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// columnNumberToName converts column number to Excel column name (1 -> A, 27 -> AA)
func columnNumberToName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+(col%26))) + name
		col /= 26
	}
	return name
}

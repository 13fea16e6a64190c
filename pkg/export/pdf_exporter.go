package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders sheets into a basic tabular PDF, one page section per
// sheet.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document from the sheets.
func (e *PDFExporter) Render(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("pdf requires at least one sheet")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	for _, sheet := range sheets {
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(sheet.Name), "", 1, "C", false, 0, "")
		pdf.Ln(3)

		for _, block := range sheet.Blocks {
			if block.Heading != "" {
				pdf.SetFont("Arial", "B", 11)
				pdf.CellFormat(0, 8, block.Heading, "", 1, "L", false, 0, "")
			}
			for _, table := range block.Tables {
				e.writeTable(pdf, table)
				pdf.Ln(4)
			}
			pdf.Ln(2)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) writeTable(pdf *gofpdf.Fpdf, table Table) {
	if len(table.Headers) == 0 {
		return
	}
	title := table.Title
	if table.Note != "" {
		title = fmt.Sprintf("%s (%s)", title, table.Note)
	}
	if title != "" {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")
	}

	colWidth := 277.0 / float64(len(table.Headers))
	pdf.SetFont("Arial", "B", 9)
	for _, header := range table.Headers {
		pdf.CellFormat(colWidth, 7, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range table.Rows {
		for i := range table.Headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(colWidth, 6, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

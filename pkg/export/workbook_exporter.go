package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	// sheetNameLimit is the xlsx sheet-name length cap.
	sheetNameLimit = 31
	columnWidth    = 14.0
	baseRowHeight  = 18.0
	maxRowHeight   = 60.0
	// heightPerChars scales row height with the longest cell per row.
	heightPerChars = 14
)

// WorkbookExporter renders sheets into an xlsx workbook.
type WorkbookExporter struct{}

// NewWorkbookExporter builds a workbook exporter.
func NewWorkbookExporter() *WorkbookExporter {
	return &WorkbookExporter{}
}

// Render produces the workbook bytes, one sheet per input sheet. Sheet names
// are sanitized, truncated, and deduplicated before use.
func (e *WorkbookExporter) Render(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook requires at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	used := map[string]struct{}{}
	for i, sheet := range sheets {
		name := dedupeSheetName(SanitizeSheetName(sheet.Name), i, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("create sheet %q: %w", name, err)
			}
		}
		if err := e.writeSheet(f, name, sheet); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *WorkbookExporter) writeSheet(f *excelize.File, name string, sheet Sheet) error {
	rowIdx := 1
	maxCols := 1

	writeRow := func(cells []string) error {
		longest := 0
		for colIdx, value := range cells {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, value); err != nil {
				return err
			}
			if len(value) > longest {
				longest = len(value)
			}
		}
		if len(cells) > maxCols {
			maxCols = len(cells)
		}
		height := baseRowHeight
		if longest > heightPerChars {
			height = baseRowHeight * float64((longest+heightPerChars-1)/heightPerChars)
			if height > maxRowHeight {
				height = maxRowHeight
			}
		}
		if err := f.SetRowHeight(name, rowIdx, height); err != nil {
			return err
		}
		rowIdx++
		return nil
	}

	for _, block := range sheet.Blocks {
		if block.Heading != "" {
			if err := writeRow([]string{block.Heading}); err != nil {
				return fmt.Errorf("write heading: %w", err)
			}
		}
		for _, table := range block.Tables {
			title := table.Title
			if table.Note != "" {
				title = fmt.Sprintf("%s (%s)", title, table.Note)
			}
			if title != "" {
				if err := writeRow([]string{title}); err != nil {
					return fmt.Errorf("write title: %w", err)
				}
			}
			if err := writeRow(table.Headers); err != nil {
				return fmt.Errorf("write headers: %w", err)
			}
			for _, row := range table.Rows {
				if err := writeRow(row); err != nil {
					return fmt.Errorf("write row: %w", err)
				}
			}
			rowIdx++ // blank separator line
		}
		rowIdx++
	}

	endCol, err := excelize.ColumnNumberToName(maxCols)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(name, "A", endCol, columnWidth); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

// SanitizeSheetName strips characters xlsx rejects and enforces the length
// cap. An empty result is left for dedupeSheetName to replace.
func SanitizeSheetName(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']', '(', ')', '\'':
			return -1
		default:
			return r
		}
	}, raw)
	cleaned = strings.TrimSpace(cleaned)
	return strings.TrimSpace(truncateRunes(cleaned, sheetNameLimit))
}

// truncateRunes caps a string at n runes so a multibyte subject name is
// never cut mid-rune.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func dedupeSheetName(name string, index int, used map[string]struct{}) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	candidate := name
	for n := 2; ; n++ {
		if _, taken := used[candidate]; !taken {
			break
		}
		suffix := fmt.Sprintf(" %d", n)
		candidate = truncateRunes(name, sheetNameLimit-len(suffix)) + suffix
	}
	used[candidate] = struct{}{}
	return candidate
}

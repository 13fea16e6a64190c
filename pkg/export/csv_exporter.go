package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders a combined LAEMPL+MPS export as two CSV sections
// separated by a blank line. Quoting follows standard CSV rules.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// RenderCombined writes the tables in order with a blank line between them.
func (e *CSVExporter) RenderCombined(tables ...Table) ([]byte, error) {
	buf := &bytes.Buffer{}
	for i, table := range tables {
		if i > 0 {
			buf.WriteString("\n")
		}
		if err := e.writeTable(buf, table); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (e *CSVExporter) writeTable(buf *bytes.Buffer, table Table) error {
	if len(table.Headers) == 0 {
		return fmt.Errorf("csv table %q requires at least one header", table.Title)
	}
	writer := csv.NewWriter(buf)
	if err := writer.Write(table.Headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range table.Rows {
		record := row
		if len(record) < len(table.Headers) {
			padded := make([]string, len(table.Headers))
			copy(padded, record)
			record = padded
		}
		if err := writer.Write(record[:len(table.Headers)]); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVExporter renders a Dataset as CSV.
type CSVExporter struct {
	comma rune
	bom   bool
}

// NewCSVExporter builds a plain comma separated exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{comma: ','}
}

// NewSpreadsheetCSVExporter writes semicolon separated files with a UTF-8 BOM,
// which spreadsheet apps in comma-decimal locales open with accents intact.
func NewSpreadsheetCSVExporter() *CSVExporter {
	return &CSVExporter{comma: ';', bom: true}
}

// Render writes the headers, the rows and, when present, the footer as the
// last record.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	if e.bom {
		buf.Write(utf8BOM)
	}
	writer := csv.NewWriter(buf)
	if e.comma != 0 {
		writer.Comma = e.comma
	}
	records := make([][]string, 0, len(data.Rows)+2)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		records = append(records, data.record(row))
	}
	if len(data.Footer) > 0 {
		records = append(records, data.record(data.Footer))
	}
	if err := writer.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

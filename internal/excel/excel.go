package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column pairs a header label with the row key it is populated from.
type Column struct {
	Header string
	Field  string
}

// ParseSheet reads the first sheet of an XLSX stream into one map per data
// row, keyed by the header row's cell values. Header cells are trimmed;
// rows shorter than the header are padded with empty strings.
func ParseSheet(r io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("spreadsheet has no data rows")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(row) {
				record[header] = row[i]
			} else {
				record[header] = ""
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// WriteTable renders rows into a single-sheet workbook with the given
// column order.
func WriteTable(sheetName string, columns []Column, rows []map[string]string) (*excelize.File, error) {
	f := excelize.NewFile()

	if sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			return nil, err
		}
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, col.Header); err != nil {
			return nil, err
		}
	}

	for rowIdx, row := range rows {
		for colIdx, col := range columns {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, row[col.Field]); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

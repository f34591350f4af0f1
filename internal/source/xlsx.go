// Package source loads reference and order data from xlsx workbooks. The
// production sheets use Chinese column headers; every header is overridable
// through configuration. Rows that fail to parse are skipped with a
// diagnostic, consumers receive already-validated records.
package source

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// sheet is a header-addressed view over one worksheet.
type sheet struct {
	header map[string]int
	rows   [][]string
}

func openPath(path, sheetName string) (*sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return openSheet(f, sheetName)
}

func openSheet(r io.Reader, sheetName string) (*sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheetName)
	}
	header := make(map[string]int, len(rows[0]))
	for idx, name := range rows[0] {
		header[strings.TrimSpace(name)] = idx
	}
	return &sheet{header: header, rows: rows[1:]}, nil
}

// require verifies that every named column exists.
func (s *sheet) require(columns ...string) error {
	var missing []string
	for _, col := range columns {
		if _, ok := s.header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (s *sheet) cell(row []string, column string) string {
	idx, ok := s.header[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// cellFloat treats empty cells and the "-" placeholder as zero.
func (s *sheet) cellFloat(row []string, column string) float64 {
	raw := s.cell(row, column)
	if raw == "" || raw == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func (s *sheet) cellInt(row []string, column string) int {
	return int(s.cellFloat(row, column))
}

// cellRate parses a rate cell into a decimal fraction. Percent strings are
// divided by 100 here, never at use time.
func (s *sheet) cellRate(row []string, column string) float64 {
	raw := s.cell(row, column)
	if raw == "" || raw == "-" {
		return 0
	}
	percent := strings.Contains(raw, "%")
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "%", ""))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	if percent {
		v /= 100
	}
	return v
}

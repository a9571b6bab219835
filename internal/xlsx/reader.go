// Package xlsx reads instrument exports from .xlsx workbooks and writes
// placed data sets into report workbooks.
package xlsx

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/JnliaH/ChromaQuant/internal/frame"
)

// Sheet represents a single worksheet's data.
type Sheet struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// Workbook represents a parsed Excel file with all its sheets.
type Workbook struct {
	Sheets []Sheet `json:"sheets"`
}

// ReadFile reads an .xlsx file and returns its structured data.
func ReadFile(path string) (*Workbook, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s — check that the path is correct", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s — is this a valid .xlsx file? %w", path, err)
	}
	defer f.Close()

	return readWorkbook(f)
}

// ReadBytes reads an .xlsx file from a byte slice and returns its structured data.
func ReadBytes(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read Excel data: %w", err)
	}
	defer f.Close()

	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) (*Workbook, error) {
	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("could not read sheet %q: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Rows: rows})
	}
	return wb, nil
}

// GetSheet returns a specific sheet by name. An empty name selects the
// first sheet.
func (wb *Workbook) GetSheet(name string) (*Sheet, error) {
	if name == "" && len(wb.Sheets) > 0 {
		return &wb.Sheets[0], nil
	}
	for i := range wb.Sheets {
		if wb.Sheets[i].Name == name {
			return &wb.Sheets[i], nil
		}
	}

	available := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		available[i] = s.Name
	}
	return nil, fmt.Errorf("sheet %q not found — available sheets: %v", name, available)
}

// Frame converts the sheet to a frame. Leading empty rows are skipped and
// the first non-empty row is the header.
func (s *Sheet) Frame() *frame.Frame {
	rows := s.Rows
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	return frame.FromRecords(rows)
}

// RowCount returns the total number of data rows (excluding empty rows).
func (s *Sheet) RowCount() int {
	count := 0
	for _, row := range s.Rows {
		if !blank(row) {
			count++
		}
	}
	return count
}

func blank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// ReadFrame loads one sheet of an .xlsx file as a frame.
func ReadFrame(path, sheet string) (*frame.Frame, error) {
	wb, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := wb.GetSheet(sheet)
	if err != nil {
		return nil, err
	}
	return s.Frame(), nil
}

package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadCSV loads a CSV file whose first record holds the column names.
func ReadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s — check that the path is correct: %w", path, err)
		}
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	fr, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	return fr, nil
}

// ParseCSV reads CSV records from r. Cells that parse as numbers become
// float64, empty cells become Missing, everything else stays text.
func ParseCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not parse CSV: %w", err)
	}
	return FromRecords(records), nil
}

// FromRecords builds a frame from string records; records[0] is the header.
// Short rows are padded with Missing.
func FromRecords(records [][]string) *Frame {
	if len(records) == 0 {
		return New()
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	fr := New(headers...)
	for _, rec := range records[1:] {
		row := make(map[string]Value, len(headers))
		for i, col := range headers {
			if i < len(rec) {
				row[col] = ParseCell(rec[i])
			}
		}
		fr.AppendRow(row)
	}
	return fr
}

// ParseCell converts one raw text cell into a Value. Cells such as "inf"
// or "NaN" stay text.
func ParseCell(s string) Value {
	t := strings.TrimSpace(s)
	if t == "" {
		return Missing
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && finite(f) {
		return f
	}
	return s
}

// Records renders the frame as string records with a header row.
func (f *Frame) Records() [][]string {
	records := make([][]string, 0, f.length+1)
	records = append(records, f.Columns())
	for i := 0; i < f.length; i++ {
		rec := make([]string, len(f.columns))
		for j, c := range f.columns {
			rec[j] = Text(f.At(i, c))
		}
		records = append(records, rec)
	}
	return records
}

// WriteCSV writes the frame to path, creating parent directories.
func (f *Frame) WriteCSV(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(f.Records()); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return nil
}

package xlsx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/JnliaH/ChromaQuant/internal/dataset"
	"github.com/JnliaH/ChromaQuant/internal/frame"
)

// Writer places data set cells into a new workbook. Sheets are created the
// first time they are written to.
type Writer struct {
	f      *excelize.File
	sheets map[string]bool
	logger *zap.Logger
}

// NewWriter starts an empty workbook.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		f:      excelize.NewFile(),
		sheets: make(map[string]bool),
		logger: logger,
	}
}

// EnsureSheet creates the named sheet if it does not exist yet. The first
// sheet requested takes over the workbook's default sheet.
func (w *Writer) EnsureSheet(name string) error {
	if w.sheets[name] {
		return nil
	}
	if len(w.sheets) == 0 {
		// Rename default sheet
		defaultSheet := w.f.GetSheetName(0)
		if defaultSheet != name {
			if err := w.f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("could not rename sheet: %w", err)
			}
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("could not create sheet %q: %w", name, err)
	}
	w.sheets[name] = true
	return nil
}

// Sheets returns the names of the sheets created so far.
func (w *Writer) Sheets() []string {
	var out []string
	for _, name := range w.f.GetSheetList() {
		if w.sheets[name] {
			out = append(out, name)
		}
	}
	return out
}

// Put writes one placed cell. Formula cells are stored as formulas and title
// cells with a span are merged across it.
func (w *Writer) Put(sheet string, p dataset.Placed) error {
	if err := w.EnsureSheet(sheet); err != nil {
		return err
	}
	cellName, err := excelize.CoordinatesToCellName(p.At.Col, p.At.Row)
	if err != nil {
		return fmt.Errorf("invalid cell coordinates: %w", err)
	}

	switch {
	case frame.IsMissing(p.Value):
	case p.Formula:
		text := strings.TrimPrefix(frame.Text(p.Value), "=")
		if err := w.f.SetCellFormula(sheet, cellName, text); err != nil {
			return fmt.Errorf("could not set formula in %s!%s: %w", sheet, cellName, err)
		}
	default:
		if err := w.f.SetCellValue(sheet, cellName, p.Value); err != nil {
			return fmt.Errorf("could not set cell %s!%s: %w", sheet, cellName, err)
		}
	}

	if p.Span > 1 {
		end, err := excelize.CoordinatesToCellName(p.At.Col+p.Span-1, p.At.Row)
		if err != nil {
			return fmt.Errorf("invalid cell coordinates: %w", err)
		}
		if err := w.f.MergeCell(sheet, cellName, end); err != nil {
			return fmt.Errorf("could not merge %s:%s on %q: %w", cellName, end, sheet, err)
		}
	}
	return nil
}

// WriteDataSet writes every cell of ds onto its sheet.
func (w *Writer) WriteDataSet(ds dataset.DataSet) error {
	cells := ds.Cells()
	for _, p := range cells {
		if err := w.Put(ds.Sheet(), p); err != nil {
			return err
		}
	}
	w.logger.Debug("Wrote data set",
		zap.String("id", ds.ID().String()),
		zap.String("kind", string(ds.Kind())),
		zap.String("sheet", ds.Sheet()),
		zap.Int("cells", len(cells)))
	return nil
}

// SaveAs writes the workbook to path, creating parent directories.
func (w *Writer) SaveAs(path string) error {
	if len(w.sheets) == 0 {
		if err := w.EnsureSheet(dataset.DefaultSheet); err != nil {
			return err
		}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}
	return nil
}

// Close releases the workbook.
func (w *Writer) Close() error {
	return w.f.Close()
}

// WriteFile creates a new .xlsx file from the given workbook data.
func WriteFile(wb *Workbook, path string) error {
	w := NewWriter(nil)
	defer w.Close()

	for i, sheet := range wb.Sheets {
		sheetName := sheet.Name
		if sheetName == "" {
			sheetName = fmt.Sprintf("Sheet%d", i+1)
		}
		if err := w.EnsureSheet(sheetName); err != nil {
			return err
		}
		for rowIdx, row := range sheet.Rows {
			for colIdx, cell := range row {
				cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				if err != nil {
					return fmt.Errorf("invalid cell coordinates: %w", err)
				}
				if err := w.f.SetCellValue(sheetName, cellName, cell); err != nil {
					return fmt.Errorf("could not set cell %s: %w", cellName, err)
				}
			}
		}
	}
	return w.SaveAs(path)
}

package xlsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JnliaH/ChromaQuant/internal/cell"
	"github.com/JnliaH/ChromaQuant/internal/dataset"
	"github.com/JnliaH/ChromaQuant/internal/frame"
)

func TestWriteAndRead(t *testing.T) {
	original := &Workbook{
		Sheets: []Sheet{
			{
				Name: "FID",
				Rows: [][]string{
					{"RT", "Area", "Compound Name"},
					{"1.5", "120", "Methane"},
					{"2.25", "80", "Ethane"},
				},
			},
			{Name: "MS", Rows: [][]string{{"Component RT"}, {"1.5"}}},
		},
	}

	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, WriteFile(original, path))
	_, err := os.Stat(path)
	require.NoError(t, err)

	wb, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 2)
	assert.Equal(t, "FID", wb.Sheets[0].Name)
	assert.Equal(t, "Methane", wb.Sheets[0].Rows[1][2])
	assert.Equal(t, 3, wb.Sheets[0].RowCount())

	_, err = wb.GetSheet("Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available sheets")
}

func TestReadFileNotFound(t *testing.T) {
	_, err := ReadFile("/nonexistent/file.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestReadFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xlsx")
	require.NoError(t, WriteFile(&Workbook{Sheets: []Sheet{
		{Name: "Data", Rows: [][]string{{}, {"RT", "Area"}, {"1.5", "120"}, {"2.25"}}},
	}}, path))

	f, err := ReadFrame(path, "Data")
	require.NoError(t, err)
	assert.Equal(t, []string{"RT", "Area"}, f.Columns())
	require.Equal(t, 2, f.Len())
	assert.Equal(t, 2.25, f.At(1, "RT"))
	assert.True(t, frame.IsMissing(f.At(1, "Area")))

	first, err := ReadFrame(path, "")
	require.NoError(t, err)
	assert.Equal(t, f.Len(), first.Len())
}

func TestWriterPlacesCells(t *testing.T) {
	w := NewWriter(nil)
	defer w.Close()

	require.NoError(t, w.Put("Results", dataset.Placed{At: cell.Coord{Col: 2, Row: 1}, Value: "Title", Span: 3}))
	require.NoError(t, w.Put("Results", dataset.Placed{At: cell.Coord{Col: 2, Row: 2}, Value: 1.5}))
	require.NoError(t, w.Put("Results", dataset.Placed{At: cell.Coord{Col: 2, Row: 3}, Value: "=SUM(B2:B2)", Formula: true}))
	require.NoError(t, w.Put("Results", dataset.Placed{At: cell.Coord{Col: 3, Row: 3}, Value: frame.Missing}))
	require.NoError(t, w.EnsureSheet("Other"))
	assert.Equal(t, []string{"Results", "Other"}, w.Sheets())

	path := filepath.Join(t.TempDir(), "nested", "report.xlsx")
	require.NoError(t, w.SaveAs(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Results", "Other"}, f.GetSheetList())

	v, err := f.GetCellValue("Results", "B2")
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)

	formula, err := f.GetCellFormula("Results", "B3")
	require.NoError(t, err)
	assert.Equal(t, "SUM(B2:B2)", strings.TrimPrefix(formula, "="))

	merged, err := f.GetMergeCells("Results")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "B1", merged[0].GetStartAxis())
	assert.Equal(t, "D1", merged[0].GetEndAxis())
}

func TestWriteDataSet(t *testing.T) {
	tbl, err := dataset.NewTable(mustFrame(t), dataset.WithSheet("S"), dataset.WithAnchor("B4"))
	require.NoError(t, err)

	w := NewWriter(nil)
	defer w.Close()
	require.NoError(t, w.WriteDataSet(tbl))

	path := filepath.Join(t.TempDir(), "ds.xlsx")
	require.NoError(t, w.SaveAs(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("S", "C4")
	require.NoError(t, err)
	assert.Equal(t, "B", name)
	v, err := f.GetCellValue("S", "C7")
	require.NoError(t, err)
	assert.Equal(t, "6", v)
}

func TestSaveEmptyWorkbook(t *testing.T) {
	w := NewWriter(nil)
	defer w.Close()
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, w.SaveAs(path))
	assert.Equal(t, []string{dataset.DefaultSheet}, w.Sheets())
}

func mustFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.FromColumns([]string{"A", "B"}, map[string][]frame.Value{
		"A": {1.0, 2.0, 3.0},
		"B": {4.0, 5.0, 6.0},
	})
	require.NoError(t, err)
	return f
}

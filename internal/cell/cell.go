// Package cell parses anchor cells and formats absolute, sheet-qualified
// spreadsheet references. Coordinates are 1-based, matching spreadsheet
// conventions: column 1 is "A", row 1 is the first row.
package cell

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JnliaH/ChromaQuant/internal/errs"
)

var cellPattern = regexp.MustCompile(`^\$?[A-Za-z]{1,3}\$?[0-9]+$`)

// Coord is a 1-based column/row pair.
type Coord struct {
	Col int
	Row int
}

// Parse converts an anchor such as "B4", "$B$4" or "b4" into coordinates.
func Parse(anchor string) (Coord, error) {
	s := strings.TrimSpace(anchor)
	if !cellPattern.MatchString(s) {
		return Coord{}, errs.Config("cell", "anchor cell", fmt.Sprintf("%q", anchor), "not a valid spreadsheet cell (e.g. 'A1', '$B$2')")
	}
	col, row, err := excelize.CellNameToCoordinates(strings.ToUpper(strings.ReplaceAll(s, "$", "")))
	if err != nil {
		return Coord{}, errs.Config("cell", "anchor cell", fmt.Sprintf("%q", anchor), err.Error())
	}
	return Coord{Col: col, Row: row}, nil
}

// Valid reports whether anchor parses as a cell.
func Valid(anchor string) bool {
	_, err := Parse(anchor)
	return err == nil
}

// ColumnName returns the letters for a 1-based column number.
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	return name
}

// Offset returns c moved by dc columns and dr rows.
func (c Coord) Offset(dc, dr int) Coord {
	return Coord{Col: c.Col + dc, Row: c.Row + dr}
}

// Name returns the relative cell name, e.g. "B4".
func (c Coord) Name() string {
	name, err := excelize.CoordinatesToCellName(c.Col, c.Row)
	if err != nil {
		return ""
	}
	return name
}

// Absolute returns the absolute cell name, e.g. "$B$4".
func (c Coord) Absolute() string {
	return fmt.Sprintf("$%s$%d", ColumnName(c.Col), c.Row)
}

// QuoteSheet renders a sheet name for use in a reference: 'Sheet Name'.
func QuoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// Qualified returns a sheet-qualified absolute reference, e.g. 'S'!$B$4.
func Qualified(sheet string, c Coord) string {
	return QuoteSheet(sheet) + "!" + c.Absolute()
}

// QualifiedRange returns a sheet-qualified absolute single-column range,
// e.g. 'S'!$C$5:$C$7.
func QualifiedRange(sheet string, col, startRow, endRow int) string {
	letter := ColumnName(col)
	return fmt.Sprintf("%s!$%s$%d:$%s$%d", QuoteSheet(sheet), letter, startRow, letter, endRow)
}

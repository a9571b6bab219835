package dataset

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JnliaH/ChromaQuant/internal/categories"
	"github.com/JnliaH/ChromaQuant/internal/cell"
	"github.com/JnliaH/ChromaQuant/internal/chem"
	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/frame"
	"github.com/JnliaH/ChromaQuant/internal/match"
)

// ColumnReference locates one table column's data cells.
type ColumnReference struct {
	Column       string
	ColumnLetter string
	Col          int
	StartRow     int
	EndRow       int
	Sheet        string
	Length       int
	Range        string
}

// Cell returns the sheet-qualified reference of the i-th data cell.
func (c ColumnReference) Cell(i int) string {
	return cell.Qualified(c.Sheet, cell.Coord{Col: c.Col, Row: c.StartRow + i})
}

// TableReference locates a whole table. For an empty table the column
// ranges span a single row so they stay valid.
type TableReference struct {
	Sheet   string
	Length  int
	NameRow int
	Columns []ColumnReference
}

// Column returns the reference of a named column.
func (r TableReference) Column(name string) (ColumnReference, bool) {
	for _, c := range r.Columns {
		if c.Column == name {
			return c, true
		}
	}
	return ColumnReference{}, false
}

// Table is a placed frame. The layout is an optional title row at the
// anchor, then the column-name row, then one row per record.
type Table struct {
	Base
	data     *frame.Frame
	ref      TableReference
	resolver chem.Resolver
}

// NewTable creates a Table holding f. A nil frame gives an empty table.
func NewTable(f *frame.Frame, opts ...Option) (*Table, error) {
	if f == nil {
		f = frame.New()
	}
	t := &Table{data: f.Copy(), resolver: chem.Default}
	if err := t.Base.init(KindTable, opts); err != nil {
		return nil, err
	}
	return t, nil
}

// Data returns a copy of the table's frame.
func (t *Table) Data() *frame.Frame { return t.data.Copy() }

// SetData replaces the table's frame.
func (t *Table) SetData(f *frame.Frame) {
	if f == nil {
		f = frame.New()
	}
	t.data = f.Copy()
	t.touch()
}

// Len returns the number of data rows.
func (t *Table) Len() int { return t.data.Len() }

// Columns returns the column names in order.
func (t *Table) Columns() []string { return t.data.Columns() }

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool { return t.data.HasColumn(name) }

// At returns one cell of the table.
func (t *Table) At(row int, column string) frame.Value { return t.data.At(row, column) }

// SetResolver replaces the chemical formula resolver.
func (t *Table) SetResolver(r chem.Resolver) {
	if r != nil {
		t.resolver = r
	}
}

// Reference returns the current placement of every column.
func (t *Table) Reference() TableReference {
	if t.takeDirty() {
		t.ref = t.buildReference()
	}
	return t.ref
}

func (t *Table) buildReference() TableReference {
	nameRow := t.anchor.Row + t.titleRows()
	start := nameRow + 1
	length := t.data.Len()
	end := start + length - 1
	if length == 0 {
		end = start
	}

	ref := TableReference{Sheet: t.sheet, Length: length, NameRow: nameRow}
	for i, name := range t.data.Columns() {
		col := t.anchor.Col + i
		ref.Columns = append(ref.Columns, ColumnReference{
			Column:       name,
			ColumnLetter: cell.ColumnName(col),
			Col:          col,
			StartRow:     start,
			EndRow:       end,
			Sheet:        t.sheet,
			Length:       length,
			Range:        cell.QualifiedRange(t.sheet, col, start, end),
		})
	}
	return ref
}

// AddColumn assigns a scalar (broadcast) or a same-length sequence.
func (t *Table) AddColumn(name string, values any) error {
	if err := t.data.AddColumn(name, values); err != nil {
		return errs.Config("table", "column", name, err.Error())
	}
	t.touch()
	return nil
}

// DropColumn removes a column if present.
func (t *Table) DropColumn(name string) {
	if t.data.HasColumn(name) {
		t.data.DropColumn(name)
		t.touch()
	}
}

// AddDerivedColumn computes a column row by row from source columns.
func (t *Table) AddDerivedColumn(name string, fn func(args ...frame.Value) frame.Value, sources ...string) error {
	for _, s := range sources {
		if !t.data.HasColumn(s) {
			return errs.Config("table", "source column", s,
				fmt.Sprintf("column not found — available columns: %v", t.data.Columns()))
		}
	}
	values := make([]frame.Value, t.data.Len())
	args := make([]frame.Value, len(sources))
	for i := range values {
		for j, s := range sources {
			args[j] = t.data.At(i, s)
		}
		values[i] = fn(args...)
	}
	return t.AddColumn(name, values)
}

// AddElementCountColumn counts atoms of element in each formula string.
// Formulas that cannot be resolved count as 0.
func (t *Table) AddElementCountColumn(formulaColumn, element, name string) error {
	failed := 0
	err := t.AddDerivedColumn(name, func(args ...frame.Value) frame.Value {
		counts, err := t.resolver.Counts(frame.Text(args[0]))
		if err != nil {
			failed++
			return 0
		}
		return counts[element]
	}, formulaColumn)
	t.logFailures("element count", formulaColumn, failed)
	return err
}

// AddMolecularWeightColumn computes the molecular weight of each formula
// string. Formulas that cannot be resolved weigh 0.
func (t *Table) AddMolecularWeightColumn(formulaColumn, name string) error {
	failed := 0
	err := t.AddDerivedColumn(name, func(args ...frame.Value) frame.Value {
		w, err := t.resolver.MolecularWeight(frame.Text(args[0]))
		if err != nil {
			failed++
			return 0.0
		}
		return w
	}, formulaColumn)
	t.logFailures("molecular weight", formulaColumn, failed)
	return err
}

// AddCategoryColumn assigns a category to each value of sourceColumn.
// Values that cannot be categorized get "".
func (t *Table) AddCategoryColumn(sourceColumn string, cats *categories.Categories, name string) error {
	if cats == nil {
		return errs.Config("table", "categories", nil, "categories are required")
	}
	failed := 0
	var cfgErr error
	err := t.AddDerivedColumn(name, func(args ...frame.Value) frame.Value {
		c, err := cats.Categorize(args[0])
		if err != nil {
			if errs.IsConfig(err) {
				cfgErr = err
			}
			failed++
			return ""
		}
		return c
	}, sourceColumn)
	if cfgErr != nil {
		return cfgErr
	}
	t.logFailures("category", sourceColumn, failed)
	return err
}

func (t *Table) logFailures(what, column string, failed int) {
	if failed == 0 {
		return
	}
	t.logger.Warn("Could not derive "+what+" for some rows",
		zap.String("table", t.id.String()),
		zap.String("column", column),
		zap.Int("rows", failed))
}

// ImportCSV replaces the table's data with the contents of a CSV file.
func (t *Table) ImportCSV(path string) error {
	f, err := frame.ReadCSV(path)
	if err != nil {
		return err
	}
	t.SetData(f)
	return nil
}

// Match enriches this table's rows from secondary and returns the result
// as a new Table. This table is not modified.
func (t *Table) Match(secondary *frame.Frame, cfg *match.Config, opts ...Option) (*Table, *match.Report, error) {
	out, report, err := match.NewRunner(t.logger).Run(t.data, secondary, cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := NewTable(out, append([]Option{WithLogger(t.logger)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	res.resolver = t.resolver
	return res, report, nil
}

// Insert returns the placeholder text that points a formula at one of this
// table's columns: a per-row cell, or the whole column range when isRange.
// Column names containing ',', ':' or '|', or with surrounding spaces,
// cannot be written as placeholder text; build those formulas with
// formula.ColumnRef or formula.RangeRef instead.
func (t *Table) Insert(column string, isRange bool) (string, error) {
	if strings.ContainsAny(column, ",:|") || strings.TrimSpace(column) != column || column == "" {
		return "", errs.Config("table", "insert column", column,
			"name cannot be written as a placeholder — use formula.ColumnRef or formula.RangeRef")
	}
	if isRange {
		return fmt.Sprintf("|table: %s, key: %s, range: true|", t.id, column), nil
	}
	return fmt.Sprintf("|table: %s, key: %s|", t.id, column), nil
}

// Cells lays out the title, column names and data rows.
func (t *Table) Cells() []Placed {
	ref := t.Reference()
	var out []Placed
	if t.HasHeader() {
		out = append(out, Placed{At: t.anchor, Value: t.header, Span: max(len(ref.Columns), 1)})
	}
	for _, c := range ref.Columns {
		out = append(out, Placed{At: cell.Coord{Col: c.Col, Row: ref.NameRow}, Value: c.Column})
		for i := 0; i < t.data.Len(); i++ {
			v := t.data.At(i, c.Column)
			if frame.IsMissing(v) {
				continue
			}
			out = append(out, Placed{
				At:      cell.Coord{Col: c.Col, Row: c.StartRow + i},
				Value:   v,
				Formula: IsFormula(v),
			})
		}
	}
	return out
}

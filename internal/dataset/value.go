package dataset

import (
	"strings"

	"github.com/JnliaH/ChromaQuant/internal/cell"
	"github.com/JnliaH/ChromaQuant/internal/frame"
)

// ValueReference locates a Value on its sheet. Without a header the data
// cell is the anchor; with one, the name cell is the anchor and the data
// cell sits directly below it.
type ValueReference struct {
	Sheet        string
	ColumnLetter string
	Row          int
	NameCell     string
	DataCell     string
	Data         cell.Coord
}

// Qualified returns the sheet-qualified data cell, e.g. 'S'!$B$3.
func (r ValueReference) Qualified() string {
	return cell.Qualified(r.Sheet, r.Data)
}

// Value is a single placed scalar, possibly a formula.
type Value struct {
	Base
	data frame.Value
	ref  ValueReference
}

// NewValue creates a Value holding data.
func NewValue(data frame.Value, opts ...Option) (*Value, error) {
	v := &Value{data: frame.Normalize(data)}
	if err := v.Base.init(KindValue, opts); err != nil {
		return nil, err
	}
	return v, nil
}

// Data returns the payload.
func (v *Value) Data() frame.Value { return v.data }

// SetData replaces the payload.
func (v *Value) SetData(data frame.Value) {
	v.data = frame.Normalize(data)
	v.touch()
}

// Reference returns the current placement of the Value.
func (v *Value) Reference() ValueReference {
	if v.takeDirty() {
		v.ref = v.buildReference()
	}
	return v.ref
}

func (v *Value) buildReference() ValueReference {
	data := v.anchor.Offset(0, v.titleRows())
	ref := ValueReference{
		Sheet:        v.sheet,
		ColumnLetter: cell.ColumnName(data.Col),
		Row:          data.Row,
		DataCell:     data.Absolute(),
		Data:         data,
	}
	if v.HasHeader() {
		ref.NameCell = v.anchor.Absolute()
	}
	return ref
}

// Cells lays out the optional name cell and the data cell.
func (v *Value) Cells() []Placed {
	ref := v.Reference()
	var out []Placed
	if v.HasHeader() {
		out = append(out, Placed{At: v.anchor, Value: v.header})
	}
	out = append(out, Placed{At: ref.Data, Value: v.data, Formula: IsFormula(v.data)})
	return out
}

// IsFormula reports whether a cell value is spreadsheet formula text.
func IsFormula(v frame.Value) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, "=")
}

// Insert returns the placeholder text that points a formula at this Value.
func (v *Value) Insert() string {
	return "|key: " + v.id.String() + "|"
}

// Package frame provides an ordered-column tabular container for instrument
// data. Columns are named and ordered, rows are addressed by position, and
// absent cells hold the explicit Missing sentinel instead of being dropped.
package frame

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Value is a single cell: float64, string, bool or Missing.
type Value = any

type missing struct{}

func (missing) String() string { return "" }

// Missing marks a cell with no value.
var Missing Value = missing{}

// IsMissing reports whether v is the Missing sentinel (or nil, or NaN).
func IsMissing(v Value) bool {
	switch x := v.(type) {
	case nil, missing:
		return true
	case float64:
		return math.IsNaN(x)
	}
	return false
}

// Normalize converts Go scalars to the cell representation used by Frame:
// integers become float64 and nil becomes Missing.
func Normalize(v Value) Value {
	switch x := v.(type) {
	case nil:
		return Missing
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	}
	return v
}

// Float returns the numeric form of v. Strings that parse as numbers count.
// NaN and infinities are not numeric.
func Float(v Value) (float64, bool) {
	switch x := Normalize(v).(type) {
	case float64:
		if !finite(x) {
			return 0, false
		}
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Text renders v the way it would appear in a CSV cell.
func Text(v Value) string {
	if IsMissing(v) {
		return ""
	}
	switch x := Normalize(v).(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Frame holds equally long columns in insertion order.
type Frame struct {
	columns []string
	index   map[string]int
	data    [][]Value
	length  int
}

// New creates an empty frame with the given columns and no rows.
func New(columns ...string) *Frame {
	f := &Frame{index: make(map[string]int)}
	for _, c := range columns {
		f.columns = append(f.columns, c)
		f.index[c] = len(f.columns) - 1
		f.data = append(f.data, nil)
	}
	return f
}

// FromColumns builds a frame from column order and per-column values.
// Every column must have the same length.
func FromColumns(columns []string, values map[string][]Value) (*Frame, error) {
	f := New()
	for _, c := range columns {
		if err := f.AddColumn(c, values[c]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return f.length
}

// Columns returns a copy of the column names in order.
func (f *Frame) Columns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	if f == nil {
		return false
	}
	_, ok := f.index[name]
	return ok
}

// ColumnIndex returns the zero-based position of a column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	if i, ok := f.index[name]; ok {
		return i
	}
	return -1
}

// Column returns a copy of a column's values.
func (f *Frame) Column(name string) ([]Value, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found — available columns: %v", name, f.columns)
	}
	out := make([]Value, f.length)
	copy(out, f.data[i])
	return out, nil
}

// At returns the cell at row, column. Out-of-range reads return Missing.
func (f *Frame) At(row int, column string) Value {
	i, ok := f.index[column]
	if !ok || row < 0 || row >= f.length {
		return Missing
	}
	return f.data[i][row]
}

// Set writes a single cell. The column must exist.
func (f *Frame) Set(row int, column string, v Value) error {
	i, ok := f.index[column]
	if !ok {
		return fmt.Errorf("column %q not found", column)
	}
	if row < 0 || row >= f.length {
		return fmt.Errorf("row %d out of range (frame has %d rows)", row, f.length)
	}
	f.data[i][row] = Normalize(v)
	return nil
}

// AddColumn assigns a column. A []Value (or []float64, []string, []int)
// must match the row count unless the frame has no columns yet; any other
// value is broadcast to every row. Existing columns are overwritten in place.
func (f *Frame) AddColumn(name string, values any) error {
	seq, isSeq := asSequence(values)

	var col []Value
	switch {
	case isSeq && len(f.columns) == 0:
		f.length = len(seq)
		col = seq
	case isSeq:
		if len(seq) != f.length {
			return fmt.Errorf("column %q has %d values but frame has %d rows", name, len(seq), f.length)
		}
		col = seq
	default:
		col = make([]Value, f.length)
		v := Normalize(values)
		for i := range col {
			col[i] = v
		}
	}

	if i, ok := f.index[name]; ok {
		f.data[i] = col
		return nil
	}
	f.columns = append(f.columns, name)
	f.index[name] = len(f.columns) - 1
	f.data = append(f.data, col)
	return nil
}

func asSequence(values any) ([]Value, bool) {
	switch x := values.(type) {
	case []Value:
		out := make([]Value, len(x))
		for i, v := range x {
			out[i] = Normalize(v)
		}
		return out, true
	case []float64:
		out := make([]Value, len(x))
		for i, v := range x {
			out[i] = v
		}
		return out, true
	case []int:
		out := make([]Value, len(x))
		for i, v := range x {
			out[i] = float64(v)
		}
		return out, true
	case []string:
		out := make([]Value, len(x))
		for i, v := range x {
			out[i] = v
		}
		return out, true
	}
	return nil, false
}

// DropColumn removes a column if present.
func (f *Frame) DropColumn(name string) {
	i, ok := f.index[name]
	if !ok {
		return
	}
	f.columns = append(f.columns[:i], f.columns[i+1:]...)
	f.data = append(f.data[:i], f.data[i+1:]...)
	f.reindex()
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.columns))
	for i, c := range f.columns {
		f.index[c] = i
	}
}

// Row returns a map view of one row.
func (f *Frame) Row(i int) map[string]Value {
	row := make(map[string]Value, len(f.columns))
	for _, c := range f.columns {
		row[c] = f.At(i, c)
	}
	return row
}

// AppendRow adds a row. Columns absent from the map are Missing; keys that
// are not columns are ignored.
func (f *Frame) AppendRow(row map[string]Value) {
	for i, c := range f.columns {
		v, ok := row[c]
		if !ok {
			v = Missing
		}
		f.data[i] = append(f.data[i], Normalize(v))
	}
	f.length++
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	out := New(f.columns...)
	out.length = f.length
	for i := range f.data {
		out.data[i] = make([]Value, f.length)
		copy(out.data[i], f.data[i])
	}
	return out
}

// Select returns a frame holding only the named columns, in the given order.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	out := New()
	out.length = f.length
	for _, c := range columns {
		col, err := f.Column(c)
		if err != nil {
			return nil, err
		}
		out.columns = append(out.columns, c)
		out.index[c] = len(out.columns) - 1
		out.data = append(out.data, col)
	}
	return out, nil
}

// Rename renames columns according to names (old → new). Unknown keys are ignored.
func (f *Frame) Rename(names map[string]string) {
	for i, c := range f.columns {
		if n, ok := names[c]; ok {
			f.columns[i] = n
		}
	}
	f.reindex()
}

// Take returns a new frame with the rows at the given indices, in order.
func (f *Frame) Take(indices []int) *Frame {
	out := New(f.columns...)
	for ci := range f.columns {
		col := make([]Value, 0, len(indices))
		for _, r := range indices {
			col = append(col, f.data[ci][r])
		}
		out.data[ci] = col
	}
	out.length = len(indices)
	return out
}

// Filter returns the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	var indices []int
	for i := 0; i < f.length; i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	return f.Take(indices)
}

// Unique returns the distinct non-missing values of a column, sorted.
// Numbers sort before strings; numbers sort numerically, strings lexically.
func (f *Frame) Unique(column string) ([]Value, error) {
	col, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []Value
	for _, v := range col {
		if IsMissing(v) {
			continue
		}
		key := fmt.Sprintf("%T:%s", v, Text(v))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	SortValues(out)
	return out, nil
}

// SortValues sorts cells in place: numbers first (ascending), then text.
func SortValues(values []Value) {
	sort.SliceStable(values, func(i, j int) bool {
		fi, iNum := values[i].(float64)
		fj, jNum := values[j].(float64)
		switch {
		case iNum && jNum:
			return fi < fj
		case iNum != jNum:
			return iNum
		default:
			return Text(values[i]) < Text(values[j])
		}
	})
}

// String renders the frame as an aligned text table for debugging.
func (f *Frame) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(f.columns, "\t"))
	b.WriteString("\n")
	for i := 0; i < f.length; i++ {
		for j, c := range f.columns {
			if j > 0 {
				b.WriteString("\t")
			}
			b.WriteString(Text(f.At(i, c)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

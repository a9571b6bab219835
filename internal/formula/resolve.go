package formula

import (
	"fmt"
	"strings"

	"github.com/JnliaH/ChromaQuant/internal/dataset"
	"github.com/JnliaH/ChromaQuant/internal/errs"
)

// DefaultLength is the number of output rows when no referenced table
// determines one.
const DefaultLength = 5

// References looks up the current placement of data sets by identity.
type References interface {
	Table(id string) (dataset.TableReference, bool)
	Value(id string) (dataset.ValueReference, bool)
}

// RefMap is a References backed by maps.
type RefMap struct {
	Tables map[string]dataset.TableReference
	Values map[string]dataset.ValueReference
}

// NewRefMap returns an empty RefMap.
func NewRefMap() *RefMap {
	return &RefMap{
		Tables: make(map[string]dataset.TableReference),
		Values: make(map[string]dataset.ValueReference),
	}
}

func (m *RefMap) Table(id string) (dataset.TableReference, bool) {
	r, ok := m.Tables[id]
	return r, ok
}

func (m *RefMap) Value(id string) (dataset.ValueReference, bool) {
	r, ok := m.Values[id]
	return r, ok
}

// Resolve substitutes every insert with a concrete reference. A table
// column output yields one formula per row; a value output yields one.
func (f *Formula) Resolve(refs References) ([]string, error) {
	var (
		out []string
		err error
	)
	switch {
	case f.output.Table != "" && f.output.Key != "":
		out, err = f.resolveColumn(refs)
	case f.output.Key != "":
		var s string
		s, err = f.resolveValue(refs)
		out = []string{s}
	default:
		return nil, errs.Config("formula", "output pointer", nil, "must point to a table column or a value")
	}
	if err != nil {
		return nil, err
	}
	f.resolved = out
	return f.Resolved(), nil
}

func (f *Formula) resolveColumn(refs References) ([]string, error) {
	inserts := f.Inserts()

	hasColumn := false
	for _, in := range inserts {
		if in.PointsAtColumn() {
			hasColumn = true
		}
	}
	for _, in := range inserts {
		if !in.PointsAtColumn() && !in.PointsAtValue() {
			return nil, errs.Config("formula", "insert", in.text(),
				"mixes table and value pointers inconsistently — each insert needs a key, and a table with it for columns")
		}
	}

	n := 0
	if hasColumn {
		for _, in := range inserts {
			if !in.PointsAtColumn() {
				continue
			}
			col, err := columnRef(refs, in)
			if err != nil {
				return nil, err
			}
			n = max(n, col.Length)
		}
	}
	if n < 1 {
		n = DefaultLength
		if t, ok := refs.Table(f.output.Table); ok && t.Length > 0 {
			n = t.Length
		}
	}

	rows := make([]strings.Builder, n)
	for _, s := range f.segments {
		if s.Insert == nil {
			for i := range rows {
				rows[i].WriteString(s.Literal)
			}
			continue
		}

		in := *s.Insert
		if in.PointsAtValue() {
			v, err := valueRef(refs, in)
			if err != nil {
				return nil, err
			}
			for i := range rows {
				rows[i].WriteString(v.Qualified())
			}
			continue
		}

		col, err := columnRef(refs, in)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			if in.Range {
				rows[i].WriteString(col.Range)
			} else {
				rows[i].WriteString(col.Cell(i))
			}
		}
	}

	out := make([]string, n)
	for i := range rows {
		out[i] = rows[i].String()
	}
	return out, nil
}

func (f *Formula) resolveValue(refs References) (string, error) {
	var b strings.Builder
	for _, s := range f.segments {
		if s.Insert == nil {
			b.WriteString(s.Literal)
			continue
		}
		in := *s.Insert
		switch {
		case in.PointsAtColumn():
			col, err := columnRef(refs, in)
			if err != nil {
				return "", err
			}
			b.WriteString(col.Range)
		case in.PointsAtValue():
			v, err := valueRef(refs, in)
			if err != nil {
				return "", err
			}
			b.WriteString(v.Qualified())
		default:
			return "", errs.Config("formula", "insert", in.text(), "missing the key pointer")
		}
	}
	return b.String(), nil
}

func columnRef(refs References, in Insert) (dataset.ColumnReference, error) {
	t, ok := refs.Table(in.Table)
	if !ok {
		return dataset.ColumnReference{}, errs.Config("formula", "table", in.Table, "no table with this identity is registered")
	}
	col, ok := t.Column(in.Key)
	if !ok {
		return dataset.ColumnReference{}, errs.Config("formula", "column", in.Key,
			fmt.Sprintf("not found in table %s", in.Table))
	}
	return col, nil
}

func valueRef(refs References, in Insert) (dataset.ValueReference, error) {
	v, ok := refs.Value(in.Key)
	if !ok {
		return dataset.ValueReference{}, errs.Config("formula", "value", in.Key, "no value with this identity is registered")
	}
	return v, nil
}

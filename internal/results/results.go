// Package results owns the data sets of one analysis. It keeps their
// spreadsheet references current, resolves formulas against them and writes
// the report workbook.
package results

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/JnliaH/ChromaQuant/internal/dataset"
	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/formula"
)

// DefaultPath is where Report writes when no path is given.
const DefaultPath = "report.xlsx"

// Results is the registry and mediator for Tables, Values and Breakdowns.
type Results struct {
	mu         sync.Mutex
	tables     []*dataset.Table
	values     []*dataset.Value
	breakdowns []*dataset.Breakdown
	ids        map[dataset.ID]dataset.Kind
	formulas   []*formula.Formula
	refs       *formula.RefMap

	stale  atomic.Bool
	logger *zap.Logger
}

// New creates an empty Results.
func New(logger *zap.Logger) *Results {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Results{
		ids:    make(map[dataset.ID]dataset.Kind),
		refs:   formula.NewRefMap(),
		logger: logger,
	}
	r.stale.Store(true)
	return r
}

// Invalidate marks the reference map out of date. It is called by data
// sets whenever their placement or shape changes.
func (r *Results) Invalidate(id dataset.ID) {
	r.stale.Store(true)
}

// Stale reports whether a data set changed since the last reference update.
func (r *Results) Stale() bool { return r.stale.Load() }

func (r *Results) register(ds dataset.DataSet) error {
	if ds == nil {
		return errs.Config("results", "data set", nil, "must not be nil")
	}
	if k, ok := r.ids[ds.ID()]; ok {
		return errs.Config("results", "data set id", ds.ID(),
			fmt.Sprintf("already registered as a %s", k))
	}
	r.ids[ds.ID()] = ds.Kind()
	ds.SetMediator(r)
	r.stale.Store(true)
	return nil
}

// AddTable registers a Table.
func (r *Results) AddTable(t *dataset.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == nil {
		return errs.Config("results", "table", nil, "must not be nil")
	}
	if err := r.register(t); err != nil {
		return err
	}
	r.tables = append(r.tables, t)
	return nil
}

// AddValue registers a Value.
func (r *Results) AddValue(v *dataset.Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v == nil {
		return errs.Config("results", "value", nil, "must not be nil")
	}
	if err := r.register(v); err != nil {
		return err
	}
	r.values = append(r.values, v)
	return nil
}

// AddBreakdown registers a Breakdown. It is rebuilt whenever its source
// table changes before references are read.
func (r *Results) AddBreakdown(b *dataset.Breakdown) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b == nil {
		return errs.Config("results", "breakdown", nil, "must not be nil")
	}
	if err := r.register(b); err != nil {
		return err
	}
	r.breakdowns = append(r.breakdowns, b)
	return nil
}

// Table looks up a registered Table.
func (r *Results) Table(id dataset.ID) (*dataset.Table, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table(id)
}

func (r *Results) table(id dataset.ID) (*dataset.Table, bool) {
	for _, t := range r.tables {
		if t.ID() == id {
			return t, true
		}
	}
	return nil, false
}

// Value looks up a registered Value.
func (r *Results) Value(id dataset.ID) (*dataset.Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value(id)
}

func (r *Results) value(id dataset.ID) (*dataset.Value, bool) {
	for _, v := range r.values {
		if v.ID() == id {
			return v, true
		}
	}
	return nil, false
}

// Breakdown looks up a registered Breakdown.
func (r *Results) Breakdown(id dataset.ID) (*dataset.Breakdown, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.breakdowns {
		if b.ID() == id {
			return b, true
		}
	}
	return nil, false
}

// Tables returns the registered tables in insertion order.
func (r *Results) Tables() []*dataset.Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*dataset.Table(nil), r.tables...)
}

// Values returns the registered values in insertion order.
func (r *Results) Values() []*dataset.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*dataset.Value(nil), r.values...)
}

// Breakdowns returns the registered breakdowns in insertion order.
func (r *Results) Breakdowns() []*dataset.Breakdown {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*dataset.Breakdown(nil), r.breakdowns...)
}

// UpdateReferences rebuilds stale breakdowns and returns the current
// reference map keyed by data set identity.
func (r *Results) UpdateReferences() *formula.RefMap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.update()
}

func (r *Results) update() *formula.RefMap {
	for _, b := range r.breakdowns {
		if !b.Stale() {
			continue
		}
		if err := b.Rebuild(); err != nil {
			r.logger.Warn("Could not rebuild breakdown",
				zap.String("breakdown", b.ID().String()), zap.Error(err))
		}
	}
	if !r.stale.Swap(false) {
		return r.refs
	}

	refs := formula.NewRefMap()
	for _, t := range r.tables {
		refs.Tables[t.ID().String()] = t.Reference()
	}
	for _, v := range r.values {
		refs.Values[v.ID().String()] = v.Reference()
	}
	r.refs = refs
	r.logger.Debug("Updated references",
		zap.Int("tables", len(refs.Tables)),
		zap.Int("values", len(refs.Values)))
	return refs
}

// AddFormula resolves f against the current references and writes the
// result to its output: a table column, created if absent, or a value.
func (r *Results) AddFormula(f *formula.Formula) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f == nil {
		return errs.Config("results", "formula", nil, "must not be nil")
	}
	resolved, err := f.Resolve(r.update())
	if err != nil {
		return err
	}

	out := f.Output()
	if out.Table != "" {
		id, err := dataset.ParseID(out.Table)
		if err != nil {
			return err
		}
		t, ok := r.table(id)
		if !ok {
			return errs.Config("results", "output table", out.Table, "no table with this identity is registered")
		}
		if err := t.AddColumn(out.Key, resolved); err != nil {
			return err
		}
	} else {
		id, err := dataset.ParseID(out.Key)
		if err != nil {
			return err
		}
		v, ok := r.value(id)
		if !ok {
			return errs.Config("results", "output value", out.Key, "no value with this identity is registered")
		}
		v.SetData(resolved[0])
	}

	r.formulas = append(r.formulas, f)
	r.logger.Debug("Added formula",
		zap.String("template", f.String()),
		zap.Int("cells", len(resolved)))
	return nil
}

// Formulas returns the formulas added so far.
func (r *Results) Formulas() []*formula.Formula {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*formula.Formula(nil), r.formulas...)
}

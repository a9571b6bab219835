package dataset

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/frame"
)

// Aggregate is a spreadsheet conditional aggregate function.
type Aggregate string

const (
	SumIfs     Aggregate = "SUMIFS"
	CountIfs   Aggregate = "COUNTIFS"
	AverageIfs Aggregate = "AVERAGEIFS"
	MinIfs     Aggregate = "MINIFS"
	MaxIfs     Aggregate = "MAXIFS"
)

// ParseAggregate accepts an aggregate name in any case.
func ParseAggregate(s string) (Aggregate, error) {
	a := Aggregate(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case "":
		return SumIfs, nil
	case SumIfs, CountIfs, AverageIfs, MinIfs, MaxIfs:
		return a, nil
	}
	return "", errs.Config("breakdown", "conditional aggregate", s,
		"use one of: SUMIFS, COUNTIFS, AVERAGEIFS, MINIFS, MAXIFS")
}

// invocation is the cached Create1D/Create2D call replayed by Rebuild.
type invocation struct {
	table     *Table
	dims      int
	groupBy   [2]string
	summarize string
	groups1   []frame.Value
	groups2   map[string][]frame.Value

	tableRevision uint64
	ownRevision   uint64
}

// Breakdown conditionally aggregates a Table column by group. The result
// holds formula strings that reference the source table's live ranges.
type Breakdown struct {
	Base
	aggregate Aggregate
	data      *frame.Frame
	cells     []Placed
	last      *invocation
}

// NewBreakdown creates an empty Breakdown using aggregate ("" means SUMIFS).
func NewBreakdown(aggregate string, opts ...Option) (*Breakdown, error) {
	a, err := ParseAggregate(aggregate)
	if err != nil {
		return nil, err
	}
	b := &Breakdown{aggregate: a, data: frame.New()}
	if err := b.Base.init(KindBreakdown, opts); err != nil {
		return nil, err
	}
	return b, nil
}

// Aggregate returns the aggregate function.
func (b *Breakdown) Aggregate() Aggregate { return b.aggregate }

// Data returns a copy of the formula grid.
func (b *Breakdown) Data() *frame.Frame { return b.data.Copy() }

// Dims returns 1 or 2 once created, else 0.
func (b *Breakdown) Dims() int {
	if b.last == nil {
		return 0
	}
	return b.last.dims
}

// Source returns the table the breakdown was built from.
func (b *Breakdown) Source() *Table {
	if b.last == nil {
		return nil
	}
	return b.last.table
}

// Create1D builds one formula per group of groupBy. Group headers go in
// the first block row, one column per group, with formulas below them.
// groups overrides the distinct values found in the table.
func (b *Breakdown) Create1D(t *Table, groupBy, summarize string, groups []frame.Value) error {
	inv := &invocation{table: t, dims: 1, groupBy: [2]string{groupBy}, summarize: summarize, groups1: groups}
	return b.build(inv)
}

// Create2D builds a grid keyed by two group columns: groups of groupBy1
// across the top, groups of groupBy2 down the first column, and the name of
// groupBy2 in the corner. groups may override either column's groups and
// must only be keyed by groupBy1 or groupBy2.
func (b *Breakdown) Create2D(t *Table, groupBy1, groupBy2, summarize string, groups map[string][]frame.Value) error {
	if len(groups) > 2 {
		return errs.Config("breakdown", "explicit groups", keys(groups), "at most two group-by columns can be overridden")
	}
	for k := range groups {
		if k != groupBy1 && k != groupBy2 {
			return errs.Config("breakdown", "explicit groups key", k,
				fmt.Sprintf("must be one of the group-by columns %q, %q", groupBy1, groupBy2))
		}
	}
	inv := &invocation{table: t, dims: 2, groupBy: [2]string{groupBy1, groupBy2}, summarize: summarize, groups2: groups}
	return b.build(inv)
}

// Stale reports whether the source table or this breakdown's placement
// changed since the last build.
func (b *Breakdown) Stale() bool {
	if b.last == nil {
		return false
	}
	return b.last.table.Revision() != b.last.tableRevision || b.revision != b.last.ownRevision
}

// Rebuild replays the last Create1D/Create2D call against the current
// source table layout.
func (b *Breakdown) Rebuild() error {
	if b.last == nil {
		return errs.Config("breakdown", "", nil, "nothing to rebuild — call Create1D or Create2D first")
	}
	inv := *b.last
	return b.build(&inv)
}

func (b *Breakdown) build(inv *invocation) error {
	t := inv.table
	if t == nil {
		return errs.Config("breakdown", "table", nil, "a source table is required")
	}
	if b.aggregate != CountIfs && inv.summarize == "" {
		return errs.Config("breakdown", "summarize column", nil,
			fmt.Sprintf("required for %s — only COUNTIFS can omit it", b.aggregate))
	}
	ref := t.Reference()
	need := []string{inv.groupBy[0]}
	if inv.dims == 2 {
		need = append(need, inv.groupBy[1])
	}
	if b.aggregate != CountIfs {
		need = append(need, inv.summarize)
	}
	for _, c := range need {
		if _, ok := ref.Column(c); !ok {
			return errs.Config("breakdown", "column", c,
				fmt.Sprintf("column not found in source table — available columns: %v", t.Columns()))
		}
	}

	var err error
	if inv.dims == 1 {
		err = b.layout1D(inv, ref)
	} else {
		err = b.layout2D(inv, ref)
	}
	if err != nil {
		return err
	}

	b.touch()
	inv.tableRevision = t.Revision()
	inv.ownRevision = b.revision
	b.last = inv
	return nil
}

// groupsOf returns the groups for column, explicit ones when given. Groups
// that render to the same header text, such as 1 and "1", are one group;
// the first occurrence is kept.
func (b *Breakdown) groupsOf(t *Table, column string, explicit []frame.Value) ([]frame.Value, error) {
	values := explicit
	if values == nil {
		var err error
		if values, err = t.data.Unique(column); err != nil {
			return nil, err
		}
	}
	seen := make(map[string]bool, len(values))
	out := make([]frame.Value, 0, len(values))
	for _, g := range values {
		g = frame.Normalize(g)
		if seen[frame.Text(g)] {
			continue
		}
		seen[frame.Text(g)] = true
		out = append(out, g)
	}
	return out, nil
}

func (b *Breakdown) layout1D(inv *invocation, ref TableReference) error {
	groups, err := b.groupsOf(inv.table, inv.groupBy[0], inv.groups1)
	if err != nil {
		return err
	}
	groupRef, _ := ref.Column(inv.groupBy[0])
	sumRef, _ := ref.Column(inv.summarize)

	top := b.anchor.Offset(0, b.titleRows())
	data := frame.New()
	cells := b.titleCell(len(groups))
	for i, g := range groups {
		header := top.Offset(i, 0)
		f := b.formula(sumRef.Range, [][2]string{{groupRef.Range, header.Absolute()}})
		if err := data.AddColumn(frame.Text(g), []frame.Value{f}); err != nil {
			return err
		}
		cells = append(cells,
			Placed{At: header, Value: g},
			Placed{At: header.Offset(0, 1), Value: f, Formula: true})
	}
	b.data = data
	b.cells = cells
	return nil
}

func (b *Breakdown) layout2D(inv *invocation, ref TableReference) error {
	cols, err := b.groupsOf(inv.table, inv.groupBy[0], inv.groups2[inv.groupBy[0]])
	if err != nil {
		return err
	}
	rows, err := b.groupsOf(inv.table, inv.groupBy[1], inv.groups2[inv.groupBy[1]])
	if err != nil {
		return err
	}
	for _, c := range cols {
		if frame.Text(c) == inv.groupBy[1] {
			return errs.Config("breakdown", "group", c,
				fmt.Sprintf("a %s group has the same header as the row column %q", inv.groupBy[0], inv.groupBy[1]))
		}
	}
	ref1, _ := ref.Column(inv.groupBy[0])
	ref2, _ := ref.Column(inv.groupBy[1])
	sumRef, _ := ref.Column(inv.summarize)

	corner := b.anchor.Offset(0, b.titleRows())
	data := frame.New()
	if err := data.AddColumn(inv.groupBy[1], rows); err != nil {
		return err
	}
	cells := b.titleCell(len(cols) + 1)
	cells = append(cells, Placed{At: corner, Value: inv.groupBy[1]})
	for j, r := range rows {
		cells = append(cells, Placed{At: corner.Offset(0, j+1), Value: r})
	}
	for i, c := range cols {
		colHeader := corner.Offset(i+1, 0)
		cells = append(cells, Placed{At: colHeader, Value: c})
		formulas := make([]frame.Value, len(rows))
		for j := range rows {
			rowHeader := corner.Offset(0, j+1)
			f := b.formula(sumRef.Range, [][2]string{
				{ref1.Range, colHeader.Absolute()},
				{ref2.Range, rowHeader.Absolute()},
			})
			formulas[j] = f
			cells = append(cells, Placed{At: corner.Offset(i+1, j+1), Value: f, Formula: true})
		}
		if err := data.AddColumn(frame.Text(c), formulas); err != nil {
			return err
		}
	}
	b.data = data
	b.cells = cells
	return nil
}

func (b *Breakdown) titleCell(width int) []Placed {
	if !b.HasHeader() {
		return nil
	}
	return []Placed{{At: b.anchor, Value: b.header, Span: max(width, 1)}}
}

// formula renders =AGG(sumRange, range1, crit1, ...). COUNTIFS has no sum range.
func (b *Breakdown) formula(sumRange string, criteria [][2]string) string {
	var parts []string
	if b.aggregate != CountIfs {
		parts = append(parts, sumRange)
	}
	for _, c := range criteria {
		parts = append(parts, c[0], c[1])
	}
	return fmt.Sprintf("=%s(%s)", b.aggregate, strings.Join(parts, ", "))
}

// Cells lays out the title, group headers and formulas, rebuilding first
// when the source table or placement has changed.
func (b *Breakdown) Cells() []Placed {
	if b.Stale() {
		if err := b.Rebuild(); err != nil {
			b.logger.Warn("Could not rebuild breakdown", zap.String("breakdown", b.id.String()), zap.Error(err))
		}
	}
	out := make([]Placed, len(b.cells))
	copy(out, b.cells)
	return out
}

// SetAggregate changes the aggregate function and rebuilds if created.
func (b *Breakdown) SetAggregate(aggregate string) error {
	a, err := ParseAggregate(aggregate)
	if err != nil {
		return err
	}
	b.aggregate = a
	if b.last != nil {
		return b.Rebuild()
	}
	return nil
}

func keys(m map[string][]frame.Value) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

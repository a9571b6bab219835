package dataset

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JnliaH/ChromaQuant/internal/categories"
	"github.com/JnliaH/ChromaQuant/internal/cell"
	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/frame"
	"github.com/JnliaH/ChromaQuant/internal/match"
)

type countingMediator struct {
	ids []ID
}

func (m *countingMediator) Invalidate(id ID) { m.ids = append(m.ids, id) }

func abFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f := frame.New()
	require.NoError(t, f.AddColumn("A", []int{1, 2, 3}))
	require.NoError(t, f.AddColumn("B", []int{4, 5, 6}))
	return f
}

func TestDefaults(t *testing.T) {
	v, err := NewValue(1)
	require.NoError(t, err)
	assert.Equal(t, DefaultSheet, v.Sheet())
	assert.Equal(t, DefaultAnchor, v.AnchorCell())
	assert.NotEqual(t, uuid.Nil, v.ID())
	assert.Equal(t, KindValue, v.Kind())
}

func TestInvalidPlacement(t *testing.T) {
	_, err := NewTable(nil, WithAnchor("not a cell"))
	assert.True(t, errs.IsConfig(err))

	_, err = NewValue(1, WithSheet(""))
	assert.True(t, errs.IsConfig(err))

	_, err = NewValue(1, WithID(uuid.Nil))
	assert.True(t, errs.IsConfig(err))

	_, err = ParseID("nope")
	assert.True(t, errs.IsConfig(err))
}

func TestValueReference(t *testing.T) {
	v, err := NewValue(20, WithSheet("S"), WithAnchor("B2"))
	require.NoError(t, err)

	ref := v.Reference()
	assert.Equal(t, "$B$2", ref.DataCell)
	assert.Equal(t, "", ref.NameCell)
	assert.Equal(t, "'S'!$B$2", ref.Qualified())

	v.SetHeader("V")
	ref = v.Reference()
	assert.Equal(t, "$B$2", ref.NameCell)
	assert.Equal(t, "$B$3", ref.DataCell)
	assert.Equal(t, "B", ref.ColumnLetter)
	assert.Equal(t, 3, ref.Row)

	require.NoError(t, v.SetSheet("Other"))
	assert.Equal(t, "'Other'!$B$3", v.Reference().Qualified())

	require.NoError(t, v.SetAnchor("$d$7"))
	assert.Equal(t, "$D$8", v.Reference().DataCell)

	v.SetHeader("")
	assert.Equal(t, "$D$7", v.Reference().DataCell)
}

func TestValueCells(t *testing.T) {
	v, err := NewValue("=1+1", WithAnchor("C3"), WithHeader("Total"))
	require.NoError(t, err)

	cells := v.Cells()
	require.Len(t, cells, 2)
	assert.Equal(t, Placed{At: cell.Coord{Col: 3, Row: 3}, Value: "Total"}, cells[0])
	assert.Equal(t, Placed{At: cell.Coord{Col: 3, Row: 4}, Value: "=1+1", Formula: true}, cells[1])
	assert.Equal(t, "|key: "+v.ID().String()+"|", v.Insert())
}

func TestTableReference(t *testing.T) {
	tbl, err := NewTable(abFrame(t), WithSheet("S"), WithAnchor("B4"))
	require.NoError(t, err)

	ref := tbl.Reference()
	assert.Equal(t, 3, ref.Length)
	a, ok := ref.Column("A")
	require.True(t, ok)
	assert.Equal(t, "B", a.ColumnLetter)
	assert.Equal(t, 5, a.StartRow)
	assert.Equal(t, 7, a.EndRow)
	assert.Equal(t, "'S'!$B$5:$B$7", a.Range)

	b, _ := ref.Column("B")
	assert.Equal(t, "'S'!$C$5:$C$7", b.Range)
	assert.Equal(t, "'S'!$C$6", b.Cell(1))

	_, ok = ref.Column("Z")
	assert.False(t, ok)
}

func TestTableReferenceStaysFresh(t *testing.T) {
	tbl, err := NewTable(abFrame(t), WithSheet("S"), WithAnchor("B4"))
	require.NoError(t, err)
	_ = tbl.Reference()

	tbl.SetHeader("Peaks")
	b, _ := tbl.Reference().Column("B")
	assert.Equal(t, "'S'!$C$6:$C$8", b.Range, "header shifts the data down one row")

	require.NoError(t, tbl.SetSheet("New Sheet"))
	b, _ = tbl.Reference().Column("B")
	assert.Equal(t, "'New Sheet'!$C$6:$C$8", b.Range)

	require.NoError(t, tbl.SetAnchor("A1"))
	b, _ = tbl.Reference().Column("B")
	assert.Equal(t, "'New Sheet'!$B$3:$B$5", b.Range)

	require.NoError(t, tbl.AddColumn("C", []int{7, 8, 9}))
	c, ok := tbl.Reference().Column("C")
	require.True(t, ok)
	assert.Equal(t, "C", c.ColumnLetter)

	f := frame.New()
	require.NoError(t, f.AddColumn("B", []int{1}))
	tbl.SetData(f)
	ref := tbl.Reference()
	assert.Len(t, ref.Columns, 1)
	assert.Equal(t, "'New Sheet'!$A$3:$A$3", ref.Columns[0].Range)
}

func TestEmptyTableRangeIsSingleRow(t *testing.T) {
	tbl, err := NewTable(frame.New("RT", "Area"), WithAnchor("C2"))
	require.NoError(t, err)
	area, _ := tbl.Reference().Column("Area")
	assert.Equal(t, 0, area.Length)
	assert.Equal(t, "'Sheet1'!$D$3:$D$3", area.Range)
}

func TestMediatorNotified(t *testing.T) {
	tbl, err := NewTable(abFrame(t))
	require.NoError(t, err)
	m := &countingMediator{}
	tbl.SetMediator(m)

	before := tbl.Revision()
	require.NoError(t, tbl.SetSheet("S"))
	require.NoError(t, tbl.SetAnchor("B2"))
	tbl.SetHeader("H")
	require.NoError(t, tbl.AddColumn("C", 0))

	assert.Len(t, m.ids, 4)
	assert.Equal(t, tbl.ID(), m.ids[0])
	assert.Equal(t, before+4, tbl.Revision())
}

func TestAddColumnLengthMismatch(t *testing.T) {
	tbl, err := NewTable(abFrame(t))
	require.NoError(t, err)
	err = tbl.AddColumn("C", []int{1})
	assert.True(t, errs.IsConfig(err))
	assert.False(t, tbl.HasColumn("C"))
}

func TestDerivedColumns(t *testing.T) {
	f := frame.New()
	require.NoError(t, f.AddColumn("Formula", []frame.Value{"C7H16", "C8H18", "???", nil}))
	require.NoError(t, f.AddColumn("Compound Name", []string{"Heptane", "Octane", "Unknown", "1-Octene"}))
	tbl, err := NewTable(f)
	require.NoError(t, err)

	require.NoError(t, tbl.AddElementCountColumn("Formula", "C", "Carbon Number"))
	col, err := tbl.Data().Column("Carbon Number")
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{7.0, 8.0, 0.0, 0.0}, col)

	require.NoError(t, tbl.AddMolecularWeightColumn("Formula", "MW"))
	assert.InDelta(t, 100.2, tbl.At(0, "MW"), 0.01)
	assert.Equal(t, 0.0, tbl.At(2, "MW"))

	cats := categories.New()
	cats.Mode = categories.IsIn
	cats.Set("Olefins", "ene")
	cats.Set("Paraffins", "ane")
	require.NoError(t, tbl.AddCategoryColumn("Compound Name", cats, "Class"))
	assert.Equal(t, "Paraffins", tbl.At(0, "Class"))
	assert.Equal(t, "", tbl.At(2, "Class"))
	assert.Equal(t, "Olefins", tbl.At(3, "Class"))

	require.NoError(t, tbl.AddDerivedColumn("Double RT", func(args ...frame.Value) frame.Value {
		n, ok := frame.Float(args[0])
		if !ok {
			return frame.Missing
		}
		return n * 2
	}, "Carbon Number"))
	assert.Equal(t, 14.0, tbl.At(0, "Double RT"))

	err = tbl.AddDerivedColumn("X", func(args ...frame.Value) frame.Value { return 0 }, "Nope")
	assert.True(t, errs.IsConfig(err))
}

func TestImportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fid.csv")
	require.NoError(t, abFrame(t).WriteCSV(path))

	tbl, err := NewTable(nil)
	require.NoError(t, err)
	require.NoError(t, tbl.ImportCSV(path))
	assert.Equal(t, 3, tbl.Reference().Length)

	err = tbl.ImportCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestMatchReturnsNewTable(t *testing.T) {
	primary := frame.New()
	require.NoError(t, primary.AddColumn("RT", []float64{1.0, 2.0}))
	secondary := frame.New()
	require.NoError(t, secondary.AddColumn("RT", []float64{1.01, 5.0}))
	require.NoError(t, secondary.AddColumn("Compound Name", []string{"Heptane", "Decane"}))

	tbl, err := NewTable(primary, WithSheet("FID"))
	require.NoError(t, err)

	cfg := match.NewConfig()
	require.NoError(t, cfg.AddColumnCondition(match.Equal, "RT", 0.05, false))

	out, report, err := tbl.Match(secondary, cfg, WithSheet("Matched"))
	require.NoError(t, err)
	assert.NotEqual(t, tbl.ID(), out.ID())
	assert.Equal(t, "Matched", out.Sheet())
	assert.Equal(t, "Heptane", out.At(0, "Compound Name"))
	assert.True(t, frame.IsMissing(out.At(1, "Compound Name")))
	assert.Equal(t, 1, report.Matched)
	assert.False(t, tbl.HasColumn("Compound Name"), "source table unchanged")

	cfg.HitsRule = match.HighestValue
	cfg.HitsColumn = "Nope"
	_, _, err = tbl.Match(secondary, cfg)
	assert.True(t, errs.IsConfig(err))
}

func TestTableInsertAndCells(t *testing.T) {
	tbl, err := NewTable(abFrame(t), WithAnchor("B2"), WithHeader("Peaks"))
	require.NoError(t, err)

	in, err := tbl.Insert("A", true)
	require.NoError(t, err)
	assert.Equal(t, "|table: "+tbl.ID().String()+", key: A, range: true|", in)
	in, err = tbl.Insert("B", false)
	require.NoError(t, err)
	assert.Equal(t, "|table: "+tbl.ID().String()+", key: B|", in)

	for _, name := range []string{"Area, corrected", "RT:min", "a|b", " A", ""} {
		_, err := tbl.Insert(name, false)
		assert.True(t, errs.IsConfig(err), "%q", name)
	}

	cells := tbl.Cells()
	assert.Equal(t, Placed{At: cell.Coord{Col: 2, Row: 2}, Value: "Peaks", Span: 2}, cells[0])
	assert.Equal(t, Placed{At: cell.Coord{Col: 2, Row: 3}, Value: "A"}, cells[1])
	assert.Equal(t, Placed{At: cell.Coord{Col: 2, Row: 4}, Value: 1.0}, cells[2])
	assert.Len(t, cells, 1+2*4)
}

func breakdownSource(t *testing.T) *Table {
	t.Helper()
	f := frame.New()
	require.NoError(t, f.AddColumn("Carbon", []int{7, 8, 7}))
	require.NoError(t, f.AddColumn("Phase", []string{"gas", "liquid", "gas"}))
	require.NoError(t, f.AddColumn("Area", []int{10, 20, 30}))
	tbl, err := NewTable(f, WithSheet("S"))
	require.NoError(t, err)
	return tbl
}

func TestNewBreakdownAggregate(t *testing.T) {
	b, err := NewBreakdown("")
	require.NoError(t, err)
	assert.Equal(t, SumIfs, b.Aggregate())

	b, err = NewBreakdown("averageifs")
	require.NoError(t, err)
	assert.Equal(t, AverageIfs, b.Aggregate())

	_, err = NewBreakdown("MEDIANIFS")
	assert.True(t, errs.IsConfig(err))
}

func TestBreakdown1D(t *testing.T) {
	src := breakdownSource(t)
	b, err := NewBreakdown("SUMIFS", WithSheet("B"), WithAnchor("B2"))
	require.NoError(t, err)
	require.NoError(t, b.Create1D(src, "Carbon", "Area", nil))

	data := b.Data()
	assert.Equal(t, []string{"7", "8"}, data.Columns())
	assert.Equal(t, "=SUMIFS('S'!$C$2:$C$4, 'S'!$A$2:$A$4, $B$2)", data.At(0, "7"))
	assert.Equal(t, "=SUMIFS('S'!$C$2:$C$4, 'S'!$A$2:$A$4, $C$2)", data.At(0, "8"))

	cells := b.Cells()
	assert.Contains(t, cells, Placed{At: cell.Coord{Col: 2, Row: 2}, Value: 7.0})
	assert.Contains(t, cells, Placed{At: cell.Coord{Col: 3, Row: 3}, Value: "=SUMIFS('S'!$C$2:$C$4, 'S'!$A$2:$A$4, $C$2)", Formula: true})
	assert.Equal(t, 1, b.Dims())
	assert.Same(t, src, b.Source())
}

func TestBreakdown1DCountAndExplicitGroups(t *testing.T) {
	src := breakdownSource(t)
	b, err := NewBreakdown("COUNTIFS", WithAnchor("A1"), WithHeader("Counts"))
	require.NoError(t, err)
	require.NoError(t, b.Create1D(src, "Phase", "", []frame.Value{"liquid"}))

	assert.Equal(t, "=COUNTIFS('S'!$B$2:$B$4, $A$2)", b.Data().At(0, "liquid"))
	cells := b.Cells()
	assert.Equal(t, Placed{At: cell.Coord{Col: 1, Row: 1}, Value: "Counts", Span: 1}, cells[0])
}

func TestBreakdownRequiresSummarize(t *testing.T) {
	b, err := NewBreakdown("MAXIFS")
	require.NoError(t, err)
	err = b.Create1D(breakdownSource(t), "Carbon", "", nil)
	assert.True(t, errs.IsConfig(err))
	assert.Equal(t, 0, b.Data().Len(), "no formulas emitted")

	err = b.Create1D(breakdownSource(t), "Nope", "Area", nil)
	assert.True(t, errs.IsConfig(err))

	err = b.Rebuild()
	assert.True(t, errs.IsConfig(err))
}

func TestBreakdown2D(t *testing.T) {
	src := breakdownSource(t)
	b, err := NewBreakdown("SUMIFS", WithAnchor("A1"))
	require.NoError(t, err)
	require.NoError(t, b.Create2D(src, "Carbon", "Phase", "Area", nil))

	data := b.Data()
	assert.Equal(t, []string{"Phase", "7", "8"}, data.Columns())
	assert.Equal(t, "gas", data.At(0, "Phase"))
	assert.Equal(t, "=SUMIFS('S'!$C$2:$C$4, 'S'!$A$2:$A$4, $B$1, 'S'!$B$2:$B$4, $A$2)", data.At(0, "7"))
	assert.Equal(t, "=SUMIFS('S'!$C$2:$C$4, 'S'!$A$2:$A$4, $C$1, 'S'!$B$2:$B$4, $A$3)", data.At(1, "8"))

	cells := b.Cells()
	assert.Contains(t, cells, Placed{At: cell.Coord{Col: 1, Row: 1}, Value: "Phase"})
	assert.Contains(t, cells, Placed{At: cell.Coord{Col: 1, Row: 3}, Value: "liquid"})
	assert.Contains(t, cells, Placed{At: cell.Coord{Col: 3, Row: 1}, Value: 8.0})
}

func TestBreakdown2DExplicitGroups(t *testing.T) {
	src := breakdownSource(t)
	b, err := NewBreakdown("SUMIFS")
	require.NoError(t, err)

	require.NoError(t, b.Create2D(src, "Carbon", "Phase", "Area", map[string][]frame.Value{"Phase": {"liquid"}}))
	assert.Equal(t, 1, b.Data().Len())

	err = b.Create2D(src, "Carbon", "Phase", "Area", map[string][]frame.Value{"Area": {1}})
	assert.True(t, errs.IsConfig(err))

	err = b.Create2D(src, "Carbon", "Phase", "Area", map[string][]frame.Value{"Carbon": nil, "Phase": nil, "Area": nil})
	assert.True(t, errs.IsConfig(err))
}

func TestBreakdownDuplicateGroupsCollapse(t *testing.T) {
	src := breakdownSource(t)
	b, err := NewBreakdown("SUMIFS", WithAnchor("A1"))
	require.NoError(t, err)

	require.NoError(t, b.Create1D(src, "Carbon", "Area", []frame.Value{1.0, "1", 2.0}))
	data := b.Data()
	assert.Equal(t, []string{"1", "2"}, data.Columns())
	assert.Equal(t, "=SUMIFS('S'!$C$2:$C$4, 'S'!$A$2:$A$4, $B$1)", data.At(0, "2"))
	formulas := 0
	for _, c := range b.Cells() {
		if c.Formula {
			formulas++
		}
	}
	assert.Equal(t, len(data.Columns()), formulas, "one formula per header")

	require.NoError(t, b.Create2D(src, "Carbon", "Phase", "Area", map[string][]frame.Value{
		"Carbon": {"A", "A"},
		"Phase":  {"gas", "gas", "liquid"},
	}))
	data = b.Data()
	assert.Equal(t, []string{"Phase", "A"}, data.Columns())
	assert.Equal(t, 2, data.Len())

	err = b.Create2D(src, "Carbon", "Phase", "Area", map[string][]frame.Value{"Carbon": {"Phase"}})
	assert.True(t, errs.IsConfig(err), "a group header may not shadow the row column")
}

func TestBreakdownRebuildsWhenSourceMoves(t *testing.T) {
	src := breakdownSource(t)
	b, err := NewBreakdown("SUMIFS", WithAnchor("B2"))
	require.NoError(t, err)
	require.NoError(t, b.Create1D(src, "Carbon", "Area", nil))
	assert.False(t, b.Stale())

	require.NoError(t, src.SetAnchor("A10"))
	assert.True(t, b.Stale())

	_ = b.Cells()
	assert.False(t, b.Stale())
	assert.Equal(t, "=SUMIFS('S'!$C$11:$C$13, 'S'!$A$11:$A$13, $B$2)", b.Data().At(0, "7"))

	require.NoError(t, b.SetAnchor("D5"))
	assert.True(t, b.Stale())
	require.NoError(t, b.Rebuild())
	assert.Equal(t, "=SUMIFS('S'!$C$11:$C$13, 'S'!$A$11:$A$13, $D$5)", b.Data().At(0, "7"))

	require.NoError(t, b.SetAggregate("MINIFS"))
	assert.Equal(t, "=MINIFS('S'!$C$11:$C$13, 'S'!$A$11:$A$13, $D$5)", b.Data().At(0, "7"))

	src.DropColumn("Area")
	err = b.Rebuild()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConfig))
}

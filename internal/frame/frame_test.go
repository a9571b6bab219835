package frame

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddColumnBroadcastAndSequence(t *testing.T) {
	f := New()
	require.NoError(t, f.AddColumn("A", []int{1, 2, 3}))
	require.NoError(t, f.AddColumn("B", 4.5))

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"A", "B"}, f.Columns())
	assert.Equal(t, 2.0, f.At(1, "A"))
	assert.Equal(t, 4.5, f.At(2, "B"))

	err := f.AddColumn("C", []string{"x"})
	assert.Error(t, err, "length mismatch should fail")
}

func TestAddColumnOverwritesInPlace(t *testing.T) {
	f := New()
	require.NoError(t, f.AddColumn("A", []int{1, 2}))
	require.NoError(t, f.AddColumn("B", []int{3, 4}))
	require.NoError(t, f.AddColumn("A", []string{"x", "y"}))

	assert.Equal(t, []string{"A", "B"}, f.Columns())
	assert.Equal(t, "y", f.At(1, "A"))
}

func TestMissingNormalization(t *testing.T) {
	f := New()
	require.NoError(t, f.AddColumn("A", []Value{1, nil, "x"}))

	assert.True(t, IsMissing(f.At(1, "A")))
	assert.True(t, IsMissing(f.At(5, "A")), "out of range reads are Missing")
	assert.True(t, IsMissing(f.At(0, "nope")))
	assert.Equal(t, "", Text(Missing))
}

func TestFloat(t *testing.T) {
	v, ok := Float(" 2.5 ")
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)

	_, ok = Float("C7H16")
	assert.False(t, ok)

	_, ok = Float(Missing)
	assert.False(t, ok)
}

func TestFloatRejectsNonFinite(t *testing.T) {
	for _, v := range []Value{"inf", "-Inf", "NaN", math.Inf(1), math.Inf(-1), math.NaN()} {
		_, ok := Float(v)
		assert.False(t, ok, "%v", v)
	}
	assert.Equal(t, "inf", ParseCell("inf"))
	assert.Equal(t, 1.5, ParseCell("1.5"))
}

func TestUniqueSortedNoMissing(t *testing.T) {
	f := New()
	require.NoError(t, f.AddColumn("G", []Value{"B", "A", nil, "B", "A"}))

	groups, err := f.Unique("G")
	require.NoError(t, err)
	assert.Equal(t, []Value{"A", "B"}, groups)

	_, err = f.Unique("missing")
	assert.Error(t, err)
}

func TestSelectRenameTake(t *testing.T) {
	f := New()
	require.NoError(t, f.AddColumn("A", []int{1, 2, 3}))
	require.NoError(t, f.AddColumn("B", []int{4, 5, 6}))

	s, err := f.Select("B")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, s.Columns())

	f.Rename(map[string]string{"A": "First"})
	assert.True(t, f.HasColumn("First"))
	assert.False(t, f.HasColumn("A"))

	taken := f.Take([]int{2, 0})
	assert.Equal(t, 3.0, taken.At(0, "First"))
	assert.Equal(t, 4.0, taken.At(1, "B"))

	evens := f.Filter(func(i int) bool { return i%2 == 0 })
	assert.Equal(t, 2, evens.Len())
}

func TestCopyIsDeep(t *testing.T) {
	f := New()
	require.NoError(t, f.AddColumn("A", []int{1, 2}))
	c := f.Copy()
	require.NoError(t, c.Set(0, "A", 99))

	assert.Equal(t, 1.0, f.At(0, "A"))
	assert.Equal(t, 99.0, c.At(0, "A"))
}

func TestParseAndWriteCSV(t *testing.T) {
	in := "RT,Area,Compound Name\n1.25,100,Heptane\n2.5,,Octane\n"
	f, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 1.25, f.At(0, "RT"))
	assert.True(t, IsMissing(f.At(1, "Area")))
	assert.Equal(t, "Octane", f.At(1, "Compound Name"))

	path := filepath.Join(t.TempDir(), "out", "peaks.csv")
	require.NoError(t, f.WriteCSV(path))

	back, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, f.Records(), back.Records())
}

func TestReadCSVNotFound(t *testing.T) {
	_, err := ReadCSV("/nonexistent/peaks.csv")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

package categories

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/frame"
)

func TestIsEqual(t *testing.T) {
	c := New()
	c.Set("Alkanes", "Heptane", "Octane")
	c.Set("Aromatics", "Toluene")

	got, err := c.Categorize("octane")
	require.NoError(t, err)
	assert.Equal(t, "Alkanes", got)

	got, err = c.Categorize("Benzene")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	c.IgnoreCase = false
	got, _ = c.Categorize("octane")
	assert.Equal(t, "", got)
}

func TestIsInFirstCategoryWins(t *testing.T) {
	c := New()
	c.Mode = IsIn
	c.Set("Olefins", "ene")
	c.Set("Alkanes", "ane")

	got, err := c.Categorize("1-Octene")
	require.NoError(t, err)
	assert.Equal(t, "Olefins", got)

	got, err = c.Categorize("HEPTANE")
	require.NoError(t, err)
	assert.Equal(t, "Alkanes", got)

	_, err = c.Categorize(4.0)
	assert.True(t, errors.Is(err, errs.ErrDataShape))

	got, err = c.Categorize(frame.Missing)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestSetKeepsOrder(t *testing.T) {
	c := New()
	c.Set("A", "x")
	c.Set("B", "y")
	c.Set("A", "z")

	assert.Equal(t, []string{"A", "B"}, c.Names())
	kw, ok := c.Keywords("A")
	require.True(t, ok)
	assert.Equal(t, []string{"z"}, kw)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("contains")
	require.NoError(t, err)
	assert.Equal(t, IsIn, m)

	_, err = ParseMode("fuzzy")
	assert.True(t, errs.IsConfig(err))
}

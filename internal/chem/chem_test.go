package chem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JnliaH/ChromaQuant/internal/errs"
)

func TestCounts(t *testing.T) {
	tests := []struct {
		formula string
		want    map[string]int
	}{
		{"C7H16", map[string]int{"C": 7, "H": 16}},
		{"CH3(CH2)5CH3", map[string]int{"C": 7, "H": 16}},
		{"C6H5OH", map[string]int{"C": 6, "H": 6, "O": 1}},
		{"Ca[OH]2", map[string]int{"Ca": 1, "O": 2, "H": 2}},
		{" CO2 ", map[string]int{"C": 1, "O": 2}},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			got, err := Default.Counts(tt.formula)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountsMalformed(t *testing.T) {
	for _, f := range []string{"", "C7H16)", "(CH2", "(CH2]", "Xx2", "c7h16", "C-H"} {
		_, err := Default.Counts(f)
		require.Error(t, err, "formula %q", f)
		assert.True(t, errors.Is(err, errs.ErrDataShape), "formula %q: %v", f, err)
	}
}

func TestMolecularWeight(t *testing.T) {
	w, err := Default.MolecularWeight("C7H16")
	require.NoError(t, err)
	assert.InDelta(t, 100.205, w, 0.01)

	assert.InDelta(t, 18.015, Weight(Default, "H2O"), 0.01)
	assert.Equal(t, 0.0, Weight(Default, "not a formula"))
}

func TestElementCount(t *testing.T) {
	assert.Equal(t, 7, ElementCount(Default, "C7H16", "C"))
	assert.Equal(t, 0, ElementCount(Default, "C7H16", "O"))
	assert.Equal(t, 0, ElementCount(Default, "???", "C"))
}

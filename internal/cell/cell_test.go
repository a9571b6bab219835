package cell

import (
	"testing"

	"github.com/JnliaH/ChromaQuant/internal/errs"
)

func TestParse(t *testing.T) {
	tests := []struct {
		anchor  string
		col     int
		row     int
		wantErr bool
	}{
		{"A1", 1, 1, false},
		{"$B$4", 2, 4, false},
		{"b4", 2, 4, false},
		{"AA10", 27, 10, false},
		{"", 0, 0, true},
		{"4B", 0, 0, true},
		{"B0", 0, 0, true},
		{"Sheet1!A1", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.anchor, func(t *testing.T) {
			c, err := Parse(tt.anchor)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) should fail", tt.anchor)
				}
				if !errs.IsConfig(err) {
					t.Errorf("Parse(%q) error should be a configuration error: %v", tt.anchor, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.anchor, err)
			}
			if c.Col != tt.col || c.Row != tt.row {
				t.Errorf("Parse(%q) = %+v, want col %d row %d", tt.anchor, c, tt.col, tt.row)
			}
		})
	}
}

func TestFormatting(t *testing.T) {
	c := Coord{Col: 3, Row: 5}
	if got := c.Name(); got != "C5" {
		t.Errorf("Name() = %q", got)
	}
	if got := c.Absolute(); got != "$C$5" {
		t.Errorf("Absolute() = %q", got)
	}
	if got := Qualified("Some Sheet", c); got != "'Some Sheet'!$C$5" {
		t.Errorf("Qualified() = %q", got)
	}
	if got := QualifiedRange("S", 3, 5, 7); got != "'S'!$C$5:$C$7" {
		t.Errorf("QualifiedRange() = %q", got)
	}
	if got := QuoteSheet("Julia's"); got != "'Julia''s'" {
		t.Errorf("QuoteSheet() = %q", got)
	}
	if got := c.Offset(1, -1).Absolute(); got != "$D$4" {
		t.Errorf("Offset() = %q", got)
	}
}

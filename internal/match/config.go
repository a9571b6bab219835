// Package match enriches a primary frame with columns imported from the
// best-matching row of a secondary frame.
package match

import (
	"fmt"
	"strings"

	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/frame"
)

// DefaultOutputPath is where Run exports results when Export is set.
const DefaultOutputPath = "match_results.csv"

// Comparator decides whether a secondary value satisfies a condition
// against the primary row's value.
type Comparator string

const (
	// Equal keeps candidates within ±Tolerance of the primary value.
	Equal Comparator = "equal"
	// GreaterThan keeps candidates the primary value is greater than.
	GreaterThan Comparator = "greater_than"
	// LessThan keeps candidates the primary value is less than.
	LessThan Comparator = "less_than"
)

// ParseComparator accepts the comparator names and their common aliases.
func ParseComparator(s string) (Comparator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equal", "eq", "is_equal", "==", "=":
		return Equal, nil
	case "greater_than", "greater", "gt", ">":
		return GreaterThan, nil
	case "less_than", "less", "lt", "<":
		return LessThan, nil
	}
	return "", errs.Config("match", "comparator", s, "use one of: equal, greater_than, less_than")
}

// HitsRule picks one row when several secondary rows satisfy every condition.
type HitsRule string

const (
	FirstRow     HitsRule = "first"
	LowestValue  HitsRule = "lowest"
	HighestValue HitsRule = "highest"
)

// ParseHitsRule accepts rule names and their common aliases.
func ParseHitsRule(s string) (HitsRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "first_row", "select_first_row":
		return FirstRow, nil
	case "lowest", "lowest_value", "min", "select_lowest_value":
		return LowestValue, nil
	case "highest", "highest_value", "max", "select_highest_value":
		return HighestValue, nil
	}
	return "", errs.Config("match", "hits rule", s, "use one of: first, lowest, highest")
}

// NeedsColumn reports whether the rule reads HitsColumn.
func (r HitsRule) NeedsColumn() bool {
	return r == LowestValue || r == HighestValue
}

// Condition compares Left in the primary frame against Right in the secondary.
type Condition struct {
	Comparator Comparator
	Left       string
	Right      string
	Tolerance  float64
	OrEqual    bool
}

// Rename maps a column in the matched frame to its output name.
type Rename struct {
	From string
	To   string
}

// Config describes how two frames are matched.
type Config struct {
	Conditions []Condition

	HitsRule   HitsRule
	HitsColumn string

	// ImportColumns are copied from the selected secondary row. Empty means
	// every secondary column absent from the primary.
	ImportColumns []string

	// LocalFilter keeps only primary rows whose column equals the value.
	LocalFilter map[string]frame.Value

	// OutputColumns selects and renames the result columns, in order.
	OutputColumns []Rename

	Export     bool
	OutputPath string
}

// NewConfig returns a Config with the default hits rule and output path.
func NewConfig() *Config {
	return &Config{
		HitsRule:   FirstRow,
		OutputPath: DefaultOutputPath,
	}
}

// AddCondition appends a condition. One column name compares that column
// on both sides; two names compare columns[0] in the primary against
// columns[1] in the secondary.
func (c *Config) AddCondition(cmp Comparator, columns []string, tolerance float64, orEqual bool) error {
	var left, right string
	switch len(columns) {
	case 1:
		left, right = columns[0], columns[0]
	case 2:
		left, right = columns[0], columns[1]
	default:
		return errs.Config("match", "condition columns", columns,
			fmt.Sprintf("expected one column name or a [primary, secondary] pair, got %d names", len(columns)))
	}
	if tolerance < 0 {
		return errs.Config("match", "tolerance", tolerance, "must not be negative")
	}
	if _, ok := frame.Float(tolerance); !ok {
		return errs.Config("match", "tolerance", tolerance, "must be a finite number")
	}

	c.Conditions = append(c.Conditions, Condition{
		Comparator: cmp,
		Left:       left,
		Right:      right,
		Tolerance:  tolerance,
		OrEqual:    orEqual,
	})
	return nil
}

// AddColumnCondition compares the same column in both frames.
func (c *Config) AddColumnCondition(cmp Comparator, column string, tolerance float64, orEqual bool) error {
	return c.AddCondition(cmp, []string{column}, tolerance, orEqual)
}

// importColumns resolves the columns to copy from secondary.
func (c *Config) importColumns(primary, secondary *frame.Frame) []string {
	if len(c.ImportColumns) > 0 {
		return c.ImportColumns
	}
	var cols []string
	for _, col := range secondary.Columns() {
		if !primary.HasColumn(col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// Validate checks the configuration against both frames before any row is
// processed.
func (c *Config) Validate(primary, secondary *frame.Frame, imports []string) error {
	for i, cond := range c.Conditions {
		switch cond.Comparator {
		case Equal, GreaterThan, LessThan:
		default:
			return errs.Config("match", fmt.Sprintf("conditions[%d].comparator", i), cond.Comparator,
				"use one of: equal, greater_than, less_than")
		}
		if !primary.HasColumn(cond.Left) {
			return errs.Config("match", fmt.Sprintf("conditions[%d].left", i), cond.Left,
				fmt.Sprintf("column not found in primary data — available columns: %v", primary.Columns()))
		}
		if !secondary.HasColumn(cond.Right) {
			return errs.Config("match", fmt.Sprintf("conditions[%d].right", i), cond.Right,
				fmt.Sprintf("column not found in secondary data — available columns: %v", secondary.Columns()))
		}
	}

	switch c.HitsRule {
	case "", FirstRow, LowestValue, HighestValue:
	default:
		return errs.Config("match", "hits rule", c.HitsRule, "use one of: first, lowest, highest")
	}
	if c.HitsRule.NeedsColumn() && !secondary.HasColumn(c.HitsColumn) {
		return errs.Config("match", "hits column", c.HitsColumn,
			fmt.Sprintf("rule %q needs a column of the secondary data — available columns: %v", c.HitsRule, secondary.Columns()))
	}

	for _, col := range imports {
		if !secondary.HasColumn(col) {
			return errs.Config("match", "import column", col,
				fmt.Sprintf("column not found in secondary data — available columns: %v", secondary.Columns()))
		}
	}
	return nil
}

package match

import (
	"github.com/shopspring/decimal"

	"github.com/JnliaH/ChromaQuant/internal/frame"
)

// NoMatch is the RowTrace.Selected value for a primary row with no match.
const NoMatch = -1

// ConditionTrace records the candidates that survived one condition and
// their absolute deviation from the primary value.
type ConditionTrace struct {
	Condition  Condition
	Candidates []int
	Deviations []float64
}

// RowTrace is the advisory record of matching one primary row.
type RowTrace struct {
	Row        int
	Conditions []ConditionTrace
	Selected   int
}

// Report summarizes a match. Traces are advisory and never change the result.
type Report struct {
	Matched   int
	Ambiguous int
	Unmatched int
	Traces    []RowTrace
}

// Rows returns a copy of primary with the import columns filled from the
// selected secondary row of each primary row. Rows without a match get
// Missing in every import column. The configuration is validated before any
// row is processed.
func Rows(primary, secondary *frame.Frame, cfg *Config) (*frame.Frame, *Report, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	imports := cfg.importColumns(primary, secondary)
	if err := cfg.Validate(primary, secondary, imports); err != nil {
		return nil, nil, err
	}

	out := primary.Copy()
	for _, col := range imports {
		if !out.HasColumn(col) {
			if err := out.AddColumn(col, frame.Missing); err != nil {
				return nil, nil, err
			}
		}
	}

	report := &Report{Traces: make([]RowTrace, 0, primary.Len())}
	for i := 0; i < primary.Len(); i++ {
		trace := RowTrace{Row: i, Selected: NoMatch}

		pool := make([]int, secondary.Len())
		for j := range pool {
			pool[j] = j
		}

		for _, cond := range cfg.Conditions {
			left := primary.At(i, cond.Left)
			pool = narrow(pool, secondary, cond, left)
			trace.Conditions = append(trace.Conditions, ConditionTrace{
				Condition:  cond,
				Candidates: append([]int(nil), pool...),
				Deviations: deviations(pool, secondary, cond, left),
			})
		}

		switch len(pool) {
		case 0:
			report.Unmatched++
			for _, col := range imports {
				_ = out.Set(i, col, frame.Missing)
			}
		default:
			if len(pool) > 1 {
				report.Ambiguous++
			}
			report.Matched++
			sel := selectHit(pool, secondary, cfg.HitsRule, cfg.HitsColumn)
			trace.Selected = sel
			for _, col := range imports {
				_ = out.Set(i, col, secondary.At(sel, col))
			}
		}
		report.Traces = append(report.Traces, trace)
	}
	return out, report, nil
}

func narrow(pool []int, secondary *frame.Frame, cond Condition, left frame.Value) []int {
	kept := make([]int, 0, len(pool))
	for _, row := range pool {
		if cond.accepts(left, secondary.At(row, cond.Right)) {
			kept = append(kept, row)
		}
	}
	return kept
}

func deviations(pool []int, secondary *frame.Frame, cond Condition, left frame.Value) []float64 {
	out := make([]float64, len(pool))
	l, lok := frame.Float(left)
	for k, row := range pool {
		r, rok := frame.Float(secondary.At(row, cond.Right))
		if lok && rok {
			d, _ := decimal.NewFromFloat(r).Sub(decimal.NewFromFloat(l)).Abs().Float64()
			out[k] = d
		}
	}
	return out
}

// accepts reports whether a secondary value satisfies the condition against
// the primary value. Missing never matches. Ordering comparisons need
// finite numbers on both sides; Equal falls back to text equality.
func (c Condition) accepts(left, right frame.Value) bool {
	if frame.IsMissing(left) || frame.IsMissing(right) {
		return false
	}
	lf, lok := frame.Float(left)
	rf, rok := frame.Float(right)
	numeric := lok && rok

	switch c.Comparator {
	case Equal:
		if !numeric {
			return frame.Text(left) == frame.Text(right)
		}
		tol, ok := frame.Float(c.Tolerance)
		if !ok {
			return false
		}
		diff := decimal.NewFromFloat(rf).Sub(decimal.NewFromFloat(lf)).Abs()
		return diff.LessThanOrEqual(decimal.NewFromFloat(tol))
	case GreaterThan:
		if !numeric {
			return false
		}
		l, r := decimal.NewFromFloat(lf), decimal.NewFromFloat(rf)
		if c.OrEqual {
			return l.GreaterThanOrEqual(r)
		}
		return l.GreaterThan(r)
	case LessThan:
		if !numeric {
			return false
		}
		l, r := decimal.NewFromFloat(lf), decimal.NewFromFloat(rf)
		if c.OrEqual {
			return l.LessThanOrEqual(r)
		}
		return l.LessThan(r)
	}
	return false
}

// selectHit applies the hits rule to a non-empty pool. Ties keep the first
// occurrence; non-numeric values are skipped; if nothing is numeric the
// first row wins.
func selectHit(pool []int, secondary *frame.Frame, rule HitsRule, column string) int {
	if len(pool) == 1 || !rule.NeedsColumn() {
		return pool[0]
	}

	best := pool[0]
	var bestVal float64
	found := false
	for _, row := range pool {
		v, ok := frame.Float(secondary.At(row, column))
		if !ok {
			continue
		}
		better := !found ||
			(rule == LowestValue && v < bestVal) ||
			(rule == HighestValue && v > bestVal)
		if better {
			best, bestVal, found = row, v, true
		}
	}
	return best
}

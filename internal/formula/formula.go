// Package formula builds spreadsheet formulas whose cell references are
// written as placeholders and resolved against the live placement of data
// sets. A placeholder ("insert") is a pipe-delimited list of key: value
// pairs, for example
//
//	=SUM(|table: <table id>, key: Area, range: true|)*|key: <value id>|
//
// Recognized keys are table, key and range.
package formula

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JnliaH/ChromaQuant/internal/dataset"
	"github.com/JnliaH/ChromaQuant/internal/errs"
)

var insertPattern = regexp.MustCompile(`\|(.*?)\|`)

// Insert is one placeholder. Table and Key name a table column, or Key
// alone names a value.
type Insert struct {
	Raw   string
	Start int
	End   int
	Table string
	Key   string
	Range bool
}

// PointsAtColumn reports whether the insert names a table column.
func (in Insert) PointsAtColumn() bool { return in.Table != "" && in.Key != "" }

// PointsAtValue reports whether the insert names only a value.
func (in Insert) PointsAtValue() bool { return in.Table == "" && in.Key != "" }

func (in Insert) text() string {
	if in.Raw != "" {
		return in.Raw
	}
	var parts []string
	if in.Table != "" {
		parts = append(parts, "table: "+in.Table)
	}
	if in.Key != "" {
		parts = append(parts, "key: "+in.Key)
	}
	if in.Range {
		parts = append(parts, "range: true")
	}
	return "|" + strings.Join(parts, ", ") + "|"
}

// Segment is literal formula text or an insert.
type Segment struct {
	Literal string
	Insert  *Insert
}

// Text is a literal segment.
func Text(s string) Segment { return Segment{Literal: s} }

// ValueRef points at a value's data cell.
func ValueRef(id dataset.ID) Segment {
	return Segment{Insert: &Insert{Key: id.String()}}
}

// ColumnRef points at a table column, one cell per output row.
func ColumnRef(table dataset.ID, column string) Segment {
	return Segment{Insert: &Insert{Table: table.String(), Key: column}}
}

// RangeRef points at a table column's whole data range.
func RangeRef(table dataset.ID, column string) Segment {
	return Segment{Insert: &Insert{Table: table.String(), Key: column, Range: true}}
}

// Output says where resolved formulas are written: a table column when
// Table and Key are set, a value when only Key is set.
type Output struct {
	Table string
	Key   string
}

// Formula is a template of literal text and inserts plus an output pointer.
type Formula struct {
	segments []Segment
	output   Output
	resolved []string
}

// New builds a formula from segments.
func New(segments ...Segment) *Formula {
	return &Formula{segments: segments}
}

// Parse reads the placeholder text form of a formula.
func Parse(text string) (*Formula, error) {
	segments, err := parseSegments(text)
	if err != nil {
		return nil, err
	}
	return &Formula{segments: segments}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Formula {
	f, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return f
}

func parseSegments(text string) ([]Segment, error) {
	if strings.Count(text, "|")%2 != 0 {
		return nil, errs.Config("formula", "template", fmt.Sprintf("%q", text),
			"contains an unterminated insert (odd number of '|' delimiters)")
	}

	var segments []Segment
	last := 0
	for _, loc := range insertPattern.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			segments = append(segments, Text(text[last:loc[0]]))
		}
		in, err := parseInsert(text[loc[0]:loc[1]])
		if err != nil {
			return nil, err
		}
		in.Start, in.End = loc[0], loc[1]
		segments = append(segments, Segment{Insert: in})
		last = loc[1]
	}
	if last < len(text) {
		segments = append(segments, Text(text[last:]))
	}
	return segments, nil
}

func parseInsert(raw string) (*Insert, error) {
	in := &Insert{Raw: raw}
	for _, part := range strings.Split(raw, ",") {
		if strings.Count(part, ":") != 1 {
			return nil, errs.Config("formula", "insert", fmt.Sprintf("%q", raw),
				fmt.Sprintf("pointer %q must contain exactly one ':'", strings.Trim(part, "| ")))
		}
		kv := strings.SplitN(part, ":", 2)
		key := strings.TrimSpace(strings.Trim(strings.TrimSpace(kv[0]), "|"))
		value := strings.TrimSpace(strings.Trim(strings.TrimSpace(kv[1]), "|"))

		switch key {
		case "table":
			in.Table = value
		case "key":
			in.Key = value
		case "range":
			switch strings.ToLower(value) {
			case "true":
				in.Range = true
			case "false":
				in.Range = false
			default:
				return nil, errs.Config("formula", "range", value, "must be true or false")
			}
		default:
			return nil, errs.Config("formula", "insert key", key, "use one of: table, key, range")
		}
	}
	return in, nil
}

// Segments returns the formula's segments.
func (f *Formula) Segments() []Segment {
	out := make([]Segment, len(f.segments))
	copy(out, f.segments)
	return out
}

// Inserts returns the formula's inserts in order.
func (f *Formula) Inserts() []Insert {
	var out []Insert
	for _, s := range f.segments {
		if s.Insert != nil {
			out = append(out, *s.Insert)
		}
	}
	return out
}

// String renders the placeholder text form.
func (f *Formula) String() string {
	var b strings.Builder
	for _, s := range f.segments {
		if s.Insert != nil {
			b.WriteString(s.Insert.text())
			continue
		}
		b.WriteString(s.Literal)
	}
	return b.String()
}

// PointTo writes resolved formulas into a column of a table.
func (f *Formula) PointTo(column string, table dataset.ID) {
	f.output = Output{Table: table.String(), Key: column}
}

// PointToValue writes the resolved formula into a value.
func (f *Formula) PointToValue(value dataset.ID) {
	f.output = Output{Key: value.String()}
}

// SetOutput sets the output pointer directly.
func (f *Formula) SetOutput(o Output) { f.output = o }

// Output returns the output pointer.
func (f *Formula) Output() Output { return f.output }

// Resolved returns the formulas produced by the last Resolve.
func (f *Formula) Resolved() []string {
	out := make([]string, len(f.resolved))
	copy(out, f.resolved)
	return out
}

// Package output provides formatting utilities for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/JnliaH/ChromaQuant/internal/frame"
)

// Format represents an output format.
type Format int

const (
	// FormatText is plain text output.
	FormatText Format = iota
	// FormatJSON is JSON output.
	FormatJSON
	// FormatMarkdown is Markdown output.
	FormatMarkdown
)

// ParseFormat maps a configuration value to a Format. Unknown names are text.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	default:
		return FormatText
	}
}

// Writer handles formatted output to a destination.
type Writer struct {
	dest   io.Writer
	format Format
}

// NewWriter creates a new output writer with the given format.
func NewWriter(format Format) *Writer {
	return NewWriterTo(os.Stdout, format)
}

// NewWriterTo creates an output writer for dest.
func NewWriterTo(dest io.Writer, format Format) *Writer {
	return &Writer{
		dest:   dest,
		format: format,
	}
}

// WriteJSON encodes a value as pretty-printed JSON.
func (w *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(w.dest)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteText writes plain text.
func (w *Writer) WriteText(s string) error {
	_, err := fmt.Fprint(w.dest, s)
	return err
}

// WriteLn writes a line of text.
func (w *Writer) WriteLn(s string) error {
	_, err := fmt.Fprintln(w.dest, s)
	return err
}

// WriteFrame renders f in the writer's format. JSON is a list of row
// objects; text is an aligned table; markdown is a pipe table.
func (w *Writer) WriteFrame(f *frame.Frame) error {
	switch w.format {
	case FormatJSON:
		rows := make([]map[string]interface{}, f.Len())
		for i := range rows {
			row := make(map[string]interface{}, len(f.Columns()))
			for col, v := range f.Row(i) {
				if frame.IsMissing(v) {
					row[col] = nil
					continue
				}
				row[col] = v
			}
			rows[i] = row
		}
		return w.WriteJSON(rows)
	case FormatMarkdown:
		return w.writeMarkdown(f)
	default:
		return w.writeTable(f)
	}
}

func (w *Writer) writeTable(f *frame.Frame) error {
	tw := tabwriter.NewWriter(w.dest, 0, 0, 2, ' ', 0)
	for _, record := range f.Records() {
		fmt.Fprintln(tw, strings.Join(record, "\t"))
	}
	return tw.Flush()
}

func (w *Writer) writeMarkdown(f *frame.Frame) error {
	records := f.Records()
	if len(records) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("| " + strings.Join(records[0], " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(records[0])) + "\n")
	for _, record := range records[1:] {
		b.WriteString("| " + strings.Join(record, " | ") + " |\n")
	}
	return w.WriteText(b.String())
}

// WriteError writes an error message to stderr.
func WriteError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// Package progress renders a step progress bar for analysis runs.
// All output goes to stderr to avoid polluting stdout/pipes.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// DefaultWidth is the number of cells in a rendered bar.
const DefaultWidth = 30

// Bar renders an ASCII progress bar, one cell group per analysis step.
type Bar struct {
	Total   int
	Current int
	Label   string
	Width   int
	Enabled bool

	out    io.Writer
	failed int
	mu     sync.Mutex
}

// New creates a progress bar on stderr. It is disabled when stderr is not
// a terminal or CQ_NO_PROGRESS=1.
func New(label string, total int) *Bar {
	return NewTo(os.Stderr, label, total, shouldEnable())
}

// NewTo creates a progress bar writing to out.
func NewTo(out io.Writer, label string, total int, enabled bool) *Bar {
	return &Bar{
		Total:   total,
		Label:   label,
		Width:   DefaultWidth,
		Enabled: enabled,
		out:     out,
	}
}

// Step advances the bar by one finished step and redraws. A failed step is
// counted and marked in the status.
func (b *Bar) Step(id string, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Current < b.Total {
		b.Current++
	}
	status := id
	if failed {
		b.failed++
		status = id + " (failed)"
	}
	b.render(status)
}

// Failed returns the number of failed steps seen so far.
func (b *Bar) Failed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}

// Finish clears the bar and prints a final line.
func (b *Bar) Finish(summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.Enabled {
		return
	}
	fmt.Fprintf(b.out, "\r\033[K✓ %s\n", summary)
}

func (b *Bar) render(status string) {
	if !b.Enabled {
		return
	}

	filled := 0
	if b.Total > 0 {
		filled = b.Current * b.Width / b.Total
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", b.Width-filled)
	fmt.Fprintf(b.out, "\r\033[K%s [%s] %d/%d  %s",
		b.Label, bar, b.Current, b.Total, status)
}

// Pct returns the current percentage (0-100) of the bar.
func (b *Bar) Pct() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Total == 0 {
		return 0
	}
	return float64(b.Current) / float64(b.Total) * 100
}

func shouldEnable() bool {
	if os.Getenv("CQ_NO_PROGRESS") == "1" {
		return false
	}
	stat, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

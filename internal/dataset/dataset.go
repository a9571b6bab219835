// Package dataset holds the data objects placed on report sheets: scalar
// Values, Tables and Breakdowns. Each one knows where it lives on a sheet and
// derives its spreadsheet references from its data and placement on read.
package dataset

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JnliaH/ChromaQuant/internal/cell"
	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/frame"
)

// DefaultSheet and DefaultAnchor place a data set when no placement is given.
const (
	DefaultSheet  = "Sheet1"
	DefaultAnchor = "$A$1"
)

// ID identifies a data set.
type ID = uuid.UUID

// ParseID parses the text form of an ID.
func ParseID(s string) (ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errs.Config("dataset", "id", s, err.Error())
	}
	return id, nil
}

// Kind names the concrete data set type.
type Kind string

const (
	KindValue     Kind = "value"
	KindTable     Kind = "table"
	KindBreakdown Kind = "breakdown"
)

// Mediator is notified whenever a data set's placement or shape changes.
// Invalidate must not block and must not call back into the data set.
type Mediator interface {
	Invalidate(id ID)
}

// DataSet is the behavior shared by every placed data set.
type DataSet interface {
	ID() ID
	Kind() Kind
	Sheet() string
	Anchor() cell.Coord
	Header() string
	Revision() uint64
	SetMediator(m Mediator)
	Cells() []Placed
}

// Placed is one cell a data set writes to its sheet.
type Placed struct {
	At      cell.Coord
	Value   frame.Value
	Formula bool
	// Span is the number of columns a title cell is merged across.
	Span int
}

// Option configures a data set at construction.
type Option func(*Base) error

// WithSheet places the data set on a sheet.
func WithSheet(sheet string) Option {
	return func(b *Base) error { return b.SetSheet(sheet) }
}

// WithAnchor sets the top-left cell, e.g. "B4" or "$B$4".
func WithAnchor(anchor string) Option {
	return func(b *Base) error { return b.SetAnchor(anchor) }
}

// WithHeader adds a title row above the data.
func WithHeader(header string) Option {
	return func(b *Base) error {
		b.SetHeader(header)
		return nil
	}
}

// WithID overrides the generated identity.
func WithID(id ID) Option {
	return func(b *Base) error {
		if id == uuid.Nil {
			return errs.Config("dataset", "id", id, "must not be the nil UUID")
		}
		b.id = id
		return nil
	}
}

// WithLogger sets the logger used for data anomalies.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Base) error {
		if logger != nil {
			b.logger = logger
		}
		return nil
	}
}

// Base carries identity and placement. Every setter marks derived
// references dirty and notifies the mediator.
type Base struct {
	id       ID
	kind     Kind
	sheet    string
	anchor   cell.Coord
	header   string
	mediator Mediator
	logger   *zap.Logger

	dirty    bool
	revision uint64
}

func (b *Base) init(kind Kind, opts []Option) error {
	*b = Base{
		id:     uuid.New(),
		kind:   kind,
		sheet:  DefaultSheet,
		anchor: cell.Coord{Col: 1, Row: 1},
		logger: zap.NewNop(),
		dirty:  true,
	}
	return b.apply(opts)
}

// apply runs options against an existing base.
func (b *Base) apply(opts []Option) error {
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return err
		}
	}
	return nil
}

func (b *Base) ID() ID { return b.id }

func (b *Base) Kind() Kind { return b.kind }

func (b *Base) Sheet() string { return b.sheet }

func (b *Base) Header() string { return b.header }

// HasHeader reports whether a title row is present.
func (b *Base) HasHeader() bool { return b.header != "" }

// Anchor returns the top-left cell.
func (b *Base) Anchor() cell.Coord { return b.anchor }

// AnchorCell returns the top-left cell in absolute form.
func (b *Base) AnchorCell() string { return b.anchor.Absolute() }

// Revision increases every time placement or data changes.
func (b *Base) Revision() uint64 { return b.revision }

// SetSheet moves the data set to another sheet.
func (b *Base) SetSheet(sheet string) error {
	if sheet == "" {
		return errs.Config("dataset", "sheet", nil, "worksheet name cannot be empty")
	}
	b.sheet = sheet
	b.touch()
	return nil
}

// SetAnchor moves the top-left cell.
func (b *Base) SetAnchor(anchor string) error {
	c, err := cell.Parse(anchor)
	if err != nil {
		return err
	}
	b.anchor = c
	b.touch()
	return nil
}

// SetHeader sets or clears (with "") the title row.
func (b *Base) SetHeader(header string) {
	b.header = header
	b.touch()
}

// SetMediator attaches the data set to a mediator; nil detaches it.
func (b *Base) SetMediator(m Mediator) {
	b.mediator = m
}

// Logger returns the data set's logger.
func (b *Base) Logger() *zap.Logger { return b.logger }

func (b *Base) touch() {
	b.dirty = true
	b.revision++
	if b.mediator != nil {
		b.mediator.Invalidate(b.id)
	}
}

// takeDirty reports whether references need rebuilding and clears the flag.
func (b *Base) takeDirty() bool {
	d := b.dirty
	b.dirty = false
	return d
}

// titleRows is 1 with a header, else 0.
func (b *Base) titleRows() int {
	if b.HasHeader() {
		return 1
	}
	return 0
}

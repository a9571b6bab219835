// Package categories assigns keyword-based categories to cell values.
package categories

import (
	"strings"

	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/frame"
)

// Mode selects how keywords are compared to values.
type Mode string

const (
	// IsEqual matches values equal to a keyword.
	IsEqual Mode = "is_equal"
	// IsIn matches string values that contain a keyword.
	IsIn Mode = "is_in"
)

// ParseMode accepts a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "is_equal", "equal":
		return IsEqual, nil
	case "is_in", "in", "contains":
		return IsIn, nil
	}
	return "", errs.Config("categories", "mode", s, "use one of: is_equal, is_in")
}

type category struct {
	name     string
	keywords []string
}

// Categories is an ordered set of categories. The first category with a
// matching keyword wins.
type Categories struct {
	Mode       Mode
	IgnoreCase bool

	list []category
}

// New returns an empty set using IsEqual and ignoring case.
func New() *Categories {
	return &Categories{Mode: IsEqual, IgnoreCase: true}
}

// Set defines or replaces a category's keywords. Categories keep the order
// in which they were first defined.
func (c *Categories) Set(name string, keywords ...string) {
	for i := range c.list {
		if c.list[i].name == name {
			c.list[i].keywords = keywords
			return
		}
	}
	c.list = append(c.list, category{name: name, keywords: keywords})
}

// Keywords returns the keywords of a category.
func (c *Categories) Keywords(name string) ([]string, bool) {
	for _, cat := range c.list {
		if cat.name == name {
			return cat.keywords, true
		}
	}
	return nil, false
}

// Names returns category names in definition order.
func (c *Categories) Names() []string {
	out := make([]string, len(c.list))
	for i, cat := range c.list {
		out[i] = cat.name
	}
	return out
}

// Categorize returns the category for v, or "" when none applies. IsIn
// requires a string value.
func (c *Categories) Categorize(v frame.Value) (string, error) {
	if frame.IsMissing(v) {
		return "", nil
	}
	switch c.Mode {
	case IsIn:
		s, ok := v.(string)
		if !ok {
			return "", errs.DataShape("cannot use is_in categorizer for non-string value %v", v)
		}
		for _, cat := range c.list {
			for _, kw := range cat.keywords {
				if c.contains(s, kw) {
					return cat.name, nil
				}
			}
		}
	case IsEqual, "":
		text := frame.Text(v)
		for _, cat := range c.list {
			for _, kw := range cat.keywords {
				if c.equal(text, kw) {
					return cat.name, nil
				}
			}
		}
	default:
		return "", errs.Config("categories", "mode", c.Mode, "use one of: is_equal, is_in")
	}
	return "", nil
}

func (c *Categories) contains(s, kw string) bool {
	if c.IgnoreCase {
		return strings.Contains(strings.ToLower(s), strings.ToLower(kw))
	}
	return strings.Contains(s, kw)
}

func (c *Categories) equal(s, kw string) bool {
	if c.IgnoreCase {
		return strings.EqualFold(s, kw)
	}
	return s == kw
}

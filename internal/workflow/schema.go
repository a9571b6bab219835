// Package workflow runs analyses described in YAML: input tables, a
// sequence of matching, derivation, breakdown and formula steps, and the
// report workbook they produce.
package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Actions lists the step actions the executor knows.
var Actions = []string{
	"match", "element_count", "molecular_weight", "category",
	"column", "breakdown", "value", "formula",
}

// Analysis represents a complete analysis definition.
type Analysis struct {
	Name    string   `yaml:"name" json:"name" validate:"required"`
	Version string   `yaml:"version" json:"version"`
	Tables  []Source `yaml:"tables" json:"tables" validate:"dive"`
	Steps   []Step   `yaml:"steps" json:"steps" validate:"required,min=1,dive"`
	Report  string   `yaml:"report,omitempty" json:"report,omitempty"`

	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-" json:"-"`
}

// Source is an input table read from a CSV or xlsx file.
type Source struct {
	ID     string     `yaml:"id" json:"id" validate:"required"`
	CSV    string     `yaml:"csv,omitempty" json:"csv,omitempty" validate:"required_without=XLSX"`
	XLSX   string     `yaml:"xlsx,omitempty" json:"xlsx,omitempty"`
	Sheet  string     `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	Output *Placement `yaml:"output,omitempty" json:"output,omitempty"`
}

// Placement says where a data set is written in the report.
type Placement struct {
	Sheet     string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	StartCell string `yaml:"start_cell,omitempty" json:"startCell,omitempty"`
	Header    string `yaml:"header,omitempty" json:"header,omitempty"`
}

// ConditionSpec is one match condition.
type ConditionSpec struct {
	Compare    []string `yaml:"compare" json:"compare" validate:"min=1,max=2"`
	Comparator string   `yaml:"comparator,omitempty" json:"comparator,omitempty"`
	Tolerance  *float64 `yaml:"tolerance,omitempty" json:"tolerance,omitempty" validate:"omitempty,gte=0"`
	OrEqual    bool     `yaml:"or_equal,omitempty" json:"orEqual,omitempty"`
}

// HitsSpec picks among several secondary rows that satisfy every condition.
type HitsSpec struct {
	Rule   string `yaml:"rule" json:"rule"`
	Column string `yaml:"column,omitempty" json:"column,omitempty"`
}

// RenameSpec selects a result column and optionally renames it.
type RenameSpec struct {
	From string `yaml:"from" json:"from" validate:"required"`
	To   string `yaml:"to,omitempty" json:"to,omitempty"`
}

// CategorySpec is one named category and its keywords.
type CategorySpec struct {
	Name     string   `yaml:"name" json:"name" validate:"required"`
	Keywords []string `yaml:"keywords" json:"keywords" validate:"required,min=1"`
}

// Step represents a single action in an analysis.
type Step struct {
	ID     string `yaml:"id" json:"id" validate:"required"`
	Action string `yaml:"action" json:"action" validate:"required"`
	Table  string `yaml:"table,omitempty" json:"table,omitempty"`

	// match
	With       string            `yaml:"with,omitempty" json:"with,omitempty"`
	Conditions []ConditionSpec   `yaml:"conditions,omitempty" json:"conditions,omitempty" validate:"dive"`
	Import     []string          `yaml:"import,omitempty" json:"import,omitempty"`
	Hits       *HitsSpec         `yaml:"hits,omitempty" json:"hits,omitempty"`
	Filter     map[string]string `yaml:"filter,omitempty" json:"filter,omitempty"`
	Columns    []RenameSpec      `yaml:"columns,omitempty" json:"columns,omitempty" validate:"dive"`
	Export     string            `yaml:"export,omitempty" json:"export,omitempty"`

	// category
	Categories []CategorySpec `yaml:"categories,omitempty" json:"categories,omitempty" validate:"dive"`

	// breakdown
	Groups []string `yaml:"groups,omitempty" json:"groups,omitempty"`

	Options   map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
	Output    *Placement        `yaml:"output,omitempty" json:"output,omitempty"`
	OnFailure string            `yaml:"on_failure,omitempty" json:"onFailure,omitempty" validate:"omitempty,oneof=skip fail"`
}

// StepResult holds the output of a completed step. Output is the identity
// of the data set the step produced or changed.
type StepResult struct {
	StepID string `json:"stepId"`
	Output string `json:"output"`
	Error  error  `json:"error,omitempty"`
}

// LoadAnalysis reads and parses an analysis YAML file. Relative input and
// report paths are resolved against the file's directory.
func LoadAnalysis(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("analysis file not found: %s — check that the path is correct", path)
		}
		return nil, fmt.Errorf("could not read analysis file %s: %w", path, err)
	}

	a, err := ParseAnalysis(data)
	if err != nil {
		return nil, err
	}
	a.Dir = filepath.Dir(path)
	return a, nil
}

// ParseAnalysis parses an analysis from YAML bytes.
func ParseAnalysis(data []byte) (*Analysis, error) {
	var a Analysis
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("invalid analysis YAML: %w", err)
	}

	if err := validateAnalysis(&a); err != nil {
		return nil, err
	}

	return &a, nil
}

// Path resolves p against the analysis directory.
func (a *Analysis) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || a.Dir == "" {
		return p
	}
	return filepath.Join(a.Dir, p)
}

// Inputs returns the resolved paths of every input file.
func (a *Analysis) Inputs() []string {
	var out []string
	for _, s := range a.Tables {
		if s.CSV != "" {
			out = append(out, a.Path(s.CSV))
		}
		if s.XLSX != "" {
			out = append(out, a.Path(s.XLSX))
		}
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use YAML tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateAnalysis(a *Analysis) error {
	if a.Name == "" {
		return fmt.Errorf("analysis is missing a 'name' field")
	}
	if len(a.Steps) == 0 {
		return fmt.Errorf("analysis %q has no steps defined", a.Name)
	}

	if err := validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("analysis %q is invalid: %s", a.Name, formatValidationError(verrs[0]))
		}
		return fmt.Errorf("analysis %q is invalid: %w", a.Name, err)
	}

	seen := make(map[string]bool)
	for _, s := range a.Tables {
		if seen[s.ID] {
			return fmt.Errorf("duplicate table ID %q — each table and step must have a unique ID", s.ID)
		}
		seen[s.ID] = true
	}
	for _, step := range a.Steps {
		if seen[step.ID] {
			return fmt.Errorf("duplicate step ID %q — each table and step must have a unique ID", step.ID)
		}
		seen[step.ID] = true

		if !knownAction(step.Action) {
			return fmt.Errorf("step %q has unknown action %q — use one of: %s",
				step.ID, step.Action, strings.Join(Actions, ", "))
		}
	}

	return nil
}

func knownAction(action string) bool {
	for _, a := range Actions {
		if a == action {
			return true
		}
	}
	return false
}

func formatValidationError(err validator.FieldError) string {
	field := err.Namespace()
	switch err.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s entries", field, err.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(err.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed the %q check", field, err.Tag())
	}
}

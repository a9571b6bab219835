package workflow

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JnliaH/ChromaQuant/internal/dataset"
	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/frame"
	"github.com/JnliaH/ChromaQuant/internal/match"
	"github.com/JnliaH/ChromaQuant/internal/results"
	"github.com/JnliaH/ChromaQuant/internal/xlsx"
)

// ActionFunc is the signature for step action handlers. The returned string
// becomes the step output, available to later steps as
// ${{ steps.<id>.output }}.
type ActionFunc func(ctx context.Context, step Step) (string, error)

// Settings are the defaults applied where an analysis leaves a value out.
type Settings struct {
	Tolerance    float64
	DefaultSheet string
	ReportPath   string
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Tolerance:    0.05,
		DefaultSheet: dataset.DefaultSheet,
		ReportPath:   results.DefaultPath,
	}
}

// Outcome is the result of one analysis run.
type Outcome struct {
	Steps   []StepResult
	Report  string
	Results *results.Results
}

// Executor runs analysis steps sequentially against one Results graph.
type Executor struct {
	actions  map[string]ActionFunc
	outputs  map[string]*StepResult
	settings Settings
	logger   *zap.Logger
	dryRun   bool
	observer func(StepResult)

	analysis   *Analysis
	res        *results.Results
	tables     map[string]*dataset.Table
	values     map[string]*dataset.Value
	breakdowns map[string]*dataset.Breakdown
}

// NewExecutor creates an executor with the built-in actions registered.
func NewExecutor(logger *zap.Logger, settings Settings) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultSettings()
	if settings.DefaultSheet == "" {
		settings.DefaultSheet = def.DefaultSheet
	}
	if settings.ReportPath == "" {
		settings.ReportPath = def.ReportPath
	}
	e := &Executor{
		actions:  make(map[string]ActionFunc),
		outputs:  make(map[string]*StepResult),
		settings: settings,
		logger:   logger,
	}
	e.RegisterAction("match", e.runMatch)
	e.RegisterAction("element_count", e.runElementCount)
	e.RegisterAction("molecular_weight", e.runMolecularWeight)
	e.RegisterAction("category", e.runCategory)
	e.RegisterAction("column", e.runColumn)
	e.RegisterAction("breakdown", e.runBreakdown)
	e.RegisterAction("value", e.runValue)
	e.RegisterAction("formula", e.runFormula)
	return e
}

// SetDryRun enables dry-run mode. Every step runs but no report is written.
func (e *Executor) SetDryRun(dryRun bool) {
	e.dryRun = dryRun
}

// SetObserver registers fn to be called after every step, failed or not.
func (e *Executor) SetObserver(fn func(StepResult)) {
	e.observer = fn
}

// RegisterAction adds an action handler to the executor's registry,
// replacing any handler of the same name.
func (e *Executor) RegisterAction(name string, fn ActionFunc) {
	e.actions[name] = fn
}

// Run loads the analysis inputs, executes all steps sequentially and writes
// the report.
func (e *Executor) Run(ctx context.Context, a *Analysis) (*Outcome, error) {
	e.reset(a)
	outcome := &Outcome{Results: e.res}

	e.logger.Info("Running analysis",
		zap.String("name", a.Name),
		zap.String("version", a.Version),
		zap.Int("steps", len(a.Steps)),
		zap.Bool("dry_run", e.dryRun))

	if err := e.loadSources(); err != nil {
		return outcome, err
	}

	for i, step := range a.Steps {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		e.logger.Debug("Running step",
			zap.Int("index", i+1),
			zap.String("step", step.ID),
			zap.String("action", step.Action))

		// Resolve variable interpolation in all string fields
		resolvedStep := e.resolveStepVariables(step)

		action, ok := e.actions[resolvedStep.Action]
		if !ok {
			err := fmt.Errorf("unknown action %q in step %q — registered actions: %v",
				resolvedStep.Action, resolvedStep.ID, e.actionNames())
			result := StepResult{StepID: resolvedStep.ID, Error: err}
			outcome.Steps = append(outcome.Steps, result)
			e.outputs[resolvedStep.ID] = &result
			e.observe(result)
			if resolvedStep.OnFailure == "skip" {
				e.logger.Warn("Skipping step", zap.String("step", resolvedStep.ID), zap.Error(err))
				continue
			}
			return outcome, err
		}

		start := time.Now()
		output, err := action(ctx, resolvedStep)
		duration := time.Since(start)

		result := StepResult{StepID: resolvedStep.ID, Output: output, Error: err}
		outcome.Steps = append(outcome.Steps, result)
		e.outputs[resolvedStep.ID] = &result
		e.observe(result)

		e.logger.Debug("Completed step",
			zap.String("step", resolvedStep.ID),
			zap.Duration("duration", duration.Round(time.Millisecond)))

		if err != nil {
			if resolvedStep.OnFailure == "skip" {
				e.logger.Warn("Step failed (skipping)", zap.String("step", resolvedStep.ID), zap.Error(err))
				continue
			}
			return outcome, fmt.Errorf("step %q failed: %w", resolvedStep.ID, err)
		}
	}

	if e.dryRun {
		e.logger.Info("Dry run, report not written")
		return outcome, nil
	}

	path := a.Report
	if path == "" {
		path = e.settings.ReportPath
	}
	written, err := e.res.Report(a.Path(path))
	if err != nil {
		return outcome, fmt.Errorf("could not write report: %w", err)
	}
	outcome.Report = written
	return outcome, nil
}

func (e *Executor) observe(r StepResult) {
	if e.observer != nil {
		e.observer(r)
	}
}

func (e *Executor) reset(a *Analysis) {
	e.analysis = a
	e.res = results.New(e.logger)
	e.outputs = make(map[string]*StepResult)
	e.tables = make(map[string]*dataset.Table)
	e.values = make(map[string]*dataset.Value)
	e.breakdowns = make(map[string]*dataset.Breakdown)
}

func (e *Executor) loadSources() error {
	for _, s := range e.analysis.Tables {
		var (
			data *frame.Frame
			err  error
		)
		if s.XLSX != "" {
			data, err = xlsx.ReadFrame(e.analysis.Path(s.XLSX), s.Sheet)
		} else {
			data, err = frame.ReadCSV(e.analysis.Path(s.CSV))
		}
		if err != nil {
			return fmt.Errorf("could not load table %q: %w", s.ID, err)
		}

		t, err := dataset.NewTable(data, e.placement(s.Output, s.ID)...)
		if err != nil {
			return err
		}
		if err := e.res.AddTable(t); err != nil {
			return err
		}
		e.tables[s.ID] = t
		e.outputs[s.ID] = &StepResult{StepID: s.ID, Output: t.ID().String()}
		e.logger.Debug("Loaded table",
			zap.String("table", s.ID),
			zap.Int("rows", t.Len()),
			zap.Strings("columns", t.Columns()))
	}
	return nil
}

// placement turns an output block into data set options. Tables and
// breakdowns without a sheet get one named after their ID.
func (e *Executor) placement(p *Placement, sheet string) []dataset.Option {
	if sheet == "" {
		sheet = e.settings.DefaultSheet
	}
	opts := []dataset.Option{dataset.WithLogger(e.logger)}
	if p == nil {
		return append(opts, dataset.WithSheet(sheet))
	}
	if p.Sheet != "" {
		sheet = p.Sheet
	}
	opts = append(opts, dataset.WithSheet(sheet))
	if p.StartCell != "" {
		opts = append(opts, dataset.WithAnchor(p.StartCell))
	}
	if p.Header != "" {
		opts = append(opts, dataset.WithHeader(p.Header))
	}
	return opts
}

func (e *Executor) table(name string) (*dataset.Table, error) {
	if t, ok := e.tables[name]; ok {
		return t, nil
	}
	return nil, errs.Config("workflow", "table", name,
		fmt.Sprintf("no table or step with this ID produced a table — available: %v", sortedKeys(e.tables)))
}

func (e *Executor) value(name string) (*dataset.Value, error) {
	if v, ok := e.values[name]; ok {
		return v, nil
	}
	return nil, errs.Config("workflow", "value", name,
		fmt.Sprintf("no step with this ID produced a value — available: %v", sortedKeys(e.values)))
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var interpolationPattern = regexp.MustCompile(`\$\{\{\s*([^}]+)\s*\}\}`)

func (e *Executor) resolveStepVariables(step Step) Step {
	resolved := step
	resolved.Export = e.interpolate(step.Export)

	if step.Options != nil {
		newOpts := make(map[string]string, len(step.Options))
		for k, v := range step.Options {
			newOpts[k] = e.interpolate(v)
		}
		resolved.Options = newOpts
	}
	if step.Filter != nil {
		newFilter := make(map[string]string, len(step.Filter))
		for k, v := range step.Filter {
			newFilter[k] = e.interpolate(v)
		}
		resolved.Filter = newFilter
	}
	if step.Output != nil {
		out := *step.Output
		out.Sheet = e.interpolate(out.Sheet)
		out.Header = e.interpolate(out.Header)
		resolved.Output = &out
	}

	return resolved
}

func (e *Executor) interpolate(s string) string {
	return interpolationPattern.ReplaceAllStringFunc(s, func(match string) string {
		inner := interpolationPattern.FindStringSubmatch(match)
		if len(inner) < 2 {
			return match
		}
		expr := strings.TrimSpace(inner[1])

		// Handle steps.<id>.output
		if strings.HasPrefix(expr, "steps.") {
			parts := strings.Split(expr, ".")
			if len(parts) >= 3 && parts[2] == "output" {
				if result, ok := e.outputs[parts[1]]; ok {
					return result.Output
				}
			}
		}

		// Handle date.today
		if expr == "date.today" {
			return time.Now().Format("2006-01-02")
		}

		// Handle date.now or date.timestamp
		if expr == "date.now" || expr == "date.timestamp" {
			return time.Now().Format(time.RFC3339)
		}

		// Handle env.VAR_NAME
		if strings.HasPrefix(expr, "env.") {
			return os.Getenv(strings.TrimPrefix(expr, "env."))
		}

		return match
	})
}

func (e *Executor) actionNames() []string {
	names := make([]string, 0, len(e.actions))
	for name := range e.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func matchSummary(r *match.Report) []zap.Field {
	if r == nil {
		return nil
	}
	return []zap.Field{
		zap.Int("matched", r.Matched),
		zap.Int("ambiguous", r.Ambiguous),
		zap.Int("unmatched", r.Unmatched),
	}
}

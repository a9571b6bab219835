package match

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/frame"
)

// Runner executes full match runs: row filtering, matching, output shaping
// and optional export.
type Runner struct {
	logger *zap.Logger
}

// NewRunner creates a Runner. A nil logger discards output.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

// Run matches primary against secondary with the default runner.
func Run(primary, secondary *frame.Frame, cfg *Config) (*frame.Frame, *Report, error) {
	return NewRunner(nil).Run(primary, secondary, cfg)
}

// Run filters primary by cfg.LocalFilter, matches it against secondary,
// applies cfg.OutputColumns and exports the result when cfg.Export is set.
// cfg is not modified.
func (r *Runner) Run(primary, secondary *frame.Frame, cfg *Config) (*frame.Frame, *Report, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if primary == nil || secondary == nil {
		return nil, nil, errs.Config("match", "data", nil, "primary and secondary data are required")
	}

	run := *cfg
	run.ImportColumns = cfg.importColumns(primary, secondary)

	filtered, err := filterRows(primary, cfg.LocalFilter)
	if err != nil {
		return nil, nil, err
	}
	if filtered.Len() < primary.Len() {
		r.logger.Debug("Filtered primary rows",
			zap.Int("before", primary.Len()),
			zap.Int("after", filtered.Len()))
	}

	out, report, err := Rows(filtered, secondary, &run)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Info("Matched rows",
		zap.Int("rows", out.Len()),
		zap.Int("matched", report.Matched),
		zap.Int("ambiguous", report.Ambiguous),
		zap.Int("unmatched", report.Unmatched))

	if len(cfg.OutputColumns) > 0 {
		out, err = shapeOutput(out, cfg.OutputColumns)
		if err != nil {
			return nil, nil, err
		}
	}

	if cfg.Export {
		path := cfg.OutputPath
		if path == "" {
			path = DefaultOutputPath
		}
		if err := out.WriteCSV(path); err != nil {
			return nil, nil, fmt.Errorf("could not export match results: %w", err)
		}
		r.logger.Info("Exported match results", zap.String("path", path))
	}
	return out, report, nil
}

// LoadPrevious opens a previously exported match file. A file that cannot
// be opened is reported as not existing yet.
func (r *Runner) LoadPrevious(path string) (*frame.Frame, bool) {
	if path == "" {
		path = DefaultOutputPath
	}
	f, err := frame.ReadCSV(path)
	if err != nil {
		r.logger.Debug("Previous match file does not exist yet",
			zap.String("path", path),
			zap.Error(err))
		return nil, false
	}
	return f, true
}

func filterRows(f *frame.Frame, filter map[string]frame.Value) (*frame.Frame, error) {
	if len(filter) == 0 {
		return f.Copy(), nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		if !f.HasColumn(k) {
			return nil, errs.Config("match", "local filter column", k,
				fmt.Sprintf("column not found in primary data — available columns: %v", f.Columns()))
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return f.Filter(func(row int) bool {
		for _, k := range keys {
			if !sameValue(f.At(row, k), filter[k]) {
				return false
			}
		}
		return true
	}), nil
}

func sameValue(a, b frame.Value) bool {
	if frame.IsMissing(a) || frame.IsMissing(b) {
		return false
	}
	af, aok := frame.Float(a)
	bf, bok := frame.Float(b)
	if aok && bok {
		return af == bf
	}
	return frame.Text(a) == frame.Text(b)
}

// shapeOutput adds absent source columns as Missing, then selects and
// renames in the configured order.
func shapeOutput(f *frame.Frame, renames []Rename) (*frame.Frame, error) {
	out := f.Copy()
	from := make([]string, 0, len(renames))
	names := make(map[string]string, len(renames))
	for _, rn := range renames {
		if rn.From == "" {
			return nil, errs.Config("match", "output column", rn, "source column name is empty")
		}
		if !out.HasColumn(rn.From) {
			if err := out.AddColumn(rn.From, frame.Missing); err != nil {
				return nil, err
			}
		}
		to := rn.To
		if to == "" {
			to = rn.From
		}
		from = append(from, rn.From)
		names[rn.From] = to
	}

	selected, err := out.Select(from...)
	if err != nil {
		return nil, err
	}
	selected.Rename(names)
	return selected, nil
}

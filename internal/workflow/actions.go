package workflow

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/JnliaH/ChromaQuant/internal/categories"
	"github.com/JnliaH/ChromaQuant/internal/dataset"
	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/formula"
	"github.com/JnliaH/ChromaQuant/internal/frame"
	"github.com/JnliaH/ChromaQuant/internal/match"
)

func option(step Step, key, fallback string) string {
	if v, ok := step.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

func requireOption(step Step, key string) (string, error) {
	v := option(step, key, "")
	if v == "" {
		return "", errs.Config("workflow", "options."+key, nil,
			fmt.Sprintf("required by %s step %q", step.Action, step.ID))
	}
	return v, nil
}

// runMatch enriches one table from another and registers the result as a
// new table named after the step.
func (e *Executor) runMatch(ctx context.Context, step Step) (string, error) {
	primary, err := e.table(step.Table)
	if err != nil {
		return "", err
	}
	secondary, err := e.table(step.With)
	if err != nil {
		return "", err
	}
	cfg, err := e.matchConfig(step)
	if err != nil {
		return "", err
	}

	out, report, err := primary.Match(secondary.Data(), cfg, e.placement(step.Output, step.ID)...)
	if err != nil {
		return "", err
	}
	if err := e.res.AddTable(out); err != nil {
		return "", err
	}
	e.tables[step.ID] = out
	e.logger.Info("Match step complete", append([]zap.Field{zap.String("step", step.ID)}, matchSummary(report)...)...)
	return out.ID().String(), nil
}

func (e *Executor) matchConfig(step Step) (*match.Config, error) {
	cfg := match.NewConfig()
	for _, c := range step.Conditions {
		name := c.Comparator
		if name == "" {
			name = string(match.Equal)
		}
		cmp, err := match.ParseComparator(name)
		if err != nil {
			return nil, err
		}
		tol := e.settings.Tolerance
		if c.Tolerance != nil {
			tol = *c.Tolerance
		}
		if cmp != match.Equal && c.Tolerance == nil {
			tol = 0
		}
		if err := cfg.AddCondition(cmp, c.Compare, tol, c.OrEqual); err != nil {
			return nil, err
		}
	}

	if step.Hits != nil {
		rule, err := match.ParseHitsRule(step.Hits.Rule)
		if err != nil {
			return nil, err
		}
		cfg.HitsRule = rule
		cfg.HitsColumn = step.Hits.Column
	}
	cfg.ImportColumns = step.Import

	if len(step.Filter) > 0 {
		cfg.LocalFilter = make(map[string]frame.Value, len(step.Filter))
		for k, v := range step.Filter {
			cfg.LocalFilter[k] = frame.ParseCell(v)
		}
	}
	for _, r := range step.Columns {
		cfg.OutputColumns = append(cfg.OutputColumns, match.Rename{From: r.From, To: r.To})
	}
	if step.Export != "" {
		cfg.Export = true
		cfg.OutputPath = e.analysis.Path(step.Export)
	}
	return cfg, nil
}

// runElementCount options: source (default Formula), element, column
// (default the element symbol).
func (e *Executor) runElementCount(ctx context.Context, step Step) (string, error) {
	t, err := e.table(step.Table)
	if err != nil {
		return "", err
	}
	element, err := requireOption(step, "element")
	if err != nil {
		return "", err
	}
	column := option(step, "column", element)
	if err := t.AddElementCountColumn(option(step, "source", "Formula"), element, column); err != nil {
		return "", err
	}
	return t.ID().String(), nil
}

// runMolecularWeight options: source (default Formula), column (default
// Molecular Weight).
func (e *Executor) runMolecularWeight(ctx context.Context, step Step) (string, error) {
	t, err := e.table(step.Table)
	if err != nil {
		return "", err
	}
	column := option(step, "column", "Molecular Weight")
	if err := t.AddMolecularWeightColumn(option(step, "source", "Formula"), column); err != nil {
		return "", err
	}
	return t.ID().String(), nil
}

// runCategory options: source, column (default Category), mode
// (is_equal | is_in), ignore_case (default true).
func (e *Executor) runCategory(ctx context.Context, step Step) (string, error) {
	t, err := e.table(step.Table)
	if err != nil {
		return "", err
	}
	source, err := requireOption(step, "source")
	if err != nil {
		return "", err
	}
	if len(step.Categories) == 0 {
		return "", errs.Config("workflow", "categories", nil,
			fmt.Sprintf("category step %q needs at least one category", step.ID))
	}

	cats := categories.New()
	if m := option(step, "mode", ""); m != "" {
		mode, err := categories.ParseMode(m)
		if err != nil {
			return "", err
		}
		cats.Mode = mode
	}
	if ic := option(step, "ignore_case", ""); ic != "" {
		b, err := strconv.ParseBool(ic)
		if err != nil {
			return "", errs.Config("workflow", "options.ignore_case", ic, "must be true or false")
		}
		cats.IgnoreCase = b
	}
	for _, c := range step.Categories {
		cats.Set(c.Name, c.Keywords...)
	}

	if err := t.AddCategoryColumn(source, cats, option(step, "column", "Category")); err != nil {
		return "", err
	}
	return t.ID().String(), nil
}

// runColumn options: name, value. The value is broadcast to every row.
func (e *Executor) runColumn(ctx context.Context, step Step) (string, error) {
	t, err := e.table(step.Table)
	if err != nil {
		return "", err
	}
	name, err := requireOption(step, "name")
	if err != nil {
		return "", err
	}
	if err := t.AddColumn(name, frame.ParseCell(option(step, "value", ""))); err != nil {
		return "", err
	}
	return t.ID().String(), nil
}

// runBreakdown options: group_by, group_by_2 (for a 2D grid), summarize,
// aggregate (default SUMIFS). Groups override the first group column's
// distinct values.
func (e *Executor) runBreakdown(ctx context.Context, step Step) (string, error) {
	t, err := e.table(step.Table)
	if err != nil {
		return "", err
	}
	groupBy, err := requireOption(step, "group_by")
	if err != nil {
		return "", err
	}

	b, err := dataset.NewBreakdown(option(step, "aggregate", ""), e.placement(step.Output, step.ID)...)
	if err != nil {
		return "", err
	}

	var groups []frame.Value
	for _, g := range step.Groups {
		groups = append(groups, frame.ParseCell(g))
	}

	summarize := option(step, "summarize", "")
	if groupBy2 := option(step, "group_by_2", ""); groupBy2 != "" {
		var explicit map[string][]frame.Value
		if groups != nil {
			explicit = map[string][]frame.Value{groupBy: groups}
		}
		err = b.Create2D(t, groupBy, groupBy2, summarize, explicit)
	} else {
		err = b.Create1D(t, groupBy, summarize, groups)
	}
	if err != nil {
		return "", err
	}

	if err := e.res.AddBreakdown(b); err != nil {
		return "", err
	}
	e.breakdowns[step.ID] = b
	return b.ID().String(), nil
}

// runValue options: data. Numeric text is stored as a number.
func (e *Executor) runValue(ctx context.Context, step Step) (string, error) {
	opts := e.placement(step.Output, "")
	v, err := dataset.NewValue(frame.ParseCell(option(step, "data", "")), opts...)
	if err != nil {
		return "", err
	}
	if err := e.res.AddValue(v); err != nil {
		return "", err
	}
	e.values[step.ID] = v
	return v.ID().String(), nil
}

// runFormula options: template, and column (with table) or value. In the
// template, table: and key: name tables, columns and values by their
// workflow IDs.
func (e *Executor) runFormula(ctx context.Context, step Step) (string, error) {
	template, err := requireOption(step, "template")
	if err != nil {
		return "", err
	}
	parsed, err := formula.Parse(template)
	if err != nil {
		return "", err
	}
	f, err := e.translate(parsed)
	if err != nil {
		return "", err
	}

	var target string
	if step.Table != "" {
		t, err := e.table(step.Table)
		if err != nil {
			return "", err
		}
		column, err := requireOption(step, "column")
		if err != nil {
			return "", err
		}
		f.PointTo(column, t.ID())
		target = t.ID().String()
	} else {
		name, err := requireOption(step, "value")
		if err != nil {
			return "", err
		}
		v, err := e.value(name)
		if err != nil {
			return "", err
		}
		f.PointToValue(v.ID())
		target = v.ID().String()
	}

	if err := e.res.AddFormula(f); err != nil {
		return "", err
	}
	return target, nil
}

// translate rewrites workflow IDs in inserts to data set identities.
func (e *Executor) translate(f *formula.Formula) (*formula.Formula, error) {
	var segments []formula.Segment
	for _, s := range f.Segments() {
		if s.Insert == nil {
			segments = append(segments, s)
			continue
		}
		in := *s.Insert
		in.Raw = ""
		if in.Table != "" {
			t, err := e.table(in.Table)
			if err != nil {
				return nil, err
			}
			in.Table = t.ID().String()
		} else if in.Key != "" {
			v, err := e.value(in.Key)
			if err != nil {
				return nil, err
			}
			in.Key = v.ID().String()
		}
		segments = append(segments, formula.Segment{Insert: &in})
	}
	return formula.New(segments...), nil
}

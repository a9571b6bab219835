// Package match provides the "cq match" command that matches two tables
// directly from the command line.
package match

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JnliaH/ChromaQuant/cmd/cmdutil"
	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/frame"
	matchpkg "github.com/JnliaH/ChromaQuant/internal/match"
	"github.com/JnliaH/ChromaQuant/internal/output"
	"github.com/JnliaH/ChromaQuant/internal/xlsx"
)

// Flags are the command-line options of one match run.
type Flags struct {
	Primary        string
	PrimarySheet   string
	Secondary      string
	SecondarySheet string

	On        []string
	Greater   []string
	Less      []string
	OrEqual   bool
	Tolerance float64

	Import     []string
	Hits       string
	HitsColumn string
	Filter     []string
	Columns    []string

	Export bool
	Output string
}

// NewCommand returns the match subcommand.
func NewCommand() *cobra.Command {
	var flags Flags
	var tolerance float64

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match rows of a primary table against a secondary table",
		Long: `Copies columns from the best-matching secondary row into each primary row.

Conditions name one column compared on both sides, or a primary:secondary pair.

Example:
  cq match --primary fid.csv --secondary ms.csv --on "RT:Component RT" \
    --tolerance 0.05 --hits highest --hits-column "Match Factor" --export`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			flags.Tolerance = env.Config.Match.Tolerance
			if cmd.Flags().Changed("tolerance") {
				flags.Tolerance = tolerance
			}
			if !cmd.Flags().Changed("hits") && env.Config.Match.HitsRule != "" {
				flags.Hits = env.Config.Match.HitsRule
			}
			if !cmd.Flags().Changed("output") && env.Config.Match.OutputPath != "" {
				flags.Output = env.Config.Match.OutputPath
			}

			primary, err := readTable(flags.Primary, flags.PrimarySheet)
			if err != nil {
				return err
			}
			secondary, err := readTable(flags.Secondary, flags.SecondarySheet)
			if err != nil {
				return err
			}
			cfg, err := flags.Config()
			if err != nil {
				return err
			}

			out, report, err := matchpkg.NewRunner(env.Logger).Run(primary, secondary, cfg)
			if err != nil {
				return err
			}
			format := output.ParseFormat(env.Config.Output.Format)
			if env.JSON {
				format = output.FormatJSON
			}
			return Print(cmd.OutOrStdout(), format, out, report)
		},
	}

	cmd.Flags().StringVar(&flags.Primary, "primary", "", "Primary table (.csv or .xlsx)")
	cmd.Flags().StringVar(&flags.PrimarySheet, "primary-sheet", "", "Sheet of an .xlsx primary table (default: first)")
	cmd.Flags().StringVar(&flags.Secondary, "secondary", "", "Secondary table (.csv or .xlsx)")
	cmd.Flags().StringVar(&flags.SecondarySheet, "secondary-sheet", "", "Sheet of an .xlsx secondary table (default: first)")
	cmd.Flags().StringArrayVar(&flags.On, "on", nil, "Equality condition: column or primary:secondary (repeatable)")
	cmd.Flags().StringArrayVar(&flags.Greater, "gt", nil, "Primary value greater than secondary: column or primary:secondary")
	cmd.Flags().StringArrayVar(&flags.Less, "lt", nil, "Primary value less than secondary: column or primary:secondary")
	cmd.Flags().BoolVar(&flags.OrEqual, "or-equal", false, "Let --gt and --lt conditions accept equal values")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0.05, "Tolerance of --on conditions on numeric columns")
	cmd.Flags().StringSliceVar(&flags.Import, "import", nil, "Secondary columns to copy (default: all not in primary)")
	cmd.Flags().StringVar(&flags.Hits, "hits", "first", "Rule for several hits: first | lowest | highest")
	cmd.Flags().StringVar(&flags.HitsColumn, "hits-column", "", "Secondary column read by the lowest and highest rules")
	cmd.Flags().StringArrayVar(&flags.Filter, "filter", nil, "Keep primary rows where column=value (repeatable)")
	cmd.Flags().StringArrayVar(&flags.Columns, "column", nil, "Output column, optionally renamed: from or from:to (repeatable)")
	cmd.Flags().BoolVar(&flags.Export, "export", false, "Write the result as CSV")
	cmd.Flags().StringVar(&flags.Output, "output", matchpkg.DefaultOutputPath, "CSV path used with --export")
	_ = cmd.MarkFlagRequired("primary")
	_ = cmd.MarkFlagRequired("secondary")

	return cmd
}

// Config translates the flags into a match configuration.
func (f Flags) Config() (*matchpkg.Config, error) {
	cfg := matchpkg.NewConfig()

	hits, err := matchpkg.ParseHitsRule(f.Hits)
	if err != nil {
		return nil, err
	}
	cfg.HitsRule = hits
	cfg.HitsColumn = f.HitsColumn
	cfg.ImportColumns = f.Import
	cfg.Export = f.Export
	if f.Output != "" {
		cfg.OutputPath = f.Output
	}

	conditions := []struct {
		cmp  matchpkg.Comparator
		args []string
	}{
		{matchpkg.Equal, f.On},
		{matchpkg.GreaterThan, f.Greater},
		{matchpkg.LessThan, f.Less},
	}
	for _, c := range conditions {
		for _, arg := range c.args {
			tolerance := 0.0
			if c.cmp == matchpkg.Equal {
				tolerance = f.Tolerance
			}
			if err := cfg.AddCondition(c.cmp, pair(arg), tolerance, f.OrEqual); err != nil {
				return nil, err
			}
		}
	}
	if len(cfg.Conditions) == 0 {
		return nil, errs.Config("match", "conditions", nil, "at least one --on, --gt or --lt condition is required")
	}

	if len(f.Filter) > 0 {
		cfg.LocalFilter = make(map[string]frame.Value, len(f.Filter))
		for _, kv := range f.Filter {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || strings.TrimSpace(k) == "" {
				return nil, errs.Config("match", "filter", kv, "expected column=value")
			}
			cfg.LocalFilter[strings.TrimSpace(k)] = frame.ParseCell(strings.TrimSpace(v))
		}
	}

	for _, arg := range f.Columns {
		names := pair(arg)
		rn := matchpkg.Rename{From: names[0]}
		if len(names) == 2 {
			rn.To = names[1]
		}
		cfg.OutputColumns = append(cfg.OutputColumns, rn)
	}
	return cfg, nil
}

// pair splits "a:b" into its trimmed halves. An argument without a colon
// is one name.
func pair(arg string) []string {
	left, right, ok := strings.Cut(arg, ":")
	if !ok {
		return []string{strings.TrimSpace(arg)}
	}
	return []string{strings.TrimSpace(left), strings.TrimSpace(right)}
}

func readTable(path, sheet string) (*frame.Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return xlsx.ReadFrame(path, sheet)
	default:
		return frame.ReadCSV(path)
	}
}

// Print writes the matched table followed by a one-line summary. JSON
// wraps both in the standard envelope.
func Print(w io.Writer, format output.Format, out *frame.Frame, report *matchpkg.Report) error {
	if format == output.FormatJSON {
		rows := make([]map[string]interface{}, out.Len())
		for i := range rows {
			row := make(map[string]interface{})
			for col, v := range out.Row(i) {
				if !frame.IsMissing(v) {
					row[col] = v
				}
			}
			rows[i] = row
		}
		return output.FprintJSON(w, "match", map[string]interface{}{
			"rows":      rows,
			"matched":   report.Matched,
			"ambiguous": report.Ambiguous,
			"unmatched": report.Unmatched,
		})
	}

	ow := output.NewWriterTo(w, format)
	if err := ow.WriteFrame(out); err != nil {
		return err
	}
	return ow.WriteLn(fmt.Sprintf("\n%d rows: %d matched, %d ambiguous, %d unmatched",
		out.Len(), report.Matched, report.Ambiguous, report.Unmatched))
}

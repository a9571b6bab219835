// Package config implements cq config, which inspects and edits the
// defaults applied to match, report and watch runs.
package config

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JnliaH/ChromaQuant/internal/config"
	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/output"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit cq defaults",
		Long: `Inspect and edit the defaults cq uses when matching tables, writing
reports and watching analyses.

Settings are stored in ~/.chromaquant/config.yaml. Any key can be
overridden for one invocation with a CQ_ variable: match.tolerance
becomes CQ_MATCH_TOLERANCE.`,
	}
	cmd.AddCommand(
		showCommand(),
		getCommand(),
		setCommand(),
		resetCommand(),
		pathCommand(),
		validateCommand(),
	)
	return cmd
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective settings grouped by match, report and watch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			summary := config.Summarize(cfg)
			if asJSON(cmd) {
				return output.FprintJSON(cmd.OutOrStdout(), "config show", summary)
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func printSummary(w io.Writer, s config.Summary) {
	heading := color.New(color.Bold)
	fmt.Fprintf(w, "Config file: %s\n", s.Path)

	section := func(title string, rows [][2]string) {
		fmt.Fprintln(w)
		heading.Fprintln(w, title)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, r := range rows {
			fmt.Fprintf(tw, "  %s\t%s\n", r[0], r[1])
		}
		tw.Flush()
	}

	match := [][2]string{
		{"match.tolerance", fmt.Sprintf("%g", s.Match.Tolerance)},
		{"match.hits_rule", s.Match.HitsRule},
		{"match.output_path", s.Match.OutputPath},
	}
	for _, c := range s.Match.Comparators {
		match = append(match, [2]string{"  " + string(c.Comparator), fmt.Sprintf("±%g", c.Tolerance)})
	}
	section("match", match)
	section("report", [][2]string{
		{"report.path", s.Report.Path},
		{"report.default_sheet", s.Report.DefaultSheet},
	})
	section("watch", [][2]string{
		{"watch.debounce_ms", fmt.Sprintf("%d", s.Watch.Debounce.Milliseconds())},
	})
}

func getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			val, err := config.Get(args[0])
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return output.FprintJSON(cmd.OutOrStdout(), "config get", map[string]string{args[0]: val})
			}
			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	}
}

func setCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change one setting and save it",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			if err := config.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (saved to %s)\n", args[0], args[1], config.ConfigPath())
			return nil
		},
	}
}

func resetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the config file and restore defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ResetConfig(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s; defaults restored\n", config.ConfigPath())
			return nil
		},
	}
}

func pathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where settings are stored",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath())
		},
	}
}

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the effective settings can drive a run",
		Long: `Check the effective settings: the tolerance and hits rule, that
match.output_path can be written, and that report.default_sheet is a
legal worksheet name. Exits non-zero when any error is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			issues := config.Validate()
			failed := 0
			for _, issue := range issues {
				if issue.Severity == "error" {
					failed++
				}
			}

			if asJSON(cmd) {
				if issues == nil {
					issues = []config.ConfigIssue{}
				}
				if err := output.FprintJSON(cmd.OutOrStdout(), "config validate", issues); err != nil {
					return err
				}
			} else {
				printIssues(cmd.OutOrStdout(), issues)
			}

			if failed > 0 {
				return errs.Config("config", "validate", failed, "settings have errors — fix them with cq config set")
			}
			return nil
		},
	}
}

func printIssues(w io.Writer, issues []config.ConfigIssue) {
	if len(issues) == 0 {
		color.New(color.FgGreen).Fprintln(w, "All settings are usable")
		return
	}
	severity := map[string]*color.Color{
		"error":   color.New(color.FgRed),
		"warning": color.New(color.FgYellow),
	}
	for _, issue := range issues {
		c, ok := severity[issue.Severity]
		if !ok {
			c = color.New(color.Reset)
		}
		c.Fprintf(w, "%-7s ", issue.Severity)
		fmt.Fprintf(w, "%s: %s\n", issue.Key, issue.Message)
		if issue.Fix != "" {
			fmt.Fprintf(w, "        try: %s\n", issue.Fix)
		}
	}
}

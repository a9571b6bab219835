// Package run provides the "cq run" command that executes an analysis file.
package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JnliaH/ChromaQuant/cmd/cmdutil"
	"github.com/JnliaH/ChromaQuant/internal/output"
	"github.com/JnliaH/ChromaQuant/internal/progress"
	"github.com/JnliaH/ChromaQuant/internal/workflow"
)

// Options override parts of an analysis for one run.
type Options struct {
	DryRun bool
	Report string
}

// NewCommand returns the run subcommand.
func NewCommand() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "run <analysis.yaml>",
		Short: "Execute an analysis defined in a YAML file",
		Long: `Runs the steps of an analysis file against its input tables and
writes the resulting workbook with live formulas.

Steps are executed sequentially with variable interpolation between steps.
Use --dry-run to execute every step without writing the workbook.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			outcome, runErr := Analysis(ctx, env, args[0], opts)
			if err := Print(cmd.OutOrStdout(), env.JSON, outcome, runErr); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Run every step without writing the workbook")
	cmd.Flags().StringVar(&opts.Report, "report", "", "Workbook path, overriding the analysis and config")

	return cmd
}

// Analysis loads the analysis at path and runs it with the configured
// defaults.
func Analysis(ctx context.Context, env *cmdutil.Env, path string, opts Options) (*workflow.Outcome, error) {
	a, err := workflow.LoadAnalysis(path)
	if err != nil {
		return nil, err
	}
	if opts.Report != "" {
		report, err := filepath.Abs(opts.Report)
		if err != nil {
			return nil, fmt.Errorf("could not resolve report path %s: %w", opts.Report, err)
		}
		a.Report = report
	}

	executor := workflow.NewExecutor(env.Logger, env.Settings())
	executor.SetDryRun(opts.DryRun)

	bar := progress.New(a.Name, len(a.Steps))
	if env.JSON {
		bar.Enabled = false
	}
	executor.SetObserver(func(r workflow.StepResult) {
		bar.Step(r.StepID, r.Error != nil)
	})

	outcome, err := executor.Run(ctx, a)
	bar.Finish(fmt.Sprintf("%s: %d steps, %d failed", a.Name, bar.Current, bar.Failed()))
	if err != nil {
		env.Logger.Error("Analysis failed", zap.String("analysis", a.Name), zap.Error(err))
	}
	return outcome, err
}

type jsonStep struct {
	StepID string `json:"stepId"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

type jsonOutcome struct {
	Steps  []jsonStep `json:"steps"`
	Report string     `json:"report,omitempty"`
}

// Print reports an outcome as step lines or, with asJSON, as the standard
// JSON envelope.
func Print(w io.Writer, asJSON bool, outcome *workflow.Outcome, runErr error) error {
	if outcome == nil {
		outcome = &workflow.Outcome{}
	}

	if asJSON {
		if runErr != nil {
			return output.FprintJSONError(w, "run", runErr, output.ExitCode(runErr))
		}
		data := jsonOutcome{Steps: make([]jsonStep, len(outcome.Steps)), Report: outcome.Report}
		for i, s := range outcome.Steps {
			data.Steps[i] = jsonStep{StepID: s.StepID, Output: s.Output}
			if s.Error != nil {
				data.Steps[i].Error = s.Error.Error()
			}
		}
		return output.FprintJSON(w, "run", data)
	}

	for _, s := range outcome.Steps {
		if s.Error != nil {
			color.New(color.FgRed).Fprintf(w, "Step %s: FAILED — %s\n", s.StepID, s.Error)
			continue
		}
		color.New(color.FgGreen).Fprintf(w, "Step %s: OK\n", s.StepID)
	}
	if outcome.Report != "" {
		fmt.Fprintf(w, "Report written to %s\n", outcome.Report)
	}
	return nil
}

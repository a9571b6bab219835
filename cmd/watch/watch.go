// Package watch provides the "cq watch" command that re-runs an analysis
// whenever it or one of its inputs changes.
package watch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JnliaH/ChromaQuant/cmd/cmdutil"
	"github.com/JnliaH/ChromaQuant/cmd/run"
	w "github.com/JnliaH/ChromaQuant/internal/watch"
	"github.com/JnliaH/ChromaQuant/internal/workflow"
)

// NewCommand creates the "watch" command.
func NewCommand() *cobra.Command {
	var (
		opts      run.Options
		debounce  int
		noInitial bool
	)

	cmd := &cobra.Command{
		Use:   "watch <analysis.yaml>",
		Short: "Re-run an analysis when its file or input tables change",
		Long: `Watches an analysis file and every table it reads, and re-runs the
analysis after each burst of changes.

Example:
  cq watch liquids.yaml --debounce 1000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			a, err := workflow.LoadAnalysis(args[0])
			if err != nil {
				return err
			}

			interval := env.Debounce()
			if cmd.Flags().Changed("debounce") {
				interval = time.Duration(debounce) * time.Millisecond
			}

			out := cmd.OutOrStdout()
			handler := func(ctx context.Context, path string) error {
				fmt.Fprintf(out, "Change detected: %s\n", path)
				outcome, runErr := run.Analysis(ctx, env, args[0], opts)
				if err := run.Print(out, env.JSON, outcome, runErr); err != nil {
					return err
				}
				return runErr
			}

			watcher, err := w.New(w.Config{
				Files:    append([]string{args[0]}, a.Inputs()...),
				Debounce: interval,
			}, handler, env.Logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Handle signals
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Fprintln(out, "\nStopping watcher...")
				cancel()
			}()

			if !noInitial {
				_ = handler(ctx, args[0])
			}

			status := watcher.GetStatus()
			color.New(color.FgCyan).Fprintf(out, "Watching %d file(s) in %d directory(ies)\n",
				len(status.Files), len(status.Directories))
			fmt.Fprintln(out, "Press Ctrl+C to stop")

			return watcher.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&debounce, "debounce", int(w.DefaultDebounce/time.Millisecond), "Quiet period in milliseconds before a re-run")
	cmd.Flags().BoolVar(&noInitial, "no-initial", false, "Wait for the first change instead of running at startup")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Run every step without writing the workbook")
	cmd.Flags().StringVar(&opts.Report, "report", "", "Workbook path, overriding the analysis and config")

	return cmd
}

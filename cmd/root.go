// Package cmd contains all CLI commands for the cq binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JnliaH/ChromaQuant/cmd/completion"
	cmdconfig "github.com/JnliaH/ChromaQuant/cmd/config"
	cmdmatch "github.com/JnliaH/ChromaQuant/cmd/match"
	"github.com/JnliaH/ChromaQuant/cmd/run"
	"github.com/JnliaH/ChromaQuant/cmd/version"
	cmdwatch "github.com/JnliaH/ChromaQuant/cmd/watch"
	"github.com/JnliaH/ChromaQuant/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cq",
		Short: "Quantify GC-FID and GC-MS results into live spreadsheets",
		Long: `ChromaQuant — chromatography results into formula-driven workbooks.

Match FID peaks against MS identifications, derive carbon numbers and
molecular weights, and write reports whose formulas follow the data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				color.NoColor = true
			}
		},
	}

	// Global persistent flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")

	// Register subcommands
	rootCmd.AddCommand(run.NewCommand())
	rootCmd.AddCommand(cmdmatch.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(output.ExitCode(err))
	}
}

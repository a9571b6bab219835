// Package cmdutil holds setup shared by the cq subcommands.
package cmdutil

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JnliaH/ChromaQuant/internal/config"
	"github.com/JnliaH/ChromaQuant/internal/logging"
	"github.com/JnliaH/ChromaQuant/internal/output"
	"github.com/JnliaH/ChromaQuant/internal/workflow"
)

// Env is the loaded configuration and logger for one command invocation.
type Env struct {
	Config *config.Config
	Logger *zap.Logger
	JSON   bool
}

// Setup loads the configuration and builds a logger honoring --verbose,
// --json and log.verbose.
func Setup(cmd *cobra.Command) (*Env, error) {
	jsonFlag, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !jsonFlag && output.ParseFormat(cfg.Output.Format) == output.FormatJSON {
		jsonFlag = true
	}

	logger, err := logging.New(verbose || cfg.Log.Verbose)
	if err != nil {
		return nil, err
	}
	return &Env{Config: cfg, Logger: logger, JSON: jsonFlag}, nil
}

// Settings maps the configuration onto analysis defaults.
func (e *Env) Settings() workflow.Settings {
	s := workflow.DefaultSettings()
	s.Tolerance = e.Config.Match.Tolerance
	if e.Config.Report.DefaultSheet != "" {
		s.DefaultSheet = e.Config.Report.DefaultSheet
	}
	if e.Config.Report.Path != "" {
		s.ReportPath = e.Config.Report.Path
	}
	return s
}

// Debounce returns the configured watch debounce interval.
func (e *Env) Debounce() time.Duration {
	return time.Duration(e.Config.Watch.DebounceMS) * time.Millisecond
}

// Close flushes the logger.
func (e *Env) Close() {
	_ = e.Logger.Sync()
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JnliaH/ChromaQuant/internal/errs"
	"github.com/JnliaH/ChromaQuant/internal/match"
)

// ConfigIssue is one problem or note found by Validate.
type ConfigIssue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error" or "warning"
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Validate checks the effective settings a match, report or watch run
// would use.
func Validate() []ConfigIssue {
	var issues []ConfigIssue
	add := func(key, severity, msg, fix string) {
		issues = append(issues, ConfigIssue{Key: key, Severity: severity, Message: msg, Fix: fix})
	}

	if tol := viper.GetFloat64("match.tolerance"); tol < 0 {
		add("match.tolerance", "error",
			fmt.Sprintf("match tolerance is %g but must not be negative", tol),
			"cq config set match.tolerance 0.05")
	}
	if _, err := match.ParseHitsRule(viper.GetString("match.hits_rule")); err != nil {
		add("match.hits_rule", "error",
			fmt.Sprintf("unknown hits rule %q — use first, lowest or highest", viper.GetString("match.hits_rule")),
			"cq config set match.hits_rule first")
	}
	if msg := outputPathProblem(viper.GetString("match.output_path")); msg != "" {
		add("match.output_path", "error", msg, "cq config set match.output_path match_results.csv")
	}

	if msg := sheetNameProblem(viper.GetString("report.default_sheet")); msg != "" {
		add("report.default_sheet", "error", msg, "cq config set report.default_sheet Sheet1")
	}
	if path := viper.GetString("report.path"); !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		add("report.path", "warning",
			fmt.Sprintf("report path %q does not end in .xlsx — spreadsheet apps may not open it", path),
			"cq config set report.path report.xlsx")
	}

	if d := viper.GetInt("watch.debounce_ms"); d <= 0 {
		add("watch.debounce_ms", "warning",
			fmt.Sprintf("watch debounce is %dms — the default of 500ms will be used", d), "")
	}
	return issues
}

func sheetNameProblem(name string) string {
	switch {
	case name == "":
		return "default sheet name is empty"
	case len([]rune(name)) > 31:
		return fmt.Sprintf("default sheet name %q is longer than 31 characters", name)
	case strings.ContainsAny(name, `[]:*?/\`):
		return fmt.Sprintf("default sheet name %q contains one of []:*?/\\", name)
	case strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'"):
		return fmt.Sprintf("default sheet name %q starts or ends with an apostrophe", name)
	}
	return ""
}

// outputPathProblem reports why match results could not be exported to
// path. The check creates and removes a scratch file next to it.
func outputPathProblem(path string) string {
	if strings.TrimSpace(path) == "" {
		return "match output path is empty"
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Sprintf("match output path %q is a directory", path)
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Sprintf("match output directory %q does not exist", dir)
	}
	if !info.IsDir() {
		return fmt.Sprintf("match output directory %q is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".cq-write-*")
	if err != nil {
		return fmt.Sprintf("match output directory %q is not writable", dir)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return ""
}

// setting describes how one key is parsed when written with Set.
type setting struct {
	parse func(string) (any, error)
}

func float(key string) setting {
	return setting{parse: func(s string) (any, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errs.Config("config", key, s, "expected a number")
		}
		return v, nil
	}}
}

func integer(key string) setting {
	return setting{parse: func(s string) (any, error) {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, errs.Config("config", key, s, "expected a whole number")
		}
		return v, nil
	}}
}

func boolean(key string) setting {
	return setting{parse: func(s string) (any, error) {
		v, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, errs.Config("config", key, s, "expected true or false")
		}
		return v, nil
	}}
}

func text(check func(string) error) setting {
	return setting{parse: func(s string) (any, error) {
		if check != nil {
			if err := check(s); err != nil {
				return nil, err
			}
		}
		return s, nil
	}}
}

var settings = map[string]setting{
	"match.tolerance": float("match.tolerance"),
	"match.hits_rule": text(func(s string) error {
		_, err := match.ParseHitsRule(s)
		return err
	}),
	"match.output_path": text(nil),
	"report.path":       text(nil),
	"report.default_sheet": text(func(s string) error {
		if msg := sheetNameProblem(s); msg != "" {
			return errs.Config("config", "report.default_sheet", s, msg)
		}
		return nil
	}),
	"watch.debounce_ms": integer("watch.debounce_ms"),
	"log.verbose":       boolean("log.verbose"),
	"output.format": text(func(s string) error {
		switch strings.ToLower(s) {
		case "text", "json", "markdown", "md":
			return nil
		}
		return errs.Config("config", "output.format", s, "use one of: text, json, markdown")
	}),
	"output.color": boolean("output.color"),
}

// Keys lists every setting Set accepts, sorted.
func Keys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookup(key string) (setting, error) {
	s, ok := settings[strings.ToLower(key)]
	if !ok {
		return setting{}, errs.Config("config", "key", key, "unknown setting — see cq config show")
	}
	return s, nil
}

// Set parses value for key, stores it and saves the config file. Values
// that would break a later run are rejected before anything is written.
func Set(key, value string) error {
	s, err := lookup(key)
	if err != nil {
		return err
	}
	v, err := s.parse(value)
	if err != nil {
		return err
	}
	viper.Set(strings.ToLower(key), v)
	return SaveConfig()
}

// Get returns the effective value of a known key.
func Get(key string) (string, error) {
	if _, err := lookup(key); err != nil {
		return "", err
	}
	return viper.GetString(strings.ToLower(key)), nil
}

// ResetConfig deletes the config file and restores the defaults.
func ResetConfig() error {
	path := ConfigPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete config: %w", err)
	}
	for k, v := range defaults {
		viper.Set(k, v)
	}
	return nil
}

// SaveConfig writes the current config to ~/.chromaquant/config.yaml.
func SaveConfig() error {
	dir := configDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}
	return os.Chmod(path, 0600)
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// ComparatorTolerance is the window a comparator applies around the
// primary value.
type ComparatorTolerance struct {
	Comparator match.Comparator `json:"comparator"`
	Tolerance  float64          `json:"tolerance"`
}

// Summary is the effective configuration grouped by the command that
// consumes it.
type Summary struct {
	Path  string `json:"path"`
	Match struct {
		Tolerance   float64               `json:"tolerance"`
		HitsRule    string                `json:"hits_rule"`
		OutputPath  string                `json:"output_path"`
		Comparators []ComparatorTolerance `json:"comparators"`
	} `json:"match"`
	Report struct {
		Path         string `json:"path"`
		DefaultSheet string `json:"default_sheet"`
	} `json:"report"`
	Watch struct {
		Debounce time.Duration `json:"debounce_ns"`
	} `json:"watch"`
}

// Summarize reads the effective settings. Only Equal conditions use the
// configured tolerance; ordering comparators compare exactly.
func Summarize(cfg *Config) Summary {
	var s Summary
	s.Path = ConfigPath()

	s.Match.Tolerance = cfg.Match.Tolerance
	s.Match.HitsRule = cfg.Match.HitsRule
	s.Match.OutputPath = cfg.Match.OutputPath
	s.Match.Comparators = []ComparatorTolerance{
		{Comparator: match.Equal, Tolerance: cfg.Match.Tolerance},
		{Comparator: match.GreaterThan},
		{Comparator: match.LessThan},
	}

	s.Report.Path = cfg.Report.Path
	s.Report.DefaultSheet = cfg.Report.DefaultSheet

	d := cfg.Watch.DebounceMS
	if d <= 0 {
		d = defaults["watch.debounce_ms"].(int)
	}
	s.Watch.Debounce = time.Duration(d) * time.Millisecond
	return s
}

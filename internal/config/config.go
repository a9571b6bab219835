// Package config manages application configuration from files and environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Match struct {
		Tolerance  float64 `mapstructure:"tolerance"`
		OutputPath string  `mapstructure:"output_path"`
		HitsRule   string  `mapstructure:"hits_rule"`
	} `mapstructure:"match"`
	Report struct {
		Path         string `mapstructure:"path"`
		DefaultSheet string `mapstructure:"default_sheet"`
	} `mapstructure:"report"`
	Watch struct {
		DebounceMS int `mapstructure:"debounce_ms"`
	} `mapstructure:"watch"`
	Log struct {
		Verbose bool `mapstructure:"verbose"`
	} `mapstructure:"log"`
	Output struct {
		Format string `mapstructure:"format"`
		Color  bool   `mapstructure:"color"`
	} `mapstructure:"output"`
}

// defaults are applied by Load and restored by ResetConfig.
var defaults = map[string]any{
	"match.tolerance":      0.05,
	"match.output_path":    "match_results.csv",
	"match.hits_rule":      "first",
	"report.path":          "report.xlsx",
	"report.default_sheet": "Sheet1",
	"watch.debounce_ms":    500,
	"log.verbose":          false,
	"output.format":        "text",
	"output.color":         true,
}

// Load reads the configuration from ~/.chromaquant/config.yaml and CQ_
// environment variables, e.g. CQ_MATCH_TOLERANCE.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir())

	setDefaults()

	// Environment variable overrides
	viper.SetEnvPrefix("CQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (non-fatal if missing)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chromaquant"
	}
	return filepath.Join(home, ".chromaquant")
}

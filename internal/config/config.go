// Package config loads CLI settings from defaults, an optional
// .treeform.yaml file and TREEFORM_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName = ".treeform"
	configType = "yaml"
	envPrefix  = "TREEFORM"
)

// Output formats.
const (
	FormatTree = "tree"
	FormatJSON = "json"
	FormatText = "text"
)

var (
	ErrReadConfig   = errors.New("cannot read config")
	ErrInvalidValue = errors.New("invalid config value")
)

type Parse struct {
	Grammar     string `mapstructure:"grammar" yaml:"grammar"`
	NaiveSearch bool   `mapstructure:"naive_search" yaml:"naive_search"`
	// Normalize applies NFC normalisation to input text before parsing.
	Normalize bool   `mapstructure:"normalize" yaml:"normalize"`
	CacheDir  string `mapstructure:"cache_dir" yaml:"cache_dir"`
	Events    bool   `mapstructure:"events" yaml:"events"`
}

type Transform struct {
	Rules string `mapstructure:"rules" yaml:"rules"`
	// SideTrees maps a side tree name to a tree JSON file.
	SideTrees map[string]string `mapstructure:"side_trees" yaml:"side_trees"`
}

type Generate struct {
	Rules string `mapstructure:"rules" yaml:"rules"`
}

type Output struct {
	Format string `mapstructure:"format" yaml:"format"`
	Color  bool   `mapstructure:"color" yaml:"color"`
}

type Config struct {
	LogLevel  string    `mapstructure:"log_level" yaml:"log_level"`
	Parse     Parse     `mapstructure:"parse" yaml:"parse"`
	Transform Transform `mapstructure:"transform" yaml:"transform"`
	Generate  Generate  `mapstructure:"generate" yaml:"generate"`
	Output    Output    `mapstructure:"output" yaml:"output"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		LogLevel: "info",
		Output:   Output{Format: FormatTree, Color: true},
	}
}

// Load reads configuration. An explicit path must exist; otherwise
// .treeform.yaml is looked up in the working directory and $HOME, and a
// missing file means defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("parse.grammar", "")
	v.SetDefault("parse.naive_search", false)
	v.SetDefault("parse.normalize", false)
	v.SetDefault("parse.cache_dir", "")
	v.SetDefault("parse.events", false)
	v.SetDefault("transform.rules", "")
	v.SetDefault("transform.side_trees", map[string]string{})
	v.SetDefault("generate.rules", "")
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.color", d.Output.Color)
}

var logLevels = []string{"debug", "info", "warn", "error"}

func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatTree, FormatJSON, FormatText:
	default:
		return fmt.Errorf("%w: output.format %q", ErrInvalidValue, c.Output.Format)
	}
	for _, l := range logLevels {
		if c.LogLevel == l {
			return nil
		}
	}
	return fmt.Errorf("%w: log_level %q", ErrInvalidValue, c.LogLevel)
}

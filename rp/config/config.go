package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/repo-parser/rp"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Scan        ScanConfig         `mapstructure:"scan"`
	History     HistoryConfig      `mapstructure:"history"`
	Classifiers []ClassifierConfig `mapstructure:"classifiers"`
	Telemetry   TelemetryConfig    `mapstructure:"telemetry"`
	Watch       WatchConfig        `mapstructure:"watch"`
}

// ScanConfig controls the filesystem scan.
type ScanConfig struct {
	Root           string   `mapstructure:"root"`
	Subdirs        []string `mapstructure:"subdirs"`
	MaxDepth       int      `mapstructure:"maxDepth"`
	IgnorePatterns []string `mapstructure:"ignorePatterns"`
	IgnoreFile     string   `mapstructure:"ignoreFile"`
}

// HistoryConfig controls the last-modified lookup against version control.
type HistoryConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ChunkSize         int    `mapstructure:"chunkSize"`
	GitTimeoutSeconds int    `mapstructure:"gitTimeoutSeconds"`
	GitBinary         string `mapstructure:"gitBinary"`
}

// ClassifierConfig declares an extra classifier checked before the built-in ones.
// Exactly one of Pattern (regular expression) or Glob (doublestar) must be set.
type ClassifierConfig struct {
	Name         string `mapstructure:"name"`
	Pattern      string `mapstructure:"pattern"`
	Glob         string `mapstructure:"glob"`
	Extractor    string `mapstructure:"extractor"`
	Kind         string `mapstructure:"kind"`
	WantsContent bool   `mapstructure:"wantsContent"`
}

// TelemetryConfig toggles the OpenTelemetry providers.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Stdout  bool `mapstructure:"stdout"`
}

// WatchConfig configures live rebuilds.
type WatchConfig struct {
	DebounceMillis int `mapstructure:"debounceMillis"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("scan.root", ".")
	v.SetDefault("scan.subdirs", []string{})
	v.SetDefault("scan.maxDepth", -1)
	v.SetDefault("scan.ignorePatterns", []string{})
	v.SetDefault("scan.ignoreFile", internal.DefaultIgnoreFile)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.chunkSize", internal.DefaultHistoryChunkSize)
	v.SetDefault("history.gitTimeoutSeconds", internal.DefaultGitTimeoutSecs)
	v.SetDefault("history.gitBinary", internal.DefaultGitBinary)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.stdout", false)
	v.SetDefault("watch.debounceMillis", internal.DefaultDebounceMillis)

	v.SetEnvPrefix(strings.ToUpper(internal.DefaultAppName))
	v.AutomaticEnv()                                   // RP_SCAN_MAXDEPTH, RP_HISTORY_CHUNKSIZE, ...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // scan.maxDepth becomes RP_SCAN_MAXDEPTH

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return &AppConfig, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.History.ChunkSize <= 0 {
		return fmt.Errorf("history.chunkSize must be positive, got %d", c.History.ChunkSize)
	}
	if c.History.GitTimeoutSeconds <= 0 {
		return fmt.Errorf("history.gitTimeoutSeconds must be positive, got %d", c.History.GitTimeoutSeconds)
	}
	if c.Scan.MaxDepth < -1 {
		return fmt.Errorf("scan.maxDepth must be -1 (unlimited) or >= 0, got %d", c.Scan.MaxDepth)
	}
	for i, cc := range c.Classifiers {
		if (cc.Pattern == "") == (cc.Glob == "") {
			return fmt.Errorf("classifiers[%d] (%s): exactly one of pattern or glob is required", i, cc.Name)
		}
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/scipunch/secfeed/model"
)

const (
	baseCfgPath = "secfeed/config.toml"

	MinLimit = 1
	MaxLimit = 100
)

var (
	ErrInvalidLimit    = fmt.Errorf("limit_per_source must be between %d and %d", MinLimit, MaxLimit)
	ErrInvalidMode     = errors.New("mode must be one of: feed, deep")
	ErrInvalidTimeout  = errors.New("timeout_per_request must be positive")
	ErrInvalidDelay    = errors.New("retry_base_delay must not be negative")
	ErrSourceName      = errors.New("every source needs a unique, non-empty name")
	ErrSourceEndpoint  = errors.New("every source needs a feed_url")
	ErrUnknownFilter   = errors.New("source references an unknown filter")
	ErrInvalidLogLevel = errors.New("log_level must be one of: debug, info, warn, error")
	ErrInvalidFormat   = errors.New("export formats must be csv or json")
)

type Config struct {
	LimitPerSource    int               `toml:"limit_per_source"`
	Mode              string            `toml:"mode"`
	TimeoutPerRequest time.Duration     `toml:"timeout_per_request"`
	RetryBaseDelay    time.Duration     `toml:"retry_base_delay"`
	LogLevel          string            `toml:"log_level"`
	Export            ExportConfig      `toml:"export"`
	Server            ServerConfig      `toml:"server"`
	Sources           []SourceConfig    `toml:"sources"`
	Filters           map[string]Filter `toml:"filters"` // Named filters that can be referenced by sources
}

type ExportConfig struct {
	Directory string   `toml:"directory"` // Where export files land (defaults to $HOME/secfeed)
	Prefix    string   `toml:"prefix"`
	Formats   []string `toml:"formats"` // Any of "csv", "json"
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type SourceConfig struct {
	Name        string   `toml:"name"`
	FeedURL     string   `toml:"feed_url"`
	IndexURL    string   `toml:"index_url"` // HTML listing used in deep mode
	Strategy    string   `toml:"strategy"`
	Enabled     *bool    `toml:"enabled"` // Whether this source is active (defaults to true if not set)
	FilterNames []string `toml:"filters"` // Names of filters to apply (pipeline)
}

// Filter defines rules for filtering collected articles
type Filter struct {
	MinLength       int      `toml:"min_length"`       // Minimum character count (0 = no limit)
	MinWords        int      `toml:"min_words"`        // Minimum word count (0 = no limit)
	ExcludePatterns []string `toml:"exclude_patterns"` // Regex patterns to exclude
	RequireSummary  bool     `toml:"require_summary"`  // Drop articles without a summary
}

// IsEnabled returns true if the source is enabled (defaults to true if not explicitly set)
func (s SourceConfig) IsEnabled() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

// RunMode parses the configured mode
func (c Config) RunMode() (model.Mode, error) {
	m, err := model.ParseStrategy(c.Mode)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidMode, err)
	}
	return m, nil
}

// Validate checks the values a run depends on
func (c Config) Validate() error {
	if c.LimitPerSource < MinLimit || c.LimitPerSource > MaxLimit {
		return ErrInvalidLimit
	}
	if _, err := c.RunMode(); err != nil {
		return err
	}
	if c.TimeoutPerRequest <= 0 {
		return ErrInvalidTimeout
	}
	if c.RetryBaseDelay < 0 {
		return ErrInvalidDelay
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	for _, f := range c.Export.Formats {
		if f != "csv" && f != "json" {
			return fmt.Errorf("%w: %q", ErrInvalidFormat, f)
		}
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" || seen[s.Name] {
			return fmt.Errorf("%w: %q", ErrSourceName, s.Name)
		}
		seen[s.Name] = true
		if s.FeedURL == "" {
			return fmt.Errorf("%w: %s", ErrSourceEndpoint, s.Name)
		}
		if s.Strategy != "" {
			if _, err := model.ParseStrategy(s.Strategy); err != nil {
				return fmt.Errorf("source %s: %w", s.Name, err)
			}
		}
		for _, name := range s.FilterNames {
			if _, ok := c.Filters[name]; !ok {
				return fmt.Errorf("%w: %s uses %q", ErrUnknownFilter, s.Name, name)
			}
		}
	}
	return nil
}

func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	_, err = toml.Decode(string(dat), &conf)
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	return conf, nil
}

// Write encodes cfg as TOML at cfgPath, creating parent directories
func Write(cfgPath string, cfg Config, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	log.Info("config written", zap.String("at", cfgPath))
	return nil
}

func Default() Config {
	var home = os.Getenv("HOME")
	var outputDir = path.Join(home, "secfeed")
	return Config{
		LimitPerSource:    10,
		Mode:              string(model.Feed),
		TimeoutPerRequest: 30 * time.Second,
		RetryBaseDelay:    time.Second,
		LogLevel:          "info",
		Export: ExportConfig{
			Directory: outputDir,
			Prefix:    "cybersecurity_news",
			Formats:   []string{"csv", "json"},
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Sources: []SourceConfig{},
	}
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return path.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return path.Join(home, ".config", baseCfgPath)
	}

	panic("unclear where to search for the config file")
}

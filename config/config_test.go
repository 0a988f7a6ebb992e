package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/scipunch/secfeed/model"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate, got %v", err)
	}
	mode, err := cfg.RunMode()
	if err != nil || mode != model.Feed {
		t.Errorf("Expected feed mode, got %q (%v)", mode, err)
	}
	if cfg.LimitPerSource != 10 {
		t.Errorf("Expected default limit 10, got %d", cfg.LimitPerSource)
	}
}

func TestReadOverlaysDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.toml")
	blob := `
limit_per_source = 25
mode = "deep"
timeout_per_request = "5s"

[filters.long]
min_words = 5

[[sources]]
name = "krebs_security"
feed_url = "https://krebsonsecurity.com/feed/"
filters = ["long"]

[[sources]]
name = "dark_reading"
feed_url = "https://www.darkreading.com/rss.xml"
enabled = false
`
	if err := os.WriteFile(cfgPath, []byte(blob), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Read(cfgPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if cfg.LimitPerSource != 25 {
		t.Errorf("Expected limit 25, got %d", cfg.LimitPerSource)
	}
	if cfg.TimeoutPerRequest != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.TimeoutPerRequest)
	}
	if cfg.RetryBaseDelay != time.Second {
		t.Errorf("Expected default retry delay to survive, got %v", cfg.RetryBaseDelay)
	}
	if cfg.Export.Prefix != "cybersecurity_news" {
		t.Errorf("Expected default export prefix, got %q", cfg.Export.Prefix)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(cfg.Sources))
	}
	if !cfg.Sources[0].IsEnabled() || cfg.Sources[1].IsEnabled() {
		t.Errorf("Unexpected enabled flags: %v %v", cfg.Sources[0].IsEnabled(), cfg.Sources[1].IsEnabled())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestWriteThenRead(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Mode = "deep"
	cfg.Sources = []SourceConfig{{Name: "gb_hackers", FeedURL: "https://gbhackers.com/feed/"}}

	core, logs := observer.New(zap.InfoLevel)
	if err := Write(cfgPath, cfg, zap.New(core)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	written := logs.FilterMessage("config written").FilterField(zap.String("at", cfgPath))
	if written.Len() != 1 {
		t.Errorf("Expected one log entry for the written config, got %d", written.Len())
	}
	got, err := Read(cfgPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Mode != "deep" || len(got.Sources) != 1 || got.Sources[0].Name != "gb_hackers" {
		t.Errorf("Config did not survive a write: %+v", got)
	}
	if got.TimeoutPerRequest != cfg.TimeoutPerRequest {
		t.Errorf("Expected timeout %v, got %v", cfg.TimeoutPerRequest, got.TimeoutPerRequest)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"limit too low", func(c *Config) { c.LimitPerSource = 0 }, ErrInvalidLimit},
		{"limit too high", func(c *Config) { c.LimitPerSource = 101 }, ErrInvalidLimit},
		{"bad mode", func(c *Config) { c.Mode = "turbo" }, ErrInvalidMode},
		{"zero timeout", func(c *Config) { c.TimeoutPerRequest = 0 }, ErrInvalidTimeout},
		{"negative delay", func(c *Config) { c.RetryBaseDelay = -time.Second }, ErrInvalidDelay},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, ErrInvalidLogLevel},
		{"bad format", func(c *Config) { c.Export.Formats = []string{"xml"} }, ErrInvalidFormat},
		{"duplicate source", func(c *Config) {
			c.Sources = []SourceConfig{{Name: "a", FeedURL: "https://a"}, {Name: "a", FeedURL: "https://b"}}
		}, ErrSourceName},
		{"missing feed", func(c *Config) { c.Sources = []SourceConfig{{Name: "a"}} }, ErrSourceEndpoint},
		{"unknown filter", func(c *Config) {
			c.Sources = []SourceConfig{{Name: "a", FeedURL: "https://a", FilterNames: []string{"ghost"}}}
		}, ErrUnknownFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultPath(); got != "/tmp/xdg/secfeed/config.toml" {
		t.Errorf("DefaultPath() = %q", got)
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the viewer settings. Zero values are replaced by Default
// when the file is loaded.
type Config struct {
	InputPath      string  `yaml:"input"`
	OutputDir      string  `yaml:"output"`
	Scale          float64 `yaml:"scale"`
	ViewportHeight int     `yaml:"viewport_height"`
	ScrollOffset   int     `yaml:"scroll_offset"`
	PageGap        int     `yaml:"page_gap"`
	RenderAll      bool    `yaml:"render_all"`
	Watch          bool    `yaml:"watch"`
	WatchDebounce  string  `yaml:"watch_debounce"`
	DemoPages      int     `yaml:"demo_pages"`
	MinFreeMB      uint64  `yaml:"min_free_mb"`
	ShowStats      bool    `yaml:"show_stats"`
	LogFile        string  `yaml:"log_file"`
	LogLevel       string  `yaml:"log_level"`
	BuildVersion   string  `yaml:"-"`
}

func Default() *Config {
	return &Config{
		OutputDir:      "output",
		Scale:          1.0,
		ViewportHeight: 1080,
		PageGap:        8,
		WatchDebounce:  "500ms",
		LogLevel:       "info",
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every invalid field at once. An empty watch_debounce
// means the watcher default.
func (c *Config) Validate() error {
	var errs []error
	if c.Scale <= 0 || c.Scale > 16 {
		errs = append(errs, fmt.Errorf("scale must be in (0, 16], got %v", c.Scale))
	}
	if c.ViewportHeight <= 0 {
		errs = append(errs, fmt.Errorf("viewport_height must be positive, got %d", c.ViewportHeight))
	}
	if c.ScrollOffset < 0 {
		errs = append(errs, fmt.Errorf("scroll_offset must not be negative, got %d", c.ScrollOffset))
	}
	if c.PageGap < 0 {
		errs = append(errs, fmt.Errorf("page_gap must not be negative, got %d", c.PageGap))
	}
	if c.DemoPages < 0 {
		errs = append(errs, fmt.Errorf("demo_pages must not be negative, got %d", c.DemoPages))
	}
	if c.WatchDebounce != "" {
		if d, err := time.ParseDuration(c.WatchDebounce); err != nil {
			errs = append(errs, fmt.Errorf("watch_debounce: %w", err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("watch_debounce must be positive, got %v", d))
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

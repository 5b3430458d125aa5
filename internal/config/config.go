package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the global and repo directories.
const FileName = "config.yaml"

// Config holds application configuration.
type Config struct {
	// Separator is the field separator of the export (default: tab)
	Separator string `yaml:"separator,omitempty"`

	// PreambleLines is the number of leading lines whose parse failures are not logged.
	// Zero in a config file means "inherit"; the default is 2.
	PreambleLines int `yaml:"preamble_lines,omitempty"`

	// ResourceDir holds the annotation icons (syringe.png, apple.png, syringe_slow.png).
	ResourceDir string `yaml:"resource_dir,omitempty"`

	// OutputDir is where charts and reports are written (default: working directory).
	OutputDir string `yaml:"output_dir,omitempty"`

	// DaySplit is "day_of_month" (default) or "calendar_date".
	DaySplit string `yaml:"day_split,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`

	// LogFormat is "console" (default) or "json".
	LogFormat string `yaml:"log_format,omitempty"`

	Chart ChartConfig `yaml:"chart,omitempty"`

	// DisabledTools lists MCP tool names that are not registered.
	DisabledTools []string `yaml:"disabled_tools,omitempty"`
}

// ChartConfig holds the chart geometry that may be tuned per installation.
type ChartConfig struct {
	Width      int `yaml:"width,omitempty"`
	Height     int `yaml:"height,omitempty"`
	TargetLow  int `yaml:"target_low,omitempty"`
	TargetHigh int `yaml:"target_high,omitempty"`
	IconSize   int `yaml:"icon_size,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Separator:     "\t",
		PreambleLines: 2,
		ResourceDir:   "res",
		OutputDir:     ".",
		DaySplit:      "day_of_month",
		LogLevel:      "info",
		LogFormat:     "console",
		Chart: ChartConfig{
			Width:      800,
			Height:     600,
			TargetLow:  60,
			TargetHigh: 180,
			IconSize:   12,
		},
	}
}

// Load loads configuration from baseDir/config.yaml.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.libreplot.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, FileName))
}

// LoadWithRepo loads configuration from both global (~/.libreplot) and repo (.libreplot) directories.
// Repo config is found by walking upward from startDir. Repo config takes precedence.
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, FileName))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .libreplot/config.yaml.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".libreplot", FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs. Overlay values win when non-zero.
func Merge(base, overlay *Config) *Config {
	return &Config{
		Separator:     pick(overlay.Separator, base.Separator),
		PreambleLines: pick(overlay.PreambleLines, base.PreambleLines),
		ResourceDir:   pick(overlay.ResourceDir, base.ResourceDir),
		OutputDir:     pick(overlay.OutputDir, base.OutputDir),
		DaySplit:      pick(overlay.DaySplit, base.DaySplit),
		LogLevel:      pick(overlay.LogLevel, base.LogLevel),
		LogFormat:     pick(overlay.LogFormat, base.LogFormat),
		Chart: ChartConfig{
			Width:      pick(overlay.Chart.Width, base.Chart.Width),
			Height:     pick(overlay.Chart.Height, base.Chart.Height),
			TargetLow:  pick(overlay.Chart.TargetLow, base.Chart.TargetLow),
			TargetHigh: pick(overlay.Chart.TargetHigh, base.Chart.TargetHigh),
			IconSize:   pick(overlay.Chart.IconSize, base.Chart.IconSize),
		},
		DisabledTools: pickSlice(overlay.DisabledTools, base.DisabledTools),
	}
}

// pickSlice returns overlay unless it is empty.
func pickSlice[T any](overlay, base []T) []T {
	if len(overlay) > 0 {
		return overlay
	}
	return base
}

// pick returns overlay unless it is the zero value.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// Validate checks values that would make parsing or rendering impossible.
func (c *Config) Validate() error {
	if c.Separator == "" {
		return errors.New("separator must not be empty")
	}
	if c.PreambleLines < 0 {
		return errors.New("preamble_lines must not be negative")
	}
	switch c.DaySplit {
	case "day_of_month", "calendar_date":
	default:
		return fmt.Errorf("day_split must be day_of_month or calendar_date, got %q", c.DaySplit)
	}
	if c.Chart.Width < 200 || c.Chart.Height < 200 {
		return fmt.Errorf("chart size %dx%d is too small (min 200x200)", c.Chart.Width, c.Chart.Height)
	}
	if c.Chart.TargetLow >= c.Chart.TargetHigh {
		return fmt.Errorf("chart target_low (%d) must be below target_high (%d)", c.Chart.TargetLow, c.Chart.TargetHigh)
	}
	if c.Chart.IconSize <= 0 {
		return errors.New("chart icon_size must be positive")
	}
	return nil
}

// Package config handles loading and saving spangraph configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/spangraph/config.yaml
//   - Data:    ~/.local/share/spangraph/ (graph database)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/spangraph/pkg/model"
)

const appName = "spangraph"

// Canvas sizes, in pixels.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
	MinDimension  = 100
)

// DatabaseFile is the default database file name inside DataDir.
const DatabaseFile = "graphs.db"

// Export formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// CanvasConfig sets the drawing surface size.
type CanvasConfig struct {
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
}

// GeneratorConfig controls span generation.
type GeneratorConfig struct {
	Seed   int64    `yaml:"seed,omitempty"`   // 0 seeds from the clock
	Labels []string `yaml:"labels,omitempty"` // empty uses the built-in label set
}

// StoreConfig locates the graph database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // empty uses DataDir()/graphs.db
}

// ExportConfig sets snapshot defaults.
type ExportConfig struct {
	Format string `yaml:"format,omitempty"` // svg or png
}

// Config is the top-level configuration for spangraph.
type Config struct {
	Canvas    CanvasConfig    `yaml:"canvas,omitempty"`
	Generator GeneratorConfig `yaml:"generator,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
	Export    ExportConfig    `yaml:"export,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Canvas: CanvasConfig{
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		Export: ExportConfig{
			Format: FormatSVG,
		},
	}
}

// ConfigDir returns the XDG config directory for spangraph.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// DataDir returns the XDG data directory for spangraph.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Export.Format = strings.ToLower(cfg.Export.Format)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks canvas size and export format.
func (c Config) Validate() error {
	if c.Canvas.Width < MinDimension || c.Canvas.Height < MinDimension {
		return fmt.Errorf("canvas %dx%d is smaller than %dx%d",
			c.Canvas.Width, c.Canvas.Height, MinDimension, MinDimension)
	}
	switch c.Export.Format {
	case FormatSVG, FormatPNG:
	default:
		return fmt.Errorf("unknown export format %q", c.Export.Format)
	}
	for _, l := range c.Generator.Labels {
		if strings.TrimSpace(l) == "" {
			return errors.New("empty generator label")
		}
	}
	return nil
}

// Labels returns the configured label set, or nil for the default set.
func (c Config) Labels() []model.Label {
	if len(c.Generator.Labels) == 0 {
		return nil
	}
	out := make([]model.Label, len(c.Generator.Labels))
	for i, l := range c.Generator.Labels {
		out[i] = model.Label(strings.TrimSpace(l))
	}
	return out
}

// StorePath returns the database path, defaulting to DataDir()/graphs.db.
func (c Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	dir := DataDir()
	if dir == "" {
		return DatabaseFile
	}
	return filepath.Join(dir, DatabaseFile)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

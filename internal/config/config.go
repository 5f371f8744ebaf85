package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/san-kum/calinspect/internal/calib"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDataDir     = "."
	DefaultOutDir      = "."
	DefaultImageFormat = "png"
	DefaultTipTiltFile = "calib_tip_tilt_actuation.pdf"
	DefaultTheme       = "cyberpunk"
	DefaultPlotWidth   = 16.0
	DefaultPlotHeight  = 12.0
)

// ImageFormats are the file formats the plot package can write.
var ImageFormats = []string{"png", "pdf", "svg", "eps", "jpg", "tif"}

type Config struct {
	DataDir     string            `yaml:"data_dir"`
	OutDir      string            `yaml:"out_dir"`
	ImageFormat string            `yaml:"image_format"`
	TipTiltFile string            `yaml:"tiptilt_file"`
	Cutoff      float64           `yaml:"cutoff"`
	Theme       string            `yaml:"theme"`
	Workers     int               `yaml:"workers"`
	Plot        PlotConfig        `yaml:"plot"`
	Patterns    map[string]string `yaml:"patterns,omitempty"`
}

// PlotConfig sizes are in centimeters.
type PlotConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:     DefaultDataDir,
		OutDir:      DefaultOutDir,
		ImageFormat: DefaultImageFormat,
		TipTiltFile: DefaultTipTiltFile,
		Theme:       DefaultTheme,
		Plot: PlotConfig{
			Width:  DefaultPlotWidth,
			Height: DefaultPlotHeight,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if !slices.Contains(ImageFormats, c.ImageFormat) {
		return fmt.Errorf("unknown image format %q (available: %v)", c.ImageFormat, ImageFormats)
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(c.TipTiltFile)), "."); !slices.Contains(ImageFormats, ext) {
		return fmt.Errorf("tiptilt_file %q: extension must be one of %v", c.TipTiltFile, ImageFormats)
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return fmt.Errorf("plot size must be positive, got %gx%g cm", c.Plot.Width, c.Plot.Height)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	for kind := range c.Patterns {
		if !slices.Contains(calib.Kinds, calib.Kind(kind)) {
			return fmt.Errorf("pattern for unknown kind %q", kind)
		}
	}
	return nil
}

// PatternMap returns the configured file globs keyed by kind.
func (c *Config) PatternMap() map[calib.Kind]string {
	if len(c.Patterns) == 0 {
		return nil
	}
	out := make(map[calib.Kind]string, len(c.Patterns))
	for kind, pattern := range c.Patterns {
		out[calib.Kind(kind)] = pattern
	}
	return out
}

// ApplyPreset copies the output settings of a named preset onto c.
func (c *Config) ApplyPreset(name string) error {
	p := GetPreset(name)
	if p == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", name, ListPresets())
	}
	c.ImageFormat = p.ImageFormat
	c.TipTiltFile = p.TipTiltFile
	c.Plot = p.Plot
	return nil
}

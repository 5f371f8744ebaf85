package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/calinspect/internal/calib"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ImageFormat != "png" {
		t.Errorf("expected image format png, got %s", cfg.ImageFormat)
	}
	if cfg.TipTiltFile != "calib_tip_tilt_actuation.pdf" {
		t.Errorf("unexpected tip/tilt file %s", cfg.TipTiltFile)
	}
	if cfg.Cutoff != 0 {
		t.Error("default cutoff should keep every mode")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calinspect.yaml")

	cfg := DefaultConfig()
	cfg.DataDir = "/data/FOAM_data_20121012_130907"
	cfg.Cutoff = 0.7
	cfg.Patterns = map[string]string{"singval": "*_singular_*.csv"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.DataDir != cfg.DataDir {
		t.Errorf("expected data dir %s, got %s", cfg.DataDir, loaded.DataDir)
	}
	if loaded.Cutoff != 0.7 {
		t.Errorf("expected cutoff 0.7, got %f", loaded.Cutoff)
	}
	if got := loaded.PatternMap()[calib.KindSingVal]; got != "*_singular_*.csv" {
		t.Errorf("unexpected singval pattern %q", got)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calinspect.yaml")
	if err := os.WriteFile(path, []byte("out_dir: plots\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.OutDir != "plots" {
		t.Errorf("expected out dir plots, got %s", cfg.OutDir)
	}
	if cfg.ImageFormat != DefaultImageFormat {
		t.Errorf("expected default image format, got %s", cfg.ImageFormat)
	}
	if cfg.Plot.Width != DefaultPlotWidth {
		t.Errorf("expected default width, got %f", cfg.Plot.Width)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"pdf", func(c *Config) { c.ImageFormat = "pdf" }, true},
		{"bad format", func(c *Config) { c.ImageFormat = "bmp" }, false},
		{"tiptilt svg", func(c *Config) { c.TipTiltFile = "tiptilt.SVG" }, true},
		{"tiptilt bad extension", func(c *Config) { c.TipTiltFile = "tiptilt.bmp" }, false},
		{"tiptilt no extension", func(c *Config) { c.TipTiltFile = "tiptilt" }, false},
		{"zero width", func(c *Config) { c.Plot.Width = 0 }, false},
		{"negative workers", func(c *Config) { c.Workers = -1 }, false},
		{"unknown kind", func(c *Config) { c.Patterns = map[string]string{"sigma": "*"} }, false},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		err := cfg.Validate()
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestPresets(t *testing.T) {
	if GetPreset("print") == nil {
		t.Fatal("expected print preset")
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}

	names := ListPresets()
	if len(names) != len(Presets) {
		t.Errorf("expected %d presets, got %d", len(Presets), len(names))
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyPreset("web"); err != nil {
		t.Fatal(err)
	}
	if cfg.ImageFormat != "svg" {
		t.Errorf("expected svg, got %s", cfg.ImageFormat)
	}
	if err := cfg.ApplyPreset("nonexistent"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

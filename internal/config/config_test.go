package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	// Проверяем значения по умолчанию
	if cfg.InputDir != "./videos/input_videos" {
		t.Errorf("InputDir = %q, want ./videos/input_videos", cfg.InputDir)
	}

	if cfg.Scale != 2 {
		t.Errorf("Scale = %d, want 2", cfg.Scale)
	}

	if cfg.Model != "realesr-animevideov3" {
		t.Errorf("Model = %q, want realesr-animevideov3", cfg.Model)
	}

	if cfg.OutputSuffix != "_4x" || cfg.OutputContainer != "mp4" {
		t.Errorf("output naming = %q.%q, want _4x.mp4", cfg.OutputSuffix, cfg.OutputContainer)
	}

	if cfg.DecodeRate != 350 || cfg.UpscaleRate != 11 || cfg.RebuildRate != 22 {
		t.Errorf("rates = %v/%v/%v, want 350/11/22", cfg.DecodeRate, cfg.UpscaleRate, cfg.RebuildRate)
	}

	if !cfg.KeepTree {
		t.Error("KeepTree should be true by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing input dir", mutate: func(c *Config) { c.InputDir = "" }, wantErr: true},
		{name: "missing output dir", mutate: func(c *Config) { c.OutputDir = "" }, wantErr: true},
		{name: "same scratch dirs", mutate: func(c *Config) { c.UpscaleDir = c.ExtractDir + "/" }, wantErr: true},
		{name: "scratch equals output", mutate: func(c *Config) { c.ExtractDir = c.OutputDir }, wantErr: true},
		{name: "zero scale", mutate: func(c *Config) { c.Scale = 0 }, wantErr: true},
		{name: "empty model", mutate: func(c *Config) { c.Model = "" }, wantErr: true},
		{name: "zero upscale rate", mutate: func(c *Config) { c.UpscaleRate = 0 }, wantErr: true},
		{name: "no extensions", mutate: func(c *Config) { c.InputExtensions = nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateSetsDBPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = "/out"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if want := filepath.Join("/out", ".vupscale", "journal.sqlite"); cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
}

func TestConfig_HasInputExtension(t *testing.T) {
	cfg := &Config{
		InputExtensions: []string{"mp4", "mkv"},
	}

	tests := []struct {
		ext  string
		want bool
	}{
		{"mp4", true},
		{".mp4", true},
		{"MKV", true}, // case insensitive
		{"avi", false},
		{"jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := cfg.HasInputExtension(tt.ext); got != tt.want {
				t.Errorf("HasInputExtension(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.applyEnv(env.Options{
		Prefix: "VUPSCALE_",
		Environment: map[string]string{
			"VUPSCALE_SCALE":            "4",
			"VUPSCALE_INPUT_DIR":        "/media/in",
			"VUPSCALE_UPSCALE_RATE":     "7.5",
			"VUPSCALE_INPUT_EXTENSIONS": "mkv,webm",
			"VUPSCALE_DRY_RUN":          "true",
		},
	})
	if err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}

	if cfg.Scale != 4 {
		t.Errorf("Scale = %d, want 4", cfg.Scale)
	}
	if cfg.InputDir != "/media/in" {
		t.Errorf("InputDir = %q, want /media/in", cfg.InputDir)
	}
	if cfg.UpscaleRate != 7.5 {
		t.Errorf("UpscaleRate = %v, want 7.5", cfg.UpscaleRate)
	}
	if len(cfg.InputExtensions) != 2 || cfg.InputExtensions[1] != "webm" {
		t.Errorf("InputExtensions = %v", cfg.InputExtensions)
	}
	if !cfg.DryRun {
		t.Error("DryRun should be set from env")
	}
	// Незаданные переменные не сбрасывают значения
	if cfg.Model != DefaultModel {
		t.Errorf("Model = %q, want untouched default", cfg.Model)
	}
}

func TestFileConfig_ApplyToConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vupscale.yaml")
	data := `
folders:
  input: /data/in
  output: /data/out
upscale:
  scale: 4
estimate:
  upscale_fps: 5
output:
  keep_tree: false
processing:
  log_level: debug
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	fc, found, err := FindAndLoadConfig(path)
	if err != nil {
		t.Fatalf("FindAndLoadConfig() error = %v", err)
	}
	if found != path {
		t.Errorf("found = %q, want %q", found, path)
	}

	cfg := DefaultConfig()
	fc.ApplyToConfig(cfg)

	if cfg.InputDir != "/data/in" || cfg.OutputDir != "/data/out" {
		t.Errorf("folders not applied: %q %q", cfg.InputDir, cfg.OutputDir)
	}
	if cfg.Scale != 4 {
		t.Errorf("Scale = %d, want 4", cfg.Scale)
	}
	if cfg.UpscaleRate != 5 {
		t.Errorf("UpscaleRate = %v, want 5", cfg.UpscaleRate)
	}
	if cfg.DecodeRate != DefaultDecodeRate {
		t.Errorf("DecodeRate = %v, want default", cfg.DecodeRate)
	}
	if cfg.KeepTree {
		t.Error("KeepTree should be false")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestFindAndLoadConfig_MissingExplicit(t *testing.T) {
	_, _, err := FindAndLoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestGenerateExampleConfig_Parses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.yaml")
	if err := os.WriteFile(path, []byte(GenerateExampleConfig()), 0644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("example config does not parse: %v", err)
	}
	cfg := DefaultConfig()
	fc.ApplyToConfig(cfg)
	if err := cfg.Validate(); err != nil {
		t.Errorf("example config is not valid: %v", err)
	}
}

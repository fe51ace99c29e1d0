package config

import (
	"path/filepath"
	"testing"
)

func TestApplyPreset(t *testing.T) {
	tests := []struct {
		name      string
		preset    string
		wantOK    bool
		wantModel string
		wantScale int
	}{
		{
			name:      "anime preset",
			preset:    "anime",
			wantOK:    true,
			wantModel: "realesr-animevideov3",
			wantScale: 2,
		},
		{
			name:      "anime x4 preset",
			preset:    "anime-x4",
			wantOK:    true,
			wantModel: "realesr-animevideov3",
			wantScale: 4,
		},
		{
			name:      "general preset",
			preset:    "general",
			wantOK:    true,
			wantModel: "realesrgan-x4plus",
			wantScale: 4,
		},
		{
			name:   "unknown preset",
			preset: "unknown",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			ok := cfg.ApplyPreset(tt.preset)

			if ok != tt.wantOK {
				t.Errorf("ApplyPreset() = %v, want %v", ok, tt.wantOK)
			}

			if tt.wantOK {
				if cfg.Model != tt.wantModel {
					t.Errorf("Model = %v, want %v", cfg.Model, tt.wantModel)
				}
				if cfg.Scale != tt.wantScale {
					t.Errorf("Scale = %d, want %d", cfg.Scale, tt.wantScale)
				}
			}
		})
	}
}

func TestPresetConfig(t *testing.T) {
	for name, preset := range Presets {
		t.Run(string(name), func(t *testing.T) {
			if preset.Scale < 1 {
				t.Errorf("Preset %s has invalid scale: %d", name, preset.Scale)
			}
			if preset.UpscaleRate <= 0 {
				t.Errorf("Preset %s has invalid upscale rate: %v", name, preset.UpscaleRate)
			}
		})
	}
}

func TestSavedPresetRoundTrip(t *testing.T) {
	presetsDirOverride = t.TempDir()
	defer func() { presetsDirOverride = "" }()

	src := DefaultConfig()
	src.Model = "custom-model"
	src.Scale = 3

	path, err := SavePreset("my project!", src)
	if err != nil {
		t.Fatalf("SavePreset() error = %v", err)
	}
	if got, want := path, filepath.Join(presetsDirOverride, "myproject.yaml"); got != want {
		t.Errorf("SavePreset() path = %q, want %q", got, want)
	}

	dst := DefaultConfig()
	if err := dst.ResolveProfile("myproject"); err != nil {
		t.Fatalf("ResolveProfile() error = %v", err)
	}
	if dst.Model != "custom-model" || dst.Scale != 3 {
		t.Errorf("profile not applied: model=%q scale=%d", dst.Model, dst.Scale)
	}

	list, err := ListPresets()
	if err != nil {
		t.Fatalf("ListPresets() error = %v", err)
	}
	if len(list) != 1 || list[0].Name != "myproject" {
		t.Errorf("ListPresets() = %+v", list)
	}

	if err := DeletePreset("myproject"); err != nil {
		t.Fatalf("DeletePreset() error = %v", err)
	}
	if err := dst.ResolveProfile("myproject"); err == nil {
		t.Error("ResolveProfile() after delete should fail")
	}
}

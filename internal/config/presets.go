// Package config содержит конфигурацию приложения.
package config

// Preset определяет встроенный профиль апскейла.
type Preset string

const (
	// PresetAnime - аниме-видео: realesr-animevideov3, x2.
	PresetAnime Preset = "anime"
	// PresetAnimeX4 - аниме-видео: realesr-animevideov3, x4.
	PresetAnimeX4 Preset = "anime-x4"
	// PresetGeneral - живое видео: realesrgan-x4plus, x4.
	PresetGeneral Preset = "general"
)

// PresetConfig содержит настройки для пресета.
type PresetConfig struct {
	// Model - имя модели апскейлера.
	Model string
	// Scale - множитель увеличения.
	Scale int
	// UpscaleRate - оценочная скорость апскейла для этой модели (кадров/с).
	UpscaleRate float64
}

// Presets содержит все встроенные пресеты.
var Presets = map[Preset]PresetConfig{
	PresetAnime: {
		Model:       DefaultModel,
		Scale:       2,
		UpscaleRate: DefaultUpscaleRate,
	},
	PresetAnimeX4: {
		Model:       DefaultModel,
		Scale:       4,
		UpscaleRate: 4,
	},
	PresetGeneral: {
		Model:       "realesrgan-x4plus",
		Scale:       4,
		UpscaleRate: 2,
	},
}

// ApplyPreset применяет встроенный пресет к конфигурации.
// Возвращает true, если пресет был применён.
func (c *Config) ApplyPreset(preset string) bool {
	p, ok := Presets[Preset(preset)]
	if !ok {
		return false
	}

	c.Model = p.Model
	c.Scale = p.Scale
	c.UpscaleRate = p.UpscaleRate

	return true
}

// ValidPresets возвращает список встроенных пресетов.
func ValidPresets() []string {
	return []string{
		string(PresetAnime),
		string(PresetAnimeX4),
		string(PresetGeneral),
	}
}

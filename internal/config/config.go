// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/artemshloyda/vupscale/internal/estimate"
)

// Значения по умолчанию: все рабочие папки лежат в ./videos рядом с местом запуска.
const (
	DefaultInputDir   = "./videos/input_videos"
	DefaultOutputDir  = "./videos/output_videos"
	DefaultExtractDir = "./videos/tmp_frames"
	DefaultUpscaleDir = "./videos/out_frames"
	DefaultLogDir     = "./videos/logs"

	// DefaultModel - модель realesrgan для аниме-видео.
	DefaultModel = "realesr-animevideov3"

	// DefaultScale - множитель увеличения кадра.
	DefaultScale = 2

	// Оценочная пропускная способность этапов, кадров в секунду.
	DefaultDecodeRate  = estimate.DefaultDecodeRate
	DefaultUpscaleRate = estimate.DefaultUpscaleRate
	DefaultRebuildRate = estimate.DefaultRebuildRate
)

// Config содержит все настройки пакетной обработки.
// Теги env используются для переопределения через переменные окружения VUPSCALE_*.
type Config struct {
	// InputDir - корень с исходными видео (обходится рекурсивно).
	InputDir string `env:"INPUT_DIR"`

	// OutputDir - корень для результатов, структура поддиректорий повторяет InputDir.
	OutputDir string `env:"OUTPUT_DIR"`

	// ExtractDir - временная директория для извлечённых кадров.
	ExtractDir string `env:"EXTRACT_DIR"`

	// UpscaleDir - временная директория для увеличенных кадров.
	UpscaleDir string `env:"UPSCALE_DIR"`

	// LogDir - директория логов ffmpeg.
	LogDir string `env:"LOG_DIR"`

	// KeepLogs - не очищать LogDir при старте.
	KeepLogs bool `env:"KEEP_LOGS"`

	// InputExtensions - расширения входных видео (без точки, lowercase).
	InputExtensions []string `env:"INPUT_EXTENSIONS" envSeparator:","`

	// OutputSuffix - суффикс имени выходного файла (name.ext -> name_4x.mp4).
	OutputSuffix string `env:"OUTPUT_SUFFIX"`

	// OutputContainer - расширение выходного файла без точки.
	OutputContainer string `env:"OUTPUT_CONTAINER"`

	// KeepTree - сохранять структуру директорий.
	KeepTree bool `env:"KEEP_TREE"`

	// Model - имя модели апскейлера.
	Model string `env:"MODEL"`

	// Scale - множитель увеличения.
	Scale int `env:"SCALE"`

	// FrameFormat - формат промежуточных кадров.
	FrameFormat string `env:"FRAME_FORMAT"`

	// VideoCodec - кодек итогового видео.
	VideoCodec string `env:"VIDEO_CODEC"`

	// PixFmt - формат пикселей итогового видео.
	PixFmt string `env:"PIX_FMT"`

	// DecodeRate, UpscaleRate, RebuildRate - оценочная скорость этапов (кадров/с).
	DecodeRate  float64 `env:"DECODE_RATE"`
	UpscaleRate float64 `env:"UPSCALE_RATE"`
	RebuildRate float64 `env:"REBUILD_RATE"`

	// FFmpegPath, FFprobePath, UpscalerPath - явные пути к бинарникам (опционально).
	FFmpegPath   string `env:"FFMPEG"`
	FFprobePath  string `env:"FFPROBE"`
	UpscalerPath string `env:"UPSCALER"`

	// DBPath - путь к SQLite журналу запусков.
	DBPath string `env:"DB"`

	// NoDB - не вести журнал.
	NoDB bool `env:"NO_DB"`

	// DryRun - только проба и вывод команд, без запуска этапов.
	DryRun bool `env:"DRY_RUN"`

	// Verbose - подробный вывод.
	Verbose bool `env:"VERBOSE"`

	// NoProgress - отключить прогресс-бар.
	NoProgress bool `env:"NO_PROGRESS"`

	// LogLevel - уровень диагностического лога (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL"`

	// MetricsAddr - адрес HTTP сервера метрик Prometheus (пусто = выключен).
	MetricsAddr string `env:"METRICS_ADDR"`

	// Profile - профиль апскейла (встроенный или сохранённый).
	Profile string `env:"PROFILE"`
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		InputDir:        DefaultInputDir,
		OutputDir:       DefaultOutputDir,
		ExtractDir:      DefaultExtractDir,
		UpscaleDir:      DefaultUpscaleDir,
		LogDir:          DefaultLogDir,
		InputExtensions: []string{"mp4", "mkv", "avi", "mov", "m4v", "webm", "flv", "wmv", "ts", "m2ts", "mpg", "mpeg"},
		OutputSuffix:    "_4x",
		OutputContainer: "mp4",
		KeepTree:        true,
		Model:           DefaultModel,
		Scale:           DefaultScale,
		FrameFormat:     "jpg",
		VideoCodec:      "hevc",
		PixFmt:          "yuv420p",
		DecodeRate:      DefaultDecodeRate,
		UpscaleRate:     DefaultUpscaleRate,
		RebuildRate:     DefaultRebuildRate,
		LogLevel:        "info",
	}
}

// ApplyEnv переопределяет поля значениями переменных окружения VUPSCALE_*.
// Незаданные переменные не трогают текущие значения.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(env.Options{Prefix: "VUPSCALE_"})
}

func (c *Config) applyEnv(opts env.Options) error {
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}
	return nil
}

// Validate проверяет корректность конфигурации.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("входная директория не указана (--in)")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("выходная директория не указана (--out)")
	}
	if c.ExtractDir == "" || c.UpscaleDir == "" {
		return fmt.Errorf("временные директории кадров не указаны")
	}
	if samePath(c.ExtractDir, c.UpscaleDir) {
		return fmt.Errorf("директории кадров совпадают: %s", c.ExtractDir)
	}
	for _, dir := range []string{c.ExtractDir, c.UpscaleDir} {
		if samePath(dir, c.InputDir) || samePath(dir, c.OutputDir) {
			return fmt.Errorf("временная директория %s совпадает с входной или выходной", dir)
		}
	}
	if c.LogDir == "" {
		return fmt.Errorf("директория логов не указана (--log-dir)")
	}
	if len(c.InputExtensions) == 0 {
		return fmt.Errorf("не указаны расширения входных файлов")
	}
	if c.Scale < 1 {
		return fmt.Errorf("множитель увеличения должен быть >= 1, получено: %d", c.Scale)
	}
	if c.Model == "" {
		return fmt.Errorf("не указана модель апскейлера (--model)")
	}
	if err := c.Rates().Validate(); err != nil {
		return err
	}
	if c.OutputContainer == "" {
		c.OutputContainer = "mp4"
	}

	// Устанавливаем путь к БД по умолчанию
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.OutputDir, ".vupscale", "journal.sqlite")
	}

	return nil
}

// HasInputExtension проверяет, поддерживается ли расширение файла.
func (c *Config) HasInputExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, e := range c.InputExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Rates возвращает скорости этапов для оценщика.
func (c *Config) Rates() estimate.Rates {
	return estimate.Rates{Decode: c.DecodeRate, Upscale: c.UpscaleRate, Rebuild: c.RebuildRate}
}

// ScratchDirs возвращает временные директории кадров.
func (c *Config) ScratchDirs() []string {
	return []string{c.ExtractDir, c.UpscaleDir}
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

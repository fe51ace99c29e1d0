// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig представляет структуру конфигурационного файла YAML.
// Все поля опциональны - если не указаны, используются значения по умолчанию.
type FileConfig struct {
	// Folders - раскладка директорий.
	Folders *FoldersConfig `yaml:"folders,omitempty"`

	// Output - настройки выходных файлов.
	Output *OutputConfig `yaml:"output,omitempty"`

	// Upscale - настройки апскейлера.
	Upscale *UpscaleConfig `yaml:"upscale,omitempty"`

	// Estimate - оценочные скорости этапов.
	Estimate *EstimateConfig `yaml:"estimate,omitempty"`

	// Processing - настройки обработки.
	Processing *ProcessingConfig `yaml:"processing,omitempty"`

	// Paths - пути к бинарникам и журналу.
	Paths *PathsConfig `yaml:"paths,omitempty"`
}

// FoldersConfig содержит раскладку директорий.
type FoldersConfig struct {
	Input   string `yaml:"input,omitempty"`
	Output  string `yaml:"output,omitempty"`
	Extract string `yaml:"extract,omitempty"`
	Upscale string `yaml:"upscale,omitempty"`
	Logs    string `yaml:"logs,omitempty"`

	// Extensions - расширения входных видео.
	Extensions []string `yaml:"extensions,omitempty"`
}

// OutputConfig содержит настройки выходных файлов.
type OutputConfig struct {
	Suffix     string `yaml:"suffix,omitempty"`
	Container  string `yaml:"container,omitempty"`
	VideoCodec string `yaml:"video_codec,omitempty"`
	PixFmt     string `yaml:"pix_fmt,omitempty"`

	// KeepTree - сохранять структуру директорий.
	KeepTree *bool `yaml:"keep_tree,omitempty"`
}

// UpscaleConfig содержит настройки апскейлера.
type UpscaleConfig struct {
	Model       string `yaml:"model,omitempty"`
	Scale       int    `yaml:"scale,omitempty"`
	FrameFormat string `yaml:"frame_format,omitempty"`
}

// EstimateConfig содержит оценочные скорости этапов (кадров в секунду).
type EstimateConfig struct {
	DecodeFPS  float64 `yaml:"decode_fps,omitempty"`
	UpscaleFPS float64 `yaml:"upscale_fps,omitempty"`
	RebuildFPS float64 `yaml:"rebuild_fps,omitempty"`
}

// ProcessingConfig содержит настройки обработки.
type ProcessingConfig struct {
	DryRun      bool   `yaml:"dry_run,omitempty"`
	Verbose     bool   `yaml:"verbose,omitempty"`
	NoProgress  bool   `yaml:"no_progress,omitempty"`
	KeepLogs    bool   `yaml:"keep_logs,omitempty"`
	LogLevel    string `yaml:"log_level,omitempty"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
	Profile     string `yaml:"profile,omitempty"`
}

// PathsConfig содержит пути к бинарникам и журналу.
type PathsConfig struct {
	FFmpeg   string `yaml:"ffmpeg,omitempty"`
	FFprobe  string `yaml:"ffprobe,omitempty"`
	Upscaler string `yaml:"upscaler,omitempty"`
	DB       string `yaml:"db,omitempty"`
	NoDB     bool   `yaml:"no_db,omitempty"`
}

// DefaultConfigPaths возвращает список путей для поиска конфигурационного файла.
// Поиск выполняется в следующем порядке:
// 1. ./vupscale.yaml (текущая директория)
// 2. ./vupscale.yml
// 3. ~/.config/vupscale/config.yaml
// 4. ~/.config/vupscale/config.yml
func DefaultConfigPaths() []string {
	paths := []string{
		"vupscale.yaml",
		"vupscale.yml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "vupscale", "config.yaml"),
			filepath.Join(home, ".config", "vupscale", "config.yml"),
		)
	}

	return paths
}

// LoadFromFile загружает конфигурацию из указанного файла.
// Возвращает nil, nil если файл не существует.
func LoadFromFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML в %s: %w", path, err)
	}

	return &fc, nil
}

// SaveToFile сохраняет конфигурацию в YAML файл.
func (fc *FileConfig) SaveToFile(path string) error {
	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("ошибка сериализации YAML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, data, 0644)
}

// FindAndLoadConfig ищет и загружает конфигурационный файл из стандартных путей.
// Если configPath указан явно, использует только его.
// Возвращает nil, nil если файл не найден.
func FindAndLoadConfig(configPath string) (*FileConfig, string, error) {
	if configPath != "" {
		fc, err := LoadFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		if fc == nil {
			return nil, "", fmt.Errorf("файл конфигурации не найден: %s", configPath)
		}
		return fc, configPath, nil
	}

	for _, path := range DefaultConfigPaths() {
		fc, err := LoadFromFile(path)
		if err != nil {
			return nil, "", err
		}
		if fc != nil {
			return fc, path, nil
		}
	}

	return nil, "", nil
}

// ApplyToConfig применяет настройки из файла к основной конфигурации.
// CLI флаги имеют приоритет над файлом конфигурации, поэтому
// эта функция должна вызываться до парсинга CLI флагов.
func (fc *FileConfig) ApplyToConfig(cfg *Config) {
	if fc == nil {
		return
	}

	if f := fc.Folders; f != nil {
		setString(&cfg.InputDir, f.Input)
		setString(&cfg.OutputDir, f.Output)
		setString(&cfg.ExtractDir, f.Extract)
		setString(&cfg.UpscaleDir, f.Upscale)
		setString(&cfg.LogDir, f.Logs)
		if len(f.Extensions) > 0 {
			cfg.InputExtensions = f.Extensions
		}
	}

	if o := fc.Output; o != nil {
		setString(&cfg.OutputSuffix, o.Suffix)
		setString(&cfg.OutputContainer, o.Container)
		setString(&cfg.VideoCodec, o.VideoCodec)
		setString(&cfg.PixFmt, o.PixFmt)
		if o.KeepTree != nil {
			cfg.KeepTree = *o.KeepTree
		}
	}

	if u := fc.Upscale; u != nil {
		setString(&cfg.Model, u.Model)
		setString(&cfg.FrameFormat, u.FrameFormat)
		if u.Scale > 0 {
			cfg.Scale = u.Scale
		}
	}

	if e := fc.Estimate; e != nil {
		if e.DecodeFPS > 0 {
			cfg.DecodeRate = e.DecodeFPS
		}
		if e.UpscaleFPS > 0 {
			cfg.UpscaleRate = e.UpscaleFPS
		}
		if e.RebuildFPS > 0 {
			cfg.RebuildRate = e.RebuildFPS
		}
	}

	if p := fc.Processing; p != nil {
		cfg.DryRun = cfg.DryRun || p.DryRun
		cfg.Verbose = cfg.Verbose || p.Verbose
		cfg.NoProgress = cfg.NoProgress || p.NoProgress
		cfg.KeepLogs = cfg.KeepLogs || p.KeepLogs
		setString(&cfg.LogLevel, p.LogLevel)
		setString(&cfg.MetricsAddr, p.MetricsAddr)
		setString(&cfg.Profile, p.Profile)
	}

	if p := fc.Paths; p != nil {
		setString(&cfg.FFmpegPath, p.FFmpeg)
		setString(&cfg.FFprobePath, p.FFprobe)
		setString(&cfg.UpscalerPath, p.Upscaler)
		setString(&cfg.DBPath, p.DB)
		cfg.NoDB = cfg.NoDB || p.NoDB
	}
}

// FromConfig строит FileConfig из настроек апскейла (для сохранения профиля).
func FromConfig(cfg *Config) *FileConfig {
	return &FileConfig{
		Upscale: &UpscaleConfig{
			Model:       cfg.Model,
			Scale:       cfg.Scale,
			FrameFormat: cfg.FrameFormat,
		},
		Output: &OutputConfig{
			VideoCodec: cfg.VideoCodec,
			PixFmt:     cfg.PixFmt,
		},
		Estimate: &EstimateConfig{
			DecodeFPS:  cfg.DecodeRate,
			UpscaleFPS: cfg.UpscaleRate,
			RebuildFPS: cfg.RebuildRate,
		},
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// GenerateExampleConfig генерирует пример конфигурационного файла.
func GenerateExampleConfig() string {
	return `# vupscale configuration file
# Все параметры опциональны - если не указаны, используются значения по умолчанию.
# Переменные окружения VUPSCALE_* и CLI флаги имеют приоритет над этим файлом.

folders:
  input: "./videos/input_videos"
  output: "./videos/output_videos"
  extract: "./videos/tmp_frames"
  upscale: "./videos/out_frames"
  logs: "./videos/logs"
  extensions: [mp4, mkv, avi, mov]

output:
  # name.ext -> name_4x.mp4
  suffix: "_4x"
  container: mp4
  video_codec: hevc
  pix_fmt: yuv420p
  keep_tree: true

upscale:
  model: realesr-animevideov3
  scale: 2
  frame_format: jpg

estimate:
  # Оценочная скорость этапов, кадров в секунду
  decode_fps: 350
  upscale_fps: 11
  rebuild_fps: 22

processing:
  dry_run: false
  verbose: false
  no_progress: false
  keep_logs: false
  log_level: info
  # Адрес для /metrics, пусто = выключено
  metrics_addr: ""
  profile: ""

paths:
  ffmpeg: ""
  ffprobe: ""
  upscaler: ""
  db: ""
  no_db: false
`
}

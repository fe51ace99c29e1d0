// Package toolfinder отвечает за поиск внешних бинарников (ffmpeg, ffprobe, апскейлер).
package toolfinder

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotFound возвращается, если ни один кандидат не оказался рабочим бинарником.
var ErrNotFound = errors.New("бинарник не найден")

// Tool содержит информацию о найденном бинарнике.
type Tool struct {
	// Name - логическое имя (ffmpeg, ffprobe, realesrgan-ncnn-vulkan).
	Name string

	// Path - абсолютный путь к бинарнику.
	Path string

	// Version - первая строка вывода версии (пусто, если бинарник её не сообщает).
	Version string
}

// Finder ищет один бинарник.
type Finder struct {
	// Name - имя бинарника без расширения.
	Name string

	// CustomPath - пользовательский путь (из флага или конфига).
	CustomPath string

	// EnvVar - имя переменной окружения для пути.
	EnvVar string

	// VersionArgs - аргументы для проверки работоспособности; nil = только проверка файла.
	VersionArgs []string
}

// FFmpeg возвращает Finder для ffmpeg.
func FFmpeg(customPath string) *Finder {
	return &Finder{Name: "ffmpeg", CustomPath: customPath, EnvVar: "VUPSCALE_FFMPEG", VersionArgs: []string{"-version"}}
}

// FFprobe возвращает Finder для ffprobe.
func FFprobe(customPath string) *Finder {
	return &Finder{Name: "ffprobe", CustomPath: customPath, EnvVar: "VUPSCALE_FFPROBE", VersionArgs: []string{"-version"}}
}

// Upscaler возвращает Finder для realesrgan-ncnn-vulkan.
// Апскейлер не умеет печатать версию с нулевым кодом выхода, поэтому проверяется только файл.
func Upscaler(customPath string) *Finder {
	return &Finder{Name: "realesrgan-ncnn-vulkan", CustomPath: customPath, EnvVar: "VUPSCALE_UPSCALER"}
}

// Find ищет бинарник в следующем порядке:
// 1. CustomPath (если задан)
// 2. Переменная окружения EnvVar
// 3. PATH
// 4. Текущая директория
// 5. Рядом с исполняемым файлом в ./bin/<os-arch>/
func (f *Finder) Find() (*Tool, error) {
	var candidates []string

	if f.CustomPath != "" {
		candidates = append(candidates, f.CustomPath)
	}

	if f.EnvVar != "" {
		if envPath := os.Getenv(f.EnvVar); envPath != "" {
			candidates = append(candidates, envPath)
		}
	}

	if p, err := exec.LookPath(f.Name); err == nil {
		candidates = append(candidates, p)
	}

	candidates = append(candidates, binaryName(f.Name))

	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		platformDir := fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)
		candidates = append(candidates,
			filepath.Join(execDir, "bin", platformDir, binaryName(f.Name)),
			filepath.Join(execDir, "bin", binaryName(f.Name)),
			filepath.Join(execDir, binaryName(f.Name)),
		)
	}

	var lastErr error
	for _, path := range candidates {
		tool, err := f.check(path)
		if err == nil {
			return tool, nil
		}
		lastErr = err
	}

	hint := ""
	if f.EnvVar != "" {
		hint = fmt.Sprintf(" (укажите путь через переменную %s или флаг)", f.EnvVar)
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%s: %w%s: %v", f.Name, ErrNotFound, hint, lastErr)
	}
	return nil, fmt.Errorf("%s: %w%s", f.Name, ErrNotFound, hint)
}

// check проверяет, является ли путь рабочим бинарником.
func (f *Finder) check(path string) (*Tool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("файл не найден: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s - директория", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0111 == 0 {
		return nil, fmt.Errorf("%s не является исполняемым", path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить абсолютный путь: %w", err)
	}

	tool := &Tool{Name: f.Name, Path: absPath}
	if f.VersionArgs == nil {
		return tool, nil
	}

	output, err := exec.Command(absPath, f.VersionArgs...).Output()
	if err != nil {
		return nil, fmt.Errorf("не удалось выполнить %s %s: %w", absPath, strings.Join(f.VersionArgs, " "), err)
	}
	tool.Version = parseVersion(string(output))

	return tool, nil
}

// parseVersion извлекает версию из первой строки вывода.
// Пример: "ffmpeg version 6.1.1-3ubuntu5 Copyright (c) ..." -> "6.1.1-3ubuntu5"
func parseVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	for i, field := range fields {
		if field == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return strings.TrimSpace(line)
}

// binaryName возвращает имя бинарника для текущей ОС.
func binaryName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

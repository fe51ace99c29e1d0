// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SavedPreset представляет именованный профиль, сохранённый пользователем.
type SavedPreset struct {
	// Name - имя пресета.
	Name string
	// Path - путь к файлу пресета.
	Path string
	// Config - конфигурация пресета.
	Config *FileConfig
}

// presetsDirOverride используется тестами, чтобы не трогать домашнюю директорию.
var presetsDirOverride string

// GetPresetsDir возвращает директорию для хранения пресетов.
func GetPresetsDir() (string, error) {
	if presetsDirOverride != "" {
		return presetsDirOverride, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("не удалось получить домашнюю директорию: %w", err)
	}

	return filepath.Join(homeDir, ".config", "vupscale", "presets"), nil
}

// GetPresetPath возвращает путь к файлу пресета по имени.
func GetPresetPath(name string) (string, error) {
	presetsDir, err := GetPresetsDir()
	if err != nil {
		return "", err
	}

	safeName := sanitizePresetName(name)
	if safeName == "" {
		return "", fmt.Errorf("некорректное имя пресета: %s", name)
	}

	return filepath.Join(presetsDir, safeName+".yaml"), nil
}

// sanitizePresetName очищает имя пресета от небезопасных символов.
func sanitizePresetName(name string) string {
	// Разрешаем только буквы, цифры, дефисы и подчёркивания
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// SavePreset сохраняет настройки апскейла как именованный пресет.
func SavePreset(name string, cfg *Config) (string, error) {
	presetPath, err := GetPresetPath(name)
	if err != nil {
		return "", err
	}

	if err := FromConfig(cfg).SaveToFile(presetPath); err != nil {
		return "", fmt.Errorf("не удалось сохранить пресет: %w", err)
	}

	return presetPath, nil
}

// LoadPreset загружает конфигурацию из именованного пресета.
func LoadPreset(name string) (*FileConfig, string, error) {
	presetPath, err := GetPresetPath(name)
	if err != nil {
		return nil, "", err
	}

	fc, err := LoadFromFile(presetPath)
	if err != nil {
		return nil, "", fmt.Errorf("не удалось загрузить пресет '%s': %w", name, err)
	}
	if fc == nil {
		return nil, "", fmt.Errorf("пресет '%s' не найден", name)
	}

	return fc, presetPath, nil
}

// ResolveProfile применяет профиль: сначала встроенный, затем сохранённый.
func (c *Config) ResolveProfile(name string) error {
	if name == "" {
		return nil
	}
	if c.ApplyPreset(name) {
		return nil
	}

	fc, _, err := LoadPreset(name)
	if err != nil {
		return fmt.Errorf("неизвестный профиль %q (встроенные: %s): %w",
			name, strings.Join(ValidPresets(), ", "), err)
	}
	fc.ApplyToConfig(c)
	return nil
}

// ListPresets возвращает список всех сохранённых пресетов.
func ListPresets() ([]SavedPreset, error) {
	presetsDir, err := GetPresetsDir()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(presetsDir); os.IsNotExist(err) {
		return []SavedPreset{}, nil
	}

	entries, err := os.ReadDir(presetsDir)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать директорию пресетов: %w", err)
	}

	var presets []SavedPreset
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		presetName := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		presetPath := filepath.Join(presetsDir, name)

		// Пробуем загрузить конфиг для проверки валидности
		fc, _ := LoadFromFile(presetPath)

		presets = append(presets, SavedPreset{
			Name:   presetName,
			Path:   presetPath,
			Config: fc,
		})
	}

	sort.Slice(presets, func(i, j int) bool {
		return presets[i].Name < presets[j].Name
	})

	return presets, nil
}

// DeletePreset удаляет именованный пресет.
func DeletePreset(name string) error {
	presetPath, err := GetPresetPath(name)
	if err != nil {
		return err
	}

	if _, err := os.Stat(presetPath); os.IsNotExist(err) {
		return fmt.Errorf("пресет '%s' не найден", name)
	}

	if err := os.Remove(presetPath); err != nil {
		return fmt.Errorf("не удалось удалить пресет: %w", err)
	}

	return nil
}

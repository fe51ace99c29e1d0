// Package workspace управляет временными директориями кадров.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Workspace владеет двумя временными директориями: извлечённые кадры и увеличенные кадры.
// Перед этапами каждого видео обе директории существуют и пусты.
type Workspace struct {
	// ExtractDir - куда ffmpeg складывает исходные кадры.
	ExtractDir string

	// UpscaleDir - куда апскейлер складывает увеличенные кадры.
	UpscaleDir string
}

// New создаёт Workspace.
func New(extractDir, upscaleDir string) *Workspace {
	return &Workspace{
		ExtractDir: extractDir,
		UpscaleDir: upscaleDir,
	}
}

// Dirs возвращает обе директории.
func (w *Workspace) Dirs() []string {
	return []string{w.ExtractDir, w.UpscaleDir}
}

// Reset удаляет обе директории вместе с содержимым и создаёт их заново пустыми.
func (w *Workspace) Reset() error {
	for _, dir := range w.Dirs() {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("не удалось удалить %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("не удалось создать %s: %w", dir, err)
		}
	}
	return nil
}

// Clear удаляет обе директории без пересоздания.
func (w *Workspace) Clear() error {
	for _, dir := range w.Dirs() {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("не удалось удалить %s: %w", dir, err)
		}
	}
	return nil
}

// Ready проверяет, что обе директории существуют и пусты.
func (w *Workspace) Ready() error {
	for _, dir := range w.Dirs() {
		empty, err := IsEmpty(dir)
		if err != nil {
			return err
		}
		if !empty {
			return fmt.Errorf("директория %s не пуста", dir)
		}
	}
	return nil
}

// Size возвращает общий размер файлов в обеих директориях в байтах.
func (w *Workspace) Size() (int64, error) {
	var size int64
	for _, dir := range w.Dirs() {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return nil
				}
				return err
			}
			if !d.IsDir() {
				info, err := d.Info()
				if err != nil {
					return err
				}
				size += info.Size()
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return size, nil
}

// IsEmpty сообщает, что директория существует и не содержит записей.
func IsEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, fmt.Errorf("не удалось открыть %s: %w", dir, err)
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("не удалось прочитать %s: %w", dir, err)
	}
	return false, nil
}

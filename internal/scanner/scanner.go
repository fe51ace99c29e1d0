// Package scanner отвечает за поиск входных видео и вывод путей результата.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/artemshloyda/vupscale/internal/config"
)

// Task идентифицирует одно входное видео и производные от него пути.
type Task struct {
	// Path - путь к исходному видео.
	Path string

	// RelPath - относительный путь от входной директории.
	RelPath string

	// OutputPath - путь к итоговому видео.
	OutputPath string

	// OutputName - имя итогового файла (name_4x.mp4), от него строятся имена логов.
	OutputName string
}

// Name возвращает имя исходного файла.
func (t Task) Name() string {
	return filepath.Base(t.Path)
}

// Done сообщает, что видео уже обработано: по выходному пути существует файл.
// Проверка без побочных эффектов.
func (t Task) Done() bool {
	info, err := os.Stat(t.OutputPath)
	return err == nil && !info.IsDir()
}

// ExtractLog возвращает путь к логу извлечения кадров.
func (t Task) ExtractLog(logDir string) string {
	return filepath.Join(logDir, t.OutputName+"_extract.log")
}

// RebuildLog возвращает путь к логу сборки видео.
func (t Task) RebuildLog(logDir string) string {
	return filepath.Join(logDir, t.OutputName+"_rebuild.log")
}

// Scanner ищет видео во входной директории.
type Scanner struct {
	cfg *config.Config
}

// New создаёт новый Scanner.
func New(cfg *config.Config) *Scanner {
	return &Scanner{cfg: cfg}
}

// Scan рекурсивно обходит входную директорию и возвращает задачи,
// отсортированные по пути для детерминированного порядка обработки.
func (s *Scanner) Scan(ctx context.Context) ([]Task, error) {
	skip := map[string]bool{}
	for _, dir := range append(s.cfg.ScratchDirs(), s.cfg.OutputDir, s.cfg.LogDir) {
		if dir != "" {
			skip[filepath.Clean(dir)] = true
		}
	}

	var tasks []Task
	err := filepath.WalkDir(s.cfg.InputDir, func(path string, d os.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == s.cfg.InputDir {
				return err
			}
			// Логируем ошибку, но продолжаем
			fmt.Fprintf(os.Stderr, "Предупреждение: не удалось прочитать %s: %v\n", path, err)
			return nil
		}

		if d.IsDir() {
			if path == s.cfg.InputDir {
				return nil
			}
			// Пропускаем скрытые директории и рабочие директории внутри входной
			name := d.Name()
			if strings.HasPrefix(name, ".") || skip[filepath.Clean(path)] {
				return filepath.SkipDir
			}
			return nil
		}

		// Пропускаем macOS metadata файлы (начинаются с ._*)
		if strings.HasPrefix(d.Name(), "._") {
			return nil
		}

		if !s.cfg.HasInputExtension(filepath.Ext(path)) {
			return nil
		}

		tasks = append(tasks, s.NewTask(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования %s: %w", s.cfg.InputDir, err)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Path < tasks[j].Path })
	return tasks, nil
}

// NewTask строит задачу для исходного файла.
func (s *Scanner) NewTask(srcPath string) Task {
	relPath, err := filepath.Rel(s.cfg.InputDir, srcPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		relPath = filepath.Base(srcPath)
	}

	outName := OutputName(srcPath, s.cfg.OutputSuffix, s.cfg.OutputContainer)

	var outPath string
	if s.cfg.KeepTree {
		// Сохраняем структуру директорий
		outPath = filepath.Join(s.cfg.OutputDir, filepath.Dir(relPath), outName)
	} else {
		outPath = filepath.Join(s.cfg.OutputDir, outName)
	}

	return Task{
		Path:       srcPath,
		RelPath:    relPath,
		OutputPath: outPath,
		OutputName: outName,
	}
}

// OutputName преобразует имя файла: name.ext -> name<suffix>.<container>.
func OutputName(srcPath, suffix, container string) string {
	base := filepath.Base(srcPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if container == "" {
		container = "mp4"
	}
	return stem + suffix + "." + container
}

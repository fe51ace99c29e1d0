// Package watcher следит за входной директорией и выдаёт новые видео.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/artemshloyda/vupscale/internal/config"
	"github.com/artemshloyda/vupscale/internal/logger"
	"github.com/artemshloyda/vupscale/internal/scanner"
)

// DefaultDebounce - пауза без записей, после которой видео считается докопированным.
const DefaultDebounce = 2 * time.Second

// Watcher следит за директорией и отправляет новые видео в канал.
type Watcher struct {
	// cfg - конфигурация.
	cfg *config.Config

	// scanner строит задачи из путей.
	scanner *scanner.Scanner

	// watcher - fsnotify watcher.
	watcher *fsnotify.Watcher

	// debounceTime - время без событий записи перед выдачей видео.
	// Большие файлы копируются долго, каждое событие Write сдвигает срок.
	debounceTime time.Duration

	// pending - видео, ожидающие окончания записи.
	pending map[string]time.Time

	log *zap.Logger
}

// New создаёт новый Watcher.
func New(cfg *config.Config, log *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать watcher: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Watcher{
		cfg:          cfg,
		scanner:      scanner.New(cfg),
		watcher:      w,
		debounceTime: DefaultDebounce,
		pending:      make(map[string]time.Time),
		log:          log,
	}, nil
}

// SetDebounceTime устанавливает время debounce.
func (w *Watcher) SetDebounceTime(d time.Duration) {
	w.debounceTime = d
}

// Watch запускает слежение и возвращает канал с задачами.
// Канал закрывается при отмене ctx.
func (w *Watcher) Watch(ctx context.Context) (<-chan scanner.Task, error) {
	// Добавляем директорию и все поддиректории
	if err := w.addRecursive(w.cfg.InputDir); err != nil {
		return nil, err
	}

	tasks := make(chan scanner.Task, 100)
	go w.loop(ctx, tasks)
	return tasks, nil
}

// addRecursive добавляет директорию и все поддиректории в watcher.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignoredDir(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("не удалось добавить директорию %s: %w", path, err)
		}
		return nil
	})
}

// ignoredDir - скрытые директории и рабочие директории, вложенные во входную.
func (w *Watcher) ignoredDir(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	clean := filepath.Clean(path)
	for _, dir := range append(w.cfg.ScratchDirs(), w.cfg.OutputDir, w.cfg.LogDir) {
		if dir != "" && filepath.Clean(dir) == clean {
			return true
		}
	}
	return false
}

// loop обрабатывает события и выдаёт видео после debounce.
// События и таймер обслуживаются в одной горутине, поэтому pending
// не требует блокировки, а канал закрывается только здесь.
func (w *Watcher) loop(ctx context.Context, tasks chan<- scanner.Task) {
	defer close(tasks)
	defer w.watcher.Close()

	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))

		case <-ticker.C:
			for _, task := range w.ready(time.Now()) {
				select {
				case tasks <- task:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Watcher) tick() time.Duration {
	t := w.debounceTime / 4
	if t < 10*time.Millisecond {
		t = 10 * time.Millisecond
	}
	return t
}

// handleEvent учитывает событие создания или записи файла.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Обрабатываем только создание и запись файлов
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		// Новая директория - добавляем вместе с содержимым
		if event.Op&fsnotify.Create != 0 && !w.ignoredDir(event.Name) {
			if err := w.addRecursive(event.Name); err != nil {
				w.log.Warn("could not watch directory", zap.String("dir", event.Name), zap.Error(err))
			}
		}
		return
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !w.cfg.HasInputExtension(filepath.Ext(name)) {
		return
	}

	w.pending[event.Name] = time.Now()
}

// ready возвращает видео, запись которых закончилась, и убирает их из pending.
func (w *Watcher) ready(now time.Time) []scanner.Task {
	var out []scanner.Task
	for path, lastWrite := range w.pending {
		if now.Sub(lastWrite) < w.debounceTime {
			continue
		}
		delete(w.pending, path)

		if _, err := os.Stat(path); err != nil {
			continue
		}
		out = append(out, w.scanner.NewTask(path))
	}
	return out
}

// Close закрывает watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

/*
Возможные расширения:
- Обработка переименования (fsnotify.Rename) для файлов, перемещённых во входную директорию
- Проверка стабильности размера файла в дополнение к debounce
*/

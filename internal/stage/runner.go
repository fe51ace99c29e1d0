// Package stage запускает внешние процессы этапов конвейера: извлечение, апскейл, сборка.
package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Name - имя этапа.
type Name string

const (
	Extract Name = "extract"
	Upscale Name = "upscale"
	Rebuild Name = "rebuild"
)

// Command описывает один запуск внешнего процесса.
type Command struct {
	// Stage - этап, к которому относится команда.
	Stage Name

	// Path - бинарник.
	Path string

	// Args - аргументы без имени бинарника.
	Args []string

	// LogPath - файл, в который дописывается объединённый stdout/stderr.
	// Пустая строка - вывод отбрасывается.
	LogPath string
}

// String возвращает командную строку для вывода оператору.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Path))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// Result содержит результат одного этапа.
type Result struct {
	// Stage - имя этапа.
	Stage Name

	// Duration - время работы процесса.
	Duration time.Duration

	// LogPath - лог этапа (пусто, если вывод отброшен).
	LogPath string

	// ExitCode - код выхода процесса (-1, если процесс не запустился).
	ExitCode int

	// Err - *LaunchError, *StageError или ошибка контекста.
	Err error
}

// OK сообщает, что процесс завершился с нулевым кодом.
func (r *Result) OK() bool {
	return r.Err == nil
}

// FPS возвращает фактическую скорость этапа: кадры / секунды.
// Для нулевой длительности возвращает 0.
func (r *Result) FPS(frames int64) float64 {
	secs := r.Duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(frames) / secs
}

// LaunchError - процесс не удалось запустить (бинарник не найден или не исполняемый).
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("не удалось запустить команду %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// StageError - процесс завершился с ненулевым кодом.
type StageError struct {
	Stage    Name
	ExitCode int
	LogPath  string
	Err      error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("этап %s завершился с кодом %d", e.Stage, e.ExitCode)
	if e.LogPath != "" {
		msg += fmt.Sprintf(" (лог: %s)", e.LogPath)
	}
	return msg
}

func (e *StageError) Unwrap() error { return e.Err }

// Runner запускает команды этапов по одной и ждёт их завершения.
type Runner struct{}

// NewRunner создаёт Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run запускает команду и блокируется до завершения процесса. Таймаута нет.
func (r *Runner) Run(ctx context.Context, c Command) *Result {
	res := &Result{Stage: c.Stage, LogPath: c.LogPath, ExitCode: -1}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)

	if c.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(c.LogPath), 0755); err != nil {
			res.Err = fmt.Errorf("не удалось создать директорию логов: %w", err)
			return res
		}
		logFile, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			res.Err = fmt.Errorf("не удалось открыть лог %s: %w", c.LogPath, err)
			return res
		}
		defer logFile.Close()

		// Один файл на stdout и stderr - вывод объединяется в порядке записи
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		res.Duration = time.Since(start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Err = fmt.Errorf("этап %s прерван: %w", c.Stage, ctxErr)
			return res
		}
		res.Err = &LaunchError{Command: c.String(), Err: err}
		return res
	}

	err := cmd.Wait()
	res.Duration = time.Since(start)

	if err == nil {
		res.ExitCode = 0
		return res
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.Err = fmt.Errorf("этап %s прерван: %w", c.Stage, ctxErr)
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		res.Err = &StageError{Stage: c.Stage, ExitCode: res.ExitCode, LogPath: c.LogPath, Err: err}
		return res
	}

	res.Err = fmt.Errorf("этап %s: %w", c.Stage, err)
	return res
}

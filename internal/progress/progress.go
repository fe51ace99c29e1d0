// Package progress предоставляет прогресс-бар по видео пакета.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Bar представляет прогресс-бар с поддержкой ETA.
type Bar struct {
	// bar - внутренний progressbar.
	bar *progressbar.ProgressBar

	// mu защищает доступ к bar.
	mu sync.Mutex

	// writer - куда рисуется бар (по умолчанию os.Stderr).
	writer io.Writer

	// out - куда пишется текст отчёта через Write (по умолчанию os.Stdout).
	out io.Writer
}

// Options содержит настройки для прогресс-бара.
type Options struct {
	// Total - общее количество элементов для обработки.
	Total int64

	// Description - описание задачи.
	Description string

	// Disabled - отключить прогресс-бар (только текстовый вывод).
	Disabled bool

	// Writer - куда рисуется бар (по умолчанию os.Stderr).
	Writer io.Writer

	// Out - куда пишется текст отчёта (по умолчанию os.Stdout).
	Out io.Writer
}

// New создаёт новый прогресс-бар.
func New(opts Options) *Bar {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	b := &Bar{
		writer: writer,
		out:    out,
	}

	if !opts.Disabled && opts.Total > 0 {
		description := opts.Description
		if description == "" {
			description = "超分"
		}

		b.bar = progressbar.NewOptions64(
			opts.Total,
			progressbar.OptionSetWriter(writer),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("видео"),
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]█[reset]",
				SaucerHead:    "[green]▓[reset]",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(writer)
			}),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	return b
}

// Increment увеличивает счётчик на 1 (видео обработано).
func (b *Bar) Increment() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

// IncrementSkipped увеличивает счётчик пропущенных на 1.
func (b *Bar) IncrementSkipped() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

// IncrementFailed увеличивает счётчик ошибок на 1.
func (b *Bar) IncrementFailed() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

// Finish завершает прогресс-бар.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// Describe меняет подпись бара, например на имя текущего видео.
func (b *Bar) Describe(description string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.Describe(description)
	}
}

// Write выводит текст отчёта над прогресс-баром: бар стирается,
// текст пишется в out, затем бар рисуется заново.
// Позволяет передавать Bar как io.Writer в report.Reporter.
func (b *Bar) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		_ = b.bar.Clear()
	}

	n, err := b.out.Write(p)

	if b.bar != nil {
		_ = b.bar.RenderBlank()
	}
	return n, err
}

/*
Возможные расширения:
- Отдельный бар для кадров текущего этапа (по числу файлов в директории кадров)
- Показывать прогноз остатка из batch.Stats вместо встроенного ETA
*/

package batch

import (
	"time"

	"github.com/artemshloyda/vupscale/internal/probe"
	"github.com/artemshloyda/vupscale/internal/scanner"
	"github.com/artemshloyda/vupscale/internal/stage"
)

// State - состояние видео в конвейере.
type State string

const (
	StatePending    State = "PENDING"
	StateSkipped    State = "SKIPPED"
	StateExtracting State = "EXTRACTING"
	StateUpscaling  State = "UPSCALING"
	StateRebuilding State = "REBUILDING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Stats - накопительная статистика пакета. Значение, а не общий объект:
// Record возвращает обновлённую копию.
type Stats struct {
	// Total - всего видео в пакете.
	Total int

	// Processed - собрано в этом запуске.
	Processed int

	// Skipped - результат уже существовал.
	Skipped int

	// Failed - завершились ошибкой.
	Failed int

	// Planned - показаны в режиме dry-run без запуска этапов.
	Planned int

	// Cumulative - суммарное время собранных видео.
	Cumulative time.Duration

	// Average - среднее время одного собранного видео.
	Average time.Duration

	// Remaining - прогноз оставшегося времени: Average × оставшиеся видео.
	Remaining time.Duration
}

// Record учитывает собранное видео: elapsed - его время от начала обработки,
// left - сколько видео в пакете осталось после него.
func (s Stats) Record(elapsed time.Duration, left int) Stats {
	s.Processed++
	s.Cumulative += elapsed
	s.Average = s.Cumulative / time.Duration(s.Processed)
	if left < 0 {
		left = 0
	}
	s.Remaining = s.Average * time.Duration(left)
	return s
}

// Outcome - итог одного видео.
type Outcome struct {
	Task  scanner.Task
	State State

	// Stage - этап, на котором произошла ошибка (пусто, если ошибка до этапов).
	Stage stage.Name

	Err error

	// Elapsed - время от начала обработки видео, включая очистку и зондирование.
	Elapsed time.Duration

	// Metadata - nil, если зондирование не удалось.
	Metadata *probe.Metadata
}

// Result - итог пакета.
type Result struct {
	Stats    Stats
	Outcomes []Outcome

	// Interrupted - пакет остановлен отменой контекста.
	Interrupted bool
}

// Failures возвращает видео, завершившиеся ошибкой.
func (r *Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.State == StateFailed {
			out = append(out, o)
		}
	}
	return out
}

// Package storage содержит модели и логику работы с SQLite журналом запусков.
package storage

import "time"

// Status определяет статус задачи или запуска в журнале.
type Status string

const (
	// StatusInProgress - выполняется.
	StatusInProgress Status = "in_progress"
	// StatusDone - видео собрано / запуск завершён.
	StatusDone Status = "done"
	// StatusSkipped - результат уже существовал.
	StatusSkipped Status = "skipped"
	// StatusFailed - завершено с ошибкой или прервано.
	StatusFailed Status = "failed"
)

// RunRecord - запись о запуске пакета.
type RunRecord struct {
	// ID - uuid запуска.
	ID string

	InputDir  string
	OutputDir string

	Total     int64
	Processed int64
	Skipped   int64
	Failed    int64

	Status Status

	StartedAt  time.Time
	FinishedAt *time.Time
}

// TaskRecord - запись о видео в рамках запуска.
type TaskRecord struct {
	ID      int64
	RunID   string
	SrcPath string
	DstPath string
	Status  Status

	// Stage - этап, на котором произошла ошибка (для failed).
	Stage string

	// Error - текст ошибки (если есть).
	Error string

	Frames   int64
	Duration time.Duration

	StartedAt  time.Time
	FinishedAt *time.Time
}

// TaskResult - итог видео, передаваемый в FinishTask.
type TaskResult struct {
	Status   Status
	Stage    string
	Error    string
	Frames   int64
	Duration time.Duration
}

// Stats - сводка по журналу за все запуски.
type Stats struct {
	Runs       int64
	Done       int64
	Skipped    int64
	Failed     int64
	InProgress int64

	// ProcessingTime - суммарное время собранных видео.
	ProcessingTime time.Duration
}

/*
Возможные расширения:
- Хранить фактические fps этапов для подстройки оценочных скоростей
- Хранить версию модели апскейлера для инвалидации результатов
*/

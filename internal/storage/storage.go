// Package storage содержит логику работы с SQLite базой данных.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Storage - журнал запусков пакета.
// Журнал только фиксирует историю: решение о пропуске видео принимается
// по наличию выходного файла, а не по записям здесь.
type Storage struct {
	db *sql.DB
}

// New создаёт новое подключение к SQLite и выполняет миграции.
func New(dbPath string) (*Storage, error) {
	// Создаём директорию для БД, если не существует
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для БД: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть БД: %w", err)
	}

	// Проверяем подключение
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite не поддерживает concurrent writes
	db.SetMaxIdleConns(1)

	s := &Storage{db: db}

	// Выполняем миграции
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось выполнить миграции: %w", err)
	}

	return s, nil
}

// migrate выполняет все SQL-миграции.
func (s *Storage) migrate() error {
	for i, m := range GetMigrations() {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("миграция %d: %w", i+1, err)
		}
	}
	return nil
}

// Close закрывает подключение к БД.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Run - открытый запуск пакета. Через него пишутся записи о видео.
type Run struct {
	// ID - uuid запуска.
	ID string

	s *Storage
}

// StartRun регистрирует новый запуск пакета.
func (s *Storage) StartRun(inputDir, outputDir string, total int) (*Run, error) {
	id := uuid.New().String()

	_, err := s.db.Exec(`
		INSERT INTO runs (id, input_dir, output_dir, total, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, inputDir, outputDir, total, StatusInProgress, time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать запуск: %w", err)
	}

	return &Run{ID: id, s: s}, nil
}

// StartTask регистрирует начало обработки видео и возвращает ID записи.
func (r *Run) StartTask(srcPath, dstPath string) (int64, error) {
	result, err := r.s.db.Exec(`
		INSERT INTO tasks (run_id, src_path, dst_path, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, srcPath, dstPath, StatusInProgress, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("не удалось создать запись видео: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("не удалось получить ID записи: %w", err)
	}
	return id, nil
}

// FinishTask фиксирует итог обработки видео.
func (r *Run) FinishTask(taskID int64, res TaskResult) error {
	_, err := r.s.db.Exec(`
		UPDATE tasks SET status = ?, stage = ?, error = ?, frames = ?, duration_ms = ?, finished_at = ?
		WHERE id = ? AND run_id = ?`,
		res.Status, nullString(res.Stage), nullString(res.Error), res.Frames,
		res.Duration.Milliseconds(), time.Now().Unix(), taskID, r.ID,
	)
	if err != nil {
		return fmt.Errorf("не удалось обновить запись видео: %w", err)
	}
	return nil
}

// Finish закрывает запуск с итоговыми счётчиками.
// Запуск, прерванный сигналом, помечается failed.
func (r *Run) Finish(processed, skipped, failed int, interrupted bool) error {
	status := StatusDone
	if interrupted {
		status = StatusFailed
	}

	_, err := r.s.db.Exec(`
		UPDATE runs SET processed = ?, skipped = ?, failed = ?, status = ?, finished_at = ?
		WHERE id = ?`,
		processed, skipped, failed, status, time.Now().Unix(), r.ID,
	)
	if err != nil {
		return fmt.Errorf("не удалось завершить запуск: %w", err)
	}
	return nil
}

// GetStats возвращает сводку по журналу.
func (s *Storage) GetStats() (*Stats, error) {
	st := &Stats{}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&st.Runs); err != nil {
		return nil, fmt.Errorf("не удалось получить статистику: %w", err)
	}

	rows, err := s.db.Query("SELECT status, COUNT(*) FROM tasks GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("не удалось получить статистику: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("не удалось прочитать статистику: %w", err)
		}
		switch status {
		case StatusDone:
			st.Done = n
		case StatusSkipped:
			st.Skipped = n
		case StatusFailed:
			st.Failed = n
		case StatusInProgress:
			st.InProgress = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("не удалось прочитать статистику: %w", err)
	}

	var totalMs int64
	err = s.db.QueryRow(
		"SELECT COALESCE(SUM(duration_ms), 0) FROM tasks WHERE status = ?", StatusDone,
	).Scan(&totalMs)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить суммарное время: %w", err)
	}
	st.ProcessingTime = time.Duration(totalMs) * time.Millisecond

	return st, nil
}

// RecentRuns возвращает последние запуски, новые первыми.
func (s *Storage) RecentRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, input_dir, output_dir, total, processed, skipped, failed, status, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить запуски: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&r.ID, &r.InputDir, &r.OutputDir, &r.Total, &r.Processed,
			&r.Skipped, &r.Failed, &r.Status, &started, &finished); err != nil {
			return nil, fmt.Errorf("не удалось прочитать запуск: %w", err)
		}
		r.StartedAt = time.Unix(started, 0)
		r.FinishedAt = unixPtr(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FailedTasks возвращает видео, завершившиеся ошибкой в указанном запуске.
func (s *Storage) FailedTasks(runID string) ([]TaskRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, src_path, dst_path, status, COALESCE(stage, ''), COALESCE(error, ''),
		       COALESCE(frames, 0), COALESCE(duration_ms, 0), started_at, finished_at
		FROM tasks WHERE run_id = ? AND status = ? ORDER BY id`, runID, StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить ошибки запуска: %w", err)
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var t TaskRecord
		var durMs, started int64
		var finished sql.NullInt64
		if err := rows.Scan(&t.ID, &t.RunID, &t.SrcPath, &t.DstPath, &t.Status, &t.Stage, &t.Error,
			&t.Frames, &durMs, &started, &finished); err != nil {
			return nil, fmt.Errorf("не удалось прочитать запись видео: %w", err)
		}
		t.Duration = time.Duration(durMs) * time.Millisecond
		t.StartedAt = time.Unix(started, 0)
		t.FinishedAt = unixPtr(finished)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CleanupInProgress помечает незавершённые записи как failed.
// Вызывается при старте для очистки после аварийного завершения.
func (s *Storage) CleanupInProgress() (int64, error) {
	result, err := s.db.Exec(
		"UPDATE tasks SET status = ?, error = ? WHERE status = ?",
		StatusFailed, "прервано при предыдущем запуске", StatusInProgress,
	)
	if err != nil {
		return 0, fmt.Errorf("не удалось очистить in_progress: %w", err)
	}
	if _, err := s.db.Exec(
		"UPDATE runs SET status = ? WHERE status = ?", StatusFailed, StatusInProgress,
	); err != nil {
		return 0, fmt.Errorf("не удалось очистить in_progress: %w", err)
	}
	return result.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}

/*
Возможные расширения:
- Добавить метод для очистки старых запусков
- Экспорт журнала в JSON для внешнего анализа
*/

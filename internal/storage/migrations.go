// Package storage содержит миграции SQLite базы данных.
package storage

// migrations содержит SQL-миграции в порядке выполнения.
var migrations = []string{
	// Миграция 1: Запуски пакета
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		input_dir TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		total INTEGER NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);`,

	// Миграция 2: Видео внутри запуска
	`CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		src_path TEXT NOT NULL,
		dst_path TEXT NOT NULL,
		status TEXT NOT NULL,
		stage TEXT,
		error TEXT,
		frames INTEGER,
		duration_ms INTEGER,
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);`,

	// Миграция 3: Индексы для выборок по запуску, статусу и файлу
	`CREATE INDEX IF NOT EXISTS ix_tasks_run ON tasks (run_id);`,
	`CREATE INDEX IF NOT EXISTS ix_tasks_status ON tasks (status);`,
	`CREATE INDEX IF NOT EXISTS ix_tasks_src ON tasks (src_path);`,

	// Миграция 4: Таблица метаданных для версионирования схемы
	`CREATE TABLE IF NOT EXISTS schema_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,

	// Миграция 5: Запись версии схемы
	`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', '1');`,
}

// GetMigrations возвращает список SQL-миграций.
func GetMigrations() []string {
	return migrations
}

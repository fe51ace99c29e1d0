// Package logger создаёт zap-логгер для диагностических сообщений.
// Отчёт оператору печатается отдельно (пакет report), сюда попадают
// события для разбора проблем: запуск процессов, ошибки журнала, метрики.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New создаёт логгер с консольным выводом в stderr.
// level: debug, info, warn, error.
func New(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("неизвестный уровень логирования %q: %w", level, err)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	return zap.New(core), nil
}

// Nop возвращает логгер, который ничего не пишет.
func Nop() *zap.Logger {
	return zap.NewNop()
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/artemshloyda/vupscale/internal/batch"
	"github.com/artemshloyda/vupscale/internal/config"
	"github.com/artemshloyda/vupscale/internal/logger"
	"github.com/artemshloyda/vupscale/internal/metrics"
	"github.com/artemshloyda/vupscale/internal/probe"
	"github.com/artemshloyda/vupscale/internal/progress"
	"github.com/artemshloyda/vupscale/internal/scanner"
	"github.com/artemshloyda/vupscale/internal/stage"
	"github.com/artemshloyda/vupscale/internal/storage"
	"github.com/artemshloyda/vupscale/internal/toolfinder"
)

// pipeline собирает зависимости пакетной обработки: бинарники, журнал, метрики, логгер.
type pipeline struct {
	cfg     *config.Config
	log     *zap.Logger
	tools   batch.Tools
	prober  batch.Prober
	runner  batch.StageRunner
	store   *storage.Storage
	metrics *metrics.Metrics

	// logsWiped - директория логов уже очищена этим процессом.
	// В режиме watch следующие пакеты не стирают логи предыдущих.
	logsWiped bool
}

// newPipeline находит бинарники и открывает журнал.
// withStages=false - нужен только ffprobe (оценка).
func newPipeline(ctx context.Context, cfg *config.Config, withStages bool) (*pipeline, error) {
	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	log, err := logger.New(level)
	if err != nil {
		return nil, err
	}

	p := &pipeline{cfg: cfg, log: log, runner: stage.NewRunner()}

	ffprobe, err := toolfinder.FFprobe(cfg.FFprobePath).Find()
	if err != nil {
		return nil, err
	}
	p.prober = probe.New(ffprobe.Path)
	log.Debug("ffprobe found", zap.String("path", ffprobe.Path), zap.String("version", ffprobe.Version))

	if withStages {
		if err := p.findStageTools(); err != nil {
			return nil, err
		}
		fmt.Printf("📦 Найден ffmpeg: %s\n", p.tools.FFmpeg)
		fmt.Printf("📦 Найден апскейлер: %s\n", p.tools.Upscaler)
	}

	if cfg.MetricsAddr != "" {
		p.metrics = metrics.New()
		p.metrics.Serve(ctx, cfg.MetricsAddr, log)
	}

	if withStages && !cfg.NoDB && !cfg.DryRun {
		store, err := storage.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("не удалось инициализировать журнал: %w", err)
		}
		p.store = store

		// Очищаем прерванные записи
		cleaned, err := store.CleanupInProgress()
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Не удалось очистить in_progress: %v\n", err)
		} else if cleaned > 0 {
			fmt.Printf("🧹 Очищено %d прерванных записей журнала\n", cleaned)
		}
	}

	return p, nil
}

// findStageTools ищет ffmpeg и апскейлер. В dry-run отсутствующий
// бинарник не ошибка: команды только печатаются.
func (p *pipeline) findStageTools() error {
	ffmpeg, err := toolfinder.FFmpeg(p.cfg.FFmpegPath).Find()
	switch {
	case err == nil:
		p.tools.FFmpeg = ffmpeg.Path
	case p.cfg.DryRun && errors.Is(err, toolfinder.ErrNotFound):
		p.tools.FFmpeg = "ffmpeg"
	default:
		return err
	}

	upscaler, err := toolfinder.Upscaler(p.cfg.UpscalerPath).Find()
	switch {
	case err == nil:
		p.tools.Upscaler = upscaler.Path
	case p.cfg.DryRun && errors.Is(err, toolfinder.ErrNotFound):
		p.tools.Upscaler = "realesrgan-ncnn-vulkan"
	default:
		return err
	}
	return nil
}

// Run обрабатывает задачи, записывая запуск в журнал.
func (p *pipeline) Run(ctx context.Context, tasks []scanner.Task) (*batch.Result, error) {
	cfg := p.cfg
	if p.logsWiped {
		c := *p.cfg
		c.KeepLogs = true
		cfg = &c
	}

	orch := batch.New(cfg, p.tools, p.prober, p.runner)
	orch.SetLogger(p.log)
	orch.SetMetrics(p.metrics)
	orch.SetProgressBar(progress.New(progress.Options{
		Total:    int64(len(tasks)),
		Disabled: p.cfg.NoProgress,
	}))

	var run *storage.Run
	if p.store != nil {
		r, err := p.store.StartRun(p.cfg.InputDir, p.cfg.OutputDir, len(tasks))
		if err != nil {
			p.log.Warn("journal unavailable", zap.Error(err))
		} else {
			run = r
			orch.SetJournal(run)
			p.log.Debug("run started", zap.String("run_id", run.ID))
		}
	}

	res, err := orch.Run(ctx, tasks)
	if !cfg.DryRun {
		p.logsWiped = true
	}

	if run != nil && res != nil {
		if ferr := run.Finish(res.Stats.Processed, res.Stats.Skipped, res.Stats.Failed, res.Interrupted); ferr != nil {
			p.log.Warn("journal finish failed", zap.Error(ferr))
		}
	}
	return res, err
}

// Close освобождает ресурсы.
func (p *pipeline) Close() {
	if p.store != nil {
		_ = p.store.Close()
	}
	_ = p.log.Sync()
}

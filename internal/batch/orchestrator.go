// Package batch выполняет пакетную обработку видео: очистка рабочих директорий,
// оценка, затем для каждого видео извлечение кадров, апскейл и сборка.
// Видео обрабатываются строго последовательно, одно за другим.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/artemshloyda/vupscale/internal/config"
	"github.com/artemshloyda/vupscale/internal/estimate"
	"github.com/artemshloyda/vupscale/internal/logger"
	"github.com/artemshloyda/vupscale/internal/metrics"
	"github.com/artemshloyda/vupscale/internal/probe"
	"github.com/artemshloyda/vupscale/internal/progress"
	"github.com/artemshloyda/vupscale/internal/report"
	"github.com/artemshloyda/vupscale/internal/scanner"
	"github.com/artemshloyda/vupscale/internal/stage"
	"github.com/artemshloyda/vupscale/internal/storage"
	"github.com/artemshloyda/vupscale/internal/workspace"
)

// Prober читает метаданные видео.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.Metadata, error)
}

// StageRunner запускает внешний процесс этапа.
type StageRunner interface {
	Run(ctx context.Context, c stage.Command) *stage.Result
}

// Journal фиксирует историю обработки (реализуется *storage.Run).
type Journal interface {
	StartTask(srcPath, dstPath string) (int64, error)
	FinishTask(taskID int64, res storage.TaskResult) error
}

// Tools - пути к внешним программам.
type Tools struct {
	FFmpeg   string
	Upscaler string
}

// Orchestrator владеет рабочими директориями и статистикой на время пакета.
type Orchestrator struct {
	cfg    *config.Config
	tools  Tools
	prober Prober
	runner StageRunner
	ws     *workspace.Workspace

	report   *report.Reporter
	journal  Journal
	metrics  *metrics.Metrics
	progress *progress.Bar
	log      *zap.Logger

	now func() time.Time
}

// New создаёт оркестратор.
func New(cfg *config.Config, tools Tools, prober Prober, runner StageRunner) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		tools:  tools,
		prober: prober,
		runner: runner,
		ws:     workspace.New(cfg.ExtractDir, cfg.UpscaleDir),
		report: report.New(os.Stdout),
		log:    logger.Nop(),
		now:    time.Now,
	}
}

// SetReporter устанавливает вывод отчёта.
func (o *Orchestrator) SetReporter(r *report.Reporter) {
	o.report = r
}

// SetProgressBar устанавливает прогресс-бар; отчёт выводится над ним.
func (o *Orchestrator) SetProgressBar(bar *progress.Bar) {
	o.progress = bar
	o.report = report.New(bar)
}

// SetJournal устанавливает журнал запусков.
func (o *Orchestrator) SetJournal(j Journal) {
	o.journal = j
}

// SetMetrics устанавливает метрики.
func (o *Orchestrator) SetMetrics(m *metrics.Metrics) {
	o.metrics = m
}

// SetLogger устанавливает диагностический логгер.
func (o *Orchestrator) SetLogger(log *zap.Logger) {
	o.log = log
}

// Run обрабатывает пакет. Ошибка отдельного видео не останавливает пакет:
// видео помечается FAILED и попадает в итоговый список.
// Возвращаемая ошибка означает, что пакет не может продолжаться
// (рабочие директории недоступны) или был прерван через ctx.
func (o *Orchestrator) Run(ctx context.Context, tasks []scanner.Task) (*Result, error) {
	start := o.now()
	res := &Result{Stats: Stats{Total: len(tasks)}}

	if !o.cfg.DryRun {
		if err := o.prepareDirs(); err != nil {
			return res, err
		}
		if err := o.ws.Reset(); err != nil {
			return res, err
		}
	}

	summary := o.Estimate(ctx, tasks)
	o.report.Estimate(summary)
	o.metrics.SetRemaining(summary.Duration())

	for i, task := range tasks {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		out, err := o.processTask(ctx, i, len(tasks), task)
		if err != nil {
			res.Outcomes = append(res.Outcomes, out)
			o.countOutcome(res, out)
			o.finalReport(res, start)
			return res, err
		}

		res.Outcomes = append(res.Outcomes, out)
		o.countOutcome(res, out)
		if out.State == StateDone {
			res.Stats = res.Stats.Record(out.Elapsed, len(tasks)-i-1)
			o.report.Timing(out.Elapsed, res.Stats.Cumulative, res.Stats.Average, res.Stats.Remaining)
			o.metrics.SetRemaining(res.Stats.Remaining)
		}
	}

	if ctx.Err() != nil {
		res.Interrupted = true
	}

	if !o.cfg.DryRun {
		if err := o.ws.Reset(); err != nil {
			o.log.Warn("final workspace reset failed", zap.Error(err))
		}
	}

	if o.progress != nil {
		o.progress.Finish()
	}
	o.finalReport(res, start)

	if res.Interrupted {
		return res, fmt.Errorf("обработка прервана: %w", ctx.Err())
	}
	return res, nil
}

// prepareDirs создаёт выходную директорию и очищает директорию логов.
func (o *Orchestrator) prepareDirs() error {
	if !o.cfg.KeepLogs {
		if err := os.RemoveAll(o.cfg.LogDir); err != nil {
			return fmt.Errorf("не удалось очистить директорию логов %s: %w", o.cfg.LogDir, err)
		}
	}
	for _, dir := range []string{o.cfg.InputDir, o.cfg.OutputDir, o.cfg.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
		}
	}
	return nil
}

// Estimate зондирует необработанные видео и считает оценку времени.
// Ошибка зондирования исключает видео из суммы, но не прерывает оценку.
func (o *Orchestrator) Estimate(ctx context.Context, tasks []scanner.Task) estimate.Summary {
	entries := make([]estimate.Entry, 0, len(tasks))
	for _, task := range tasks {
		e := estimate.Entry{Name: task.Name()}
		if task.Done() {
			e.Done = true
		} else if meta, err := o.prober.Probe(ctx, task.Path); err != nil {
			e.Err = err
		} else {
			e.Frames = meta.FrameCount
		}
		entries = append(entries, e)
	}
	return estimate.Estimate(entries, o.cfg.Rates())
}

// processTask проводит одно видео через все этапы.
// Ошибка возвращается только если рабочие директории нельзя подготовить.
func (o *Orchestrator) processTask(ctx context.Context, idx, total int, task scanner.Task) (Outcome, error) {
	start := o.now()
	out := Outcome{Task: task, State: StatePending}
	finish := func() Outcome {
		out.Elapsed = o.now().Sub(start)
		return out
	}

	o.report.TaskHeader(idx, total)
	if o.progress != nil {
		o.progress.Describe(task.Name())
	}

	// Рабочие директории должны быть пустыми перед извлечением кадров
	if !o.cfg.DryRun {
		err := o.ws.Reset()
		if err == nil {
			err = o.ws.Ready()
		}
		if err != nil {
			out.State = StateFailed
			out.Err = err
			return finish(), err
		}
	}

	meta, err := o.prober.Probe(ctx, task.Path)
	if err != nil {
		if task.Done() {
			o.report.Skipped(task.OutputPath)
			out.State = StateSkipped
			return o.record(finish()), nil
		}
		out.State = StateFailed
		out.Err = err
		o.report.Failed(task.RelPath, err)
		return o.record(finish()), nil
	}
	out.Metadata = meta
	o.report.Metadata(task.Name(), meta)

	if task.Done() {
		o.report.Skipped(task.OutputPath)
		out.State = StateSkipped
		return o.record(finish()), nil
	}

	extract := stage.ExtractCommand(o.tools.FFmpeg, stage.ExtractParams{
		Input:       task.Path,
		FramesDir:   o.cfg.ExtractDir,
		FrameFormat: o.cfg.FrameFormat,
		LogPath:     task.ExtractLog(o.cfg.LogDir),
	})
	upscale := stage.UpscaleCommand(o.tools.Upscaler, stage.UpscaleParams{
		InputDir:    o.cfg.ExtractDir,
		OutputDir:   o.cfg.UpscaleDir,
		Model:       o.cfg.Model,
		Scale:       o.cfg.Scale,
		FrameFormat: o.cfg.FrameFormat,
	})
	rebuild := stage.RebuildCommand(o.tools.FFmpeg, stage.RebuildParams{
		FramesDir:   o.cfg.UpscaleDir,
		FrameFormat: o.cfg.FrameFormat,
		Input:       task.Path,
		Output:      task.OutputPath,
		FrameRate:   meta.FrameRateArg(),
		BitRate:     meta.BitRate,
		HasAudio:    meta.HasAudio,
		VideoCodec:  o.cfg.VideoCodec,
		PixFmt:      o.cfg.PixFmt,
		LogPath:     task.RebuildLog(o.cfg.LogDir),
	})

	if o.cfg.DryRun {
		for _, c := range []stage.Command{extract, upscale, rebuild} {
			o.report.Planned(c)
		}
		return o.done(finish()), nil
	}

	journalID := o.journalStart(task)
	defer func() { o.journalFinish(journalID, out, meta.FrameCount) }()

	steps := []struct {
		state State
		cmd   stage.Command
	}{
		{StateExtracting, extract},
		{StateUpscaling, upscale},
		{StateRebuilding, rebuild},
	}

	for _, step := range steps {
		out.State = step.state

		if step.cmd.Stage == stage.Rebuild {
			if err := os.MkdirAll(filepath.Dir(task.OutputPath), 0755); err != nil {
				out.State = StateFailed
				out.Stage = stage.Rebuild
				out.Err = fmt.Errorf("не удалось создать директорию результата: %w", err)
				o.report.Failed(task.RelPath, out.Err)
				return o.done(finish()), nil
			}
		}

		o.report.StageStart(step.cmd)
		r := o.runner.Run(ctx, step.cmd)
		o.metrics.ObserveStage(string(step.cmd.Stage), r.Duration, !r.OK())
		o.log.Debug("stage finished",
			zap.String("video", task.RelPath),
			zap.String("stage", string(step.cmd.Stage)),
			zap.Duration("duration", r.Duration),
			zap.Int("exit_code", r.ExitCode),
		)

		if !r.OK() {
			out.State = StateFailed
			out.Stage = step.cmd.Stage
			out.Err = r.Err
			if step.cmd.Stage == stage.Rebuild {
				o.removePartialOutput(task.OutputPath)
			}
			o.log.Warn("stage failed",
				zap.String("video", task.RelPath),
				zap.String("stage", string(step.cmd.Stage)),
				zap.String("log", r.LogPath),
				zap.Error(r.Err),
			)
			o.report.Failed(task.RelPath, r.Err)
			return o.done(finish()), nil
		}

		o.report.StageDone(r, meta.FrameCount)
		if step.cmd.Stage == stage.Upscale {
			o.metrics.AddFrames(meta.FrameCount)
		}
	}

	// ffmpeg может завершиться с кодом 0, не записав файл
	if !task.Done() {
		out.State = StateFailed
		out.Stage = stage.Rebuild
		out.Err = fmt.Errorf("выходной файл не создан: %s", task.OutputPath)
		o.report.Failed(task.RelPath, out.Err)
		return o.done(finish()), nil
	}

	out.State = StateDone
	o.report.Output(task.OutputPath)
	return o.done(finish()), nil
}

// done фиксирует итог видео в метриках и прогресс-баре.
func (o *Orchestrator) done(out Outcome) Outcome {
	o.metrics.TaskFinished(string(out.State))
	if o.progress != nil {
		switch out.State {
		case StateSkipped:
			o.progress.IncrementSkipped()
		case StateFailed:
			o.progress.IncrementFailed()
		default:
			o.progress.Increment()
		}
	}
	return out
}

// record фиксирует видео, до этапов которого дело не дошло, в том числе в журнале.
func (o *Orchestrator) record(out Outcome) Outcome {
	if !o.cfg.DryRun {
		id := o.journalStart(out.Task)
		o.journalFinish(id, out, 0)
	}
	return o.done(out)
}

func (o *Orchestrator) countOutcome(res *Result, out Outcome) {
	switch out.State {
	case StateSkipped:
		res.Stats.Skipped++
	case StateFailed:
		res.Stats.Failed++
	case StatePending:
		res.Stats.Planned++
	}
}

// removePartialOutput удаляет недописанный результат, иначе следующий запуск
// посчитает видео обработанным.
func (o *Orchestrator) removePartialOutput(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		o.log.Warn("could not remove partial output", zap.String("path", path), zap.Error(err))
	}
}

func (o *Orchestrator) journalStart(task scanner.Task) int64 {
	if o.journal == nil {
		return 0
	}
	id, err := o.journal.StartTask(task.Path, task.OutputPath)
	if err != nil {
		o.log.Warn("journal write failed", zap.String("video", task.RelPath), zap.Error(err))
		return 0
	}
	return id
}

func (o *Orchestrator) journalFinish(id int64, out Outcome, frames int64) {
	if o.journal == nil || id == 0 {
		return
	}

	res := storage.TaskResult{
		Status:   storage.StatusDone,
		Frames:   frames,
		Duration: out.Elapsed,
	}
	switch out.State {
	case StateSkipped:
		res.Status = storage.StatusSkipped
	case StateFailed:
		res.Status = storage.StatusFailed
		res.Stage = string(out.Stage)
		if out.Err != nil {
			res.Error = out.Err.Error()
		}
	}

	if err := o.journal.FinishTask(id, res); err != nil {
		o.log.Warn("journal write failed", zap.String("video", out.Task.RelPath), zap.Error(err))
	}
}

func (o *Orchestrator) finalReport(res *Result, start time.Time) {
	var failures []report.Failure
	for _, f := range res.Failures() {
		failures = append(failures, report.Failure{Path: f.Task.RelPath, Err: f.Err})
	}
	o.report.Final(res.Stats.Total, res.Stats.Processed, res.Stats.Skipped, failures, o.now().Sub(start))
}

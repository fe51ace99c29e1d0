package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/vupscale/internal/batch"
	"github.com/artemshloyda/vupscale/internal/config"
	"github.com/artemshloyda/vupscale/internal/report"
	"github.com/artemshloyda/vupscale/internal/scanner"
	"github.com/artemshloyda/vupscale/internal/storage"
	"github.com/artemshloyda/vupscale/internal/watcher"
	"github.com/artemshloyda/vupscale/internal/workspace"
)

// newEstimateCmd создаёт команду estimate.
func newEstimateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate",
		Short: "Оценить время обработки без запуска этапов",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("ошибка конфигурации: %w", err)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			p, err := newPipeline(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer p.Close()

			tasks, err := scanner.New(cfg).Scan(ctx)
			if err != nil {
				return err
			}

			summary := batch.New(cfg, p.tools, p.prober, p.runner).Estimate(ctx, tasks)
			report.New(cmd.OutOrStdout()).Estimate(summary)
			return nil
		},
	}
}

// newWatchCmd создаёт команду watch.
func newWatchCmd(cfg *config.Config) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Следить за входной директорией и обрабатывать новые видео",
		Long: `Обрабатывает уже лежащие во входной директории видео, затем ждёт новые.
Видео берётся в работу, когда в него перестают писать (см. --debounce).
Остановка: Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("ошибка конфигурации: %w", err)
			}
			if err := os.MkdirAll(cfg.InputDir, 0755); err != nil {
				return fmt.Errorf("не удалось создать входную директорию: %w", err)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			p, err := newPipeline(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer p.Close()

			w, err := watcher.New(cfg, p.log)
			if err != nil {
				return err
			}
			w.SetDebounceTime(debounce)

			// Подписываемся до первичного сканирования, чтобы не пропустить видео
			incoming, err := w.Watch(ctx)
			if err != nil {
				return err
			}

			existing, err := scanner.New(cfg).Scan(ctx)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				if _, err := p.Run(ctx, existing); err != nil && ctx.Err() == nil {
					return err
				}
			}

			fmt.Printf("👀 Слежение за %s (Ctrl+C для остановки)\n", cfg.InputDir)
			return watchLoop(ctx, incoming, p.Run)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce,
		"Пауза без записи в файл перед обработкой")
	return cmd
}

// watchLoop обрабатывает видео из канала пачками: всё, что накопилось
// за время предыдущей обработки, уходит в один пакет.
func watchLoop(ctx context.Context, incoming <-chan scanner.Task,
	run func(context.Context, []scanner.Task) (*batch.Result, error)) error {
	for {
		var tasks []scanner.Task

		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-incoming:
			if !ok {
				return nil
			}
			tasks = append(tasks, t)
		}

	drain:
		for {
			select {
			case t, ok := <-incoming:
				if !ok {
					break drain
				}
				tasks = append(tasks, t)
			default:
				break drain
			}
		}

		if _, err := run(ctx, tasks); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Ошибки отдельного пакета не останавливают слежение
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
	}
}

// newStatsCmd создаёт команду stats.
func newStatsCmd(cfg *config.Config) *cobra.Command {
	var last int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Показать статистику из журнала запусков",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("ошибка конфигурации: %w", err)
			}
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				return fmt.Errorf("журнал не найден: %s", cfg.DBPath)
			}

			store, err := storage.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("не удалось открыть БД: %w", err)
			}
			defer func() { _ = store.Close() }()

			st, err := store.GetStats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "📊 Статистика журнала:\n")
			fmt.Fprintf(out, "   Запусков: %d\n", st.Runs)
			fmt.Fprintf(out, "   Собрано видео: %d\n", st.Done)
			fmt.Fprintf(out, "   Пропущено: %d\n", st.Skipped)
			fmt.Fprintf(out, "   Ошибок: %d\n", st.Failed)
			fmt.Fprintf(out, "   В процессе: %d\n", st.InProgress)
			fmt.Fprintf(out, "   Время обработки: %s\n", report.FormatDuration(st.ProcessingTime))

			runs, err := store.RecentRuns(last)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				return nil
			}

			fmt.Fprintf(out, "\n🕘 Последние запуски:\n\n")
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tНАЧАЛО\tСТАТУС\tВСЕГО\tСОБРАНО\tПРОПУЩЕНО\tОШИБОК")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					r.ID[:8], r.StartedAt.Format("2006-01-02 15:04"), r.Status,
					r.Total, r.Processed, r.Skipped, r.Failed)
			}
			_ = w.Flush()

			failed, err := store.FailedTasks(runs[0].ID)
			if err != nil {
				return err
			}
			if len(failed) > 0 {
				fmt.Fprintf(out, "\n❌ Ошибки последнего запуска:\n")
				for _, t := range failed {
					fmt.Fprintf(out, "   %s [%s]: %s\n", t.SrcPath, t.Stage, t.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&last, "last", 5, "Сколько последних запусков показать")
	return cmd
}

// newCleanCmd создаёт команду clean.
func newCleanCmd(cfg *config.Config) *cobra.Command {
	var logs bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Удалить временные директории кадров",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("ошибка конфигурации: %w", err)
			}

			ws := workspace.New(cfg.ExtractDir, cfg.UpscaleDir)
			size, err := ws.Size()
			if err != nil {
				return err
			}
			if err := ws.Clear(); err != nil {
				return err
			}
			if logs {
				if err := os.RemoveAll(cfg.LogDir); err != nil {
					return fmt.Errorf("не удалось удалить логи: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "🧹 Освобождено: %s\n", formatBytes(size))
			return nil
		},
	}

	cmd.Flags().BoolVar(&logs, "logs", false, "Удалить также директорию логов")
	return cmd
}

// newConfigCmd создаёт команду config.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Работа с файлом конфигурации",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Создать пример файла конфигурации",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "vupscale.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("файл %s уже существует (используйте --force)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateExampleConfig()), 0644); err != nil {
				return fmt.Errorf("не удалось записать %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Создан %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Перезаписать существующий файл")

	cmd.AddCommand(initCmd)
	return cmd
}

// newVersionCmd создаёт команду version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vupscale %s (built %s)\n", Version, BuildTime)
		},
	}
}

// formatBytes форматирует байты в человекочитаемый формат.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

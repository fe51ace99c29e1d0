// Package cli содержит CLI интерфейс приложения.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/artemshloyda/vupscale/internal/config"
	"github.com/artemshloyda/vupscale/internal/scanner"
)

var (
	// Version будет установлена при сборке.
	Version = "dev"

	// BuildTime будет установлена при сборке.
	BuildTime = "unknown"
)

// NewRootCmd создаёт корневую команду CLI. Значения cfg служат значениями
// флагов по умолчанию: файл конфигурации и окружение применяются до вызова.
func NewRootCmd(cfg *config.Config) *cobra.Command {
	var saveProfile string

	rootCmd := &cobra.Command{
		Use:   "vupscale",
		Short: "Пакетное увеличение разрешения видео",
		Long: `vupscale - пакетное увеличение разрешения видео через realesrgan-ncnn-vulkan.

Для каждого видео: извлечение кадров ffmpeg, апскейл кадров, сборка видео
с исходной частотой кадров, битрейтом и аудиодорожкой.
Поддерживает идемпотентность: видео с уже существующим результатом пропускаются.

Без аргументов обрабатывает ./videos/input_videos в ./videos/output_videos.

Примеры:
  # Обработать папки по умолчанию
  vupscale

  # Свои папки и профиль для живого видео
  vupscale --in ./raw --out ./hd --profile general

  # Только оценка времени
  vupscale estimate --in ./raw

  # Следить за папкой и обрабатывать новые видео
  vupscale watch --in ./incoming

  # Dry run (показать команды без запуска)
  vupscale --dry-run`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if saveProfile != "" {
				path, err := config.SavePreset(saveProfile, cfg)
				if err != nil {
					return err
				}
				fmt.Printf("💾 Профиль '%s' сохранён: %s\n", saveProfile, path)
			}
			return runBatchCmd(cmd.Context(), cfg)
		},
	}

	// Профиль применяется после разбора флагов, но явно заданные флаги важнее
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return applyProfile(cmd.Flags(), cfg)
	}

	addFlags(rootCmd.PersistentFlags(), cfg)
	rootCmd.Flags().StringVar(&saveProfile, "save-profile", "", "Сохранить настройки апскейла как именованный профиль")

	// Подкоманды
	rootCmd.AddCommand(newEstimateCmd(cfg))
	rootCmd.AddCommand(newWatchCmd(cfg))
	rootCmd.AddCommand(newStatsCmd(cfg))
	rootCmd.AddCommand(newCleanCmd(cfg))
	rootCmd.AddCommand(newPresetsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// addFlags регистрирует флаги конфигурации.
func addFlags(flags *pflag.FlagSet, cfg *config.Config) {
	// Файл конфигурации читается до разбора флагов, флаг нужен для --help
	flags.String("config", "", "Путь к файлу конфигурации (по умолчанию ./vupscale.yaml)")

	// Папки
	flags.StringVar(&cfg.InputDir, "in", cfg.InputDir, "Директория с исходными видео")
	flags.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Директория для результатов")
	flags.StringVar(&cfg.ExtractDir, "extract-dir", cfg.ExtractDir, "Временная директория извлечённых кадров")
	flags.StringVar(&cfg.UpscaleDir, "upscale-dir", cfg.UpscaleDir, "Временная директория увеличенных кадров")
	flags.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Директория логов ffmpeg")
	flags.BoolVar(&cfg.KeepLogs, "keep-logs", cfg.KeepLogs, "Не очищать директорию логов при старте")
	flags.StringSliceVar(&cfg.InputExtensions, "in-ext", cfg.InputExtensions,
		"Расширения входных файлов через запятую (например: mp4,mkv)")

	// Результат
	flags.StringVar(&cfg.OutputSuffix, "suffix", cfg.OutputSuffix, "Суффикс имени результата")
	flags.BoolVar(&cfg.KeepTree, "keep-tree", cfg.KeepTree, "Сохранять структуру директорий")
	flags.StringVar(&cfg.VideoCodec, "codec", cfg.VideoCodec, "Видеокодек сборки (ffmpeg -c:v)")

	// Апскейл
	flags.StringVar(&cfg.Model, "model", cfg.Model, "Модель апскейлера")
	flags.IntVar(&cfg.Scale, "scale", cfg.Scale, "Множитель увеличения")
	flags.StringVar(&cfg.Profile, "profile", cfg.Profile,
		fmt.Sprintf("Профиль апскейла: встроенный (%s) или сохранённый", joinPresets()))

	// Оценка
	flags.Float64Var(&cfg.DecodeRate, "decode-fps", cfg.DecodeRate, "Оценочная скорость извлечения кадров")
	flags.Float64Var(&cfg.UpscaleRate, "upscale-fps", cfg.UpscaleRate, "Оценочная скорость апскейла")
	flags.Float64Var(&cfg.RebuildRate, "rebuild-fps", cfg.RebuildRate, "Оценочная скорость сборки")

	// Пути
	flags.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "Путь к ffmpeg")
	flags.StringVar(&cfg.FFprobePath, "ffprobe", cfg.FFprobePath, "Путь к ffprobe")
	flags.StringVar(&cfg.UpscalerPath, "upscaler", cfg.UpscalerPath, "Путь к realesrgan-ncnn-vulkan")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Путь к SQLite журналу запусков")
	flags.BoolVar(&cfg.NoDB, "no-db", cfg.NoDB, "Не вести журнал запусков")

	// Вывод
	flags.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Показать команды без запуска этапов")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Подробный вывод (уровень логов debug)")
	flags.BoolVar(&cfg.NoProgress, "no-progress", cfg.NoProgress, "Отключить прогресс-бар")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Уровень диагностических логов: debug, info, warn, error")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Адрес HTTP-сервера метрик Prometheus (например :9090)")
}

// explicitFlag - значение флага, заданного в командной строке.
type explicitFlag struct {
	flag  *pflag.Flag
	value string
	slice []string
}

// applyProfile применяет профиль, сохраняя значения явно заданных флагов.
// Сохранённый профиль может менять любые поля, поэтому после него
// заново выставляются все флаги, которые пользователь указал сам.
func applyProfile(flags *pflag.FlagSet, cfg *config.Config) error {
	if cfg.Profile == "" {
		return nil
	}

	var explicit []explicitFlag
	flags.Visit(func(f *pflag.Flag) {
		e := explicitFlag{flag: f, value: f.Value.String()}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			e.slice = append([]string(nil), sv.GetSlice()...)
		}
		explicit = append(explicit, e)
	})

	if err := cfg.ResolveProfile(cfg.Profile); err != nil {
		return err
	}

	for _, e := range explicit {
		var err error
		if sv, ok := e.flag.Value.(pflag.SliceValue); ok {
			err = sv.Replace(e.slice)
		} else {
			err = e.flag.Value.Set(e.value)
		}
		if err != nil {
			return fmt.Errorf("не удалось восстановить флаг --%s: %w", e.flag.Name, err)
		}
	}
	return nil
}

// signalContext возвращает контекст, отменяемый по SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\n⚠️  Получен сигнал завершения, останавливаем...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// runBatchCmd сканирует входную директорию и обрабатывает найденные видео.
func runBatchCmd(parent context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	ctx, cancel := signalContext(parent)
	defer cancel()

	p, err := newPipeline(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer p.Close()

	// Входная директория создаётся, как и остальные папки по умолчанию
	if err := os.MkdirAll(cfg.InputDir, 0755); err != nil {
		return fmt.Errorf("не удалось создать входную директорию: %w", err)
	}

	tasks, err := scanner.New(cfg).Scan(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Printf("📁 Видео не найдены в %s\n", cfg.InputDir)
		return nil
	}

	res, err := p.Run(ctx, tasks)
	if err != nil {
		return err
	}
	if n := res.Stats.Failed; n > 0 {
		return fmt.Errorf("завершено с %d ошибками", n)
	}
	return nil
}

// preload применяет файл конфигурации и переменные окружения к cfg.
// Путь к файлу ищется в аргументах до разбора флагов cobra.
func preload(cfg *config.Config, args []string) error {
	fc, path, err := config.FindAndLoadConfig(configPathFromArgs(args))
	if err != nil {
		return err
	}
	if fc != nil {
		fc.ApplyToConfig(cfg)
		if cfg.Verbose {
			fmt.Printf("📄 Конфигурация: %s\n", path)
		}
	}
	return cfg.ApplyEnv()
}

// configPathFromArgs извлекает значение --config из аргументов.
func configPathFromArgs(args []string) string {
	for i, a := range args {
		switch {
		case a == "--":
			return ""
		case a == "--config" && i+1 < len(args):
			return args[i+1]
		case len(a) > len("--config=") && a[:len("--config=")] == "--config=":
			return a[len("--config="):]
		}
	}
	return ""
}

// Execute запускает CLI.
func Execute() {
	cfg := config.DefaultConfig()
	if err := preload(cfg, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	if err := NewRootCmd(cfg).Execute(); err != nil {
		// Не выводим ошибку, cobra уже вывела
		os.Exit(1)
	}
}

/*
Возможные расширения:
- Команда retry для повторной обработки видео из failed-списка последнего запуска
- Команда export для выгрузки журнала в JSON
*/

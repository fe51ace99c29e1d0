// Package cli содержит CLI команды приложения.
package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/vupscale/internal/config"
)

// newPresetsCmd создаёт команду для управления профилями апскейла.
func newPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "presets",
		Aliases: []string{"profiles"},
		Short:   "Встроенные и сохранённые профили апскейла",
		Long: `Профиль задаёт модель апскейлера, множитель и оценочную скорость апскейла.

Встроенные профили: ` + joinPresets() + `.
Сохранённые профили хранятся в ~/.config/vupscale/presets/.

Примеры:
  # Сохранить текущие настройки как профиль
  vupscale --model realesrgan-x4plus --scale 4 --upscale-fps 3 --save-profile live

  # Запустить с профилем
  vupscale --profile live

  # Список профилей
  vupscale presets list

  # Удалить профиль
  vupscale presets delete live`,
	}

	cmd.AddCommand(newPresetsListCmd())
	cmd.AddCommand(newPresetsDeleteCmd())
	cmd.AddCommand(newPresetsShowCmd())

	return cmd
}

func joinPresets() string {
	return strings.Join(config.ValidPresets(), ", ")
}

// newPresetsListCmd создаёт команду для списка профилей.
func newPresetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Показать список профилей",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ИМЯ\tМОДЕЛЬ\tМНОЖИТЕЛЬ\tFPS АПСКЕЙЛА\tИСТОЧНИК")
			fmt.Fprintln(w, "---\t------\t---------\t-----------\t--------")

			names := make([]string, 0, len(config.Presets))
			for p := range config.Presets {
				names = append(names, string(p))
			}
			sort.Strings(names)
			for _, name := range names {
				p := config.Presets[config.Preset(name)]
				fmt.Fprintf(w, "%s\t%s\t%d\t%g\tвстроенный\n", name, p.Model, p.Scale, p.UpscaleRate)
			}

			presets, err := config.ListPresets()
			if err != nil {
				return fmt.Errorf("ошибка получения списка профилей: %w", err)
			}
			for _, p := range presets {
				model, scale, rate := "-", "-", "-"
				if fc := p.Config; fc != nil {
					if fc.Upscale != nil {
						if fc.Upscale.Model != "" {
							model = fc.Upscale.Model
						}
						if fc.Upscale.Scale > 0 {
							scale = fmt.Sprintf("%d", fc.Upscale.Scale)
						}
					}
					if fc.Estimate != nil && fc.Estimate.UpscaleFPS > 0 {
						rate = fmt.Sprintf("%g", fc.Estimate.UpscaleFPS)
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, model, scale, rate, p.Path)
			}
			return w.Flush()
		},
	}
}

// newPresetsDeleteCmd создаёт команду для удаления профиля.
func newPresetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Удалить сохранённый профиль",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if _, ok := config.Presets[config.Preset(name)]; ok {
				return fmt.Errorf("профиль '%s' встроенный и не может быть удалён", name)
			}

			if err := config.DeletePreset(name); err != nil {
				return fmt.Errorf("ошибка удаления профиля: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✅ Профиль '%s' удалён\n", name)
			return nil
		},
	}
}

// newPresetsShowCmd создаёт команду для отображения профиля.
func newPresetsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Показать содержимое профиля",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			out := cmd.OutOrStdout()

			if p, ok := config.Presets[config.Preset(name)]; ok {
				fmt.Fprintf(out, "📦 Профиль: %s (встроенный)\n\n", name)
				fmt.Fprintf(out, "upscale:\n  model: %s\n  scale: %d\n", p.Model, p.Scale)
				fmt.Fprintf(out, "estimate:\n  upscale_fps: %g\n", p.UpscaleRate)
				return nil
			}

			fc, path, err := config.LoadPreset(name)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "📦 Профиль: %s\n", name)
			fmt.Fprintf(out, "📁 Путь: %s\n\n", path)

			if u := fc.Upscale; u != nil {
				fmt.Fprintln(out, "upscale:")
				if u.Model != "" {
					fmt.Fprintf(out, "  model: %s\n", u.Model)
				}
				if u.Scale > 0 {
					fmt.Fprintf(out, "  scale: %d\n", u.Scale)
				}
				if u.FrameFormat != "" {
					fmt.Fprintf(out, "  frame_format: %s\n", u.FrameFormat)
				}
			}

			if o := fc.Output; o != nil {
				fmt.Fprintln(out, "output:")
				if o.VideoCodec != "" {
					fmt.Fprintf(out, "  video_codec: %s\n", o.VideoCodec)
				}
				if o.PixFmt != "" {
					fmt.Fprintf(out, "  pix_fmt: %s\n", o.PixFmt)
				}
			}

			if e := fc.Estimate; e != nil {
				fmt.Fprintln(out, "estimate:")
				fmt.Fprintf(out, "  decode_fps: %g\n  upscale_fps: %g\n  rebuild_fps: %g\n",
					e.DecodeFPS, e.UpscaleFPS, e.RebuildFPS)
			}

			return nil
		},
	}
}

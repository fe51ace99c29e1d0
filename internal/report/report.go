// Package report печатает отчёт оператору: предварительную оценку,
// ход обработки каждого видео и итог пакета.
package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/artemshloyda/vupscale/internal/estimate"
	"github.com/artemshloyda/vupscale/internal/probe"
	"github.com/artemshloyda/vupscale/internal/stage"
)

// stageLabels - подписи этапов в отчёте.
var stageLabels = map[stage.Name]string{
	stage.Extract: "解帧",
	stage.Upscale: "超分",
	stage.Rebuild: "合成",
}

// StageLabel возвращает подпись этапа для отчёта.
func StageLabel(name stage.Name) string {
	if label, ok := stageLabels[name]; ok {
		return label
	}
	return string(name)
}

// SplitHMS раскладывает секунды на часы, минуты и остаток секунд,
// округлённый до сотых.
func SplitHMS(seconds float64) (h, m int64, s float64) {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	h = int64(seconds) / 3600
	m = (int64(seconds) % 3600) / 60
	s = math.Round(math.Mod(seconds, 60)*100) / 100
	return h, m, s
}

// FormatHMS форматирует секунды как "H 小时 M 分 S 秒".
func FormatHMS(seconds float64) string {
	h, m, s := SplitHMS(seconds)
	return fmt.Sprintf("%d 小时 %d 分 %.2f 秒", h, m, s)
}

// FormatDuration - FormatHMS для time.Duration.
func FormatDuration(d time.Duration) string {
	return FormatHMS(d.Seconds())
}

// Reporter пишет отчёт в io.Writer. Не безопасен для конкурентного использования:
// пакет обрабатывается последовательно.
type Reporter struct {
	w io.Writer
}

// New создаёт Reporter.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

func (r *Reporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.w, format, args...)
}

// Estimate печатает предварительную оценку пакета.
func (r *Reporter) Estimate(s estimate.Summary) {
	r.printf("====== 总览预估 =====\n")
	r.printf("总视频数: %d\n", s.Total)
	r.printf("已处理视频数: %d\n", s.Done)
	r.printf("待处理视频数: %d\n", s.Pending)
	for _, f := range s.Failures {
		r.printf("无法读取元数据: %s: %v\n", f.Name, f.Err)
	}
	r.printf("预估时间: %s\n\n", FormatHMS(s.Seconds))
}

// TaskHeader печатает заголовок видео: позиция в пакете начинается с 1.
func (r *Reporter) TaskHeader(index, total int) {
	r.printf("====== 处理进度 [%d/%d] =====\n", index+1, total)
}

// Metadata печатает сводку метаданных видео.
func (r *Reporter) Metadata(name string, m *probe.Metadata) {
	r.printf("视频名称: %s\n", name)
	r.printf("width: %d\n", m.Width)
	r.printf("height: %d\n", m.Height)
	r.printf("frame_rate: %s\n", m.FrameRateArg())
	r.printf("audio_exists: %t\n", m.HasAudio)
	if m.FrameCountEstimated {
		r.printf("nb_frames: %d (估算)\n", m.FrameCount)
	} else {
		r.printf("nb_frames: %d\n", m.FrameCount)
	}
	r.printf("bit_rate: %d\n\n", m.BitRate)
}

// Skipped печатает сообщение о пропуске уже обработанного видео.
func (r *Reporter) Skipped(outputPath string) {
	r.printf("输出文件已存在: %s\n\n", outputPath)
}

// StageStart печатает командную строку этапа.
func (r *Reporter) StageStart(c stage.Command) {
	r.printf("开始%s，指令: %s\n", StageLabel(c.Stage), c.String())
}

// StageDone печатает длительность и скорость этапа.
func (r *Reporter) StageDone(res *stage.Result, frames int64) {
	r.printf("%s完成, 用时 %.2f 秒, 速度 %.2f fps\n",
		StageLabel(res.Stage), res.Duration.Seconds(), res.FPS(frames))
}

// Planned печатает команду, которая была бы выполнена в режиме dry-run.
func (r *Reporter) Planned(c stage.Command) {
	r.printf("[dry-run] %s: %s\n", StageLabel(c.Stage), c.String())
}

// Output печатает путь к итоговому видео.
func (r *Reporter) Output(path string) {
	r.printf("输出视频: %s\n", path)
}

// Timing печатает время видео, накопленное время, среднее и прогноз остатка.
func (r *Reporter) Timing(elapsed, cumulative, average, remaining time.Duration) {
	r.printf("该视频耗时 %.2f 秒\n", elapsed.Seconds())
	r.printf("累计耗时 %s\n", FormatDuration(cumulative))
	r.printf("平均单个视频耗时 %.2f 秒\n", average.Seconds())
	r.printf("预估剩余 %s\n\n", FormatDuration(remaining))
}

// Failed печатает ошибку обработки видео.
func (r *Reporter) Failed(name string, err error) {
	r.printf("处理失败: %s: %v\n\n", name, err)
}

// Failure - строка итогового списка ошибок.
type Failure struct {
	Path string
	Err  error
}

// Final печатает итог пакета.
func (r *Reporter) Final(total, processed, skipped int, failures []Failure, elapsed time.Duration) {
	r.printf("====== 处理完成 =====\n")
	r.printf("总视频数: %d\n", total)
	r.printf("成功: %d\n", processed)
	r.printf("跳过: %d\n", skipped)
	r.printf("失败: %d\n", len(failures))
	r.printf("总耗时: %s\n", FormatDuration(elapsed))
	if len(failures) > 0 {
		r.printf("失败列表:\n")
		for _, f := range failures {
			r.printf("  - %s: %v\n", f.Path, f.Err)
		}
	}
}

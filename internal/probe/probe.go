// Package probe извлекает метаданные видеопотока через ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoVideoStream возвращается, если в файле нет видеопотока.
var ErrNoVideoStream = errors.New("видеопоток не найден")

// ProbeError - файл не читается ffprobe или в нём нет видеопотока.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("не удалось прочитать метаданные %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// MetadataError - в видеопотоке отсутствует обязательное поле.
type MetadataError struct {
	Path  string
	Field string
	Err   error
}

func (e *MetadataError) Error() string {
	msg := fmt.Sprintf("в метаданных %s нет поля %s", e.Path, e.Field)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MetadataError) Unwrap() error { return e.Err }

// Metadata содержит параметры первого видеопотока, нужные конвейеру.
type Metadata struct {
	Width  int
	Height int

	// FrameRateRaw - r_frame_rate как есть, например "1199/50".
	FrameRateRaw string

	// FrameRate - частота кадров, округлённая до 2 знаков.
	FrameRate float64

	FrameCount int64

	// FrameCountEstimated - nb_frames отсутствовал и посчитан как duration × fps.
	FrameCountEstimated bool

	BitRate  int64
	HasAudio bool

	// Duration - длительность в секундах (0, если неизвестна).
	Duration float64
}

// FrameRateArg возвращает частоту кадров для аргумента ffmpeg -r.
func (m *Metadata) FrameRateArg() string {
	return strconv.FormatFloat(m.FrameRate, 'f', 2, 64)
}

// Prober запускает ffprobe.
type Prober struct {
	// path - путь к бинарнику ffprobe.
	path string
}

// New создаёт Prober для указанного бинарника ffprobe.
func New(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{path: ffprobePath}
}

// Probe выполняет один JSON-вызов ffprobe и разбирает результат.
func (p *Prober) Probe(ctx context.Context, path string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, p.path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, &ProbeError{Path: path, Err: fmt.Errorf("ffprobe: %w", err)}
	}

	return parse(out, path)
}

// ParseJSON разбирает вывод ffprobe без запуска процесса.
func ParseJSON(data []byte) (*Metadata, error) {
	return parse(data, "")
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
	BitRate    string `json:"bit_rate"`
	Duration   string `json:"duration"`
}

func parse(data []byte, path string) (*Metadata, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ProbeError{Path: path, Err: fmt.Errorf("разбор JSON ffprobe: %w", err)}
	}

	var video *ffprobeStream
	hasAudio := false
	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			hasAudio = true
		}
	}
	if video == nil {
		return nil, &ProbeError{Path: path, Err: ErrNoVideoStream}
	}

	m := &Metadata{
		Width:        video.Width,
		Height:       video.Height,
		FrameRateRaw: video.RFrameRate,
		HasAudio:     hasAudio,
	}

	fps, err := ParseRational(video.RFrameRate)
	if err != nil {
		return nil, &MetadataError{Path: path, Field: "r_frame_rate", Err: err}
	}
	m.FrameRate = round2(fps)

	m.Duration = firstFloat(video.Duration, raw.Format.Duration)

	if n, ok := parseInt(video.NbFrames); ok {
		m.FrameCount = n
	} else if m.Duration > 0 && fps > 0 {
		m.FrameCount = int64(math.Round(m.Duration * fps))
		m.FrameCountEstimated = true
	} else {
		return nil, &MetadataError{Path: path, Field: "nb_frames"}
	}

	if n, ok := parseInt(video.BitRate); ok {
		m.BitRate = n
	} else if n, ok := parseInt(raw.Format.BitRate); ok {
		m.BitRate = n
	} else {
		return nil, &MetadataError{Path: path, Field: "bit_rate"}
	}

	return m, nil
}

// ParseRational вычисляет дробь вида "num/den" (или просто число).
func ParseRational(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("пустое значение")
	}

	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректный числитель %q: %w", s, err)
	}
	if !found {
		return n, nil
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректный знаменатель %q: %w", s, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("нулевой знаменатель в %q", s)
	}
	return n / d, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// parseInt разбирает целое из строки ffprobe; "N/A" и пустая строка - отсутствие значения.
func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func firstFloat(values ...string) float64 {
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && f > 0 {
			return f
		}
	}
	return 0
}

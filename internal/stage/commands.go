package stage

import (
	"path/filepath"
	"strconv"
)

// FramePattern - шаблон имён кадров для ffmpeg и апскейлера.
const FramePattern = "frame%08d"

// ExtractParams - параметры извлечения кадров.
type ExtractParams struct {
	Input       string
	FramesDir   string
	FrameFormat string
	LogPath     string
}

// ExtractCommand строит команду извлечения кадров 1:1 без ресинхронизации частоты.
//
//	ffmpeg -i <input> -qscale:v 1 -qmin 1 -qmax 1 -vsync 0 <dir>/frame%08d.jpg
func ExtractCommand(ffmpeg string, p ExtractParams) Command {
	return Command{
		Stage: Extract,
		Path:  ffmpeg,
		Args: []string{
			"-i", p.Input,
			"-qscale:v", "1", "-qmin", "1", "-qmax", "1",
			"-vsync", "0",
			framesPath(p.FramesDir, p.FrameFormat),
		},
		LogPath: p.LogPath,
	}
}

// UpscaleParams - параметры апскейла.
type UpscaleParams struct {
	InputDir    string
	OutputDir   string
	Model       string
	Scale       int
	FrameFormat string
}

// UpscaleCommand строит команду апскейлера. Вывод апскейлера не логируется.
//
//	realesrgan-ncnn-vulkan -i <in> -o <out> -n <model> -s <scale> -f jpg
func UpscaleCommand(upscaler string, p UpscaleParams) Command {
	return Command{
		Stage: Upscale,
		Path:  upscaler,
		Args: []string{
			"-i", p.InputDir,
			"-o", p.OutputDir,
			"-n", p.Model,
			"-s", strconv.Itoa(p.Scale),
			"-f", frameFormat(p.FrameFormat),
		},
	}
}

// RebuildParams - параметры сборки итогового видео.
type RebuildParams struct {
	FramesDir   string
	FrameFormat string

	// Input - исходное видео, источник аудиодорожки.
	Input  string
	Output string

	// FrameRate - частота кадров в виде аргумента -r ("23.98").
	FrameRate string
	BitRate   int64
	HasAudio  bool

	VideoCodec string
	PixFmt     string
	LogPath    string
}

// RebuildCommand строит команду сборки видео из увеличенных кадров.
// -map 1:a:0 добавляется только при наличии аудио: ffmpeg падает на отсутствующем потоке.
//
//	ffmpeg -r <fps> -f image2 -i <dir>/frame%08d.jpg -i <input> -map 0:v:0 [-map 1:a:0]
//	       -c:a copy -c:v hevc -b:v <bitrate> -r <fps> -pix_fmt yuv420p <output> -y
func RebuildCommand(ffmpeg string, p RebuildParams) Command {
	codec := p.VideoCodec
	if codec == "" {
		codec = "hevc"
	}
	pixFmt := p.PixFmt
	if pixFmt == "" {
		pixFmt = "yuv420p"
	}

	args := []string{
		"-r", p.FrameRate,
		"-f", "image2",
		"-i", framesPath(p.FramesDir, p.FrameFormat),
		"-i", p.Input,
		"-map", "0:v:0",
	}
	if p.HasAudio {
		args = append(args, "-map", "1:a:0")
	}
	args = append(args,
		"-c:a", "copy",
		"-c:v", codec,
		"-b:v", strconv.FormatInt(p.BitRate, 10),
		"-r", p.FrameRate,
		"-pix_fmt", pixFmt,
		p.Output,
		"-y",
	)

	return Command{
		Stage:   Rebuild,
		Path:    ffmpeg,
		Args:    args,
		LogPath: p.LogPath,
	}
}

func framesPath(dir, format string) string {
	return filepath.Join(dir, FramePattern+"."+frameFormat(format))
}

func frameFormat(format string) string {
	if format == "" {
		return "jpg"
	}
	return format
}

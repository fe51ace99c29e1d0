package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/artemshloyda/vupscale/internal/config"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.InputDir = filepath.Join(root, "input_videos")
	cfg.OutputDir = filepath.Join(root, "output_videos")
	cfg.ExtractDir = filepath.Join(root, "tmp_frames")
	cfg.UpscaleDir = filepath.Join(root, "out_frames")
	cfg.LogDir = filepath.Join(root, "logs")
	return cfg
}

func TestScan_RecursiveSortedFiltered(t *testing.T) {
	cfg := testConfig(t)
	touch(t, filepath.Join(cfg.InputDir, "b.mp4"))
	touch(t, filepath.Join(cfg.InputDir, "season1", "ep02.mkv"))
	touch(t, filepath.Join(cfg.InputDir, "season1", "ep01.MKV"))
	touch(t, filepath.Join(cfg.InputDir, "notes.txt"))
	touch(t, filepath.Join(cfg.InputDir, "._b.mp4"))
	touch(t, filepath.Join(cfg.InputDir, ".hidden", "c.mp4"))

	tasks, err := New(cfg).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	var got []string
	for _, task := range tasks {
		got = append(got, task.RelPath)
	}
	want := []string{
		"b.mp4",
		filepath.Join("season1", "ep01.MKV"),
		filepath.Join("season1", "ep02.mkv"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("task[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScan_SkipsNestedWorkDirs(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDir = filepath.Join(cfg.InputDir, "out")
	touch(t, filepath.Join(cfg.InputDir, "a.mp4"))
	touch(t, filepath.Join(cfg.OutputDir, "a_4x.mp4"))

	tasks, err := New(cfg).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("got %d tasks, want 1 (output dir must be skipped)", len(tasks))
	}
}

func TestScan_MissingInputDir(t *testing.T) {
	cfg := testConfig(t)
	if _, err := New(cfg).Scan(context.Background()); err == nil {
		t.Error("Scan() of missing input dir should fail")
	}
}

func TestNewTask_OutputPath(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg)

	task := s.NewTask(filepath.Join(cfg.InputDir, "anime", "clip.mp4"))

	if task.OutputName != "clip_4x.mp4" {
		t.Errorf("OutputName = %q, want clip_4x.mp4", task.OutputName)
	}
	if want := filepath.Join(cfg.OutputDir, "anime", "clip_4x.mp4"); task.OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", task.OutputPath, want)
	}
	if want := filepath.Join(cfg.LogDir, "clip_4x.mp4_extract.log"); task.ExtractLog(cfg.LogDir) != want {
		t.Errorf("ExtractLog = %q, want %q", task.ExtractLog(cfg.LogDir), want)
	}
	if want := filepath.Join(cfg.LogDir, "clip_4x.mp4_rebuild.log"); task.RebuildLog(cfg.LogDir) != want {
		t.Errorf("RebuildLog = %q, want %q", task.RebuildLog(cfg.LogDir), want)
	}

	cfg.KeepTree = false
	flat := s.NewTask(filepath.Join(cfg.InputDir, "anime", "clip.mkv"))
	if want := filepath.Join(cfg.OutputDir, "clip_4x.mp4"); flat.OutputPath != want {
		t.Errorf("flat OutputPath = %q, want %q", flat.OutputPath, want)
	}
}

func TestTask_Done(t *testing.T) {
	cfg := testConfig(t)
	task := New(cfg).NewTask(filepath.Join(cfg.InputDir, "clip.mp4"))

	if task.Done() {
		t.Error("Done() should be false without output")
	}

	// Директория по выходному пути не считается результатом
	if err := os.MkdirAll(task.OutputPath, 0o755); err != nil {
		t.Fatal(err)
	}
	if task.Done() {
		t.Error("Done() should be false for a directory")
	}
	if err := os.Remove(task.OutputPath); err != nil {
		t.Fatal(err)
	}

	touch(t, task.OutputPath)
	if !task.Done() {
		t.Error("Done() should be true when output exists")
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		src, suffix, container, want string
	}{
		{"clip.mp4", "_4x", "mp4", "clip_4x.mp4"},
		{"dir/movie.name.mkv", "_4x", "mp4", "movie.name_4x.mp4"},
		{"noext", "_2x", "", "noext_2x.mp4"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.src, tt.suffix, tt.container); got != tt.want {
			t.Errorf("OutputName(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

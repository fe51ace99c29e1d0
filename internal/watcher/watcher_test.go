package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemshloyda/vupscale/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.InputDir = filepath.Join(root, "input_videos")
	cfg.OutputDir = filepath.Join(root, "output_videos")
	cfg.ExtractDir = filepath.Join(root, "tmp_frames")
	cfg.UpscaleDir = filepath.Join(root, "out_frames")
	cfg.LogDir = filepath.Join(root, "logs")
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))
	return cfg
}

func TestWatcher_EmitsNewVideo(t *testing.T) {
	cfg := testConfig(t)

	w, err := New(cfg, nil)
	require.NoError(t, err)
	w.SetDebounceTime(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tasks, err := w.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, "clip.mp4"), []byte("video"), 0o644))

	select {
	case task := <-tasks:
		assert.Equal(t, "clip.mp4", task.Name())
		assert.Equal(t, filepath.Join(cfg.OutputDir, "clip_4x.mp4"), task.OutputPath)
	case <-ctx.Done():
		t.Fatal("video was not emitted")
	}

	cancel()
	// Канал закрывается после отмены
	for range tasks {
	}
}

func TestWatcher_DebounceAndFilter(t *testing.T) {
	cfg := testConfig(t)
	w, err := New(cfg, nil)
	require.NoError(t, err)
	defer w.Close()
	w.SetDebounceTime(time.Second)

	video := filepath.Join(cfg.InputDir, "a.mkv")
	require.NoError(t, os.WriteFile(video, []byte("v"), 0o644))

	w.handleEvent(fsnotify.Event{Name: video, Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(cfg.InputDir, "a.txt"), Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: video, Op: fsnotify.Remove})

	now := time.Now()
	assert.Empty(t, w.ready(now), "write is too recent")

	ready := w.ready(now.Add(2 * time.Second))
	require.Len(t, ready, 1)
	assert.Equal(t, video, ready[0].Path)
	assert.Empty(t, w.pending)
}

func TestWatcher_IgnoredDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDir = filepath.Join(cfg.InputDir, "out")
	cfg.ExtractDir = filepath.Join(cfg.InputDir, "frames")
	w, err := New(cfg, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.ignoredDir(cfg.OutputDir))
	assert.True(t, w.ignoredDir(cfg.ExtractDir))
	assert.True(t, w.ignoredDir(filepath.Join(cfg.InputDir, ".cache")))
	assert.False(t, w.ignoredDir(filepath.Join(cfg.InputDir, "season1")))
}

package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	root := t.TempDir()
	return New(filepath.Join(root, "tmp_frames"), filepath.Join(root, "out_frames"))
}

func TestReset_CreatesMissingDirs(t *testing.T) {
	ws := newTestWorkspace(t)

	if err := ws.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	for _, dir := range ws.Dirs() {
		empty, err := IsEmpty(dir)
		if err != nil {
			t.Fatalf("IsEmpty(%s) error = %v", dir, err)
		}
		if !empty {
			t.Errorf("%s should be empty", dir)
		}
	}
}

func TestReset_RemovesStaleFrames(t *testing.T) {
	ws := newTestWorkspace(t)
	if err := ws.Reset(); err != nil {
		t.Fatal(err)
	}

	// Оставляем кадры и вложенную директорию от предыдущего видео
	for _, dir := range ws.Dirs() {
		if err := os.WriteFile(filepath.Join(dir, "frame00000001.jpg"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.MkdirAll(filepath.Join(dir, "nested"), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := ws.Ready(); err == nil {
		t.Fatal("Ready() should fail with stale frames")
	}

	if err := ws.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if err := ws.Ready(); err != nil {
		t.Errorf("Ready() after Reset() error = %v", err)
	}

	size, err := ws.Size()
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if size != 0 {
		t.Errorf("Size() = %d, want 0", size)
	}
}

func TestClear_RemovesDirs(t *testing.T) {
	ws := newTestWorkspace(t)
	if err := ws.Reset(); err != nil {
		t.Fatal(err)
	}

	if err := ws.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	for _, dir := range ws.Dirs() {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("%s should not exist after Clear()", dir)
		}
	}

	// Повторная очистка отсутствующих директорий не ошибка
	if err := ws.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
	if _, err := ws.Size(); err != nil {
		t.Errorf("Size() of missing dirs error = %v", err)
	}
}

func TestIsEmpty_Missing(t *testing.T) {
	if _, err := IsEmpty(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("IsEmpty() on missing dir should fail")
	}
}

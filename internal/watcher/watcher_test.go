package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) onChange(changed []string) {
	r.mu.Lock()
	r.calls = append(r.calls, changed)
	r.mu.Unlock()
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func TestNewWatcher_FilesAndDirs(t *testing.T) {
	w := NewWatcher([]string{"/data/b.tsv", "", "/data/a.tsv", "/other/c.tsv"}, nil)
	files := w.Files()
	if len(files) != 3 || files[0] != "/data/a.tsv" {
		t.Errorf("Files() = %v", files)
	}
	if len(w.dirs) != 2 || w.dirs[0] != "/data" || w.dirs[1] != "/other" {
		t.Errorf("dirs = %v", w.dirs)
	}
}

func TestWatcher_DebouncesBurstIntoOneCall(t *testing.T) {
	dir := t.TempDir()
	meta := filepath.Join(dir, "embedding_meta.tsv")
	vecs := filepath.Join(dir, "embedding_vectors.tsv")
	for _, p := range []string{meta, vecs} {
		if err := writeFile(p, "x"); err != nil {
			t.Fatal(err)
		}
	}

	rec := &recorder{}
	w := NewWatcher([]string{meta, vecs}, rec.onChange, WithDebounce(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(meta, "id\ttitle\n"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(vecs, "1\t0\n"); err != nil {
		t.Fatal(err)
	}
	// unrelated files in the same directory are ignored
	if err := writeFile(filepath.Join(dir, "notes.txt"), "skip"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(600 * time.Millisecond)
	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("expected one debounced callback, got %d: %v", len(calls), calls)
	}
	if len(calls[0]) != 2 || calls[0][0] != meta || calls[0][1] != vecs {
		t.Errorf("changed = %v, want [%s %s]", calls[0], meta, vecs)
	}
}

func TestWatcher_ReplaceByRename(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "embedding_vectors.tsv")
	if err := writeFile(target, "old"); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := NewWatcher([]string{target}, rec.onChange, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	tmp := filepath.Join(dir, "embedding_vectors.tsv.tmp")
	if err := writeFile(tmp, "new"); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, target); err != nil {
		t.Fatal(err)
	}

	time.Sleep(500 * time.Millisecond)
	if calls := rec.snapshot(); len(calls) == 0 {
		t.Error("expected a callback after the file was replaced")
	}
}

func TestWatcher_StopDropsPending(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "embedding_meta.tsv")
	if err := writeFile(target, "x"); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := NewWatcher([]string{target}, rec.onChange, WithDebounce(300*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(target, "y"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop()

	time.Sleep(500 * time.Millisecond)
	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("expected no callback after Stop, got %v", calls)
	}
}

func TestWatcher_StartFailsForMissingDirectory(t *testing.T) {
	w := NewWatcher([]string{filepath.Join(t.TempDir(), "missing", "a.tsv")}, nil)
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected error watching a missing directory")
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

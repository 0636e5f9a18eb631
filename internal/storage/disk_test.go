package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataFiles(t *testing.T) {
	dir := t.TempDir()
	meta := filepath.Join(dir, "embedding_meta.tsv")
	if err := os.WriteFile(meta, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	vecs := filepath.Join(dir, "embedding_vectors.tsv")
	if err := os.WriteFile(vecs, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	files, total, err := DataFiles(meta, "", filepath.Join(dir, "missing.tsv"), vecs)
	if err != nil {
		t.Fatal(err)
	}
	if total != 8 {
		t.Errorf("total = %d, want 8", total)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3 (empty path skipped)", len(files))
	}
	if !files[0].Exists || files[0].Bytes != 5 {
		t.Errorf("meta = %+v", files[0])
	}
	if files[1].Exists {
		t.Errorf("missing file reported as existing: %+v", files[1])
	}
	if files[2].ModTime.IsZero() {
		t.Error("expected mod time on existing file")
	}
}

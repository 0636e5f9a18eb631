package embedding

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/similar/internal/models"
)

func TestReadVectorsTSV(t *testing.T) {
	in := "0.10000\t0.20000\n0.30000\t0.40000\n\n"
	m, err := ReadVectorsTSV(strings.NewReader(in), models.VariantHybrid)
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows() != 2 || m.Dimensions() != 2 {
		t.Fatalf("shape = (%d,%d)", m.Rows(), m.Dimensions())
	}
	if m.Variant != models.VariantHybrid {
		t.Errorf("variant = %s", m.Variant)
	}
	if m.Vectors[1][1] != float32(0.4) {
		t.Errorf("value = %v", m.Vectors[1][1])
	}
}

func TestReadVectorsTSV_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		dim  bool
	}{
		{"ragged", "1\t2\n3\n", true},
		{"empty", "", true},
		{"not a number", "1\tabc\n", false},
		{"nan", "1\tNaN\n", false},
		{"inf", "+Inf\t1\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadVectorsTSV(strings.NewReader(tt.in), models.VariantContent)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.dim && !errors.Is(err, models.ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
		})
	}
}

func TestReadMetadataTSV(t *testing.T) {
	in := "id\ttitle\trow\n7\tToy Story (1995)\t1\n3\tHeat (1995)\t0\n"
	items, err := ReadMetadataTSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].ID != 7 || items[0].Row != 1 || items[0].Title != "Toy Story (1995)" {
		t.Errorf("item 0 = %+v", items[0])
	}
	if items[1].ID != 3 || items[1].Row != 0 {
		t.Errorf("item 1 = %+v", items[1])
	}
}

func TestReadMetadataTSV_Fallbacks(t *testing.T) {
	items, err := ReadMetadataTSV(strings.NewReader("title\nA\nB\n"))
	if err != nil {
		t.Fatal(err)
	}
	if items[1].ID != 1 || items[1].Row != 1 || items[1].Title != "B" {
		t.Errorf("item 1 = %+v", items[1])
	}
	if _, err := ReadMetadataTSV(strings.NewReader("id\tname\n1\tA\n")); err == nil {
		t.Error("expected error for missing title column")
	}
}

func TestLoadVectorsTSV_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedding_vectors.tsv")
	if err := os.WriteFile(path, []byte("3\t4\n"), 0600); err != nil {
		t.Fatal(err)
	}
	m, err := LoadVectorsTSV(path, models.VariantContent)
	if err != nil {
		t.Fatal(err)
	}
	m.Normalize()
	if math.Abs(float64(m.Vectors[0][0])-0.6) > 1e-6 {
		t.Errorf("normalized value = %v, want 0.6", m.Vectors[0][0])
	}
	if _, err := LoadVectorsTSV(filepath.Join(t.TempDir(), "missing.tsv"), models.VariantContent); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMatrix_Select(t *testing.T) {
	m := &Matrix{Vectors: [][]float32{{1}, {2}, {3}}}
	got := m.Select([]int{2, 0})
	if got[0][0] != 3 || got[1][0] != 1 {
		t.Errorf("Select = %v", got)
	}
}

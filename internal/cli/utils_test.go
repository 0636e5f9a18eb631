package cli

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/similar/internal/evaluation"
	"github.com/hyperjump/similar/internal/keyword"
	"github.com/hyperjump/similar/internal/models"
	"github.com/hyperjump/similar/internal/recommend"
)

func testResponse() *recommend.Response {
	return &recommend.Response{
		Item:    models.Item{ID: 1, Title: "Toy Story (1995)"},
		Variant: models.VariantHybrid,
		K:       2,
		Items: []recommend.Recommendation{
			{ID: 3114, Title: "Toy Story 2 (1999)", Similarity: 0.97},
			{ID: 2355, Title: "Bug's Life, A (1998)", Similarity: 0.91},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteRecommendations_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecommendations(&buf, testResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteRecommendations(json): %v", err)
	}
	var decoded recommend.Response
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Item.ID != 1 || len(decoded.Items) != 2 || decoded.Items[0].ID != 3114 {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestWriteRecommendations_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecommendations(&buf, testResponse(), OutputText); err != nil {
		t.Fatalf("WriteRecommendations(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"2 items similar to", "Toy Story (1995)", "Hybrid", "Toy Story 2 (1999)", "id=3114", "0.9700"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected %q in output:\n%s", sub, out)
		}
	}
}

func TestWriteSimilarityRows(t *testing.T) {
	rows := []models.SimilarityRow{{QueryID: 1, CandidateID: 2, Similarity: 0.5}}

	var buf bytes.Buffer
	if err := WriteSimilarityRows(&buf, rows, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "id_left\tid_right\tsimilarity\n1\t2\t0.500000\n") {
		t.Errorf("text rows: %q", buf.String())
	}

	buf.Reset()
	titles := func(id int64) string { return "Heat (1995)" }
	if err := WriteSimilarityRows(&buf, rows, titles, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Heat (1995)") {
		t.Errorf("expected title column: %q", buf.String())
	}

	buf.Reset()
	if err := WriteSimilarityRows(&buf, nil, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty rows should encode as []: %q", buf.String())
	}
}

func TestWriteTitleHits(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTitleHits(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No matching titles") {
		t.Errorf("got %q", buf.String())
	}
	buf.Reset()
	hits := []keyword.TitleHit{{ID: 1, Title: "Toy Story (1995)", Score: 2.5}}
	if err := WriteTitleHits(&buf, hits, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Toy Story (1995)") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteEvaluation_text(t *testing.T) {
	rep := &evaluation.Report{
		K:       5,
		Metrics: []string{evaluation.MetricPrecisionRecall, evaluation.MetricSpearman},
		Columns: evaluation.DefaultColumns(),
		PrecisionRecall: []evaluation.GroupPrecisionRecall{
			{Group: "1", Precision: 0.4, Recall: 0.5, Relevant: 4, Size: 12},
		},
		Correlations: []evaluation.GroupCorrelation{
			{Group: "1", Correlation: evaluation.Correlation(math.NaN()), Size: 5},
		},
		Summary: evaluation.Summary{Groups: 1, MeanPrecision: 0.4, MeanRecall: 0.5, MeanCorrelation: evaluation.Correlation(math.NaN())},
	}
	var buf bytes.Buffer
	if err := WriteEvaluation(&buf, rep, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"k=5 over 1 groups", "precision", "0.4000", "n/a", "mean precision@5", "0 of 1 groups defined"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected %q in output:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := WriteEvaluation(&buf, rep, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"correlation": null`) {
		t.Errorf("NaN correlation should encode as null:\n%s", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	st := recommend.Status{
		Items:     3,
		IndexType: "flat",
		MinK:      5,
		MaxK:      30,
		DefaultK:  10,
		LoadedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Variants:  []recommend.VariantStatus{{Variant: models.VariantContent, Label: "Content Based", Dimensions: 64, IndexType: "flat"}},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Items:      3", "5..30 (default 10)", "Content Based", "dim=64", "2024-01-02 03:04:05"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected %q in output:\n%s", sub, out)
		}
	}
}

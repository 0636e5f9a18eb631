package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/similar/internal/models"
)

func TestSQLiteStorage_Items(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStorage(filepath.Join(dir, "nested", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	items := []models.Item{
		{ID: 6, Title: "Heat (1995)", Row: 1},
		{ID: 1, Title: "Toy Story (1995)", Row: 0},
	}
	if err := store.ReplaceItems(ctx, items); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 6 {
		t.Errorf("ListItems = %+v, want ordered by row", got)
	}

	it, err := store.GetItem(ctx, 6)
	if err != nil {
		t.Fatal(err)
	}
	if it.Title != "Heat (1995)" || it.Row != 1 {
		t.Errorf("GetItem = %+v", it)
	}
	if _, err := store.GetItem(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetItem missing: err = %v, want ErrNotFound", err)
	}

	// replace drops the previous catalog
	if err := store.ReplaceItems(ctx, []models.Item{{ID: 2, Title: "Jumanji (1995)", Row: 0}}); err != nil {
		t.Fatal(err)
	}
	n, err := store.CountItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountItems = %d, want 1", n)
	}
}

func TestSQLiteStorage_ReplaceItemsRollsBack(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.ReplaceItems(ctx, []models.Item{{ID: 1, Title: "A", Row: 0}}); err != nil {
		t.Fatal(err)
	}
	dup := []models.Item{{ID: 2, Title: "B", Row: 0}, {ID: 3, Title: "C", Row: 0}}
	if err := store.ReplaceItems(ctx, dup); err == nil {
		t.Fatal("expected unique row violation")
	}
	items, err := store.ListItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != 1 {
		t.Errorf("catalog after failed replace = %+v, want original", items)
	}
}

func TestSQLiteStorage_Runs(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	run := &models.EvaluationRun{
		Source:  "ratings.csv",
		K:       10,
		Metrics: []string{"precision_recall", "spearman"},
		Groups:  3,
		Report:  json.RawMessage(`{"summary":{"groups":3}}`),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if run.ID == "" || run.CreatedAt.IsZero() {
		t.Fatalf("CreateRun should assign ID and CreatedAt, got %+v", run)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.K != 10 || got.Groups != 3 || got.Source != "ratings.csv" || len(got.Metrics) != 2 {
		t.Errorf("GetRun = %+v", got)
	}
	if string(got.Report) != `{"summary":{"groups":3}}` {
		t.Errorf("report = %s", got.Report)
	}

	older := &models.EvaluationRun{K: 5, Metrics: []string{"spearman"}, CreatedAt: time.Now().Add(-time.Hour).UTC()}
	if err := store.CreateRun(ctx, older); err != nil {
		t.Fatal(err)
	}
	runs, err := store.ListRuns(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != run.ID {
		t.Errorf("ListRuns should list newest first, got %d runs", len(runs))
	}
	if string(runs[1].Report) != "null" {
		t.Errorf("empty report should be stored as null, got %s", runs[1].Report)
	}

	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun missing: err = %v, want ErrNotFound", err)
	}
}

package catalog

import (
	"errors"
	"testing"

	"github.com/hyperjump/similar/internal/models"
)

func sample() []models.Item {
	return []models.Item{
		{ID: 30, Title: "Z", Row: 2},
		{ID: 10, Title: "X", Row: 0},
		{ID: 20, Title: "Y", Row: 1},
	}
}

func TestNew(t *testing.T) {
	c, err := New(sample())
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Errorf("Len=%d", c.Len())
	}
	row, err := c.Row(20)
	if err != nil || row != 1 {
		t.Errorf("Row(20) = %d, %v", row, err)
	}
	if it := c.ItemAt(2); it.ID != 30 || it.Title != "Z" {
		t.Errorf("ItemAt(2) = %+v", it)
	}
	ids := c.IDs()
	if len(ids) != 3 || ids[0] != 10 || ids[2] != 30 {
		t.Errorf("IDs = %v", ids)
	}
	items := c.Items()
	if items[0].ID != 10 || items[1].ID != 20 {
		t.Errorf("Items not in row order: %+v", items)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		items []models.Item
		dim   bool
	}{
		{"empty", nil, true},
		{"row out of range", []models.Item{{ID: 1, Row: 1}}, true},
		{"row twice", []models.Item{{ID: 1, Row: 0}, {ID: 2, Row: 0}}, true},
		{"duplicate id", []models.Item{{ID: 1, Row: 0}, {ID: 1, Row: 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.items)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.dim && !errors.Is(err, models.ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
		})
	}
}

func TestCatalog_UnknownID(t *testing.T) {
	c, _ := New(sample())
	if _, err := c.Row(99); !errors.Is(err, models.ErrUnknownID) {
		t.Errorf("Row(99): expected ErrUnknownID, got %v", err)
	}
	if _, err := c.Item(99); !errors.Is(err, models.ErrUnknownID) {
		t.Errorf("Item(99): expected ErrUnknownID, got %v", err)
	}
}

func TestAlign(t *testing.T) {
	c, _ := New(sample())
	if err := Align(c, 3); err != nil {
		t.Errorf("Align(3): %v", err)
	}
	if err := Align(c, 4); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("Align(4): expected ErrDimensionMismatch, got %v", err)
	}
}

// Package catalog maps item ids to embedding-matrix rows and display titles.
package catalog

import (
	"fmt"
	"sort"

	"github.com/hyperjump/similar/internal/models"
)

// Catalog is an immutable, bijective id <-> row mapping. Row i of every
// embedding matrix loaded against it belongs to ItemAt(i).
type Catalog struct {
	byRow []models.Item
	rowOf map[int64]int
}

// New validates items and builds a catalog. Ids must be unique and rows must
// cover 0..len(items)-1 exactly once; items may arrive in any order.
func New(items []models.Item) (*Catalog, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty catalog", models.ErrDimensionMismatch)
	}
	c := &Catalog{
		byRow: make([]models.Item, len(items)),
		rowOf: make(map[int64]int, len(items)),
	}
	seenRow := make([]bool, len(items))
	for _, it := range items {
		if it.Row < 0 || it.Row >= len(items) {
			return nil, fmt.Errorf("%w: item %d has row %d outside 0..%d", models.ErrDimensionMismatch, it.ID, it.Row, len(items)-1)
		}
		if seenRow[it.Row] {
			return nil, fmt.Errorf("%w: row %d assigned twice", models.ErrDimensionMismatch, it.Row)
		}
		if _, dup := c.rowOf[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %d", it.ID)
		}
		seenRow[it.Row] = true
		c.rowOf[it.ID] = it.Row
		c.byRow[it.Row] = it
	}
	return c, nil
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.byRow)
}

// Row returns the matrix row of id.
func (c *Catalog) Row(id int64) (int, error) {
	row, ok := c.rowOf[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", models.ErrUnknownID, id)
	}
	return row, nil
}

// Item returns the catalog entry for id.
func (c *Catalog) Item(id int64) (models.Item, error) {
	row, err := c.Row(id)
	if err != nil {
		return models.Item{}, err
	}
	return c.byRow[row], nil
}

// ItemAt returns the item stored at row. It panics when row is out of range,
// like a slice index, because rows only come from indexes built on this catalog.
func (c *Catalog) ItemAt(row int) models.Item {
	return c.byRow[row]
}

// Items returns all items in row order.
func (c *Catalog) Items() []models.Item {
	return append([]models.Item(nil), c.byRow...)
}

// IDs returns all ids in ascending order.
func (c *Catalog) IDs() []int64 {
	ids := make([]int64, 0, len(c.byRow))
	for _, it := range c.byRow {
		ids = append(ids, it.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Align fails with ErrDimensionMismatch unless a matrix with rows rows lines up with c.
func Align(c *Catalog, rows int) error {
	if rows != c.Len() {
		return fmt.Errorf("%w: matrix has %d rows, catalog has %d items", models.ErrDimensionMismatch, rows, c.Len())
	}
	return nil
}

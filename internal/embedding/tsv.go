package embedding

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hyperjump/similar/internal/models"
)

// LoadVectorsTSV reads an embedding matrix exported as tab-separated floats,
// one row per line and no header (the projector export format).
func LoadVectorsTSV(path string, variant models.Variant) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vectors: %w", err)
	}
	defer f.Close()
	m, err := ReadVectorsTSV(f, variant)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadVectorsTSV parses tab-separated float rows from r and validates the result.
func ReadVectorsTSV(r io.Reader, variant models.Variant) (*Matrix, error) {
	cr := newTSVReader(r)
	m := &Matrix{Variant: variant}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		vec := make([]float32, len(rec))
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, i+1, err)
			}
			vec[i] = float32(v)
		}
		m.Vectors = append(m.Vectors, vec)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadMetadataTSV reads the item metadata table. The header must contain a
// "title" column. The id comes from an "id" (or "movieId") column, falling
// back to the row position; the row comes from a "row" column, falling back
// to the 0-based line position.
func LoadMetadataTSV(path string) ([]models.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()
	items, err := ReadMetadataTSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// ReadMetadataTSV parses a metadata table from r.
func ReadMetadataTSV(r io.Reader) ([]models.Item, error) {
	cr := newTSVReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	titleCol, ok := col["title"]
	if !ok {
		return nil, fmt.Errorf("metadata header has no title column")
	}
	idCol, hasID := col["id"]
	if !hasID {
		idCol, hasID = col["movieid"]
	}
	rowCol, hasRow := col["row"]

	var items []models.Item
	for pos := 0; ; pos++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", pos+1, err)
		}
		it := models.Item{ID: int64(pos), Row: pos}
		if titleCol < len(rec) {
			it.Title = rec[titleCol]
		}
		if hasID {
			id, err := parseIntField(rec, idCol)
			if err != nil {
				return nil, fmt.Errorf("record %d id: %w", pos+1, err)
			}
			it.ID = id
		}
		if hasRow {
			row, err := parseIntField(rec, rowCol)
			if err != nil {
				return nil, fmt.Errorf("record %d row: %w", pos+1, err)
			}
			it.Row = int(row)
		}
		items = append(items, it)
	}
	return items, nil
}

func parseIntField(rec []string, i int) (int64, error) {
	if i >= len(rec) {
		return 0, fmt.Errorf("missing column %d", i+1)
	}
	return strconv.ParseInt(strings.TrimSpace(rec[i]), 10, 64)
}

func newTSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	return cr
}

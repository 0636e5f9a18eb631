package evaluation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/similar/internal/models"
)

// Default column names used by FromRows and the HTTP API.
const (
	DefaultGroupColumn     = "group"
	DefaultPredictedColumn = "predicted"
	DefaultTargetColumn    = "target"
)

var (
	// ErrUnknownColumn is returned when a requested column is not in the table header.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrInvalidValue is returned when a predicted or target cell is not a number.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnknownMetric is returned by Evaluate for an unsupported metric name.
	ErrUnknownMetric = errors.New("unknown metric")
)

// Table is a rectangular evaluation table with named columns. Cells are kept as
// text and parsed when rows are extracted.
type Table struct {
	columns []string
	index   map[string]int
	records [][]string
}

// NewTable creates an empty table with the given header.
func NewTable(columns ...string) *Table {
	t := &Table{columns: append([]string(nil), columns...), index: make(map[string]int, len(columns))}
	for i, c := range columns {
		t.index[strings.TrimSpace(c)] = i
	}
	return t
}

// FromRows builds a table with the default column names.
func FromRows(rows []models.EvaluationRow) *Table {
	t := NewTable(DefaultGroupColumn, DefaultPredictedColumn, DefaultTargetColumn)
	for _, r := range rows {
		t.records = append(t.records, []string{
			r.Group,
			strconv.FormatFloat(r.Predicted, 'g', -1, 64),
			strconv.FormatFloat(r.Target, 'g', -1, 64),
		})
	}
	return t
}

// Columns returns the header.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.records) }

// Append adds one data row. The value count must match the header.
func (t *Table) Append(values ...string) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("%w: row has %d values, header has %d", models.ErrDimensionMismatch, len(values), len(t.columns))
	}
	t.records = append(t.records, append([]string(nil), values...))
	return nil
}

// Rows extracts (group, predicted, target) triples in table order.
func (t *Table) Rows(groupCol, predCol, targetCol string) ([]models.EvaluationRow, error) {
	gi, err := t.column(groupCol)
	if err != nil {
		return nil, err
	}
	pi, err := t.column(predCol)
	if err != nil {
		return nil, err
	}
	ti, err := t.column(targetCol)
	if err != nil {
		return nil, err
	}
	rows := make([]models.EvaluationRow, 0, len(t.records))
	for n, rec := range t.records {
		pred, err := parseCell(rec, pi)
		if err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", n+1, predCol, err)
		}
		target, err := parseCell(rec, ti)
		if err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", n+1, targetCol, err)
		}
		rows = append(rows, models.EvaluationRow{Group: cell(rec, gi), Predicted: pred, Target: target})
	}
	return rows, nil
}

func (t *Table) column(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return i, nil
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseCell(rec []string, i int) (float64, error) {
	v, err := strconv.ParseFloat(cell(rec, i), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, cell(rec, i))
	}
	return v, nil
}

// ReadCSV reads a delimited table whose first record is the header.
func ReadCSV(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := NewTable(header...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		t.records = append(t.records, rec)
	}
	return t, nil
}

// ReadXLSX reads the named sheet (or the first sheet when empty) of an xlsx workbook.
func ReadXLSX(r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	t := NewTable(rows[0]...)
	for _, rec := range rows[1:] {
		if isBlank(rec) {
			continue
		}
		t.records = append(t.records, rec)
	}
	return t, nil
}

// LoadTable opens path and picks a reader from its extension: .xlsx, .tsv, or CSV otherwise.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(f, "")
	case ".tsv", ".tab":
		return ReadCSV(f, '\t')
	default:
		return ReadCSV(f, ',')
	}
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

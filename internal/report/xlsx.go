// Package report writes similarity and evaluation results as xlsx workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/similar/internal/evaluation"
	"github.com/hyperjump/similar/internal/models"
)

const (
	sheetSummary     = "Summary"
	sheetPrecision   = "PrecisionRecall"
	sheetCorrelation = "Spearman"
	sheetSimilarity  = "Similarity"
)

// TitleFunc resolves an item id to a title; it may return "" for unknown ids.
type TitleFunc func(id int64) string

// WriteEvaluation writes a summary sheet plus one sheet per computed metric.
func WriteEvaluation(w io.Writer, rep *evaluation.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	summary := [][]interface{}{
		{"k", rep.K},
		{"groups", rep.Summary.Groups},
		{"mean_precision", rep.Summary.MeanPrecision},
		{"mean_recall", rep.Summary.MeanRecall},
		{"mean_spearman", correlationCell(rep.Summary.MeanCorrelation)},
		{"defined_spearman_groups", rep.Summary.DefinedCorrelations},
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return err
	}

	if rep.PrecisionRecall != nil {
		rows := [][]interface{}{{rep.Columns.Group, "precision", "recall", "relevant", "size"}}
		for _, g := range rep.PrecisionRecall {
			rows = append(rows, []interface{}{g.Group, g.Precision, g.Recall, g.Relevant, g.Size})
		}
		if err := writeSheet(f, sheetPrecision, rows); err != nil {
			return err
		}
	}
	if rep.Correlations != nil {
		rows := [][]interface{}{{rep.Columns.Group, "spearman", "size"}}
		for _, g := range rep.Correlations {
			rows = append(rows, []interface{}{g.Group, correlationCell(g.Correlation), g.Size})
		}
		if err := writeSheet(f, sheetCorrelation, rows); err != nil {
			return err
		}
	}
	return write(f, w)
}

// WriteSimilarity writes (id_left, id_right, similarity) rows, with titles when
// titles is non-nil.
func WriteSimilarity(w io.Writer, rows []models.SimilarityRow, titles TitleFunc) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetSimilarity); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := []interface{}{"id_left", "id_right", "similarity"}
	if titles != nil {
		header = append(header, "title_left", "title_right")
	}
	out := [][]interface{}{header}
	for _, r := range rows {
		rec := []interface{}{r.QueryID, r.CandidateID, float64(r.Similarity)}
		if titles != nil {
			rec = append(rec, titles(r.QueryID), titles(r.CandidateID))
		}
		out = append(out, rec)
	}
	if err := writeRows(f, sheetSimilarity, out); err != nil {
		return err
	}
	return write(f, w)
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheet, err)
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write sheet %q row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func write(f *excelize.File, w io.Writer) error {
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// correlationCell leaves undefined correlations as empty cells.
func correlationCell(c evaluation.Correlation) interface{} {
	if !c.Defined() {
		return nil
	}
	return float64(c)
}

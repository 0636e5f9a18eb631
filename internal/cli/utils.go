// Package cli renders similarity and evaluation results for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/similar/internal/evaluation"
	"github.com/hyperjump/similar/internal/keyword"
	"github.com/hyperjump/similar/internal/models"
	"github.com/hyperjump/similar/internal/recommend"
	"github.com/hyperjump/similar/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// maxTitleLen bounds titles in text tables.
const maxTitleLen = 60

// ParseOutputFormat accepts "text", "json" or the empty string (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// TitleFunc resolves an item id to a display title. It may return "".
type TitleFunc func(id int64) string

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRecommendations writes one recommendation response.
func WriteRecommendations(w io.Writer, resp *recommend.Response, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%d items similar to %q (id %d) using %s\n\n",
		len(resp.Items), resp.Item.Title, resp.Item.ID, resp.Variant.Label())
	for i, it := range resp.Items {
		fmt.Fprintf(w, "%3d. %-*s  id=%-8d  similarity=%.4f\n", i+1, maxTitleLen+3, utils.Truncate(it.Title, maxTitleLen), it.ID, it.Similarity)
	}
	return nil
}

// WriteSimilarityRows writes (id_left, id_right, similarity) rows. titles may be nil.
func WriteSimilarityRows(w io.Writer, rows []models.SimilarityRow, titles TitleFunc, format OutputFormat) error {
	if format == OutputJSON {
		if rows == nil {
			rows = []models.SimilarityRow{}
		}
		return writeJSON(w, rows)
	}
	fmt.Fprintln(w, "id_left\tid_right\tsimilarity")
	for _, r := range rows {
		if titles != nil {
			fmt.Fprintf(w, "%d\t%d\t%.6f\t%s\n", r.QueryID, r.CandidateID, r.Similarity, utils.Truncate(titles(r.CandidateID), maxTitleLen))
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%.6f\n", r.QueryID, r.CandidateID, r.Similarity)
	}
	return nil
}

// WriteTitleHits writes title search results.
func WriteTitleHits(w io.Writer, hits []keyword.TitleHit, format OutputFormat) error {
	if format == OutputJSON {
		if hits == nil {
			hits = []keyword.TitleHit{}
		}
		return writeJSON(w, hits)
	}
	if len(hits) == 0 {
		fmt.Fprintln(w, "No matching titles.")
		return nil
	}
	for _, h := range hits {
		fmt.Fprintf(w, "%-8d  %-*s  score=%.3f\n", h.ID, maxTitleLen+3, utils.Truncate(h.Title, maxTitleLen), h.Score)
	}
	return nil
}

// WriteEvaluation writes an evaluation report: a per-group table followed by the summary.
func WriteEvaluation(w io.Writer, rep *evaluation.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, rep)
	}
	fmt.Fprintf(w, "\nEvaluation at k=%d over %d groups (%s)\n", rep.K, rep.Summary.Groups, strings.Join(rep.Metrics, ", "))
	if len(rep.PrecisionRecall) > 0 {
		fmt.Fprintf(w, "\n%-16s %10s %10s %9s %6s\n", rep.Columns.Group, "precision", "recall", "relevant", "size")
		for _, g := range rep.PrecisionRecall {
			fmt.Fprintf(w, "%-16s %10.4f %10.4f %9d %6d\n", utils.Truncate(g.Group, 16), g.Precision, g.Recall, g.Relevant, g.Size)
		}
	}
	if len(rep.Correlations) > 0 {
		fmt.Fprintf(w, "\n%-16s %12s %6s\n", rep.Columns.Group, "spearman", "size")
		for _, g := range rep.Correlations {
			fmt.Fprintf(w, "%-16s %12s %6d\n", utils.Truncate(g.Group, 16), formatCorrelation(g.Correlation), g.Size)
		}
	}
	fmt.Fprintln(w)
	if len(rep.PrecisionRecall) > 0 {
		fmt.Fprintf(w, "mean precision@%d: %.4f\n", rep.K, rep.Summary.MeanPrecision)
		fmt.Fprintf(w, "mean recall@%d:    %.4f\n", rep.K, rep.Summary.MeanRecall)
	}
	if len(rep.Correlations) > 0 {
		fmt.Fprintf(w, "mean spearman:     %s (%d of %d groups defined)\n",
			formatCorrelation(rep.Summary.MeanCorrelation), rep.Summary.DefinedCorrelations, len(rep.Correlations))
	}
	return nil
}

func formatCorrelation(c evaluation.Correlation) string {
	if !c.Defined() {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", float64(c))
}

// WriteStatus writes what a session has loaded.
func WriteStatus(w io.Writer, st recommend.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Items:      %d\n", st.Items)
	fmt.Fprintf(w, "Index:      %s\n", st.IndexType)
	fmt.Fprintf(w, "k range:    %d..%d (default %d)\n", st.MinK, st.MaxK, st.DefaultK)
	if !st.LoadedAt.IsZero() {
		fmt.Fprintf(w, "Loaded at:  %s\n", st.LoadedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w, "Variants:")
	for _, v := range st.Variants {
		fmt.Fprintf(w, "  %-24s dim=%-5d index=%s\n", v.Label, v.Dimensions, v.IndexType)
	}
	return nil
}

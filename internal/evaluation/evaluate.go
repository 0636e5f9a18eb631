package evaluation

import (
	"fmt"

	"github.com/hyperjump/similar/internal/metrics"
)

// Metric names accepted by Evaluate.
const (
	MetricPrecisionRecall = "precision_recall"
	MetricSpearman        = "spearman"
)

// Columns names the table columns an evaluation reads.
type Columns struct {
	Group     string `json:"group" yaml:"group_column"`
	Predicted string `json:"predicted" yaml:"predicted_column"`
	Target    string `json:"target" yaml:"target_column"`
}

// DefaultColumns matches the column names produced by FromRows.
func DefaultColumns() Columns {
	return Columns{Group: DefaultGroupColumn, Predicted: DefaultPredictedColumn, Target: DefaultTargetColumn}
}

// Report is the result of one evaluation.
type Report struct {
	K               int                    `json:"k"`
	Metrics         []string               `json:"metrics"`
	Columns         Columns                `json:"columns"`
	PrecisionRecall []GroupPrecisionRecall `json:"precision_recall,omitempty"`
	Correlations    []GroupCorrelation     `json:"spearman,omitempty"`
	Summary         Summary                `json:"summary"`
}

// Evaluate runs the named metrics (both when none are given) over t.
func Evaluate(t *Table, cols Columns, k int, names ...string) (*Report, error) {
	if len(names) == 0 {
		names = []string{MetricPrecisionRecall, MetricSpearman}
	}
	rep := &Report{K: k, Columns: cols}
	for _, name := range names {
		switch name {
		case MetricPrecisionRecall:
			if rep.PrecisionRecall != nil {
				continue
			}
			pr, err := PrecisionRecall(t, cols.Predicted, cols.Target, cols.Group, k)
			if err != nil {
				return nil, fmt.Errorf("precision/recall: %w", err)
			}
			rep.PrecisionRecall = pr
			metrics.RecordEvaluation(name, len(pr))
		case MetricSpearman:
			if rep.Correlations != nil {
				continue
			}
			corr, err := SpearmanCorr(t, cols.Predicted, cols.Target, cols.Group, k)
			if err != nil {
				return nil, fmt.Errorf("spearman: %w", err)
			}
			rep.Correlations = corr
			metrics.RecordEvaluation(name, len(corr))
		default:
			return nil, fmt.Errorf("%w: %s (supported: %s, %s)", ErrUnknownMetric, name, MetricPrecisionRecall, MetricSpearman)
		}
		rep.Metrics = append(rep.Metrics, name)
	}
	rep.Summary = Summarize(rep.PrecisionRecall, rep.Correlations)
	return rep, nil
}

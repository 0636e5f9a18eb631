package evaluation

import "math"

// Summary aggregates per-group results across a whole evaluation.
type Summary struct {
	Groups          int         `json:"groups"`
	MeanPrecision   float64     `json:"mean_precision"`
	MeanRecall      float64     `json:"mean_recall"`
	MeanCorrelation Correlation `json:"mean_correlation"`
	// DefinedCorrelations counts groups whose correlation is not NaN.
	DefinedCorrelations int `json:"defined_correlations"`
}

// Summarize averages precision and recall over all groups and the correlation over
// groups where it is defined. Either input may be nil.
func Summarize(pr []GroupPrecisionRecall, corr []GroupCorrelation) Summary {
	s := Summary{Groups: max(len(pr), len(corr)), MeanCorrelation: Correlation(math.NaN())}
	if len(pr) > 0 {
		for _, g := range pr {
			s.MeanPrecision += g.Precision
			s.MeanRecall += g.Recall
		}
		s.MeanPrecision /= float64(len(pr))
		s.MeanRecall /= float64(len(pr))
	}
	var sum float64
	for _, g := range corr {
		if g.Correlation.Defined() {
			sum += float64(g.Correlation)
			s.DefinedCorrelations++
		}
	}
	if s.DefinedCorrelations > 0 {
		s.MeanCorrelation = Correlation(sum / float64(s.DefinedCorrelations))
	}
	return s
}

package evaluation

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/hyperjump/similar/internal/models"
)

// GroupPrecisionRecall holds precision@k and recall@k for one group.
type GroupPrecisionRecall struct {
	Group     string  `json:"group"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Relevant  int     `json:"relevant"`
	Size      int     `json:"size"`
}

// GroupCorrelation holds the Spearman correlation of one group's top-k rows.
type GroupCorrelation struct {
	Group       string      `json:"group"`
	Correlation Correlation `json:"correlation"`
	Size        int         `json:"size"`
}

// Correlation is a coefficient that may be undefined (NaN). NaN encodes as JSON null.
type Correlation float64

// Defined reports whether the coefficient is a number.
func (c Correlation) Defined() bool { return !math.IsNaN(float64(c)) }

// MarshalJSON implements json.Marshaler.
func (c Correlation) MarshalJSON() ([]byte, error) {
	if !c.Defined() || math.IsInf(float64(c), 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(c), 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler; null decodes to NaN.
func (c *Correlation) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Correlation(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decode correlation: %w", err)
	}
	*c = Correlation(v)
	return nil
}

// PrecisionRecall computes precision@k and recall@k for every group of the table.
func PrecisionRecall(t *Table, predCol, targetCol, groupCol string, k int) ([]GroupPrecisionRecall, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k=%d", models.ErrInvalidK, k)
	}
	rows, err := t.Rows(groupCol, predCol, targetCol)
	if err != nil {
		return nil, err
	}
	groups := groupRows(rows)
	out := make([]GroupPrecisionRecall, 0, len(groups))
	for _, g := range groups {
		pred, target := split(g.rows)
		p, err := PrecisionAtK(pred, target, k)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", g.key, err)
		}
		r, err := RecallAtK(pred, target, k)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", g.key, err)
		}
		relevant := 0
		for _, v := range target {
			if isRelevant(v) {
				relevant++
			}
		}
		out = append(out, GroupPrecisionRecall{Group: g.key, Precision: p, Recall: r, Relevant: relevant, Size: len(g.rows)})
	}
	return out, nil
}

// SpearmanCorr keeps, per group, the k rows with the highest target (ties in table
// order) and reports the Spearman correlation between prediction and target.
func SpearmanCorr(t *Table, predCol, targetCol, groupCol string, k int) ([]GroupCorrelation, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k=%d", models.ErrInvalidK, k)
	}
	rows, err := t.Rows(groupCol, predCol, targetCol)
	if err != nil {
		return nil, err
	}
	groups := groupRows(rows)
	out := make([]GroupCorrelation, 0, len(groups))
	for _, g := range groups {
		pred, target := split(g.rows)
		order := rankDescending(target)
		if len(order) > k {
			order = order[:k]
		}
		topPred := make([]float64, len(order))
		topTarget := make([]float64, len(order))
		for i, j := range order {
			topPred[i] = pred[j]
			topTarget[i] = target[j]
		}
		out = append(out, GroupCorrelation{
			Group:       g.key,
			Correlation: Correlation(Spearman(topPred, topTarget)),
			Size:        len(order),
		})
	}
	return out, nil
}

type group struct {
	key  string
	rows []models.EvaluationRow
}

// groupRows partitions rows by group, keeping table order inside each group.
func groupRows(rows []models.EvaluationRow) []group {
	pos := make(map[string]int)
	var groups []group
	for _, r := range rows {
		i, ok := pos[r.Group]
		if !ok {
			i = len(groups)
			pos[r.Group] = i
			groups = append(groups, group{key: r.Group})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	sortGroups(groups)
	return groups
}

// sortGroups orders numerically when every key parses as a number, lexically otherwise.
func sortGroups(groups []group) {
	nums := make([]float64, len(groups))
	numeric := true
	for i, g := range groups {
		v, err := strconv.ParseFloat(g.key, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = v
	}
	if numeric {
		idx := make([]int, len(groups))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return nums[idx[a]] < nums[idx[b]] })
		sorted := make([]group, len(groups))
		for i, j := range idx {
			sorted[i] = groups[j]
		}
		copy(groups, sorted)
		return
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].key < groups[b].key })
}

func split(rows []models.EvaluationRow) (pred, target []float64) {
	pred = make([]float64, len(rows))
	target = make([]float64, len(rows))
	for i, r := range rows {
		pred[i] = r.Predicted
		target[i] = r.Target
	}
	return pred, target
}

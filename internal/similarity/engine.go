// Package similarity turns item ids into ranked, self-match-free neighbour lists.
package similarity

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/similar/internal/catalog"
	"github.com/hyperjump/similar/internal/embedding"
	"github.com/hyperjump/similar/internal/models"
	"github.com/hyperjump/similar/internal/vector"
)

// ExclusionMode selects how the self match is removed from index results.
type ExclusionMode string

const (
	// ExcludePositional drops the first hit of every query, whatever it is.
	// Under score ties the true self match may sit at position 2 and a genuine
	// neighbour is dropped instead; callers that need the self row gone use ExcludeByID.
	ExcludePositional ExclusionMode = "positional"
	// ExcludeByID drops the hit whose row equals the query row, or the last
	// hit when the query row is not in the window.
	ExcludeByID ExclusionMode = "id"
)

// ParseExclusionMode maps a config string to a mode; empty means positional.
func ParseExclusionMode(s string) (ExclusionMode, error) {
	switch ExclusionMode(s) {
	case ExcludePositional, "":
		return ExcludePositional, nil
	case ExcludeByID:
		return ExcludeByID, nil
	}
	return "", fmt.Errorf("unknown exclusion mode: %s (supported: positional, id)", s)
}

// Engine answers similarity queries for one embedding variant.
type Engine struct {
	variant   models.Variant
	index     vector.Index
	matrix    *embedding.Matrix
	catalog   *catalog.Catalog
	exclusion ExclusionMode
	logger    *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithExclusion sets the self-match exclusion mode.
func WithExclusion(mode ExclusionMode) EngineOption {
	return func(e *Engine) { e.exclusion = mode }
}

// New binds an engine to an index built from matrix, whose rows line up with cat.
func New(index vector.Index, matrix *embedding.Matrix, cat *catalog.Catalog, opts ...EngineOption) (*Engine, error) {
	if err := catalog.Align(cat, matrix.Rows()); err != nil {
		return nil, err
	}
	if index.Len() != matrix.Rows() || index.Dimensions() != matrix.Dimensions() {
		return nil, fmt.Errorf("%w: index is (%d,%d), %s matrix is (%d,%d)", models.ErrDimensionMismatch,
			index.Len(), index.Dimensions(), matrix.Variant, matrix.Rows(), matrix.Dimensions())
	}
	e := &Engine{
		variant:   matrix.Variant,
		index:     index,
		matrix:    matrix,
		catalog:   cat,
		exclusion: ExcludePositional,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Variant returns the variant the engine is bound to.
func (e *Engine) Variant() models.Variant {
	return e.variant
}

// Catalog returns the catalog the engine resolves ids against.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Index returns the underlying vector index.
func (e *Engine) Index() vector.Index {
	return e.index
}

// TopSimilar returns the k nearest neighbours of every query id, self match removed,
// sorted by query id ascending then similarity descending.
func (e *Engine) TopSimilar(queryIDs []int64, k int) ([]models.SimilarityRow, error) {
	ids := dedupe(queryIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	rows, err := e.resolve(ids)
	if err != nil {
		return nil, err
	}
	if k <= 0 || k+1 > e.index.Len() {
		return nil, fmt.Errorf("%w: k=%d needs at least %d rows, %s index holds %d", models.ErrInvalidK, k, k+1, e.variant, e.index.Len())
	}
	if len(ids) == 0 {
		return []models.SimilarityRow{}, nil
	}

	res, err := e.index.Search(e.matrix.Select(rows), k+1)
	if err != nil {
		return nil, fmt.Errorf("%s index search: %w", e.variant, err)
	}

	out := make([]models.SimilarityRow, 0, len(ids)*k)
	for qi, id := range ids {
		drop := e.dropPosition(rows[qi], res.Rows[qi])
		for i, row := range res.Rows[qi] {
			if i == drop {
				continue
			}
			out = append(out, models.SimilarityRow{
				QueryID:     id,
				CandidateID: e.catalog.ItemAt(row).ID,
				Similarity:  res.Scores[qi][i],
			})
		}
		if res.Rows[qi][0] != rows[qi] {
			e.logger.Debug("self match not ranked first",
				zap.String("variant", string(e.variant)),
				zap.Int64("id", id),
				zap.String("exclusion", string(e.exclusion)),
				zap.Int("dropped_position", drop))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].QueryID != out[j].QueryID {
			return out[i].QueryID < out[j].QueryID
		}
		return out[i].Similarity > out[j].Similarity
	})
	return out, nil
}

// dropPosition returns which hit of a query window is treated as the self match.
func (e *Engine) dropPosition(queryRow int, hits []int) int {
	if e.exclusion != ExcludeByID {
		return 0
	}
	for i, row := range hits {
		if row == queryRow {
			return i
		}
	}
	return len(hits) - 1
}

// CosineSimilarity computes exact dot products between every left and right item.
// Self pairs are kept. Output is grouped by left id in the given order (duplicates
// removed), each group sorted by descending similarity with ties in right-id order.
func (e *Engine) CosineSimilarity(leftIDs, rightIDs []int64) ([]models.SimilarityRow, error) {
	left, right := dedupe(leftIDs), dedupe(rightIDs)
	leftRows, err := e.resolve(left)
	if err != nil {
		return nil, err
	}
	rightRows, err := e.resolve(right)
	if err != nil {
		return nil, err
	}
	out := make([]models.SimilarityRow, 0, len(left)*len(right))
	for li, lid := range left {
		lv := e.matrix.Vectors[leftRows[li]]
		group := make([]models.SimilarityRow, len(right))
		for ri, rid := range right {
			group[ri] = models.SimilarityRow{
				QueryID:     lid,
				CandidateID: rid,
				Similarity:  vector.InnerProduct(lv, e.matrix.Vectors[rightRows[ri]]),
			}
		}
		sort.SliceStable(group, func(i, j int) bool { return group[i].Similarity > group[j].Similarity })
		out = append(out, group...)
	}
	return out, nil
}

func (e *Engine) resolve(ids []int64) ([]int, error) {
	rows := make([]int, len(ids))
	for i, id := range ids {
		row, err := e.catalog.Row(id)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

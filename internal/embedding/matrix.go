// Package embedding holds precomputed embedding matrices and their loaders.
package embedding

import (
	"fmt"
	"math"

	"github.com/hyperjump/similar/internal/models"
	"github.com/hyperjump/similar/pkg/utils"
)

// Matrix is one dense embedding variant: row i is the vector of catalog row i.
type Matrix struct {
	Variant models.Variant
	Vectors [][]float32
}

// Rows returns the number of vectors.
func (m *Matrix) Rows() int {
	return len(m.Vectors)
}

// Dimensions returns the vector length, or 0 for an empty matrix.
func (m *Matrix) Dimensions() int {
	if len(m.Vectors) == 0 {
		return 0
	}
	return len(m.Vectors[0])
}

// Validate checks that the matrix is non-empty, rectangular and finite.
func (m *Matrix) Validate() error {
	if len(m.Vectors) == 0 || len(m.Vectors[0]) == 0 {
		return fmt.Errorf("%w: %s matrix is empty", models.ErrDimensionMismatch, m.Variant)
	}
	dim := len(m.Vectors[0])
	for i, v := range m.Vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: %s row %d has %d values, expected %d", models.ErrDimensionMismatch, m.Variant, i, len(v), dim)
		}
		for j, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return fmt.Errorf("%s row %d column %d is not finite", m.Variant, i, j)
			}
		}
	}
	return nil
}

// Normalize scales every row to unit L2 norm in place so that inner product equals cosine similarity.
// Zero rows are left unchanged.
func (m *Matrix) Normalize() {
	for _, v := range m.Vectors {
		utils.NormalizeL2(v)
	}
}

// Select returns the rows at the given positions. The returned slices alias m.
func (m *Matrix) Select(rows []int) [][]float32 {
	out := make([][]float32, len(rows))
	for i, r := range rows {
		out[i] = m.Vectors[r]
	}
	return out
}

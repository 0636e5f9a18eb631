package vector

import (
	"fmt"

	"github.com/hyperjump/similar/internal/models"
)

// checkRows verifies that vectors is non-empty and rectangular and returns its dimensionality.
func checkRows(vectors [][]float32) (int, error) {
	if len(vectors) == 0 {
		return 0, fmt.Errorf("%w: empty matrix", models.ErrDimensionMismatch)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: row 0 is empty", models.ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: row %d has %d values, expected %d", models.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return dim, nil
}

func checkQuery(queries [][]float32, k, population, dim int) error {
	if k <= 0 || k > population {
		return fmt.Errorf("%w: k=%d, index holds %d rows", models.ErrInvalidK, k, population)
	}
	for i, q := range queries {
		if len(q) != dim {
			return fmt.Errorf("%w: query %d has %d values, index expects %d", models.ErrDimensionMismatch, i, len(q), dim)
		}
	}
	return nil
}

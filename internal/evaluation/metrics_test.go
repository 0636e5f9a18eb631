package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/similar/internal/models"
)

func TestPrecisionRecallAtK(t *testing.T) {
	pred := []float64{0.9, 0.8, 0.7, 0.6}
	rel := []float64{1, 0, 1, 0}

	p, err := PrecisionAtK(pred, rel, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)

	r, err := RecallAtK(pred, rel, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, r, 1e-12)

	r, err = RecallAtK(pred, rel, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 1e-12)
}

func TestPrecisionAtK_DenominatorIsK(t *testing.T) {
	p, err := PrecisionAtK([]float64{0.5, 0.1}, []float64{1, 1}, 5)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, p, 1e-12)
}

func TestEmptyRelevanceIsZero(t *testing.T) {
	pred := []float64{0.3, 0.2, 0.1}
	rel := []float64{0, 0, 0}
	for k := 1; k <= 4; k++ {
		p, err := PrecisionAtK(pred, rel, k)
		require.NoError(t, err)
		assert.Equal(t, 0.0, p)
		r, err := RecallAtK(pred, rel, k)
		require.NoError(t, err)
		assert.Equal(t, 0.0, r)
	}
}

func TestRecallMonotoneInK(t *testing.T) {
	pred := []float64{0.1, 0.9, 0.4, 0.4, 0.7, 0.2, 0.8}
	rel := []float64{1, 0, 1, 1, 0, 1, 1}
	prev := -1.0
	for k := 1; k <= len(pred)+2; k++ {
		r, err := RecallAtK(pred, rel, k)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r, prev, "k=%d", k)
		prev = r
	}
	assert.InDelta(t, 1.0, prev, 1e-12)
}

func TestTiesKeepRowOrder(t *testing.T) {
	// Equal predictions: the first row wins the single slot.
	p, err := PrecisionAtK([]float64{0.5, 0.5}, []float64{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	p, err = PrecisionAtK([]float64{0.5, 0.5}, []float64{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)
}

func TestPrecisionAtK_Errors(t *testing.T) {
	_, err := PrecisionAtK([]float64{1}, []float64{1}, 0)
	assert.ErrorIs(t, err, models.ErrInvalidK)

	_, err = RecallAtK([]float64{1, 2}, []float64{1}, 1)
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
}

// Package evaluation scores predicted rankings against known relevance.
package evaluation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hyperjump/similar/internal/models"
)

// PrecisionAtK ranks items by descending predicted score and returns the fraction
// of the top k that are relevant (relevance == 1). The denominator is k even when
// fewer than k items exist. Returns 0 when no item in the group is relevant.
func PrecisionAtK(predicted, relevance []float64, k int) (float64, error) {
	hits, _, err := hitsAtK(predicted, relevance, k)
	if errors.Is(err, models.ErrEmptyRelevance) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return float64(hits) / float64(k), nil
}

// RecallAtK ranks items like PrecisionAtK and returns relevant items in the top k
// divided by all relevant items. Returns 0 when no item in the group is relevant.
func RecallAtK(predicted, relevance []float64, k int) (float64, error) {
	hits, relevant, err := hitsAtK(predicted, relevance, k)
	if errors.Is(err, models.ErrEmptyRelevance) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return float64(hits) / float64(relevant), nil
}

// hitsAtK counts relevant items among the top k by prediction and in total.
// It reports ErrEmptyRelevance when the total is zero.
func hitsAtK(predicted, relevance []float64, k int) (hits, relevant int, err error) {
	if k <= 0 {
		return 0, 0, fmt.Errorf("%w: k=%d", models.ErrInvalidK, k)
	}
	if len(predicted) != len(relevance) {
		return 0, 0, fmt.Errorf("%w: %d predictions, %d relevance labels", models.ErrDimensionMismatch, len(predicted), len(relevance))
	}
	for _, r := range relevance {
		if isRelevant(r) {
			relevant++
		}
	}
	if relevant == 0 {
		return 0, 0, models.ErrEmptyRelevance
	}
	order := rankDescending(predicted)
	if k > len(order) {
		k = len(order)
	}
	for _, i := range order[:k] {
		if isRelevant(relevance[i]) {
			hits++
		}
	}
	return hits, relevant, nil
}

func isRelevant(v float64) bool {
	return v == 1
}

// rankDescending returns positions of values ordered by descending value;
// equal values keep their original order.
func rankDescending(values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })
	return order
}

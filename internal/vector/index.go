// Package vector provides row-keyed inner-product indexes over embedding matrices.
package vector

// Index is a nearest-neighbour structure built once from one embedding matrix.
// Rows are identified by their position 0..Len()-1. Implementations are immutable
// after construction, so concurrent Search calls need no locking.
type Index interface {
	// Search returns, for every query row, the k rows with the highest inner product.
	Search(queries [][]float32, k int) (*SearchResult, error)
	Len() int
	Dimensions() int
	Type() string
	Close() error
}

// SearchResult holds (Q, k) matrices of scores and row positions. Scores are
// non-increasing along each row; equal scores are ordered by ascending row.
type SearchResult struct {
	Scores [][]float32
	Rows   [][]int
}

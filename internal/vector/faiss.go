//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"
)

// FAISSIndex wraps a FAISS IndexFlatIP. FAISS labels are the insertion order,
// which is the matrix row order, so no id mapping is kept.
type FAISSIndex struct {
	index      *C.FaissIndexFlatIP
	dimensions int
	n          int
	closeOnce  sync.Once
}

// NewFAISSIndex builds a FAISS inner-product index over vectors.
func NewFAISSIndex(vectors [][]float32) (*FAISSIndex, error) {
	dim, err := checkRows(vectors)
	if err != nil {
		return nil, err
	}

	var index *C.FaissIndexFlatIP
	if ret := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dim)); ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}

	// FAISS wants one contiguous row-major buffer.
	flat := make([]float32, len(vectors)*dim)
	for i, v := range vectors {
		copy(flat[i*dim:(i+1)*dim], v)
	}
	ret := C.faiss_Index_add(index, C.idx_t(len(vectors)), (*C.float)(unsafe.Pointer(&flat[0])))
	if ret != 0 {
		C.faiss_Index_free(index)
		return nil, fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}

	return &FAISSIndex{index: index, dimensions: dim, n: len(vectors)}, nil
}

// faissLastError returns the last FAISS error message.
func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Search runs one batched FAISS search for all queries. FAISS picks arbitrarily
// among rows tied at the k-th score, so a query whose window ends inside a tie
// is searched again with a wider window until the tie is fully inside it.
// Results are then ordered by score and ascending row, like FlatIndex.
func (f *FAISSIndex) Search(queries [][]float32, k int) (*SearchResult, error) {
	if err := checkQuery(queries, k, f.n, f.dimensions); err != nil {
		return nil, err
	}
	nq := len(queries)
	res := &SearchResult{Scores: make([][]float32, nq), Rows: make([][]int, nq)}
	if nq == 0 {
		return res, nil
	}

	pending := make([]int, nq)
	for i := range pending {
		pending[i] = i
	}
	window := min(k+1, f.n)
	for len(pending) > 0 {
		batch := make([][]float32, len(pending))
		for i, qi := range pending {
			batch[i] = queries[qi]
		}
		distances, labels, err := f.search(batch, window)
		if err != nil {
			return nil, err
		}

		var tied []int
		for i, qi := range pending {
			scores := distances[i*window : (i+1)*window]
			// Rows outside the window score at most scores[window-1]; when that
			// equals the k-th score, an excluded row may belong in the top k.
			if window < f.n && scores[window-1] == scores[k-1] {
				tied = append(tied, qi)
				continue
			}
			top := byScoreThenRow{scores: make([]float32, window), rows: make([]int, window)}
			for j := 0; j < window; j++ {
				top.scores[j] = scores[j]
				top.rows[j] = int(labels[i*window+j])
			}
			sort.Sort(top)
			res.Scores[qi] = top.scores[:k]
			res.Rows[qi] = top.rows[:k]
		}
		pending = tied
		window = min(2*window, f.n)
	}
	return res, nil
}

// search runs faiss_Index_search and returns the flattened scores and labels.
func (f *FAISSIndex) search(queries [][]float32, k int) ([]float32, []int64, error) {
	nq := len(queries)
	flat := make([]float32, nq*f.dimensions)
	for i, q := range queries {
		copy(flat[i*f.dimensions:(i+1)*f.dimensions], q)
	}
	distances := make([]float32, nq*k)
	labels := make([]int64, nq*k)

	ret := C.faiss_Index_search(
		f.index,
		C.idx_t(nq),
		(*C.float)(unsafe.Pointer(&flat[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}
	return distances, labels, nil
}

type byScoreThenRow struct {
	scores []float32
	rows   []int
}

func (b byScoreThenRow) Len() int { return len(b.rows) }
func (b byScoreThenRow) Less(i, j int) bool {
	if b.scores[i] != b.scores[j] {
		return b.scores[i] > b.scores[j]
	}
	return b.rows[i] < b.rows[j]
}
func (b byScoreThenRow) Swap(i, j int) {
	b.scores[i], b.scores[j] = b.scores[j], b.scores[i]
	b.rows[i], b.rows[j] = b.rows[j], b.rows[i]
}

// Len returns the number of indexed rows.
func (f *FAISSIndex) Len() int {
	return f.n
}

// Dimensions returns the vector length.
func (f *FAISSIndex) Dimensions() int {
	return f.dimensions
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	f.closeOnce.Do(func() {
		if f.index != nil {
			C.faiss_Index_free(f.index)
			f.index = nil
		}
	})
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}

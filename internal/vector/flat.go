package vector

import "sort"

// FlatIndex is an exact brute-force inner product index (the Go counterpart of an
// IndexFlatIP). It copies the vectors into one contiguous slice at build time.
type FlatIndex struct {
	dimensions int
	n          int
	data       []float32
}

// NewFlatIndex builds an index over vectors. Every row must have the same, non-zero length.
func NewFlatIndex(vectors [][]float32) (*FlatIndex, error) {
	dim, err := checkRows(vectors)
	if err != nil {
		return nil, err
	}
	data := make([]float32, len(vectors)*dim)
	for i, v := range vectors {
		copy(data[i*dim:(i+1)*dim], v)
	}
	return &FlatIndex{dimensions: dim, n: len(vectors), data: data}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// Search scores every row against each query and keeps the top k.
func (f *FlatIndex) Search(queries [][]float32, k int) (*SearchResult, error) {
	if err := checkQuery(queries, k, f.n, f.dimensions); err != nil {
		return nil, err
	}
	res := &SearchResult{
		Scores: make([][]float32, len(queries)),
		Rows:   make([][]int, len(queries)),
	}
	type scored struct {
		row   int
		score float32
	}
	scores := make([]scored, f.n)
	for qi, q := range queries {
		for row := 0; row < f.n; row++ {
			scores[row] = scored{row: row, score: InnerProduct(q, f.row(row))}
		}
		sort.Slice(scores, func(i, j int) bool {
			if scores[i].score != scores[j].score {
				return scores[i].score > scores[j].score
			}
			return scores[i].row < scores[j].row
		})
		res.Scores[qi] = make([]float32, k)
		res.Rows[qi] = make([]int, k)
		for i := 0; i < k; i++ {
			res.Scores[qi][i] = scores[i].score
			res.Rows[qi][i] = scores[i].row
		}
	}
	return res, nil
}

func (f *FlatIndex) row(i int) []float32 {
	return f.data[i*f.dimensions : (i+1)*f.dimensions]
}

// Len returns the number of indexed rows.
func (f *FlatIndex) Len() int {
	return f.n
}

// Dimensions returns the vector length.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}

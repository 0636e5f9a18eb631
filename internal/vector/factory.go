package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeFlat uses exact in-memory brute-force search. Good for catalogs up to ~100k rows.
	IndexTypeFlat IndexType = "flat"
	// IndexTypeFAISS uses FAISS IndexFlatIP through cgo.
	// Requires FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewIndex builds an index of the specified type over vectors.
// Supported types: "flat" (default; "memory" is accepted as an alias), "faiss".
func NewIndex(indexType string, vectors [][]float32) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, "memory", "":
		return NewFlatIndex(vectors)
	case IndexTypeFAISS:
		return NewFAISSIndex(vectors)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, faiss)", indexType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex([][]float32{{1}})
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}

//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import "fmt"

// FAISSIndex is a stub that returns an error when FAISS is not available.
// Build with -tags=faiss to enable FAISS support.
type FAISSIndex struct{}

// NewFAISSIndex returns an error because FAISS is not available.
func NewFAISSIndex(vectors [][]float32) (*FAISSIndex, error) {
	return nil, fmt.Errorf("FAISS not available: build with -tags=faiss and install FAISS library")
}

// Search is not implemented without FAISS.
func (f *FAISSIndex) Search(queries [][]float32, k int) (*SearchResult, error) {
	return nil, fmt.Errorf("FAISS not available")
}

// Len returns 0 without FAISS.
func (f *FAISSIndex) Len() int {
	return 0
}

// Dimensions returns 0 without FAISS.
func (f *FAISSIndex) Dimensions() int {
	return 0
}

// Close is a no-op without FAISS.
func (f *FAISSIndex) Close() error {
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}

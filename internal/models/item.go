// Package models defines core data structures for items, similarity results, and evaluation rows.
package models

import (
	"fmt"
	"strings"
)

// Item is one catalog entry. Row is its 0-based position in every embedding matrix.
type Item struct {
	ID    int64  `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
	Row   int    `json:"row" db:"row"`
}

// Variant names one embedding matrix/index pair. Variants are never mixed in a single query.
type Variant string

const (
	VariantContent       Variant = "content"
	VariantCollaborative Variant = "collaborative"
	VariantHybrid        Variant = "hybrid"
)

// Variants lists the known variants in display order.
var Variants = []Variant{VariantContent, VariantCollaborative, VariantHybrid}

// ParseVariant accepts variant names and their display labels
// ("Content Based", "Collaborative Filtering", "Hybrid"), case-insensitively.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "content", "content based", "content-based", "cb":
		return VariantContent, nil
	case "collaborative", "collaborative filtering", "cf":
		return VariantCollaborative, nil
	case "hybrid":
		return VariantHybrid, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// Label returns the human-readable name of the variant.
func (v Variant) Label() string {
	switch v {
	case VariantContent:
		return "Content Based"
	case VariantCollaborative:
		return "Collaborative Filtering"
	case VariantHybrid:
		return "Hybrid"
	default:
		return string(v)
	}
}

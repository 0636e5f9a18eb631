package models

import "errors"

var (
	// ErrDimensionMismatch reports ragged or empty embedding rows, a query whose length
	// differs from the index, or a matrix/catalog/index row-count disagreement.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUnknownID reports an item id absent from the catalog.
	ErrUnknownID = errors.New("unknown item id")
	// ErrInvalidK reports a non-positive or out-of-range k.
	ErrInvalidK = errors.New("invalid k")
	// ErrUnknownVariant reports a variant that is not loaded or not recognised.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrEmptyRelevance marks a group without relevant items. Evaluation handles it
	// by returning 0 or NaN; it never reaches callers.
	ErrEmptyRelevance = errors.New("no relevant items in group")
)

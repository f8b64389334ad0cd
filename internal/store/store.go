// Package store holds the validation errors shared by chunk store backends.
package store

import "errors"

var (
	// ErrInvalidIndex rejects a chunk index below zero.
	ErrInvalidIndex = errors.New("chunk index must be non-negative")
	// ErrInvalidDimension rejects an embedding whose length differs from the
	// store's fixed dimensionality.
	ErrInvalidDimension = errors.New("embedding dimension mismatch")
	// ErrInvalidTopK rejects a nearest-neighbor query asking for fewer than
	// one result.
	ErrInvalidTopK = errors.New("top_k must be at least 1")
)

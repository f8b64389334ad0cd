// Package memory is an in-memory ChunkStore using brute-force cosine
// similarity. It mirrors the postgres backend's contract exactly, which
// makes it the reference implementation for tests and a zero-dependency
// backend for local experiments.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docrag/internal/domain"
	"docrag/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	dimension int
	nextID    int64
	byIndex   map[int]domain.Chunk
}

func New(dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("store dimension must be positive")
	}
	return &Store{
		dimension: dimension,
		nextID:    1,
		byIndex:   make(map[int]domain.Chunk),
	}, nil
}

// Dimension returns the store's fixed embedding dimensionality.
func (s *Store) Dimension() int { return s.dimension }

// InsertChunk stores the chunk unless its index is already present, in
// which case the existing row is kept and inserted=false is returned.
func (s *Store) InsertChunk(_ context.Context, c domain.Chunk) (int64, bool, error) {
	if c.Index < 0 {
		return 0, false, store.ErrInvalidIndex
	}
	if c.Embedding != nil && len(c.Embedding) != s.dimension {
		return 0, false, fmt.Errorf("%w: got %d, store holds %d", store.ErrInvalidDimension, len(c.Embedding), s.dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byIndex[c.Index]; exists {
		return 0, false, nil
	}
	c.ID = s.nextID
	s.nextID++
	s.byIndex[c.Index] = c
	return c.ID, true, nil
}

// QueryNearest ranks stored chunks by cosine similarity to the query
// embedding: strictly above threshold, descending similarity, ascending
// chunk index on ties, at most topK rows.
func (s *Store) QueryNearest(_ context.Context, embedding []float32, topK int, threshold float64) ([]domain.RetrievalResult, error) {
	if topK < 1 {
		return nil, store.ErrInvalidTopK
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, store holds %d", store.ErrInvalidDimension, len(embedding), s.dimension)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.RetrievalResult
	for _, c := range s.byIndex {
		if c.Embedding == nil {
			continue
		}
		sim := cosineSimilarity(c.Embedding, embedding)
		if sim > threshold {
			results = append(results, domain.RetrievalResult{
				ID:          c.ID,
				Index:       c.Index,
				Text:        c.Text,
				ContextText: c.ContextText,
				Similarity:  sim,
			})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Index < results[j].Index
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Len reports the number of stored chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byIndex)
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

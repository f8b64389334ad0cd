// Package retrieval turns a free-text query into ranked context chunks.
package retrieval

import (
	"context"
	"fmt"

	"docrag/internal/domain"
	"docrag/internal/logger"
)

const (
	DefaultTopK      = 3
	DefaultThreshold = 0.55
)

// Service embeds queries and asks the chunk store for the nearest chunks.
// It must share the Embedder instance used at ingestion time so query and
// corpus vectors live in the same embedding space.
type Service struct {
	embedder  domain.Embedder
	store     domain.ChunkStore
	topK      int
	threshold float64
	log       *logger.Logger
}

func NewService(embedder domain.Embedder, store domain.ChunkStore, topK int, threshold float64, log *logger.Logger) *Service {
	if topK < 1 {
		topK = DefaultTopK
	}
	return &Service{
		embedder:  embedder,
		store:     store,
		topK:      topK,
		threshold: threshold,
		log:       log.With("component", "retrieval"),
	}
}

// RetrieveContext returns the chunks most similar to the query, best first.
// An empty result is a normal outcome: the store may be empty, or nothing
// may clear the similarity threshold.
func (s *Service) RetrieveContext(ctx context.Context, query string) ([]domain.RetrievalResult, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.store.QueryNearest(ctx, embedding, s.topK, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("query nearest: %w", err)
	}
	s.log.Debug("context retrieved", "query_len", len(query), "results", len(results))
	return results, nil
}

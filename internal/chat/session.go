// Package chat composes retrieval and answer synthesis into the per-query
// pipeline behind the interactive surface.
package chat

import (
	"context"

	"docrag/internal/answer"
	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/retrieval"
)

// retrievalFailedAnswer keeps store or embedding outages from surfacing as
// stack traces in the conversation.
const retrievalFailedAnswer = "Sorry, I ran into a problem searching the document store. Please try again."

// Result is one answered query.
type Result struct {
	Answer  string
	Sources []domain.RetrievalResult
}

// Session answers queries end to end. Failures inside a single query are
// contained in that query's Result; Ask never returns an error.
type Session struct {
	retriever   *retrieval.Service
	synthesizer *answer.Synthesizer
	log         *logger.Logger
}

func NewSession(retriever *retrieval.Service, synthesizer *answer.Synthesizer, log *logger.Logger) *Session {
	return &Session{
		retriever:   retriever,
		synthesizer: synthesizer,
		log:         log.With("component", "chat"),
	}
}

// Ask retrieves context for the query and synthesizes an answer. Streaming
// fragments, when enabled, are delivered through onFragment.
func (s *Session) Ask(ctx context.Context, query string, onFragment func(string)) Result {
	results, err := s.retriever.RetrieveContext(ctx, query)
	if err != nil {
		s.log.Error("retrieval failed", "error", err)
		return Result{Answer: retrievalFailedAnswer}
	}
	s.log.Debug("context ready", "sources", len(results))
	text := s.synthesizer.Answer(ctx, query, results, onFragment)
	return Result{Answer: text, Sources: results}
}

// Package answer assembles retrieved context into a prompt and produces the
// final answer via the configured generation backend.
package answer

import (
	"context"
	"fmt"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/logger"
)

// NoContextAnswer is returned without calling the model when retrieval
// produced nothing: an ungrounded answer would be a hallucination.
const NoContextAnswer = "I couldn't find any relevant information in the database to answer your question."

// ErrorAnswer is returned when the generation backend fails. A single
// failed answer must never crash the conversation.
const ErrorAnswer = "Sorry, I encountered an error while generating a response."

const instructions = `Instructions:
- Answer the question based ONLY on the information provided in the context above
- If the context doesn't contain enough information to answer the question, say "I don't have enough information in the provided documents to answer this question."
- If the question is about greeting or similar, respond politely without using the context
- Keep your answer clear and concise
- Do not make up information that is not in the context`

// Synthesizer turns a query plus its retrieval results into answer text.
type Synthesizer struct {
	generator domain.Generator
	stream    bool
	log       *logger.Logger
}

func NewSynthesizer(generator domain.Generator, stream bool, log *logger.Logger) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		stream:    stream,
		log:       log.With("component", "answer"),
	}
}

// Answer produces the final answer string. With streaming enabled, each
// fragment is passed to onFragment as it arrives; either way the full
// concatenated text is returned, so callers can treat both modes alike
// once the call completes. Generation failures degrade to a fixed apology,
// never an error.
func (s *Synthesizer) Answer(ctx context.Context, query string, results []domain.RetrievalResult, onFragment func(string)) string {
	if len(results) == 0 {
		return NoContextAnswer
	}
	prompt := BuildPrompt(query, results)

	if s.stream {
		ch, err := s.generator.GenerateStream(ctx, prompt)
		if err != nil {
			s.log.Error("stream generation failed", "error", err)
			return ErrorAnswer
		}
		var b strings.Builder
		for frag := range ch {
			if frag.Err != nil {
				s.log.Error("stream failed mid-answer", "error", frag.Err)
				return ErrorAnswer
			}
			if onFragment != nil {
				onFragment(frag.Text)
			}
			b.WriteString(frag.Text)
		}
		if b.Len() == 0 {
			return ErrorAnswer
		}
		return b.String()
	}

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.log.Error("generation failed", "error", err)
		return ErrorAnswer
	}
	if onFragment != nil {
		onFragment(text)
	}
	return text
}

// BuildPrompt renders the bounded context prompt: one labeled block per
// retrieval result in ranking order, the literal user question, then the
// fixed instruction block.
func BuildPrompt(query string, results []domain.RetrievalResult) string {
	var ctxBlocks []string
	for i, r := range results {
		ctxBlocks = append(ctxBlocks, fmt.Sprintf("[Source %d - Similarity: %.2f]\n%s", i+1, r.Similarity, r.ContextText))
	}

	var b strings.Builder
	b.WriteString("You are a helpful assistant that answers questions based on the provided context.\n\n")
	b.WriteString("Context Information:\n")
	b.WriteString(strings.Join(ctxBlocks, "\n\n"))
	b.WriteString("\n\nUser Question: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString(instructions)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

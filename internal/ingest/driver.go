// Package ingest walks a document's chunk sequence and persists each chunk
// with its embedding.
package ingest

import (
	"context"

	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/logger"
)

// Stats summarizes one ingestion run.
type Stats struct {
	Inserted       int
	Skipped        int
	EmbedFailures  int
	InsertFailures int
}

// Driver ingests chunks in document order. Failures are contained per
// chunk: a failed embedding stores the chunk with a nil vector, a failed
// insert is logged and the run moves on. One bad chunk never blocks the
// rest of the document.
type Driver struct {
	embedder domain.Embedder
	store    domain.ChunkStore
	tokens   interface{ CountTokens(string) int }
	log      *logger.Logger
}

func NewDriver(embedder domain.Embedder, store domain.ChunkStore, tokens interface{ CountTokens(string) int }, log *logger.Logger) *Driver {
	return &Driver{
		embedder: embedder,
		store:    store,
		tokens:   tokens,
		log:      log.With("component", "ingest"),
	}
}

// Run processes the ordered chunk sequence. The chunk index is the piece's
// position in the sequence: 0-based and contiguous.
func (d *Driver) Run(ctx context.Context, pieces []chunker.Piece) (Stats, error) {
	var stats Stats
	for i, piece := range pieces {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		contextText := piece.Contextualize()

		embedding, err := d.embedder.Embed(ctx, contextText)
		if err != nil {
			d.log.Warn("embedding failed, storing chunk without vector", "chunk_index", i, "error", err)
			embedding = nil
			stats.EmbedFailures++
		}

		c := domain.Chunk{
			Index:         i,
			Text:          piece.Text,
			ContextText:   contextText,
			TextTokens:    d.tokens.CountTokens(piece.Text),
			ContextTokens: d.tokens.CountTokens(contextText),
			Embedding:     embedding,
		}
		id, inserted, err := d.store.InsertChunk(ctx, c)
		switch {
		case err != nil:
			d.log.Error("insert failed", "chunk_index", i, "error", err)
			stats.InsertFailures++
		case !inserted:
			d.log.Debug("insert skipped, index already present", "chunk_index", i)
			stats.Skipped++
		default:
			d.log.Debug("chunk inserted", "chunk_index", i, "chunk_id", id)
			stats.Inserted++
		}
	}
	d.log.Info("ingestion finished",
		"chunks", len(pieces),
		"inserted", stats.Inserted,
		"skipped", stats.Skipped,
		"embed_failures", stats.EmbedFailures,
		"insert_failures", stats.InsertFailures,
	)
	return stats, nil
}

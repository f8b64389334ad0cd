package domain

import "context"

// Chunk is a persisted unit of document content. ContextText carries the
// chunk text enriched with surrounding structure (section headings) and is
// what gets embedded and shown to the model. Embedding is nil when the
// embedding backend failed for this chunk.
type Chunk struct {
	ID            int64
	Index         int
	Text          string
	ContextText   string
	TextTokens    int
	ContextTokens int
	Embedding     []float32
}

// RetrievalResult is a transient projection produced per query: a stored
// chunk plus its similarity to the query embedding.
type RetrievalResult struct {
	ID          int64
	Index       int
	Text        string
	ContextText string
	Similarity  float64
}

// Embedder converts free text into a fixed-dimension vector. Queries and
// corpus chunks must go through the same Embedder instance so that all
// vectors live in one embedding space.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Fragment is one streamed piece of generated text. A non-nil Err reports
// that the stream ended abnormally; it is the last value on the channel.
type Fragment struct {
	Text string
	Err  error
}

// Generator produces answer text from a prompt, either whole or as a stream
// of fragments. The stream channel is closed when generation completes, so
// a channel that closes without an Err fragment means a complete answer.
type Generator interface {
	Model() string
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string) (<-chan Fragment, error)
}

// ChunkStore persists chunks and ranks them by vector similarity.
//
// InsertChunk is idempotent on Chunk.Index: when a row with the same index
// already exists the call returns inserted=false and changes nothing.
// QueryNearest returns at most topK rows whose similarity (1 - cosine
// distance) strictly exceeds threshold, ordered by descending similarity
// with ascending chunk index breaking ties.
type ChunkStore interface {
	InsertChunk(ctx context.Context, c Chunk) (id int64, inserted bool, err error)
	QueryNearest(ctx context.Context, embedding []float32, topK int, threshold float64) ([]RetrievalResult, error)
}

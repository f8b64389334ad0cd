package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/store/memory"
	"docrag/internal/token"
)

// fakeEmbedder returns a deterministic unit vector per call and can be told
// to fail for specific chunk indices.
type fakeEmbedder struct {
	dim     int
	calls   int
	failAt  map[int]bool
	vectors [][]float32
}

func (f *fakeEmbedder) Name() string   { return "fake" }
func (f *fakeEmbedder) Dimension() int { return f.dim }

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	call := f.calls
	f.calls++
	if f.failAt[call] {
		return nil, errors.New("backend unavailable")
	}
	v := make([]float32, f.dim)
	v[call%f.dim] = 1
	f.vectors = append(f.vectors, v)
	return v, nil
}

// failingStore wraps the memory store and fails inserts at chosen indices.
type failingStore struct {
	*memory.Store
	failAt map[int]bool
}

func (s *failingStore) InsertChunk(ctx context.Context, c domain.Chunk) (int64, bool, error) {
	if s.failAt[c.Index] {
		return 0, false, fmt.Errorf("connection reset")
	}
	return s.Store.InsertChunk(ctx, c)
}

func pieces(n int) []chunker.Piece {
	out := make([]chunker.Piece, n)
	for i := range out {
		out[i] = chunker.Piece{Text: fmt.Sprintf("chunk number %d.", i)}
	}
	return out
}

func newDriver(emb domain.Embedder, st domain.ChunkStore) *Driver {
	c := chunker.New(320, 0, token.NewCounter())
	return NewDriver(emb, st, c, logger.Nop())
}

func TestRunInsertsAllChunks(t *testing.T) {
	st, _ := memory.New(8)
	emb := &fakeEmbedder{dim: 8}
	d := newDriver(emb, st)

	stats, err := d.Run(context.Background(), pieces(4))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Inserted != 4 || stats.Skipped != 0 || stats.EmbedFailures != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if st.Len() != 4 {
		t.Fatalf("store holds %d chunks, want 4", st.Len())
	}
}

func TestRunContainsEmbedFailure(t *testing.T) {
	st, _ := memory.New(8)
	emb := &fakeEmbedder{dim: 8, failAt: map[int]bool{2: true}}
	d := newDriver(emb, st)

	stats, err := d.Run(context.Background(), pieces(5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Inserted != 5 {
		t.Fatalf("inserted %d chunks, want all 5 despite embed failure", stats.Inserted)
	}
	if stats.EmbedFailures != 1 {
		t.Fatalf("embed failures = %d, want 1", stats.EmbedFailures)
	}

	// Chunks 0,1,3,4 retrievable; chunk 2 persisted but vectorless, so it
	// never surfaces in similarity search.
	for _, call := range []int{0, 1, 3, 4} {
		v := make([]float32, 8)
		// call order matches index order except the failed call consumed a slot
		idx := call % 8
		v[idx] = 1
		res, err := st.QueryNearest(context.Background(), v, 5, 0.9)
		if err != nil {
			t.Fatalf("QueryNearest: %v", err)
		}
		if len(res) == 0 {
			t.Fatalf("no result for surviving chunk call %d", call)
		}
	}
	if st.Len() != 5 {
		t.Fatalf("store holds %d rows, want 5 (failed chunk kept with null vector)", st.Len())
	}
}

func TestRunContinuesPastInsertFailure(t *testing.T) {
	inner, _ := memory.New(8)
	st := &failingStore{Store: inner, failAt: map[int]bool{1: true}}
	emb := &fakeEmbedder{dim: 8}
	d := newDriver(emb, st)

	stats, err := d.Run(context.Background(), pieces(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Inserted != 2 || stats.InsertFailures != 1 {
		t.Fatalf("stats = %+v, want 2 inserted and 1 insert failure", stats)
	}
}

func TestRunSkipsExistingIndices(t *testing.T) {
	st, _ := memory.New(8)
	emb := &fakeEmbedder{dim: 8}
	d := newDriver(emb, st)

	if _, err := d.Run(context.Background(), pieces(3)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	stats, err := d.Run(context.Background(), pieces(3))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stats.Inserted != 0 || stats.Skipped != 3 {
		t.Fatalf("re-ingestion stats = %+v, want all skipped", stats)
	}
	if st.Len() != 3 {
		t.Fatalf("store holds %d rows after re-ingestion, want 3", st.Len())
	}
}

func TestRunHonorsContextCancel(t *testing.T) {
	st, _ := memory.New(8)
	emb := &fakeEmbedder{dim: 8}
	d := newDriver(emb, st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Run(ctx, pieces(3)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunCountsTokens(t *testing.T) {
	st, _ := memory.New(8)
	emb := &fakeEmbedder{dim: 8}
	d := newDriver(emb, st)

	p := []chunker.Piece{{Heading: "Section", Text: "Some body text here."}}
	if _, err := d.Run(context.Background(), p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	res, err := st.QueryNearest(context.Background(), emb.vectors[0], 1, 0)
	if err != nil || len(res) != 1 {
		t.Fatalf("QueryNearest: %v (%d results)", err, len(res))
	}
	if res[0].ContextText != "Section\nSome body text here." {
		t.Fatalf("contextualized text = %q", res[0].ContextText)
	}
	if res[0].Text != "Some body text here." {
		t.Fatalf("chunk text = %q", res[0].Text)
	}
}

// Package postgres persists document chunks in PostgreSQL with pgvector.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/store"
)

// Store is a ChunkStore backed by a document_chunks table. Each operation
// uses one pooled connection and, for writes, one explicit transaction:
// committed on success, rolled back on any failure, so partial writes never
// remain visible.
type Store struct {
	pool      *pgxpool.Pool
	dimension int
	log       *logger.Logger
}

// Config carries connection details. The password is resolved from the
// environment by the caller so secrets stay out of config files.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DSN renders the config as a pgx connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// New connects a store with the given fixed embedding dimensionality.
// pgvector types are registered on every pooled connection.
func New(ctx context.Context, cfg Config, dimension int, log *logger.Logger) (*Store, error) {
	if dimension <= 0 {
		return nil, errors.New("store dimension must be positive")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool, dimension: dimension, log: log.With("component", "chunkstore")}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// Dimension returns the store's fixed embedding dimensionality.
func (s *Store) Dimension() int { return s.dimension }

// EnsureSchema creates the vector extension and the document_chunks table
// if they do not exist. The unique constraint on chunk_index is what makes
// re-ingestion idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id                   BIGSERIAL PRIMARY KEY,
			chunk_index          INTEGER NOT NULL UNIQUE,
			chunk_text           TEXT NOT NULL,
			contextualized_text  TEXT NOT NULL,
			chunk_tokens         INTEGER NOT NULL,
			contextualized_tokens INTEGER NOT NULL,
			embedding            vector(%d)
		)`, s.dimension),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	s.log.Info("schema ensured", "dimension", s.dimension)
	return nil
}

// InsertChunk writes one chunk in its own transaction. A chunk_index
// conflict is not an error: the existing row is left untouched and
// inserted=false is returned.
func (s *Store) InsertChunk(ctx context.Context, c domain.Chunk) (int64, bool, error) {
	if c.Index < 0 {
		return 0, false, store.ErrInvalidIndex
	}
	if c.Embedding != nil && len(c.Embedding) != s.dimension {
		return 0, false, fmt.Errorf("%w: got %d, store holds %d", store.ErrInvalidDimension, len(c.Embedding), s.dimension)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback(ctx)

	var emb any
	if c.Embedding != nil {
		emb = pgvector.NewVector(c.Embedding)
	}
	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO document_chunks (chunk_index, chunk_text, contextualized_text,
		                             chunk_tokens, contextualized_tokens, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chunk_index) DO NOTHING
		RETURNING id`,
		c.Index, c.Text, c.ContextText, c.TextTokens, c.ContextTokens, emb,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// conflict: the index is already present, nothing was written
		if err := tx.Commit(ctx); err != nil {
			return 0, false, fmt.Errorf("commit insert: %w", err)
		}
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert chunk %d: %w", c.Index, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, false, fmt.Errorf("commit insert: %w", err)
	}
	return id, true, nil
}

// QueryNearest ranks stored chunks by cosine similarity to the query
// embedding. Only rows strictly above the threshold are returned, ordered
// by ascending distance with chunk_index breaking ties, capped at topK.
func (s *Store) QueryNearest(ctx context.Context, embedding []float32, topK int, threshold float64) ([]domain.RetrievalResult, error) {
	if topK < 1 {
		return nil, store.ErrInvalidTopK
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, store holds %d", store.ErrInvalidDimension, len(embedding), s.dimension)
	}

	vec := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx, `
		SELECT id,
		       chunk_index,
		       chunk_text,
		       contextualized_text,
		       1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $2
		ORDER BY embedding <=> $1, chunk_index
		LIMIT $3`,
		vec, threshold, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("query nearest: %w", err)
	}
	defer rows.Close()

	var results []domain.RetrievalResult
	for rows.Next() {
		var r domain.RetrievalResult
		if err := rows.Scan(&r.ID, &r.Index, &r.Text, &r.ContextText, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query nearest: %w", err)
	}
	return results, nil
}

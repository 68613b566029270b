// Package knowledge implements the document retrieval side of the agent:
// a pgvector-backed store of embedded text chunks, an ingestion pipeline
// that keeps the store in sync with a documents directory, and the
// search_local_docs tool over it.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// Embedder turns texts into vectors. The same embedder must be used at
// ingestion and query time; the store records the model identifier with
// every chunk and verifies it before searching.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbeddingModel() string
}

// DB is the slice of pgx the store needs. pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// searchTimeout bounds vector searches so a slow index cannot stall a turn.
const searchTimeout = 10 * time.Second

// Store manages embedded document chunks in PostgreSQL with pgvector.
// Safe for concurrent use.
type Store struct {
	db       DB
	embedder Embedder
	logger   *slog.Logger
}

// NewStore wires a store over the given database and embedder.
func NewStore(db DB, embedder Embedder, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if embedder == nil {
		return nil, ErrNilEmbedder
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, embedder: embedder, logger: logger}, nil
}

// Add embeds the document content and upserts the chunk.
func (s *Store) Add(ctx context.Context, doc Document) error {
	vecs, err := s.embedder.Embed(ctx, []string{doc.Content})
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return fmt.Errorf("empty embedding returned for document %q", doc.ID)
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %q: %w", doc.ID, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (id, content, embedding, source, metadata, embedding_model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			source = EXCLUDED.source,
			metadata = EXCLUDED.metadata,
			embedding_model = EXCLUDED.embedding_model`,
		doc.ID, doc.Content, pgvector.NewVector(vecs[0]), doc.Source, metadata, s.embedder.EmbeddingModel())
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "source", doc.Source, "content_length", len(doc.Content))
	return nil
}

// Search returns up to k chunks nearest to the query under cosine distance,
// most relevant (lowest score) first. It refuses to search an index built
// with a different embedding model.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	if err := s.checkEmbeddingModel(ctx); err != nil {
		return nil, err
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned for query")
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, content, source, metadata, created_at, embedding <=> $1 AS score
		FROM documents
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(vecs[0]), k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r        Result
			metadata []byte
			created  time.Time
		)
		if err := rows.Scan(&r.Document.ID, &r.Document.Content, &r.Document.Source, &metadata, &created, &r.Score); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.Document.CreatedAt = created
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &r.Document.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata for %q: %w", r.Document.ID, err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}

// checkEmbeddingModel fails fast if any stored chunk was embedded with a
// different model than the one configured now.
func (s *Store) checkEmbeddingModel(ctx context.Context) error {
	var stale string
	err := s.db.QueryRow(ctx, `
		SELECT embedding_model FROM documents
		WHERE embedding_model <> $1
		LIMIT 1`, s.embedder.EmbeddingModel()).Scan(&stale)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking embedding model: %w", err)
	}
	return fmt.Errorf("%w: index has %q, configured %q",
		ErrEmbeddingModelMismatch, stale, s.embedder.EmbeddingModel())
}

// SourceHash returns the content hash recorded for a source file, or ""
// if the source has never been ingested.
func (s *Store) SourceHash(ctx context.Context, source string) (string, error) {
	var hash string
	err := s.db.QueryRow(ctx, `
		SELECT metadata->>'file_hash' FROM documents
		WHERE source = $1
		LIMIT 1`, source).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up source hash: %w", err)
	}
	return hash, nil
}

// DeleteSource removes all chunks of one source file, returning how many
// were deleted.
func (s *Store) DeleteSource(ctx context.Context, source string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE source = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("deleting source %q: %w", source, err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

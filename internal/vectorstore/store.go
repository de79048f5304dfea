package vectorstore

import (
	"context"

	"ragchat/internal/domain"
)

// Store is the vector index over chunk embeddings. Implementations own an
// embedding provider and must use the same provider instance for ingestion
// and query-time embedding.
type Store interface {
	// Open establishes the connection and ensures the collection exists.
	Open(ctx context.Context) error

	// Upsert embeds and inserts chunks whose IDs are not yet stored and
	// returns the number of newly added entries. Re-ingesting unchanged
	// content is a no-op because the same IDs are recomputed.
	Upsert(ctx context.Context, chunks []domain.Chunk) (int, error)

	// DeleteByDocument removes every entry whose source document matches.
	// Best-effort: the returned flag reports whether the delete succeeded.
	DeleteByDocument(ctx context.Context, document string) (bool, error)

	// Search embeds the query and returns the k nearest chunks ordered by
	// ascending distance (smaller = more similar). It fails with
	// domain.ErrModelMismatch when stored vectors were produced by a
	// different embedding model.
	Search(ctx context.Context, query string, k int) ([]domain.Hit, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Close releases the connection.
	Close() error
}

package embedding

import "context"

// Provider converts text into dense vectors. The same provider instance must
// serve both ingestion and query-time embedding of a given vector index, or
// similarity between stored and query vectors becomes meaningless.
type Provider interface {
	// EmbedDocuments embeds a batch of chunk texts for indexing.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Model identifies the embedding model. It is stored alongside vectors
	// so that a provider switch is detected instead of silently returning
	// meaningless neighbours.
	Model() string

	// Dimension returns the vector size produced by this provider.
	Dimension() int
}

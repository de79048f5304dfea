// Package memory implements an in-process vector store using brute-force
// cosine distance. It mirrors the remote store's contract and is used for
// offline runs and tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	"ragchat/internal/vectorstore"
)

var _ vectorstore.Store = (*Store)(nil)

type entry struct {
	chunk  domain.Chunk
	vector []float32
	model  string
}

// Store holds embeddings in memory, keyed by chunk ID.
type Store struct {
	mu       sync.RWMutex
	provider embedding.Provider
	entries  map[string]entry
	order    []string // insertion order, for deterministic iteration
}

// New creates an empty in-memory store backed by the given provider.
func New(provider embedding.Provider) *Store {
	return &Store{provider: provider, entries: make(map[string]entry)}
}

// Open is a no-op for the in-memory store.
func (s *Store) Open(context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Upsert embeds and stores chunks whose IDs are absent, returning the number
// of newly added entries.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var missing []domain.Chunk
	for _, c := range chunks {
		if _, ok := s.entries[c.ID]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	texts := make([]string, len(missing))
	for i, c := range missing {
		texts[i] = c.Text
	}
	vectors, err := s.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, err
	}
	for i, c := range missing {
		s.entries[c.ID] = entry{chunk: c, vector: vectors[i], model: s.provider.Model()}
		s.order = append(s.order, c.ID)
	}
	return len(missing), nil
}

// DeleteByDocument removes every entry belonging to the given document.
func (s *Store) DeleteByDocument(_ context.Context, document string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	removed := false
	for _, id := range s.order {
		if s.entries[id].chunk.Document == document {
			delete(s.entries, id)
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed, nil
}

// Search returns the k nearest entries by cosine distance, ascending.
func (s *Store) Search(ctx context.Context, query string, k int) ([]domain.Hit, error) {
	vec, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 {
		k = 10
	}
	hits := make([]domain.Hit, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		if e.model != s.provider.Model() {
			return nil, fmt.Errorf("%w: stored %q, active %q",
				domain.ErrModelMismatch, e.model, s.provider.Model())
		}
		hits = append(hits, domain.Hit{Chunk: e.chunk, Distance: cosineDistance(e.vector, vec)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Package rerank re-scores vector search candidates with a cross-encoder
// and orders the survivors for long-context prompting.
package rerank

import (
	"context"
	"sort"

	"ragchat/internal/domain"
)

const (
	DefaultCandidateK   = 100
	DefaultOutputM      = 10
	DefaultMinRelevance = 0.5
)

// FallbackContext is handed to the model when no candidate survives
// re-ranking, so it declines instead of guessing.
const FallbackContext = "There is nothing found in the application. Say user that you didn't find anything. Do not try to guess answer"

// CrossEncoder scores query/text pairs jointly. Higher means more relevant.
type CrossEncoder interface {
	Scores(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Ranked is a chunk with its cross-encoder relevance score.
type Ranked struct {
	Chunk domain.Chunk
	Score float64
}

type Config struct {
	CandidateK   int
	OutputM      int
	MinRelevance float64
}

// Reranker trims candidates to the top CandidateK, scores them, drops
// everything under MinRelevance and keeps the best OutputM. A nil encoder
// falls back to scoring by vector similarity alone.
type Reranker struct {
	encoder      CrossEncoder
	candidateK   int
	outputM      int
	minRelevance float64
}

func New(encoder CrossEncoder, cfg Config) *Reranker {
	if cfg.CandidateK <= 0 {
		cfg.CandidateK = DefaultCandidateK
	}
	if cfg.OutputM <= 0 {
		cfg.OutputM = DefaultOutputM
	}
	return &Reranker{
		encoder:      encoder,
		candidateK:   cfg.CandidateK,
		outputM:      cfg.OutputM,
		minRelevance: cfg.MinRelevance,
	}
}

// CandidateK reports how many candidates the reranker wants to see, which
// callers pass as the vector search limit.
func (r *Reranker) CandidateK() int { return r.candidateK }

// Rerank scores the hits and returns at most OutputM chunks arranged for a
// long prompt: the most relevant chunks sit at the ends and the weakest in
// the middle.
func (r *Reranker) Rerank(ctx context.Context, query string, hits []domain.Hit) ([]Ranked, error) {
	if len(hits) > r.candidateK {
		hits = hits[:r.candidateK]
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ranked := make([]Ranked, len(hits))
	if r.encoder != nil {
		texts := make([]string, len(hits))
		for i, h := range hits {
			texts[i] = h.Chunk.Text
		}
		scores, err := r.encoder.Scores(ctx, query, texts)
		if err != nil {
			return nil, err
		}
		for i, h := range hits {
			ranked[i] = Ranked{Chunk: h.Chunk, Score: scores[i]}
		}
	} else {
		for i, h := range hits {
			ranked[i] = Ranked{Chunk: h.Chunk, Score: 1 - h.Distance}
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Chunk.ID < ranked[j].Chunk.ID
	})

	kept := ranked[:0]
	for _, rc := range ranked {
		if rc.Score >= r.minRelevance {
			kept = append(kept, rc)
		}
	}
	if len(kept) > r.outputM {
		kept = kept[:r.outputM]
	}
	return reorder(kept), nil
}

// reorder interleaves the descending-relevance list so the best items land
// at the head and tail of the prompt. Walking the list from the weakest
// item, each next-stronger item alternates between the back and the front.
func reorder(ranked []Ranked) []Ranked {
	if len(ranked) <= 2 {
		return ranked
	}
	out := make([]Ranked, 0, len(ranked))
	for i := len(ranked) - 1; i >= 0; i-- {
		// index from the weakest end
		pos := len(ranked) - 1 - i
		if pos%2 == 1 {
			out = append(out, ranked[i])
		} else {
			out = append([]Ranked{ranked[i]}, out...)
		}
	}
	return out
}

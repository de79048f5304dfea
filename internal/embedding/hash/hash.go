// Package hash implements a local, deterministic feature-hashing embedding
// provider. It needs no network or model weights, which makes it suitable
// for offline use and tests, at the cost of purely lexical similarity.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"

	"ragchat/internal/embedding"
)

var _ embedding.Provider = (*Provider)(nil)

// DefaultDimension is the default number of hash buckets.
const DefaultDimension = 256

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// Provider hashes tokens into a fixed number of buckets and L2-normalizes
// the resulting term-frequency vector.
type Provider struct {
	dimension int
}

// New creates a hashing provider with the given dimension.
func New(dimension int) *Provider {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Provider{dimension: dimension}
}

// EmbedDocuments embeds each text independently.
func (p *Provider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.embed(text)
	}
	return out, nil
}

// EmbedQuery embeds a single query text.
func (p *Provider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return p.embed(text), nil
}

// Model identifies the provider and its bucket count.
func (p *Provider) Model() string {
	return "hash-" + strconv.Itoa(p.dimension)
}

// Dimension returns the number of hash buckets.
func (p *Provider) Dimension() int { return p.dimension }

func (p *Provider) embed(text string) []float32 {
	vec := make([]float32, p.dimension)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%p.dimension]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

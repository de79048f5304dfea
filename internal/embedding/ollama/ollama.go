// Package ollama implements the embedding provider against a local Ollama
// server using its official API client.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"ragchat/internal/domain"
	"ragchat/internal/embedding"
)

var _ embedding.Provider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "http://localhost:11434"
	DefaultModel     = "nomic-embed-text"
	DefaultTimeout   = 30 * time.Second
	DefaultDimension = 768 // nomic-embed-text
)

// Config configures the Ollama embedding provider.
type Config struct {
	BaseURL   string
	Model     string
	Timeout   time.Duration
	Dimension int
}

// Provider generates embeddings through the Ollama /api/embed endpoint.
type Provider struct {
	client    *api.Client
	model     string
	dimension int
}

// New creates a provider for the configured Ollama server.
func New(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}
	client := api.NewClient(base, &http.Client{Timeout: cfg.Timeout})
	return &Provider{client: client, model: cfg.Model, dimension: cfg.Dimension}, nil
}

// EmbedDocuments embeds a batch of texts in a single request.
func (p *Provider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := p.client.Embed(ctx, &api.EmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailure, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrEmbeddingFailure, len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// EmbedQuery embeds a single query text.
func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Model returns the embedding model tag stored alongside vectors.
func (p *Provider) Model() string { return "ollama/" + p.model }

// Dimension returns the configured vector size.
func (p *Provider) Dimension() int { return p.dimension }

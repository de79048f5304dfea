// Package app assembles the pipeline components from configuration. Both
// binaries share this wiring.
package app

import (
	"context"
	"fmt"
	"time"

	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/embedding"
	"ragchat/internal/embedding/hash"
	ollamaembed "ragchat/internal/embedding/ollama"
	"ragchat/internal/extract"
	"ragchat/internal/lexical"
	ollamallm "ragchat/internal/llm/ollama"
	"ragchat/internal/rerank"
	"ragchat/internal/service"
	"ragchat/internal/vectorstore"
	"ragchat/internal/vectorstore/memory"
	"ragchat/internal/vectorstore/qdrant"
)

// Build wires a service from the config. The returned closer releases the
// vector store connection.
func Build(ctx context.Context, cfg *config.AppConfig) (*service.Service, func(), error) {
	var provider embedding.Provider
	switch cfg.Embedder.Type {
	case "ollama", "":
		oc := cfg.Embedder.Ollama
		if oc == nil {
			oc = &config.OllamaEmbedderConfig{}
		}
		p, err := ollamaembed.New(ollamaembed.Config{
			BaseURL:   oc.URL,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
			Dimension: oc.Dimension,
		})
		if err != nil {
			return nil, nil, err
		}
		provider = p
	case "hash":
		dim := 0
		if cfg.Embedder.Hash != nil {
			dim = cfg.Embedder.Hash.Dimension
		}
		provider = hash.New(dim)
	default:
		return nil, nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var store vectorstore.Store
	switch cfg.VectorStore.Type {
	case "qdrant", "":
		qc := cfg.VectorStore.Qdrant
		if qc == nil {
			qc = &config.QdrantConfig{}
		}
		store = qdrant.New(qdrant.Config{
			Host:       qc.Host,
			Port:       qc.Port,
			Collection: qc.Collection,
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
		}, provider)
	case "memory":
		store = memory.New(provider)
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
	if err := store.Open(ctx); err != nil {
		return nil, nil, fmt.Errorf("open vector store: %w", err)
	}

	index := lexical.New(lexical.Config{
		URL:             cfg.Lexical.URL,
		IndexName:       cfg.Lexical.IndexName,
		Timeout:         time.Duration(cfg.Lexical.TimeoutSecs) * time.Second,
		DocumentBaseURL: cfg.Lexical.DocumentBaseURL,
	})
	if err := index.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	var encoder rerank.CrossEncoder
	if cfg.Reranker.URL != "" {
		encoder = rerank.NewClient(rerank.ClientConfig{
			URL:     cfg.Reranker.URL,
			Model:   cfg.Reranker.Model,
			Timeout: time.Duration(cfg.Reranker.TimeoutSecs) * time.Second,
		})
	}
	reranker := rerank.New(encoder, rerank.Config{
		CandidateK:   cfg.Reranker.CandidateK,
		OutputM:      cfg.Reranker.OutputM,
		MinRelevance: cfg.Reranker.MinRelevance,
	})

	completer, err := ollamallm.New(ollamallm.Config{
		URL:     cfg.LLM.URL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	svc := service.New(
		extract.NewFileExtractor(),
		chunker.NewSplitter(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap),
		index,
		store,
		reranker,
		completer,
		service.Config{SearchMinRelevance: cfg.Lexical.MinRelevance},
	)
	return svc, func() { store.Close() }, nil
}

// LoadConfig loads a config from the given path, or the default locations
// when the path is empty.
func LoadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}

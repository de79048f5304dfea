package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embedder.Type)
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 75, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, "pdf_documents", cfg.Lexical.IndexName)
	assert.Equal(t, 100, cfg.Reranker.CandidateK)
	assert.Equal(t, 10, cfg.Reranker.OutputM)
}

func TestLoad_PartialConfigGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder:\n  type: hash\n  hash:\n    dimension: 64\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hash", cfg.Embedder.Type)
	require.NotNil(t, cfg.Embedder.Hash)
	assert.Equal(t, 64, cfg.Embedder.Hash.Dimension)
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, "http://localhost:9200", cfg.Lexical.URL)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.LLM.Model = "mistral"
	cfg.Lexical.DocumentBaseURL = "https://docs.example.com/"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", loaded.LLM.Model)
	assert.Equal(t, "https://docs.example.com/", loaded.Lexical.DocumentBaseURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OllamaEmbedderConfig configures the Ollama embedding endpoint.
type OllamaEmbedderConfig struct {
	URL         string `yaml:"url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Dimension   int    `yaml:"dimension"`
}

// HashEmbedderConfig configures the offline feature-hashing embedder.
type HashEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	Ollama *OllamaEmbedderConfig `yaml:"ollama,omitempty"`
	Hash   *HashEmbedderConfig   `yaml:"hash,omitempty"`
}

// ChunkerConfig configures how page text is split into chunks.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// LexicalConfig contains connection details for the keyword index.
type LexicalConfig struct {
	URL             string  `yaml:"url"`
	IndexName       string  `yaml:"index_name"`
	TimeoutSecs     int     `yaml:"timeout_secs"`
	DocumentBaseURL string  `yaml:"document_base_url"`
	MinRelevance    float64 `yaml:"min_relevance"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RerankerConfig configures the cross-encoder stage. An empty URL disables
// the cross-encoder and falls back to vector similarity scores.
type RerankerConfig struct {
	URL          string  `yaml:"url"`
	Model        string  `yaml:"model"`
	CandidateK   int     `yaml:"candidate_k"`
	OutputM      int     `yaml:"output_m"`
	MinRelevance float64 `yaml:"min_relevance"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
}

// LLMConfig configures the chat model used to answer questions.
type LLMConfig struct {
	URL         string `yaml:"url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Lexical     LexicalConfig     `yaml:"lexical"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Reranker    RerankerConfig    `yaml:"reranker"`
	LLM         LLMConfig         `yaml:"llm"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{
			Type: "ollama",
			Ollama: &OllamaEmbedderConfig{
				URL:       "http://localhost:11434",
				Model:     "nomic-embed-text",
				Dimension: 768,
			},
		},
		Chunker: ChunkerConfig{ChunkSize: 500, ChunkOverlap: 75},
		Lexical: LexicalConfig{
			URL:          "http://localhost:9200",
			IndexName:    "pdf_documents",
			MinRelevance: 0.5,
		},
		VectorStore: VectorStoreConfig{
			Type: "qdrant",
			Qdrant: &QdrantConfig{
				Host:       "localhost",
				Port:       6334,
				Collection: "ragchat",
			},
		},
		Reranker: RerankerConfig{
			CandidateK:   100,
			OutputM:      10,
			MinRelevance: 0.5,
		},
		LLM: LLMConfig{
			URL:   "http://localhost:11434",
			Model: "llama3.2",
		},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 500
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 75
	}
	if cfg.Lexical.URL == "" {
		cfg.Lexical.URL = "http://localhost:9200"
	}
	if cfg.Lexical.IndexName == "" {
		cfg.Lexical.IndexName = "pdf_documents"
	}
	if cfg.Lexical.MinRelevance == 0 {
		cfg.Lexical.MinRelevance = 0.5
	}
	if cfg.Embedder.Type == "ollama" && cfg.Embedder.Ollama != nil {
		if cfg.Embedder.Ollama.URL == "" {
			cfg.Embedder.Ollama.URL = "http://localhost:11434"
		}
		if cfg.Embedder.Ollama.Model == "" {
			cfg.Embedder.Ollama.Model = "nomic-embed-text"
		}
		if cfg.Embedder.Ollama.TimeoutSecs == 0 {
			cfg.Embedder.Ollama.TimeoutSecs = 30
		}
		if cfg.Embedder.Ollama.Dimension == 0 {
			cfg.Embedder.Ollama.Dimension = 768
		}
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.Host == "" {
			cfg.VectorStore.Qdrant.Host = "localhost"
		}
		if cfg.VectorStore.Qdrant.Port == 0 {
			cfg.VectorStore.Qdrant.Port = 6334
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "ragchat"
		}
	}
	if cfg.Reranker.CandidateK == 0 {
		cfg.Reranker.CandidateK = 100
	}
	if cfg.Reranker.OutputM == 0 {
		cfg.Reranker.OutputM = 10
	}
	if cfg.Reranker.MinRelevance == 0 {
		cfg.Reranker.MinRelevance = 0.5
	}
	if cfg.LLM.URL == "" {
		cfg.LLM.URL = "http://localhost:11434"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3.2"
	}
}

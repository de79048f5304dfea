package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var _ CrossEncoder = (*Client)(nil)

type ClientConfig struct {
	URL     string
	Model   string
	Timeout time.Duration
}

// Client is a minimal REST client to a text-embeddings-inference style
// /rerank endpoint.
type Client struct {
	url    string
	model  string
	client *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		url:    strings.TrimRight(cfg.URL, "/"),
		model:  cfg.Model,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Scores returns one relevance score per text, aligned with the input.
func (c *Client) Scores(ctx context.Context, query string, texts []string) ([]float64, error) {
	body := map[string]any{
		"query": query,
		"texts": texts,
	}
	if c.model != "" {
		body["model"] = c.model
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/rerank", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rerank request failed: %s", resp.Status)
	}

	var ranks []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ranks); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	scores := make([]float64, len(texts))
	for _, r := range ranks {
		if r.Index < 0 || r.Index >= len(scores) {
			return nil, fmt.Errorf("rerank response index %d out of range", r.Index)
		}
		scores[r.Index] = r.Score
	}
	return scores, nil
}

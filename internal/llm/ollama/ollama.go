// Package ollama adapts an Ollama chat model to the llm.Completer interface.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"ragchat/internal/domain"
	"ragchat/internal/llm"
)

var _ llm.Completer = (*Completer)(nil)

type Config struct {
	URL     string
	Model   string
	Timeout time.Duration
}

type Completer struct {
	client *api.Client
	model  string
}

func New(cfg Config) (*Completer, error) {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL %q: %w", cfg.URL, err)
	}
	return &Completer{
		client: api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		model:  cfg.Model,
	}, nil
}

// Complete sends the conversation once and returns the full reply.
func (c *Completer) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	apiMessages := make([]api.Message, len(messages))
	for i, m := range messages {
		apiMessages[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: apiMessages,
		Stream:   &stream,
	}
	var reply strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCompletionFailure, err)
	}
	return reply.String(), nil
}

package llm

import (
	"context"

	"ragchat/internal/domain"
)

// Completer produces a single assistant reply for a conversation. A call is
// made exactly once per question; callers surface failures instead of
// retrying with a degraded prompt.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message) (string, error)
}

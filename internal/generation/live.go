package generation

import (
	"context"
	"errors"
	"fmt"

	"wiki-agent/internal/domain"
	"wiki-agent/internal/registry"
)

// ChatClient is the completions surface Live depends on.
// *llm.Client satisfies this interface.
type ChatClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

// Live generates answers through an external chat-completions backend.
type Live struct {
	client   ChatClient
	model    string
	maxTurns int
}

// NewLive creates a Live adapter over the given chat client. maxTurns caps
// how many prior conversation exchanges are carried into the prompt.
func NewLive(client ChatClient, model string, maxTurns int) (*Live, error) {
	if client == nil {
		return nil, errors.New("generation: chat client must not be nil")
	}
	if model == "" {
		return nil, errors.New("generation: model must not be empty")
	}
	if maxTurns < 0 {
		return nil, errors.New("generation: max turns must not be negative")
	}
	return &Live{client: client, model: model, maxTurns: maxTurns}, nil
}

// Generate asks the backend for an answer grounded in the retrieved
// documents. The citation block is appended by the caller, so the backend
// answer is returned as-is. An empty document set short-circuits to the
// no-grounding response without a backend call.
func (l *Live) Generate(ctx context.Context, query string, documents []string, _ string, idx registry.Index, turns []domain.Turn) (string, error) {
	if len(documents) == 0 {
		return NoGroundingResponse, nil
	}

	messages := buildPromptMessages(idx.SystemPrompt, turns, l.maxTurns, documents, query)
	answer, err := l.client.Chat(ctx, l.model, messages)
	if err != nil {
		return "", fmt.Errorf("generation: chat completion: %w", err)
	}
	return answer, nil
}

package domain

import "time"

// Chat roles used by the pipeline and LLM integrations.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is the provider-agnostic chat message shape sent to generation
// backends.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is a single conversation turn as supplied by the caller. A turn is
// created once per request or response and never mutated afterwards.
type Turn struct {
	Role      string
	Content   string
	Timestamp time.Time
	Index     string
}

// Message converts a turn to its LLM wire shape.
func (t Turn) Message() ChatMessage {
	return ChatMessage{Role: t.Role, Content: t.Content}
}

package generation

import (
	"strings"

	"wiki-agent/internal/domain"
)

// buildPromptMessages assembles the chat-completions message list: the index
// system prompt, the most recent completed conversation turns, and a final
// user message carrying the retrieved context block and the question.
func buildPromptMessages(systemPrompt string, turns []domain.Turn, maxTurns int, documents []string, query string) []domain.ChatMessage {
	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: strings.TrimSpace(systemPrompt)},
	}

	for _, t := range recentTurns(turns, maxTurns) {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		messages = append(messages, t.Message())
	}

	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleUser,
		Content: buildGroundedQuestion(documents, query),
	})
	return messages
}

// recentTurns keeps the tail of the conversation, at most maxTurns
// user/assistant exchanges.
func recentTurns(turns []domain.Turn, maxTurns int) []domain.Turn {
	if maxTurns <= 0 {
		return nil
	}
	limit := maxTurns * 2
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}

func buildGroundedQuestion(documents []string, query string) string {
	return strings.Join([]string{
		"Reference documents:",
		JoinDocuments(documents),
		"",
		"Question:",
		query,
		"",
		"Answer using only the reference documents and the prior conversation. " +
			"If the documents do not contain the answer, say so.",
	}, "\n")
}

package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// historyTimeFormat is the persisted timestamp layout. It sorts
// lexicographically in chronological order, which the log format relies on.
const historyTimeFormat = "2006-01-02 15:04:05"

// ChatHistoryEntry is one persisted exchange. The JSON field set is the
// stable on-disk log format; changes must be additive only.
type ChatHistoryEntry struct {
	ID             string `json:"id"`
	Timestamp      string `json:"timestamp"`
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	Index          string `json:"chatbot_type"`
	UserMessage    string `json:"user_message"`
	BotResponse    string `json:"bot_response"`
	MessageLength  int    `json:"message_length"`
	ResponseLength int    `json:"response_length"`
}

// NewChatHistoryEntry builds an immutable entry for one completed exchange.
// The id is time-prefixed so ids order chronologically, with a random suffix
// for uniqueness under concurrent appends. Lengths count runes, not bytes.
func NewChatHistoryEntry(now time.Time, userID, username, index, userMessage, botResponse string) ChatHistoryEntry {
	return ChatHistoryEntry{
		ID:             "chat_" + now.Format("20060102_150405") + "_" + uuid.NewString()[:8],
		Timestamp:      now.Format(historyTimeFormat),
		UserID:         userID,
		Username:       username,
		Index:          index,
		UserMessage:    userMessage,
		BotResponse:    botResponse,
		MessageLength:  utf8.RuneCountInString(userMessage),
		ResponseLength: utf8.RuneCountInString(botResponse),
	}
}

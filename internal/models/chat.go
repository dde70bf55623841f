package models

import (
	"time"

	"github.com/google/uuid"
)

// Utterance is one inbound user message.
type Utterance struct {
	ID        uuid.UUID
	Text      string
	Timestamp time.Time
}

// Exchange is one user input paired with its resolved assistant response.
// The JSON shape matches the persisted history file.
type Exchange struct {
	ID        int64  `json:"id"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp,omitempty"` // RFC3339
}

// ChatMessage represents a single turn in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply from the chat endpoint.
type ChatResponse struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Status reports which optional subsystems came up.
type Status struct {
	AIModelLoaded    bool `json:"ai_model_loaded"`
	OLEDAvailable    bool `json:"oled_available"`
	ChatHistoryCount int  `json:"chat_history_count"`
}

// Turns flattens exchanges into alternating user/assistant messages.
func Turns(exchanges []Exchange) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(exchanges)*2)
	for _, ex := range exchanges {
		msgs = append(msgs,
			ChatMessage{Role: RoleUser, Content: ex.Prompt},
			ChatMessage{Role: RoleAssistant, Content: ex.Response},
		)
	}
	return msgs
}

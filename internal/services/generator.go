package services

import (
	"context"
	"errors"

	"pi-assistant/internal/models"
)

// ErrModelUnavailable is returned by a TextGenerator that has no model loaded.
var ErrModelUnavailable = errors.New("language model unavailable")

// Prompt is the structured message sequence sent to a model.
type Prompt struct {
	System string
	Turns  []models.ChatMessage // prior exchanges, alternating user/assistant
	Input  string               // final user turn
}

// GenerationParams are fixed per process.
type GenerationParams struct {
	MaxOutputTokens int
	Temperature     float64
	TopK            int
	TopP            float64
	StopSequences   []string
}

func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		MaxOutputTokens: 60,
		Temperature:     0.6,
		TopK:            40,
		TopP:            0.9,
		StopSequences:   []string{"User:", "Human:", "Assistant:"},
	}
}

// TextGenerator completes a conversation. Implementations need not be safe
// for concurrent use; the Responder serializes calls.
type TextGenerator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Loaded() bool
}

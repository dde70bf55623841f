package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"pi-assistant/internal/models"
)

const (
	SystemInstruction = "You are a helpful assistant running on a small home device. " +
		"Be concise and answer in one to three sentences. " +
		"The user's message has been spell-corrected; respond to its corrected intent."

	ClarificationResponse = "Could you clarify or provide more details for a better response?"
	ApologyResponse       = "I apologize, but I encountered an error while processing your request."

	// ContextExchanges is how many prior exchanges the model sees.
	ContextExchanges = 2

	maxSentences      = 3
	minResponseLength = 15
)

var unavailableResponses = []string{
	"I'm here to help! However, the AI model isn't loaded yet.",
	"That's an interesting question! The AI model is currently unavailable.",
	"I'd love to help with that, but I'm running in fallback mode right now.",
	"Great question! Please make sure the AI model is properly installed.",
}

// Responder wraps a TextGenerator with serialized access and output cleanup.
type Responder struct {
	gen    TextGenerator
	slots  chan struct{} // token bucket guarding the model
	logger *zap.Logger
}

// NewResponder accepts a nil generator; every reply is then a canned one.
func NewResponder(gen TextGenerator, concurrentReqs int, logger *zap.Logger) *Responder {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	slots := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		slots <- struct{}{}
	}
	return &Responder{
		gen:    gen,
		slots:  slots,
		logger: logger,
	}
}

func (r *Responder) ModelLoaded() bool {
	return r.gen != nil && r.gen.Loaded()
}

// Respond never fails: model absence yields a canned reply and model errors
// yield the apology.
func (r *Responder) Respond(ctx context.Context, input string, recent []models.Exchange) string {
	if !r.ModelLoaded() {
		return UnavailableResponse(input)
	}

	if err := r.acquire(ctx); err != nil {
		r.logger.Warn("gave up waiting for the model", zap.Error(err))
		return ApologyResponse
	}
	defer r.release()

	raw, err := r.gen.Generate(ctx, BuildPrompt(input, recent))
	if errors.Is(err, ErrModelUnavailable) {
		return UnavailableResponse(input)
	}
	if err != nil {
		r.logger.Error("generation failed", zap.Error(err))
		return ApologyResponse
	}

	return PostProcess(input, raw)
}

// acquire blocks until a model slot is free or ctx ends.
func (r *Responder) acquire(ctx context.Context) error {
	select {
	case <-r.slots:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Responder) release() {
	r.slots <- struct{}{}
}

// BuildPrompt keeps at most ContextExchanges of the newest history.
func BuildPrompt(input string, recent []models.Exchange) Prompt {
	if len(recent) > ContextExchanges {
		recent = recent[len(recent)-ContextExchanges:]
	}
	return Prompt{
		System: SystemInstruction,
		Turns:  models.Turns(recent),
		Input:  input,
	}
}

// UnavailableResponse rotates through the canned set by input length, so the
// same length always gets the same reply.
func UnavailableResponse(input string) string {
	return unavailableResponses[utf8.RuneCountInString(input)%len(unavailableResponses)]
}

// PostProcess cleans raw model output, caps it at three sentences and
// replaces echoes and near-empty output with a clarification request.
func PostProcess(input, raw string) string {
	text := cleanRaw(raw)
	text = limitSentences(text, maxSentences)

	if utf8.RuneCountInString(text) < minResponseLength || strings.Contains(strings.ToLower(input), strings.ToLower(text)) {
		return ClarificationResponse
	}
	return ensureTerminalPunct(text)
}

func cleanRaw(raw string) string {
	text := strings.TrimSpace(raw)
	if i := strings.LastIndex(text, "Assistant:"); i >= 0 {
		text = text[i+len("Assistant:"):]
	}
	for _, marker := range []string{"User:", "Human:"} {
		if i := strings.Index(text, marker); i >= 0 {
			text = text[:i]
		}
	}
	return strings.TrimSpace(text)
}

func limitSentences(text string, n int) string {
	sentences := strings.Split(text, ". ")
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return strings.TrimSpace(strings.Join(sentences, ". "))
}

func ensureTerminalPunct(text string) string {
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?") {
		return text
	}
	return text + "."
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pi-assistant/internal/expression"
	"pi-assistant/internal/models"
	"pi-assistant/internal/repository"
)

// Face receives pipeline phase changes.
type Face interface {
	Show(state expression.State)
	Available() bool
}

// Assistant is the response resolution pipeline shared by the HTTP handlers
// and the terminal loop.
type Assistant struct {
	normalizer *Normalizer
	kb         *KnowledgeBase
	responder  *Responder
	history    *repository.HistoryRepo
	face       Face
	logger     *zap.Logger
}

func NewAssistant(
	normalizer *Normalizer,
	kb *KnowledgeBase,
	responder *Responder,
	history *repository.HistoryRepo,
	face Face,
	logger *zap.Logger,
) *Assistant {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	if kb == nil {
		kb = NewKnowledgeBase(nil)
	}
	return &Assistant{
		normalizer: normalizer,
		kb:         kb,
		responder:  responder,
		history:    history,
		face:       face,
		logger:     logger,
	}
}

// Reply resolves one user message and records the exchange. It always
// returns a response; a panic anywhere in resolution becomes the apology.
func (a *Assistant) Reply(ctx context.Context, text string) models.Exchange {
	u := models.Utterance{ID: uuid.New(), Text: text, Timestamp: time.Now()}
	log := a.logger.With(zap.String("utterance_id", u.ID.String()))

	a.show(expression.Listening)
	log.Info("user message", zap.String("text", u.Text))

	response := a.resolve(ctx, u.Text, log)

	a.show(expression.Speaking)
	log.Info("assistant reply", zap.String("text", response))

	return a.history.Append(ctx, u.Text, response)
}

func (a *Assistant) resolve(ctx context.Context, text string, log *zap.Logger) (response string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("response resolution panicked", zap.Any("panic", r), zap.Stack("stack"))
			response = ApologyResponse
		}
	}()

	normalized := a.normalizer.Correct(text)
	if normalized != text {
		log.Debug("normalized input", zap.String("normalized", normalized))
	}

	if answer, ok := a.kb.Match(normalized); ok {
		log.Debug("knowledge base hit")
		return answer
	}

	a.show(expression.Thinking)
	return a.responder.Respond(ctx, normalized, a.history.Recent(ContextExchanges))
}

func (a *Assistant) show(state expression.State) {
	if a.face != nil {
		a.face.Show(state)
	}
}

// History returns the durable history, or the in-memory window.
func (a *Assistant) History(ctx context.Context) []models.Exchange {
	return a.history.List(ctx)
}

func (a *Assistant) Status() models.Status {
	return models.Status{
		AIModelLoaded:    a.responder.ModelLoaded(),
		OLEDAvailable:    a.face != nil && a.face.Available(),
		ChatHistoryCount: a.history.Count(),
	}
}

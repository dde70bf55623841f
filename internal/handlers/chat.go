package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"pi-assistant/internal/models"
)

type chatAssistant interface {
	Reply(ctx context.Context, text string) models.Exchange
	History(ctx context.Context) []models.Exchange
	Status() models.Status
}

type ChatHandler struct {
	assistant chatAssistant
	logger    *zap.Logger
}

func NewChatHandler(assistant chatAssistant, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		assistant: assistant,
		logger:    logger,
	}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	defer h.recoverInternal(w, r)

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body"))
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("No message provided"))
		return
	}

	ex := h.assistant.Reply(r.Context(), message)

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Response:  ex.Response,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	defer h.recoverInternal(w, r)

	history := h.assistant.History(r.Context())
	if history == nil {
		history = []models.Exchange{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *ChatHandler) Status(w http.ResponseWriter, r *http.Request) {
	defer h.recoverInternal(w, r)

	writeJSON(w, http.StatusOK, h.assistant.Status())
}

// recoverInternal turns a panic into the generic 500 body.
func (h *ChatHandler) recoverInternal(w http.ResponseWriter, r *http.Request) {
	if rec := recover(); rec != nil {
		h.logger.Error("handler panicked",
			zap.String("path", r.URL.Path),
			zap.String("request_id", r.Header.Get("X-Request-ID")),
			zap.Any("panic", rec))
		writeJSON(w, http.StatusInternalServerError, errorResp("Internal server error"))
	}
}

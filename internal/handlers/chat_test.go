package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"pi-assistant/internal/models"
)

type stubAssistant struct {
	replies  []string
	history  []models.Exchange
	status   models.Status
	panicMsg string
}

func (s *stubAssistant) Reply(ctx context.Context, text string) models.Exchange {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.replies = append(s.replies, text)
	ex := models.Exchange{ID: int64(len(s.history) + 1), Prompt: text, Response: "Echoing back: " + text + "."}
	s.history = append(s.history, ex)
	s.status.ChatHistoryCount = len(s.history)
	return ex
}

func (s *stubAssistant) History(ctx context.Context) []models.Exchange {
	return s.history
}

func (s *stubAssistant) Status() models.Status {
	return s.status
}

func postChat(h *ChatHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Chat(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var payload models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return payload.Error
}

func TestChatHandler_Chat_Success(t *testing.T) {
	stub := &stubAssistant{}
	h := NewChatHandler(stub, zap.NewNop())

	rr := postChat(h, `{"message":"  hello there  "}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var payload models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Response != "Echoing back: hello there." {
		t.Fatalf("unexpected response %q", payload.Response)
	}
	if payload.Timestamp == "" {
		t.Fatalf("expected a timestamp")
	}
	if len(stub.replies) != 1 || stub.replies[0] != "hello there" {
		t.Fatalf("expected trimmed message to reach the assistant, got %v", stub.replies)
	}
}

func TestChatHandler_Chat_EmptyMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty string", `{"message":""}`},
		{"whitespace", `{"message":"   \t "}`},
		{"missing field", `{}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAssistant{}
			h := NewChatHandler(stub, zap.NewNop())

			rr := postChat(h, tc.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
			}
			if msg := decodeError(t, rr); msg != "No message provided" {
				t.Fatalf("unexpected error %q", msg)
			}
			if len(stub.history) != 0 {
				t.Fatalf("history should not grow on a rejected request")
			}
		})
	}
}

func TestChatHandler_Chat_MalformedBody(t *testing.T) {
	stub := &stubAssistant{}
	h := NewChatHandler(stub, zap.NewNop())

	rr := postChat(h, `{"message":`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if msg := decodeError(t, rr); msg != "Invalid request body" {
		t.Fatalf("unexpected error %q", msg)
	}
	if len(stub.replies) != 0 {
		t.Fatalf("assistant should not be called")
	}
}

func TestChatHandler_Chat_PanicIsInternalError(t *testing.T) {
	h := NewChatHandler(&stubAssistant{panicMsg: "kaboom"}, zap.NewNop())

	rr := postChat(h, `{"message":"hi"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if msg := decodeError(t, rr); msg != "Internal server error" {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestChatHandler_History_EmptyIsArray(t *testing.T) {
	h := NewChatHandler(&stubAssistant{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rr := httptest.NewRecorder()
	h.History(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Fatalf("expected empty array, got %s", body)
	}
}

func TestChatHandler_History_ReturnsExchanges(t *testing.T) {
	stub := &stubAssistant{}
	h := NewChatHandler(stub, zap.NewNop())
	postChat(h, `{"message":"first"}`)
	postChat(h, `{"message":"second"}`)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rr := httptest.NewRecorder()
	h.History(rr, req)

	var items []models.Exchange
	if err := json.NewDecoder(rr.Body).Decode(&items); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(items))
	}
	if items[0].ID != 1 || items[0].Prompt != "first" || items[1].Prompt != "second" {
		t.Fatalf("unexpected history %+v", items)
	}
}

func TestChatHandler_Status(t *testing.T) {
	stub := &stubAssistant{status: models.Status{AIModelLoaded: true}}
	h := NewChatHandler(stub, zap.NewNop())
	postChat(h, `{"message":"hello"}`)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	h.Status(rr, req)

	var payload map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["ai_model_loaded"] != true {
		t.Fatalf("expected ai_model_loaded=true, got %v", payload["ai_model_loaded"])
	}
	if payload["oled_available"] != false {
		t.Fatalf("expected oled_available=false, got %v", payload["oled_available"])
	}
	if payload["chat_history_count"] != float64(1) {
		t.Fatalf("expected chat_history_count=1, got %v", payload["chat_history_count"])
	}
}

func TestIndexHandler_RendersTitle(t *testing.T) {
	h := NewIndexHandler("Pi Assistant", zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.Index(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("<title>Pi Assistant</title>")) {
		t.Fatalf("title missing from page")
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pi-assistant/internal/handlers"
	"pi-assistant/internal/middleware"
	"pi-assistant/internal/websocket"
)

func New(
	indexHandler *handlers.IndexHandler,
	chatHandler *handlers.ChatHandler,
	chatLimiter *middleware.RateLimiter,
	wsHub *websocket.Hub,
	frontendURL string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", indexHandler.Index)

	r.Group(func(r chi.Router) {
		if chatLimiter != nil {
			r.Use(chatLimiter.Middleware)
		}
		r.Post("/chat", chatHandler.Chat)
	})

	r.Get("/history", chatHandler.History)
	r.Get("/status", chatHandler.Status)

	if wsHub != nil {
		r.Get("/ws", wsHub.HandleWebSocket)
	}

	return r
}

package main

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"pi-assistant/internal/config"
	"pi-assistant/internal/database"
	"pi-assistant/internal/expression"
	"pi-assistant/internal/repository"
	"pi-assistant/internal/services"
	"pi-assistant/internal/websocket"
)

type appOptions struct {
	withHub bool
	faceOut io.Writer // ASCII face output in headless mode; nil logs only
}

// app holds everything a front-end needs. Startup problems degrade the
// app with a warning instead of failing it.
type app struct {
	assistant  *services.Assistant
	controller *expression.Controller
	history    *repository.HistoryRepo
	hub        *websocket.Hub
	redis      *database.RedisClients
	gemini     *services.GeminiGenerator
}

func newApp(ctx context.Context, opts appOptions) *app {
	a := &app{}

	// ──── Step 1: Vocabulary ────
	words, err := services.LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		logger.Warn("vocabulary unavailable, typo correction disabled", zap.Error(err))
	}
	normalizer := services.NewNormalizer(words)
	logger.Info("vocabulary loaded", zap.Int("words", normalizer.Size()))

	// ──── Step 2: Knowledge Base ────
	entries, err := services.LoadKnowledgeBase(cfg.KnowledgeBasePath)
	if err != nil {
		logger.Warn("knowledge base unavailable, every message goes to the model", zap.Error(err))
	}
	kb := services.NewKnowledgeBase(entries)
	logger.Info("knowledge base loaded", zap.Int("entries", kb.Len()))

	// ──── Step 3: History ────
	a.history = repository.NewHistoryRepo(repository.NewWindow(repository.DefaultWindowSize), openHistoryLog(ctx), logger)

	// ──── Step 4: Language Model ────
	var gen services.TextGenerator
	params := services.DefaultGenerationParams()
	params.MaxOutputTokens = cfg.GenMaxTokens
	params.Temperature = cfg.GenTemperature
	params.TopK = cfg.GenTopK
	params.TopP = cfg.GenTopP

	a.gemini, err = services.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, params, logger)
	switch {
	case errors.Is(err, services.ErrModelUnavailable):
		logger.Warn("no model configured, using fallback responses", zap.Error(err))
	case err != nil:
		logger.Warn("model initialization failed, using fallback responses", zap.Error(err))
	default:
		gen = a.gemini
		logger.Info("model client ready", zap.String("model", cfg.GeminiModel))
	}
	responder := services.NewResponder(gen, cfg.GeminiConcurrentReqs, logger)

	// ──── Step 5: Expression stream ────
	if opts.withHub {
		a.hub, a.redis = newHub(ctx)
	}

	// ──── Step 6: Display ────
	renderer, hardware := openDisplay(opts.faceOut)
	a.controller = expressionController(renderer, hardware)
	if a.hub != nil {
		a.controller.AddObserver(a.hub)
	}

	// ──── Step 7: Assistant ────
	a.assistant = services.NewAssistant(normalizer, kb, responder, a.history, a.controller, logger)

	return a
}

func openHistoryLog(ctx context.Context) repository.HistoryLog {
	switch cfg.HistoryBackend {
	case config.HistoryBackendMemory:
		logger.Info("history kept in memory only")
		return nil

	case config.HistoryBackendPostgres:
		if cfg.DatabaseURL == "" {
			logger.Warn("HISTORY_BACKEND is postgres but DATABASE_URL is not set, history kept in memory only")
			return nil
		}
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("PostgreSQL unavailable, history kept in memory only", zap.Error(err))
			return nil
		}
		if err := database.RunMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			logger.Warn("history migrations failed, history kept in memory only", zap.Error(err))
			return nil
		}
		logger.Info("history stored in PostgreSQL")
		return repository.NewPostgresHistoryLog(pool)

	default:
		if cfg.HistoryBackend != config.HistoryBackendFile {
			logger.Warn("unknown history backend, using file", zap.String("backend", cfg.HistoryBackend))
		}
		logger.Info("history stored in file", zap.String("path", cfg.HistoryPath))
		return repository.NewFileHistoryLog(cfg.HistoryPath)
	}
}

func newHub(ctx context.Context) (*websocket.Hub, *database.RedisClients) {
	if cfg.RedisURL == "" {
		return websocket.NewHub(nil, nil, logger), nil
	}
	clients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis unavailable, expression events stay local", zap.Error(err))
		return websocket.NewHub(nil, nil, logger), nil
	}
	logger.Info("expression events fanned out through Redis", zap.String("channel", websocket.ExpressionChannel))
	return websocket.NewHub(clients.Publish, clients.PubSub, logger), clients
}

var openOLED = func(bus string, width, height int, logger *zap.Logger) (expression.Renderer, error) {
	return expression.OpenOLED(bus, width, height, logger)
}

// openDisplay prefers the OLED panel and falls back to the console.
func openDisplay(faceOut io.Writer) (expression.Renderer, bool) {
	if cfg.OLEDEnabled {
		oled, err := openOLED(cfg.OLEDI2CBus, cfg.OLEDWidth, cfg.OLEDHeight, logger)
		if err == nil {
			return oled, true
		}
		logger.Warn("OLED initialization failed, simulating display", zap.Error(err))
	}
	return expression.NewConsoleRenderer(faceOut, logger), false
}

func expressionController(renderer expression.Renderer, hardware bool) *expression.Controller {
	return expression.NewController(renderer, logger,
		expression.WithBlinkInterval(cfg.BlinkInterval),
		expression.WithIdleDelay(cfg.IdleDelay),
		expression.WithHardware(hardware),
	)
}

func (a *app) Close() {
	if err := a.controller.Close(); err != nil {
		logger.Warn("failed to close display", zap.Error(err))
	}
	if err := a.history.Close(); err != nil {
		logger.Warn("failed to close history", zap.Error(err))
	}
	if a.gemini != nil {
		a.gemini.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

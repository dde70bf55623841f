package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Host string
	Port string
	Env  string

	// Logging
	LogLevel string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Generation
	GenMaxTokens   int
	GenTemperature float64
	GenTopK        int
	GenTopP        float64

	// Knowledge
	VocabularyPath    string
	KnowledgeBasePath string

	// History
	HistoryBackend string
	HistoryPath    string
	DatabaseURL    string

	// Redis (optional expression fan-out)
	RedisURL string

	// OLED
	OLEDEnabled   bool
	OLEDI2CBus    string
	OLEDWidth     int
	OLEDHeight    int
	BlinkInterval time.Duration
	IdleDelay     time.Duration

	// HTTP
	ChatRateLimit int
	FrontendURL   string
}

const (
	HistoryBackendFile     = "file"
	HistoryBackendPostgres = "postgres"
	HistoryBackendMemory   = "memory"
)

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Host:                 getEnvOrDefault("HOST", "0.0.0.0"),
		Port:                 getEnvOrDefault("PORT", "5000"),
		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 1),
		GenMaxTokens:         getEnvAsIntOrDefault("GEN_MAX_TOKENS", 60),
		GenTemperature:       getEnvAsFloatOrDefault("GEN_TEMPERATURE", 0.6),
		GenTopK:              getEnvAsIntOrDefault("GEN_TOP_K", 40),
		GenTopP:              getEnvAsFloatOrDefault("GEN_TOP_P", 0.9),
		VocabularyPath:       getEnvOrDefault("VOCABULARY_PATH", "./data/vocabulary.txt"),
		KnowledgeBasePath:    getEnvOrDefault("KNOWLEDGE_BASE_PATH", "./data/knowledge_base.json"),
		HistoryBackend:       strings.ToLower(getEnvOrDefault("HISTORY_BACKEND", HistoryBackendFile)),
		HistoryPath:          getEnvOrDefault("HISTORY_PATH", "./data/chat_history.json"),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		OLEDEnabled:          getEnvAsBoolOrDefault("OLED_ENABLED", false),
		OLEDI2CBus:           getEnvOrDefault("OLED_I2C_BUS", ""),
		OLEDWidth:            getEnvAsIntOrDefault("OLED_WIDTH", 128),
		OLEDHeight:           getEnvAsIntOrDefault("OLED_HEIGHT", 64),
		BlinkInterval:        getEnvAsDurationOrDefault("BLINK_INTERVAL", 800*time.Millisecond),
		IdleDelay:            getEnvAsDurationOrDefault("IDLE_DELAY", 3*time.Second),
		ChatRateLimit:        getEnvAsIntOrDefault("CHAT_RATE_LIMIT", 30),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "*"),
	}

	if cfg.GeminiConcurrentReqs < 1 {
		cfg.GeminiConcurrentReqs = 1
	}

	return cfg
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	HTTPPort     string
	LogLevel     string

	// Expense data provider
	ExpenseAPIBaseURL string
	UserID            string

	// Chat pipeline tuning. HistoryLimit and RefreshInterval have no
	// safe production default and must be set explicitly.
	HistoryLimit    int
	PromptMaxChars  int
	RefreshInterval time.Duration

	FetchTimeout      time.Duration
	CompletionTimeout time.Duration
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),

		ExpenseAPIBaseURL: getEnv("EXPENSE_API_BASE_URL", ""),
		UserID:            getEnv("EXPENSE_USER_ID", ""),

		HistoryLimit:    getEnvAsInt("HISTORY_LIMIT", 0),
		PromptMaxChars:  getEnvAsInt("PROMPT_MAX_CHARS", 12000),
		RefreshInterval: getEnvAsDuration("REFRESH_INTERVAL", 0),

		FetchTimeout:      getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
		CompletionTimeout: getEnvAsDuration("COMPLETION_TIMEOUT", 30*time.Second),
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.ExpenseAPIBaseURL == "" {
		log.Fatal("EXPENSE_API_BASE_URL environment variable is required")
	}

	if AppConfig.UserID == "" {
		log.Fatal("EXPENSE_USER_ID environment variable is required")
	}

	if AppConfig.HistoryLimit <= 0 {
		log.Fatal("HISTORY_LIMIT environment variable is required and must be positive")
	}

	if AppConfig.RefreshInterval <= 0 {
		log.Fatal("REFRESH_INTERVAL environment variable is required (e.g. 15m)")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

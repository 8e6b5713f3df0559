package bootstrap

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr string

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	CompletionModel string
	RealtimeModel   string
	SecretsURL      string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitWindow time.Duration
	RateLimitMax    int64

	WordsFile string
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		CompletionModel: getEnv("COMPLETION_MODEL", ""),
		RealtimeModel:   getEnv("REALTIME_MODEL", ""),
		SecretsURL:      getEnv("REALTIME_SECRETS_URL", ""),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MINUTES", 10)) * time.Minute,
		RateLimitMax:    int64(getEnvInt("RATE_LIMIT_MAX", 100)),

		WordsFile: getEnv("WORDS_FILE", "./data/words.json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

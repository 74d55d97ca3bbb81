package config

import (
	"os"
	"strconv"
)

type Config struct {
	GoogleApiKey     string
	DatabaseURL      string
	Model            string
	SearchProvider   string
	Port             string
	MaxIterations    int
	ConcurrencyLimit int
	Verbose          bool
}

func Load() *Config {
	return &Config{
		GoogleApiKey:     getEnv("GOOGLE_API_KEY", ""),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		Model:            getEnv("MODEL", "gemini-3-flash-preview"),
		SearchProvider:   getEnv("SEARCH_PROVIDER", "duckduckgo"),
		Port:             getEnv("PORT", "3000"),
		MaxIterations:    getEnvAsInt("MAX_ITERATIONS", 10),
		ConcurrencyLimit: getEnvAsInt("CONCURRENCY_LIMIT", 2),
		Verbose:          getEnvAsBool("VERBOSE", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Pipeline (statement-parser callbacks)
	PipelineAPIKey string

	// AI matching
	AIEnabled    bool
	GeminiAPIKey string
	GeminiModel  string
	AITimeout    time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "matchbook"),
		DBPassword: getEnv("DB_PASSWORD", "matchbook"),
		DBName:     getEnv("DB_NAME", "matchbook"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
	}

	enabled, err := strconv.ParseBool(getEnv("AI_MATCHING_ENABLED", "false"))
	if err != nil {
		log.Println("Warning: invalid AI_MATCHING_ENABLED value, defaulting to false")
		enabled = false
	}
	config.AIEnabled = enabled && config.GeminiAPIKey != ""

	timeoutStr := getEnv("AI_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		log.Printf("Warning: invalid AI_TIMEOUT value '%s', falling back to 30s\n", timeoutStr)
		timeout = 30 * time.Second
	}
	config.AITimeout = timeout

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

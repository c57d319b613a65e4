package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBUrl     string
	RedisURL  string
	JWTSecret string
	AppEnv    string

	SupabaseURL            string
	SupabaseChatBucket     string
	SupabaseEvidenceBucket string
	SupabaseServiceKey     string

	ChatMediaMaxBytes int64
	EvidenceMaxBytes  int64

	ChatRetentionDays   int
	RecordRetentionDays int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		DBUrl:     getEnv("DB_URL", ""),
		RedisURL:  getEnv("REDIS_URL", ""),
		JWTSecret: jwtSecret,
		AppEnv:    normalizeEnv(getEnv("APP_ENV", "production")),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseChatBucket:     getEnv("SUPABASE_CHAT_BUCKET", "chat-uploads"),
		SupabaseEvidenceBucket: getEnv("SUPABASE_EVIDENCE_BUCKET", "task-evidence"),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),

		ChatMediaMaxBytes: getEnvInt64("CHAT_MEDIA_MAX_BYTES", 10*1024*1024),
		EvidenceMaxBytes:  getEnvInt64("EVIDENCE_MAX_BYTES", 5*1024*1024),

		ChatRetentionDays:   getEnvInt("CHAT_RETENTION_DAYS", 2),
		RecordRetentionDays: getEnvInt("RECORD_RETENTION_DAYS", 7),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

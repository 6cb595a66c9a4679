package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string

	Port        string
	GinMode     string
	CORSOrigins []string

	MaxFileSize       int64
	AllowedExtensions []string
	FileStorageDir    string
	ScriptOutputDir   string

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	RateLimitReqs   int
	RateLimitWindow int
	RequestTimeout  int

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// MongoDB snapshot store
	MongoURI       string
	DBName         string
	SnapshotCron   string
	SnapshotEnable bool

	// OTLP trace export
	OTLPEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiEmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),

		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MaxFileSize:       getEnvInt64("MAX_FILE_SIZE", 10485760), // 10MB
		AllowedExtensions: strings.Split(getEnv("ALLOWED_FILE_EXTENSIONS", ".md,.txt,.json,.html,.pdf"), ","),
		FileStorageDir:    getEnv("FILE_STORAGE_DIR", "./storage/documents"),
		ScriptOutputDir:   getEnv("SCRIPT_OUTPUT_DIR", "./storage/scripts"),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		TopK:         getEnvInt("RETRIEVAL_TOP_K", 5),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),
		RequestTimeout:  getEnvInt("REQUEST_TIMEOUT", 120),

		// Redis Configuration
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// MongoDB snapshot store
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017/qa_agent"),
		DBName:         getEnv("DB_NAME", "qa_agent"),
		SnapshotCron:   getEnv("SNAPSHOT_CRON", "*/15 * * * *"),
		SnapshotEnable: getEnvBool("SNAPSHOT_ENABLED", false),

		// OTLP trace export
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

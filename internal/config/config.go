package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the explicit configuration surface for the whole service. It is
// loaded once at startup and passed into each pipeline; nothing reads the
// environment after LoadConfig returns.
type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Gemini
	GeminiAPIKey    string
	EmbeddingsModel string
	ChatModel       string
	AITimeoutSecs   int

	// Ingestion limits
	MaxFileBytes int64
	MaxDocs      int64

	// Chunking
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
	MaxChunks    int

	// Retrieval
	TopK            int
	SnippetMaxChars int

	// Vector search
	VectorSearchEnabled bool
	VectorIndexName     string
	VectorDimensions    int

	// Redis (rate limiting)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Telemetry
	OTELEnabled  bool
	OTELEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/rag_docs"),
		DBName:      getEnv("DB_NAME", "rag_docs"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		EmbeddingsModel: getEnv("EMBEDDINGS_MODEL", "text-embedding-004"),
		ChatModel:       getEnv("CHAT_MODEL", "gemini-2.0-flash"),
		AITimeoutSecs:   getEnvInt("AI_TIMEOUT", 30),

		MaxFileBytes: getEnvInt64("MAX_FILE_BYTES", 2*1024*1024), // 2MB
		MaxDocs:      getEnvInt64("MAX_DOCS", 20),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 120),
		MinChunkSize: getEnvInt("MIN_CHUNK_SIZE", 200),
		MaxChunks:    getEnvInt("MAX_CHUNKS", 200),

		TopK:            getEnvInt("TOP_K", 10),
		SnippetMaxChars: getEnvInt("SNIPPET_MAX_CHARS", 1500),

		VectorSearchEnabled: getEnvBool("MONGODB_VECTOR_ENABLED", false),
		VectorIndexName:     getEnv("MONGODB_VECTOR_INDEX", "chunks_vector"),
		VectorDimensions:    getEnvInt("VECTOR_DIM", 768),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint: getEnv("OTEL_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
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

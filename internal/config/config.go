package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Vector    VectorConfig
	Embedding EmbeddingConfig
	LLM       LLMConfig
	Ingest    IngestConfig
	Retrieval RetrievalConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	UploadDir          string
	JobsTopic          string
}

type DatabaseConfig struct {
	Connection string
}

type VectorConfig struct {
	Backend    string // "qdrant", "pgvector" or "memory"
	QdrantURL  string
	QdrantKey  string
	VectorSize int
	Distance   string // "cosine", "dot", "euclid"
}

type EmbeddingConfig struct {
	TEIURL      string
	BatchSize   int
	Concurrency int
}

type LLMConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
}

type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Workers      int
}

type RetrievalConfig struct {
	TopK      int
	MaxRounds int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8009"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
			JobsTopic:          getEnv("INGEST_JOBS_TOPIC_NAME", "INGEST_JOB_PROGRESS"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Vector: VectorConfig{
			Backend:    getEnv("VECTOR_BACKEND", "qdrant"),
			QdrantURL:  getEnv("QDRANT_URL", "http://localhost:6333"),
			QdrantKey:  getEnv("QDRANT_API_KEY", ""),
			VectorSize: getEnvAsInt("VECTOR_SIZE", 1024),
			Distance:   getEnv("VECTOR_DISTANCE", "cosine"),
		},
		Embedding: EmbeddingConfig{
			TEIURL:      getEnv("EMBEDDING_MODEL_URL", "http://localhost:8089"),
			BatchSize:   getEnvAsInt("EMBED_BATCH_SIZE", 16),
			Concurrency: getEnvAsInt("EMBED_CONCURRENCY", 4),
		},
		LLM: LLMConfig{
			BaseURL:   getEnv("OPENAI_BASE_URL", "http://localhost:19000/v1"),
			APIKey:    getEnv("OPENAI_API_KEY", "dummy-key"),
			Model:     getEnv("LLM_MODEL", "Qwen/Qwen3-Coder-30B-A3B-Instruct"),
			MaxTokens: getEnvAsInt("LLM_MAX_TOKENS", 2000),
		},
		Ingest: IngestConfig{
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 200),
			Workers:      getEnvAsInt("INGEST_WORKERS", 4),
		},
		Retrieval: RetrievalConfig{
			TopK:      getEnvAsInt("RETRIEVAL_TOP_K", 5),
			MaxRounds: getEnvAsInt("RETRIEVAL_MAX_ROUNDS", 3),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

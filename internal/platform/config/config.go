package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ベクトルストアのバックエンド種別
const (
	VectorBackendPgvector = "pgvector"
	VectorBackendQdrant   = "qdrant"
	VectorBackendMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定（pgvectorバックエンドおよびドキュメント登録簿）
	Database DatabaseConfig

	// OpenAI設定（Embeddings用）
	OpenAI OpenAIConfig

	// ベクトルストア設定
	VectorStore VectorStoreConfig

	// 取り込み設定
	Ingestion IngestionConfig

	// チャンク化設定
	Chunking ChunkingConfig

	// Embedding生成のバッチ設定
	Embedding EmbeddingConfig

	// 精度スコアリング設定
	Scoring ScoringConfig

	// 検索設定
	Search SearchConfig

	// 安全ポリシー設定
	Safety SafetyConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	EmbeddingModel     string
	EmbeddingDimension int
}

// VectorStoreConfig はベクトルストア設定
type VectorStoreConfig struct {
	Backend         string // "pgvector", "qdrant" or "memory"
	Collection      string
	QdrantURL       string
	QdrantAPIKey    string
	UpsertBatchSize int
	RequestTimeout  time.Duration
}

// IngestionConfig はドキュメント取り込み設定
type IngestionConfig struct {
	SizeThresholdBytes int64
	CacheDir           string
	PdftotextPath      string
	GCSCredentialsFile string
	Concurrency        int
	GitDefaultBranch   string
	GitSSHKeyPath      string
	GitSSHPassword     string
}

// ChunkingConfig はチャンク化設定
type ChunkingConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Encoding     string
}

// EmbeddingConfig はEmbeddingバッチ処理設定
type EmbeddingConfig struct {
	BatchSize    int
	BatchDelay   time.Duration
	BatchTimeout time.Duration
}

// ScoringConfig は精度スコアリング設定
type ScoringConfig struct {
	MismatchExactScore   float64
	MismatchPartialScore float64
	MismatchMinLength    int
	MismatchPrefixRatio  float64
	MismatchLookupTopK   int
	BrandPrefixFile      string
}

// SearchConfig は検索境界の既定値
type SearchConfig struct {
	DefaultTopK      int
	MinSimilarity    float64
	FallbackDelta    float64
	FallbackFloor    float64
	OverFetchFactor  int
	DefaultRetrieveK int
}

// SafetyConfig は安全ポリシー設定
type SafetyConfig struct {
	PolicyPath string
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "appliancerag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "appliancerag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
		},
		VectorStore: VectorStoreConfig{
			Backend:         strings.ToLower(getEnv("VECTOR_STORE_BACKEND", VectorBackendPgvector)),
			Collection:      getEnv("VECTOR_STORE_COLLECTION", "fridge_manuals"),
			QdrantURL:       getEnv("QDRANT_URL", "http://localhost:6333"),
			QdrantAPIKey:    getEnv("QDRANT_API_KEY", ""),
			UpsertBatchSize: getEnvAsInt("VECTOR_STORE_UPSERT_BATCH_SIZE", 100),
			RequestTimeout:  getEnvAsDuration("VECTOR_STORE_REQUEST_TIMEOUT", 30*time.Second),
		},
		Ingestion: IngestionConfig{
			SizeThresholdBytes: int64(getEnvAsInt("INGEST_SIZE_THRESHOLD_MB", 20)) * 1024 * 1024,
			CacheDir:           getEnv("INGEST_CACHE_DIR", "./data/cache"),
			PdftotextPath:      getEnv("INGEST_PDFTOTEXT_PATH", "pdftotext"),
			GCSCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			Concurrency:        getEnvAsInt("INGEST_CONCURRENCY", 4),
			GitDefaultBranch:   getEnv("GIT_DEFAULT_BRANCH", "main"),
			GitSSHKeyPath:      getEnv("GIT_SSH_KEY_PATH", ""),
			GitSSHPassword:     getEnv("GIT_SSH_PASSWORD", ""),
		},
		Chunking: ChunkingConfig{
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 512),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 50),
			Encoding:     getEnv("CHUNK_ENCODING", "cl100k_base"),
		},
		Embedding: EmbeddingConfig{
			BatchSize:    getEnvAsInt("EMBEDDING_BATCH_SIZE", 100),
			BatchDelay:   getEnvAsDuration("EMBEDDING_BATCH_DELAY", 500*time.Millisecond),
			BatchTimeout: getEnvAsDuration("EMBEDDING_BATCH_TIMEOUT", 60*time.Second),
		},
		Scoring: ScoringConfig{
			MismatchExactScore:   getEnvAsFloat("SCORING_MISMATCH_EXACT_SCORE", 0.5),
			MismatchPartialScore: getEnvAsFloat("SCORING_MISMATCH_PARTIAL_SCORE", 0.4),
			MismatchMinLength:    getEnvAsInt("SCORING_MISMATCH_MIN_LENGTH", 6),
			MismatchPrefixRatio:  getEnvAsFloat("SCORING_MISMATCH_PREFIX_RATIO", 0.8),
			MismatchLookupTopK:   getEnvAsInt("SCORING_MISMATCH_LOOKUP_TOP_K", 10),
			BrandPrefixFile:      getEnv("SCORING_BRAND_PREFIX_FILE", ""),
		},
		Search: SearchConfig{
			DefaultTopK:      getEnvAsInt("SEARCH_DEFAULT_TOP_K", 5),
			MinSimilarity:    getEnvAsFloat("SEARCH_MIN_SIMILARITY", 0.7),
			FallbackDelta:    getEnvAsFloat("SEARCH_FALLBACK_DELTA", 0.15),
			FallbackFloor:    getEnvAsFloat("SEARCH_FALLBACK_FLOOR", 0.5),
			OverFetchFactor:  getEnvAsInt("SEARCH_OVER_FETCH_FACTOR", 3),
			DefaultRetrieveK: getEnvAsInt("RETRIEVE_DEFAULT_TOP_K", 5),
		},
		Safety: SafetyConfig{
			PolicyPath: getEnv("SAFETY_POLICY_PATH", "./config/policy_safety.yaml"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate は設定値の整合性を検証します
func (c *Config) Validate() error {
	switch c.VectorStore.Backend {
	case VectorBackendPgvector, VectorBackendQdrant, VectorBackendMemory:
	default:
		return fmt.Errorf("unknown vector store backend: %s", c.VectorStore.Backend)
	}
	if c.OpenAI.EmbeddingDimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive: %d", c.OpenAI.EmbeddingDimension)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive: %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, %d): %d", c.Chunking.ChunkSize, c.Chunking.ChunkOverlap)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch size must be positive: %d", c.Embedding.BatchSize)
	}
	if c.VectorStore.UpsertBatchSize <= 0 {
		return fmt.Errorf("upsert batch size must be positive: %d", c.VectorStore.UpsertBatchSize)
	}
	if c.Ingestion.SizeThresholdBytes <= 0 {
		return fmt.Errorf("ingestion size threshold must be positive")
	}
	if c.Search.OverFetchFactor <= 0 {
		return fmt.Errorf("search over-fetch factor must be positive: %d", c.Search.OverFetchFactor)
	}
	return nil
}

// SlogLevel はログレベル文字列を slog.Level に変換します
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
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

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します（例: "500ms", "1m"）
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

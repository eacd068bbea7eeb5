package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath          string
	OutputDir       string
	SchemaCachePath string

	EmbedProvider   string
	EmbedBatchSize  int
	EmbedRateRPS    int
	EmbedCacheTTLs  int
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAITimeoutMs int
	ONNXModelPath   string
	ONNXTokenizer   string
	ONNXLibraryPath string
	ONNXMaxSeqLen   int
	ONNXQueryPrefix string
	ONNXDocPrefix   string

	RerankProvider  string
	RerankURL       string
	RerankModel     string
	RerankTimeoutMs int

	MatchLowThreshold   float64
	MatchHighThreshold  float64
	RerankHighThreshold float64

	SearchLimit     int
	OverfetchFactor int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:          getEnv("DB_PATH", filepath.Join(cwd, "data", "index.db")),
		OutputDir:       getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		SchemaCachePath: getEnv("SCHEMA_CACHE_PATH", filepath.Join(cwd, "data", "schema-cache.json")),

		EmbedProvider:   getEnv("EMBED_PROVIDER", "local"),
		EmbedBatchSize:  getEnvInt("EMBED_BATCH_SIZE", 32),
		EmbedRateRPS:    getEnvInt("EMBED_RATE_LIMIT_RPS", 5),
		EmbedCacheTTLs:  getEnvInt("EMBED_CACHE_TTL_SEC", 600),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:     getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		OpenAITimeoutMs: getEnvInt("OPENAI_TIMEOUT_MS", 30000),
		ONNXModelPath:   getEnv("ONNX_MODEL_PATH", ""),
		ONNXTokenizer:   getEnv("ONNX_TOKENIZER_PATH", ""),
		ONNXLibraryPath: getEnv("ONNX_LIBRARY_PATH", ""),
		ONNXMaxSeqLen:   getEnvInt("ONNX_MAX_SEQ_LEN", 256),
		ONNXQueryPrefix: getEnv("ONNX_QUERY_PREFIX", ""),
		ONNXDocPrefix:   getEnv("ONNX_DOC_PREFIX", ""),

		RerankProvider:  getEnv("RERANK_PROVIDER", "off"),
		RerankURL:       getEnv("RERANK_URL", ""),
		RerankModel:     getEnv("RERANK_MODEL", ""),
		RerankTimeoutMs: getEnvInt("RERANK_TIMEOUT_MS", 15000),

		MatchLowThreshold:   getEnvFloat("MATCH_LOW_THRESHOLD", 0.60),
		MatchHighThreshold:  getEnvFloat("MATCH_HIGH_THRESHOLD", 0.80),
		RerankHighThreshold: getEnvFloat("RERANK_HIGH_THRESHOLD", 0.90),

		SearchLimit:     getEnvInt("SEARCH_LIMIT", 5),
		OverfetchFactor: getEnvInt("SEARCH_OVERFETCH_FACTOR", 4),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

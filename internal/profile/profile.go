package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	LLMProvider string // Provider identifier: openai, deepseek, ollama
	LLMAPIKey   string
	LLMBaseURL  string // optional, has default per provider
	LLMModel    string // gpt-4o, deepseek-chat, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 60)

	// Embedding configuration
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingAPIKey    string
	EmbeddingBaseURL   string
	EmbeddingDimension int // fixed system-wide, must match any persisted snapshot
	EmbeddingBatchSize int
	EmbeddingTimeout   int // seconds

	// Retrieval configuration
	TopK               int     // default result count per query
	RelevanceThreshold float64 // scores below this are considered low-confidence
	EscalationPolicy   string  // CEL expression deciding specialist escalation

	// Pipeline configuration
	MaxConcurrentCalls int64 // bound on simultaneous outstanding provider calls

	Mode    string
	Addr    string
	Port    int
	Data    string
	DSN     string
	Version string
}

// Provider default configurations for LLM.
// Used when the base URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if a generation provider is configured.
// Without a key the pipeline still answers using deterministic fallbacks.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("BANKRAG_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("BANKRAG_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("BANKRAG_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("BANKRAG_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("BANKRAG_LLM_TIMEOUT_SECONDS", 60)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		p.LLMProvider = "openai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.EmbeddingProvider = getEnvOrDefault("BANKRAG_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingModel = getEnvOrDefault("BANKRAG_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingAPIKey = getEnvOrDefault("BANKRAG_EMBEDDING_API_KEY", p.LLMAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("BANKRAG_EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	p.EmbeddingDimension = getEnvOrDefaultInt("BANKRAG_EMBEDDING_DIMENSION", 1536)
	p.EmbeddingBatchSize = getEnvOrDefaultInt("BANKRAG_EMBEDDING_BATCH_SIZE", 10)
	p.EmbeddingTimeout = getEnvOrDefaultInt("BANKRAG_EMBEDDING_TIMEOUT_SECONDS", 30)

	p.TopK = getEnvOrDefaultInt("BANKRAG_RETRIEVAL_TOP_K", 3)
	p.RelevanceThreshold = getEnvOrDefaultFloat("BANKRAG_RELEVANCE_THRESHOLD", 0.4)
	p.EscalationPolicy = getEnvOrDefault("BANKRAG_ESCALATION_POLICY", "")

	p.MaxConcurrentCalls = int64(getEnvOrDefaultInt("BANKRAG_MAX_CONCURRENT_CALLS", 8))
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.EmbeddingDimension <= 0 {
		return errors.Errorf("invalid embedding dimension: %d", p.EmbeddingDimension)
	}
	if p.EmbeddingBatchSize <= 0 {
		p.EmbeddingBatchSize = 10
	}
	if p.TopK <= 0 {
		p.TopK = 3
	}
	if p.MaxConcurrentCalls <= 0 {
		p.MaxConcurrentCalls = 8
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.DSN == "" {
		dbFile := fmt.Sprintf("bankrag_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}

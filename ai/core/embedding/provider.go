// Package embedding turns text into fixed-dimension vectors through an
// OpenAI-compatible provider, with a deterministic offline fallback.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Embedder produces one vector per input text, order preserved.
type Embedder interface {
	// EmbedBatch embeds texts. The result is tagged as Fallback when the
	// provider could not be reached and deterministic mock vectors were
	// substituted; callers branch on the tag, not on an error.
	EmbedBatch(ctx context.Context, texts []string) (*BatchResult, error)

	// Dimension returns the fixed system-wide vector dimension.
	Dimension() int
}

// BatchResult is the typed outcome of an embedding call.
type BatchResult struct {
	Vectors  [][]float32
	Fallback bool
}

// Config represents embedding provider configuration.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Dimension         int
	BatchSize         int
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables client-side rate limiting
}

// DefaultConfig returns the default embedding configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://api.openai.com/v1",
		Model:             "text-embedding-3-small",
		Dimension:         1536,
		BatchSize:         10,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
	}
}

// Provider is the OpenAI-compatible embedding provider.
type Provider struct {
	client  *openai.Client
	config  *Config
	limiter *rate.Limiter
}

// NewProvider creates a new embedding Provider. Zero config values are
// filled with defaults.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = defaults.Dimension
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = newHTTPClient()

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Provider{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		limiter: limiter,
	}, nil
}

func (p *Provider) Dimension() int {
	return p.config.Dimension
}

// EmbedBatch embeds texts in batches of the configured size. Any provider
// failure (network error, quota, timeout) degrades the whole call to the
// deterministic mock path so identical text always yields identical vectors.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	if len(texts) == 0 {
		return &BatchResult{Vectors: [][]float32{}}, nil
	}

	if p.config.APIKey == "" {
		slog.Debug("embedding: no API key configured, using mock embeddings", "texts", len(texts))
		return p.mockBatch(texts), nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.config.BatchSize {
		end := start + p.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := p.embedOnce(ctx, texts[start:end])
		if err != nil {
			if isDimensionError(err) {
				// Wrong dimension is a configuration error, not a provider
				// hiccup. Surface it instead of masking with mock vectors.
				return nil, err
			}
			slog.Warn("embedding: provider call failed, falling back to mock embeddings",
				"error", err,
				"texts", len(texts),
			)
			return p.mockBatch(texts), nil
		}
		vectors = append(vectors, batch...)
	}

	return &BatchResult{Vectors: vectors}, nil
}

func (p *Provider) embedOnce(ctx context.Context, batch []string) ([][]float32, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      batch,
		Model:      openai.EmbeddingModel(p.config.Model),
		Dimensions: p.config.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d inputs", len(resp.Data), len(batch))
	}

	// The API documents ordering by Index; sort to be explicit about it.
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		if len(item.Embedding) != p.config.Dimension {
			return nil, &dimensionError{got: len(item.Embedding), want: p.config.Dimension}
		}
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

func (p *Provider) mockBatch(texts []string) *BatchResult {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = MockVector(text, p.config.Dimension)
	}
	return &BatchResult{Vectors: vectors, Fallback: true}
}

type dimensionError struct {
	got, want int
}

func (e *dimensionError) Error() string {
	return fmt.Sprintf("provider returned vectors of dimension %d, configured dimension is %d", e.got, e.want)
}

func isDimensionError(err error) bool {
	_, ok := err.(*dimensionError)
	return ok
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

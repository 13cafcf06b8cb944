// Package rag composes retrieval, prompt construction, and generation into
// a single query-answer operation.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/bankrag/ai/core/retrieval"
	"github.com/hrygo/bankrag/ai/metrics"
	"github.com/hrygo/bankrag/store"
)

// Source describes one retrieved document backing an answer.
type Source struct {
	Title    string         `json:"title"`
	Category store.Category `json:"category"`
	Score    float32        `json:"relevance_score"`
	Source   string         `json:"source"`
}

// QueryAnswer is the complete result of one pipeline run. The pipeline never
// partially returns: every query yields one of these, with confidence 0.0
// and an explanatory answer when nothing was retrievable.
type QueryAnswer struct {
	ID         string   `json:"id"`
	Query      string   `json:"query"`
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float32  `json:"confidence"`
	Escalate   bool     `json:"escalate"`
	Degraded   bool     `json:"degraded,omitempty"`
}

// Config represents pipeline configuration.
type Config struct {
	TopK               int     // default result count per query
	RelevanceThreshold float64 // feeds the default escalation expression
	EscalationPolicy   string  // CEL expression, empty derives one from the threshold
	MaxConcurrentCalls int64   // bound on simultaneous outstanding provider calls
}

// Pipeline answers queries: retrieve, build prompt, generate, attach sources
// and confidence. Instances are stateless per query and safe for concurrent
// use.
type Pipeline struct {
	retriever *retrieval.Retriever
	generator *Generator
	policy    *EscalationPolicy
	sem       *semaphore.Weighted
	topK      int
}

// NewPipeline creates a Pipeline.
func NewPipeline(retriever *retrieval.Retriever, generator *Generator, cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	maxCalls := cfg.MaxConcurrentCalls
	if maxCalls <= 0 {
		maxCalls = 8
	}

	expression := cfg.EscalationPolicy
	if expression == "" && cfg.RelevanceThreshold > 0 {
		expression = fmt.Sprintf("confidence < %g", cfg.RelevanceThreshold)
	}
	policy, err := NewEscalationPolicy(expression)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		retriever: retriever,
		generator: generator,
		policy:    policy,
		sem:       semaphore.NewWeighted(maxCalls),
		topK:      topK,
	}, nil
}

// Answer runs the full pipeline for one query. topK <= 0 selects the
// configured default. Provider failures degrade to fallbacks; the only
// errors returned are context cancellation and configuration-class faults.
func (p *Pipeline) Answer(ctx context.Context, query string, topK int) (*QueryAnswer, error) {
	startTime := time.Now()
	defer func() {
		metrics.QueryDuration.Observe(time.Since(startTime).Seconds())
	}()

	if topK <= 0 {
		topK = p.topK
	}

	// One permit covers the whole run, bounding outstanding external calls
	// (query embedding plus generation) under load.
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "failed to acquire pipeline slot")
	}
	defer p.sem.Release(1)

	answerID := shortuuid.New()
	slog.Debug("pipeline: query received", "id", answerID, "top_k", topK, "query_length", len(query))

	results, degraded, err := p.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		answer := &QueryAnswer{
			ID:         answerID,
			Query:      query,
			Answer:     "I couldn't find relevant information for your question. Please contact customer service.",
			Sources:    []Source{},
			Confidence: 0.0,
			Escalate:   p.policy.Evaluate(0.0, 0, degraded),
			Degraded:   degraded,
		}
		p.record(answer, "empty")
		return answer, nil
	}

	prompt := retrieval.BuildPrompt(query, results)
	generation := p.generator.Generate(ctx, prompt, results)
	if generation.Fallback {
		metrics.ProviderFallbackTotal.WithLabelValues("generation").Inc()
		degraded = true
	}

	confidence := results[0].Score
	answer := &QueryAnswer{
		ID:         answerID,
		Query:      query,
		Answer:     generation.Text,
		Sources:    buildSources(results),
		Confidence: confidence,
		Escalate:   p.policy.Evaluate(float64(confidence), len(results), degraded),
		Degraded:   degraded,
	}

	outcome := "answered"
	if degraded {
		outcome = "degraded"
	}
	p.record(answer, outcome)
	return answer, nil
}

func (p *Pipeline) record(answer *QueryAnswer, outcome string) {
	metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	if answer.Escalate {
		metrics.EscalationsTotal.Inc()
	}
	slog.Info("pipeline: query answered",
		"id", answer.ID,
		"outcome", outcome,
		"sources", len(answer.Sources),
		"confidence", answer.Confidence,
		"escalate", answer.Escalate,
	)
}

func buildSources(results []retrieval.Result) []Source {
	sources := make([]Source, len(results))
	for i, result := range results {
		sources[i] = Source{
			Title:    result.Document.Title,
			Category: result.Document.Category,
			Score:    result.Score,
			Source:   result.Document.Source,
		}
	}
	return sources
}

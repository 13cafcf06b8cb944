package retrieval

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hrygo/bankrag/ai/core/embedding"
	"github.com/hrygo/bankrag/ai/metrics"
	"github.com/hrygo/bankrag/store"
)

// DefaultTopK is the number of documents retrieved per query when the
// caller does not ask for a specific count.
const DefaultTopK = 3

// Result is one retrieved document with its similarity score and 1-based rank.
type Result struct {
	Document *store.Document
	Score    float32
	Rank     int
}

// Retriever embeds a query and searches the catalog for the most similar
// documents.
type Retriever struct {
	embedder embedding.Embedder
	catalog  *Catalog
}

// NewRetriever creates a new Retriever.
func NewRetriever(embedder embedding.Embedder, catalog *Catalog) *Retriever {
	return &Retriever{
		embedder: embedder,
		catalog:  catalog,
	}
}

// Retrieve returns the topK documents ranked by similarity to the query.
// An empty catalog yields an empty result set, not an error. The degraded
// flag is set when the query embedding came from the mock fallback path.
//
// Low-scoring results are returned rather than dropped; the pipeline treats
// them as low-confidence and lets escalation policy decide.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (results []Result, degraded bool, err error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	batch, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to embed query")
	}
	if len(batch.Vectors) != 1 {
		return nil, false, errors.Errorf("expected 1 query vector, got %d", len(batch.Vectors))
	}
	if batch.Fallback {
		metrics.ProviderFallbackTotal.WithLabelValues("embedding").Inc()
		slog.Warn("retriever: query embedded with mock fallback vector", "query_length", len(query))
	}

	results, err = r.catalog.Search(batch.Vectors[0], topK)
	if err != nil {
		return nil, batch.Fallback, errors.Wrap(err, "failed to search index")
	}

	slog.Debug("retriever: query served",
		"results", len(results),
		"top_k", topK,
		"degraded", batch.Fallback,
	)
	return results, batch.Fallback, nil
}

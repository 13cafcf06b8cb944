// Package retrieval maps queries to the most relevant knowledge documents
// by embedding similarity.
package retrieval

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/hrygo/bankrag/ai/core/embedding"
	"github.com/hrygo/bankrag/ai/format"
	"github.com/hrygo/bankrag/ai/metrics"
	"github.com/hrygo/bankrag/ai/vector"
	"github.com/hrygo/bankrag/store"
)

// Catalog owns the vector index together with the offset -> document table.
// Offsets are stable and match document insertion order; removal triggers a
// full rebuild, so both structures always change together under one lock.
type Catalog struct {
	mu       sync.RWMutex
	store    *store.Store
	embedder embedding.Embedder
	index    *vector.Index
	docs     []*store.Document
}

// NewCatalog creates a catalog backed by the given store and embedder.
func NewCatalog(s *store.Store, embedder embedding.Embedder) *Catalog {
	return &Catalog{
		store:    s,
		embedder: embedder,
	}
}

// Bootstrap loads the documents and restores the persisted index snapshot
// when it matches, otherwise embeds the corpus and persists a fresh snapshot.
// An empty corpus leaves the catalog serving empty results; it is a valid
// state, not an error.
func (c *Catalog) Bootstrap(ctx context.Context) error {
	docs, err := c.store.ListDocuments(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to load documents")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.docs = docs
	if len(docs) == 0 {
		slog.Warn("catalog: no documents loaded, serving empty results")
		c.index = nil
		metrics.DocumentsIndexed.Set(0)
		return nil
	}

	snapshot, err := c.store.LoadIndexSnapshot(ctx, c.embedder.Dimension())
	if err != nil {
		return errors.Wrap(err, "failed to load index snapshot")
	}
	if snapshot != nil && snapshotMatches(snapshot, docs) {
		// Snapshot vectors are already normalized; restore them as-is so
		// search scores match the pre-persistence index bit for bit.
		idx, err := vector.Restore(snapshot.Dimension, entryVectors(snapshot))
		if err != nil {
			return errors.Wrap(err, "failed to restore index from snapshot")
		}
		c.index = idx
		metrics.DocumentsIndexed.Set(float64(len(docs)))
		slog.Info("catalog: index restored from snapshot", "documents", len(docs))
		return nil
	}

	if err := c.rebuildLocked(ctx); err != nil {
		return err
	}
	slog.Info("catalog: index built from scratch", "documents", len(docs))
	return nil
}

// Search returns the topK most similar documents for an embedded query.
// The index search and the offset mapping happen under one read lock so a
// rebuild in progress can never mix old offsets with new documents.
func (c *Catalog) Search(queryVector []float32, topK int) ([]Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.index == nil || len(c.docs) == 0 {
		return []Result{}, nil
	}

	hits, err := c.index.Search(queryVector, topK)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for rank, hit := range hits {
		if hit.Offset >= len(c.docs) {
			return nil, errors.Errorf("index offset %d has no document (corpus size %d)", hit.Offset, len(c.docs))
		}
		results = append(results, Result{
			Document: c.docs[hit.Offset],
			Score:    hit.Score,
			Rank:     rank + 1,
		})
	}
	return results, nil
}

// AddDocument validates, embeds, persists, and appends a document to the
// index without disturbing existing offsets.
func (c *Catalog) AddDocument(ctx context.Context, doc *store.Document) error {
	batch, err := c.embedder.EmbedBatch(ctx, []string{format.PlainText(doc.EmbeddingText())})
	if err != nil {
		return errors.Wrap(err, "failed to embed document")
	}
	if batch.Fallback {
		metrics.ProviderFallbackTotal.WithLabelValues("embedding").Inc()
	}

	created, err := c.store.CreateDocument(ctx, doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil {
		idx, err := vector.New(c.embedder.Dimension())
		if err != nil {
			return err
		}
		c.index = idx
	}
	if err := c.index.Add(batch.Vectors); err != nil {
		return errors.Wrap(err, "failed to extend index")
	}
	c.docs = append(c.docs, created)
	metrics.DocumentsIndexed.Set(float64(len(c.docs)))

	if err := c.persistLocked(ctx); err != nil {
		return err
	}
	slog.Info("catalog: document added", "id", created.ID, "title", created.Title)
	return nil
}

// RemoveDocument deletes a document and rebuilds the index from the
// remaining vectors; offsets are never reused.
func (c *Catalog) RemoveDocument(ctx context.Context, id string) error {
	if err := c.store.DeleteDocument(ctx, id); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := -1
	for i, doc := range c.docs {
		if doc.ID == id {
			removed = i
			break
		}
	}
	if removed < 0 || c.index == nil {
		return errors.Errorf("document %s not present in catalog", id)
	}

	remaining := c.index.Entries()
	remaining = append(remaining[:removed], remaining[removed+1:]...)
	c.docs = append(c.docs[:removed], c.docs[removed+1:]...)

	if len(remaining) == 0 {
		c.index = nil
	} else if err := c.index.Rebuild(remaining); err != nil {
		return errors.Wrap(err, "failed to rebuild index")
	}
	metrics.DocumentsIndexed.Set(float64(len(c.docs)))

	if err := c.persistLocked(ctx); err != nil {
		return err
	}
	slog.Info("catalog: document removed", "id", id, "remaining", len(c.docs))
	return nil
}

// Reindex re-embeds every document, rebuilds the index, and persists a
// fresh snapshot.
func (c *Catalog) Reindex(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.rebuildLocked(ctx); err != nil {
		return err
	}
	slog.Info("catalog: reindex completed", "documents", len(c.docs))
	return nil
}

// Documents returns a copy of the documents in offset order.
func (c *Catalog) Documents() []*store.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*store.Document, len(c.docs))
	copy(out, c.docs)
	return out
}

// Categories returns document counts per category.
func (c *Catalog) Categories() map[store.Category]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[store.Category]int)
	for _, doc := range c.docs {
		counts[doc.Category]++
	}
	return counts
}

// Count returns the number of indexed documents.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Ready reports whether the index is built and serving.
func (c *Catalog) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index != nil
}

// rebuildLocked embeds all documents and rebuilds the index. Caller holds
// the write lock.
func (c *Catalog) rebuildLocked(ctx context.Context) error {
	if len(c.docs) == 0 {
		c.index = nil
		metrics.DocumentsIndexed.Set(0)
		return c.persistLocked(ctx)
	}

	texts := make([]string, len(c.docs))
	for i, doc := range c.docs {
		texts[i] = format.PlainText(doc.EmbeddingText())
	}

	batch, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return errors.Wrap(err, "failed to embed corpus")
	}
	if batch.Fallback {
		metrics.ProviderFallbackTotal.WithLabelValues("embedding").Inc()
		slog.Warn("catalog: corpus embedded with mock fallback vectors", "documents", len(c.docs))
	}

	idx, err := vector.Build(batch.Vectors)
	if err != nil {
		return errors.Wrap(err, "failed to build index")
	}
	c.index = idx
	metrics.DocumentsIndexed.Set(float64(len(c.docs)))

	return c.persistLocked(ctx)
}

// persistLocked writes the current index state as a snapshot. Caller holds
// the write lock.
func (c *Catalog) persistLocked(ctx context.Context) error {
	snapshot := &store.IndexSnapshot{Dimension: c.embedder.Dimension()}
	if c.index != nil {
		for i, v := range c.index.Entries() {
			snapshot.Entries = append(snapshot.Entries, store.SnapshotEntry{
				Position:   i,
				DocumentID: c.docs[i].ID,
				Embedding:  v,
			})
		}
	}
	return errors.Wrap(c.store.SaveIndexSnapshot(ctx, snapshot), "failed to persist index snapshot")
}

func snapshotMatches(snapshot *store.IndexSnapshot, docs []*store.Document) bool {
	if len(snapshot.Entries) != len(docs) {
		return false
	}
	for i, entry := range snapshot.Entries {
		if entry.DocumentID != docs[i].ID {
			return false
		}
	}
	return true
}

func entryVectors(snapshot *store.IndexSnapshot) [][]float32 {
	vectors := make([][]float32, len(snapshot.Entries))
	for i, entry := range snapshot.Entries {
		vectors[i] = entry.Embedding
	}
	return vectors
}

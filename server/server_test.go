package server

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/bankrag/ai/core/embedding"
	"github.com/hrygo/bankrag/ai/core/retrieval"
	"github.com/hrygo/bankrag/ai/rag"
	"github.com/hrygo/bankrag/internal/profile"
	"github.com/hrygo/bankrag/store"
	"github.com/hrygo/bankrag/store/db/sqlite"
)

type bagEmbedder struct {
	dim int
}

func (e *bagEmbedder) Dimension() int { return e.dim }

func (e *bagEmbedder) EmbedBatch(_ context.Context, texts []string) (*embedding.BatchResult, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, e.dim)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, word := range words {
			h := fnv.New32a()
			h.Write([]byte(word))
			v[h.Sum32()%uint32(e.dim)]++
		}
		vectors[i] = v
	}
	return &embedding.BatchResult{Vectors: vectors}, nil
}

func serverFixtures() []*store.Document {
	return []*store.Document{
		{
			ID:       "doc_loans",
			Title:    "Personal Loan Requirements",
			Content:  "To qualify for a personal loan you need a minimum credit score of 650, proof of steady income, and two years of employment history.",
			Category: store.CategoryLoans,
			Source:   "loan_policy",
		},
		{
			ID:       "doc_credit",
			Title:    "Credit Card Application Process",
			Content:  "Apply online in minutes. Approval depends on your credit history and existing card balances.",
			Category: store.CategoryCredit,
			Source:   "card_handbook",
		},
		{
			ID:       "doc_rates",
			Title:    "Savings Account Interest Rates",
			Content:  "Standard savings accounts earn a variable interest rate, reviewed quarterly by the bank.",
			Category: store.CategoryRates,
			Source:   "rate_sheet",
		},
	}
}

func newTestServer(t *testing.T, docs []*store.Document) *Server {
	t.Helper()
	ctx := context.Background()

	p := &profile.Profile{
		Mode:           "dev",
		DSN:            filepath.Join(t.TempDir(), "bankrag_test.db"),
		EmbeddingModel: "text-embedding-3-small",
		LLMModel:       "gpt-4o",
		Version:        "1.0.0",
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	for _, doc := range docs {
		_, err := st.CreateDocument(ctx, doc)
		require.NoError(t, err)
	}

	embedder := &bagEmbedder{dim: 256}
	catalog := retrieval.NewCatalog(st, embedder)
	require.NoError(t, catalog.Bootstrap(ctx))
	retriever := retrieval.NewRetriever(embedder, catalog)

	pipeline, err := rag.NewPipeline(retriever, rag.NewGenerator(nil), nil)
	require.NoError(t, err)

	return NewServer(p, st, catalog, pipeline)
}

func doRequest(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	payload := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, serverFixtures())
	rec := doRequest(t, s.Echo(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, serverFixtures())
	rec := doRequest(t, s.Echo(), http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	assert.Equal(t, "Banking RAG Service", payload["service"])
	assert.Equal(t, "healthy", payload["status"])
	assert.Equal(t, float64(3), payload["documents_loaded"])
	assert.Equal(t, true, payload["index_ready"])
	assert.Equal(t, "text-embedding-3-small", payload["embedding_model"])
	assert.Equal(t, "gpt-4o", payload["chat_model"])
}

func TestHealth_EmptyCorpusIsDegraded(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doRequest(t, s.Echo(), http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	assert.Equal(t, "degraded", payload["status"])
	assert.Equal(t, false, payload["index_ready"])
}

func TestQuery(t *testing.T) {
	s := newTestServer(t, serverFixtures())
	rec := doRequest(t, s.Echo(), http.MethodPost, "/api/v1/query", map[string]any{
		"query": "What are the requirements for getting a personal loan?",
		"top_k": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	assert.NotEmpty(t, payload["id"])
	assert.Equal(t, "What are the requirements for getting a personal loan?", payload["query"])
	assert.NotEmpty(t, payload["answer"])
	assert.NotNil(t, payload["confidence"])

	sources, ok := payload["sources"].([]any)
	require.True(t, ok)
	require.Len(t, sources, 3)
	first, ok := sources[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Personal Loan Requirements", first["title"])
	assert.Equal(t, "loans", first["category"])
	assert.NotNil(t, first["relevance_score"])
}

func TestQuery_EmptyQueryRejected(t *testing.T) {
	s := newTestServer(t, serverFixtures())
	rec := doRequest(t, s.Echo(), http.MethodPost, "/api/v1/query", map[string]any{"query": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "query is required")
}

func TestQuery_MalformedBodyRejected(t *testing.T) {
	s := newTestServer(t, serverFixtures())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchQuery(t *testing.T) {
	s := newTestServer(t, serverFixtures())
	rec := doRequest(t, s.Echo(), http.MethodPost, "/api/v1/batch", map[string]any{
		"queries": []string{"personal loan requirements", "  ", "savings interest rates"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	assert.Equal(t, float64(2), payload["count"])
	answers, ok := payload["answers"].([]any)
	require.True(t, ok)
	assert.Len(t, answers, 2)
}

func TestBatchQuery_Limits(t *testing.T) {
	s := newTestServer(t, serverFixtures())

	rec := doRequest(t, s.Echo(), http.MethodPost, "/api/v1/batch", map[string]any{"queries": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tooMany := make([]string, maxBatchQueries+1)
	for i := range tooMany {
		tooMany[i] = "question"
	}
	rec = doRequest(t, s.Echo(), http.MethodPost, "/api/v1/batch", map[string]any{"queries": tooMany})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many queries")
}

func TestCategories(t *testing.T) {
	s := newTestServer(t, serverFixtures())
	rec := doRequest(t, s.Echo(), http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	assert.Equal(t, float64(3), payload["total"])
	categories, ok := payload["categories"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), categories["loans"])
	assert.Equal(t, float64(1), categories["credit"])
	assert.Equal(t, float64(1), categories["rates"])
}

func TestDocuments_ListAddDelete(t *testing.T) {
	s := newTestServer(t, serverFixtures())
	e := s.Echo()

	rec := doRequest(t, e, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeBody(t, rec)["count"])

	// Add without an ID: one is generated.
	rec = doRequest(t, e, http.MethodPost, "/api/v1/documents", map[string]any{
		"title":    "Mobile Banking Setup",
		"content":  "Download the app and enroll with your account number and debit card.",
		"category": "digital",
		"source":   "app_guide",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	generatedID, ok := created["id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, generatedID)

	rec = doRequest(t, e, http.MethodGet, "/api/v1/documents", nil)
	assert.Equal(t, float64(4), decodeBody(t, rec)["count"])

	// Duplicate IDs conflict.
	rec = doRequest(t, e, http.MethodPost, "/api/v1/documents", map[string]any{
		"id":       "doc_loans",
		"title":    "Duplicate",
		"content":  "Duplicate content.",
		"category": "loans",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Invalid documents are rejected before touching the catalog.
	rec = doRequest(t, e, http.MethodPost, "/api/v1/documents", map[string]any{
		"title":    "No category",
		"content":  "Missing the category field.",
		"category": "astrology",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, e, http.MethodDelete, "/api/v1/documents/"+generatedID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	assert.Equal(t, generatedID, payload["deleted"])
	assert.Equal(t, float64(3), payload["remaining"])

	rec = doRequest(t, e, http.MethodDelete, "/api/v1/documents/doc_unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReindex(t *testing.T) {
	s := newTestServer(t, serverFixtures())
	rec := doRequest(t, s.Echo(), http.MethodPost, "/api/v1/reindex", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeBody(t, rec)["reindexed"])
}

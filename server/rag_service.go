package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/bankrag/ai/rag"
	"github.com/hrygo/bankrag/internal/version"
	"github.com/hrygo/bankrag/store"
)

// maxBatchQueries bounds one batch request; larger batches should be split
// by the caller.
const maxBatchQueries = 10

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type batchRequest struct {
	Queries []string `json:"queries"`
	TopK    int      `json:"top_k"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) health(c echo.Context) error {
	status := "healthy"
	if !s.catalog.Ready() {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"service":          "Banking RAG Service",
		"version":          version.GetCurrentVersion(s.profile.Mode),
		"status":           status,
		"documents_loaded": s.catalog.Count(),
		"index_ready":      s.catalog.Ready(),
		"embedding_model":  s.profile.EmbeddingModel,
		"chat_model":       s.profile.LLMModel,
	})
}

func (s *Server) query(c echo.Context) error {
	req := &queryRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "query is required"})
	}

	answer, err := s.pipeline.Answer(c.Request().Context(), req.Query, req.TopK)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, answer)
}

func (s *Server) batchQuery(c echo.Context) error {
	req := &batchRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if len(req.Queries) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "queries is required"})
	}
	if len(req.Queries) > maxBatchQueries {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "too many queries in one batch"})
	}

	answers := make([]*rag.QueryAnswer, 0, len(req.Queries))
	for _, query := range req.Queries {
		if strings.TrimSpace(query) == "" {
			continue
		}
		answer, err := s.pipeline.Answer(c.Request().Context(), query, req.TopK)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
		answers = append(answers, answer)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"answers": answers,
		"count":   len(answers),
	})
}

func (s *Server) categories(c echo.Context) error {
	counts := s.catalog.Categories()
	categories := make(map[string]int, len(counts))
	for category, count := range counts {
		categories[string(category)] = count
	}
	return c.JSON(http.StatusOK, map[string]any{
		"categories": categories,
		"total":      s.catalog.Count(),
	})
}

func (s *Server) listDocuments(c echo.Context) error {
	docs := s.catalog.Documents()
	list := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		list = append(list, map[string]any{
			"id":             doc.ID,
			"title":          doc.Title,
			"category":       doc.Category,
			"source":         doc.Source,
			"content_length": len(doc.Content),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"documents": list,
		"count":     len(list),
	})
}

func (s *Server) addDocument(c echo.Context) error {
	doc := &store.Document{}
	if err := c.Bind(doc); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if err := doc.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	if err := s.catalog.AddDocument(c.Request().Context(), doc); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusCreated, doc)
}

func (s *Server) deleteDocument(c echo.Context) error {
	id := c.Param("id")
	if err := s.catalog.RemoveDocument(c.Request().Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"deleted":   id,
		"remaining": s.catalog.Count(),
	})
}

func (s *Server) reindex(c echo.Context) error {
	if err := s.catalog.Reindex(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"reindexed": s.catalog.Count(),
	})
}

package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/vector"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusForError maps coordinator errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, memory.ErrValidation),
		errors.Is(err, storage.ErrInvalidReference):
		return fiber.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, storage.ErrUnavailable),
		errors.Is(err, embeddings.ErrUnavailable),
		errors.Is(err, vector.ErrConnection):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(ErrorResponse{Error: err.Error()})
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

type recordDecisionRequest struct {
	Decision     string   `json:"decision"`
	Context      string   `json:"context"`
	Alternatives []string `json:"alternatives,omitempty"`
	Impact       string   `json:"impact,omitempty"`
	Project      string   `json:"project,omitempty"`
}

type recordDecisionResponse struct {
	StructuredID string `json:"structured_id"`
	EmbeddingRef string `json:"embedding_ref,omitempty"`
	Warning      string `json:"warning,omitempty"`
}

// handleRecordDecision handles POST /v1/memory/decisions.
func (s *Server) handleRecordDecision(c *fiber.Ctx) error {
	var req recordDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	result, err := s.coordinator.RecordDecision(c.Context(), memory.RecordDecisionInput{
		Decision:     req.Decision,
		Context:      req.Context,
		Alternatives: req.Alternatives,
		Impact:       req.Impact,
		Project:      req.Project,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(recordDecisionResponse{
		StructuredID: result.StructuredID,
		EmbeddingRef: result.EmbeddingRef,
		Warning:      result.Warning,
	})
}

type relateDecisionsRequest struct {
	DecisionID   string  `json:"decision_id"`
	RelatedID    string  `json:"related_id"`
	RelationType string  `json:"relation_type"`
	Strength     float64 `json:"strength"`
}

// handleRelateDecisions handles POST /v1/memory/relations.
func (s *Server) handleRelateDecisions(c *fiber.Ctx) error {
	var req relateDecisionsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	relation, err := s.coordinator.RelateDecisions(c.Context(), memory.RelateDecisionsInput{
		DecisionID:   req.DecisionID,
		RelatedID:    req.RelatedID,
		RelationType: req.RelationType,
		Strength:     req.Strength,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(relation)
}

type trackProgressRequest struct {
	Milestone string   `json:"milestone"`
	Status    string   `json:"status"`
	Notes     string   `json:"notes,omitempty"`
	Blockers  []string `json:"blockers,omitempty"`
	Project   string   `json:"project,omitempty"`
}

// handleTrackProgress handles POST /v1/memory/progress.
func (s *Server) handleTrackProgress(c *fiber.Ctx) error {
	var req trackProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	result, err := s.coordinator.TrackProgress(c.Context(), memory.TrackProgressInput{
		Milestone: req.Milestone,
		Status:    req.Status,
		Notes:     req.Notes,
		Blockers:  req.Blockers,
		Project:   req.Project,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(result)
}

type addCodePatternRequest struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
	Project  string `json:"project,omitempty"`
}

type addCodePatternResponse struct {
	ID           string `json:"id"`
	EmbeddingRef string `json:"embedding_ref,omitempty"`
	Status       string `json:"status"`
	Warning      string `json:"warning,omitempty"`
}

// handleAddCodePattern handles POST /v1/memory/patterns.
func (s *Server) handleAddCodePattern(c *fiber.Ctx) error {
	var req addCodePatternRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	result, err := s.coordinator.AddCodePattern(c.Context(), memory.AddCodePatternInput{
		FilePath: req.FilePath,
		Content:  req.Content,
		Language: req.Language,
		Project:  req.Project,
	})
	if err != nil {
		return s.fail(c, err)
	}

	status := fiber.StatusCreated
	if result.Status == memory.StatusExists {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(addCodePatternResponse{
		ID:           result.ID,
		EmbeddingRef: result.EmbeddingRef,
		Status:       result.Status,
		Warning:      result.Warning,
	})
}

type searchResponse struct {
	Query   string             `json:"query"`
	Results []memory.SearchHit `json:"results"`
	Count   int                `json:"count"`
}

// handleSearch handles GET /v1/memory/search.
// Query parameters:
//   - query (required): the search query text
//   - category (required): "decisions" or "code_patterns"
//   - project (optional): restrict hits to one project
//   - limit (optional, default 10)
//   - threshold (optional, default 0.7)
func (s *Server) handleSearch(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
	}
	threshold, err := queryFloat(c, "threshold")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "threshold must be a number"})
	}

	hits, err := s.coordinator.SemanticSearch(c.Context(), memory.SearchInput{
		Query:     c.Query("query"),
		Category:  c.Query("category"),
		Project:   c.Query("project"),
		Limit:     limit,
		Threshold: threshold,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(searchResponse{
		Query:   c.Query("query"),
		Results: hits,
		Count:   len(hits),
	})
}

// handleIdentifyDuplicates handles GET /v1/memory/duplicates.
// Query parameters:
//   - descriptor (required): text describing the proposed feature
//   - threshold (optional, default 0.7)
func (s *Server) handleIdentifyDuplicates(c *fiber.Ctx) error {
	threshold, err := queryFloat(c, "threshold")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "threshold must be a number"})
	}

	hits, err := s.coordinator.IdentifyDuplicates(c.Context(), c.Query("descriptor"), threshold)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(searchResponse{
		Query:   c.Query("descriptor"),
		Results: hits,
		Count:   len(hits),
	})
}

type projectMemoryResponse struct {
	Entries []memory.MemoryEntry `json:"entries"`
	Count   int                  `json:"count"`
}

// handleGetProjectMemory handles GET /v1/memory.
// Query parameters:
//   - category (required): "decisions", "progress", or "code_patterns"
//   - query (optional): semantic refinement
//   - project (optional, default "default")
//   - limit (optional, default 10)
func (s *Server) handleGetProjectMemory(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
	}

	entries, err := s.coordinator.GetProjectMemory(c.Context(), memory.ProjectMemoryInput{
		Category: c.Query("category"),
		Query:    c.Query("query"),
		Project:  c.Query("project"),
		Limit:    limit,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(projectMemoryResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

func queryInt(c *fiber.Ctx, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fiber.ErrBadRequest
	}
	return n, nil
}

func queryFloat(c *fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fiber.ErrBadRequest
	}
	return f, nil
}

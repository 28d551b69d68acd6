package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	searchMemoryToolName    = "search_memory"
	searchMemoryDescription = "Search stored decisions or code patterns by meaning rather than keywords. Returns the most similar records above the similarity threshold, best match first."

	similarPatternsToolName    = "find_similar_patterns"
	similarPatternsDescription = "Check whether functionality similar to a proposed feature already exists. Searches stored code patterns across all projects; a non-empty result means the feature may duplicate prior work."
)

// SearchMemoryInput represents the input arguments for the search_memory tool.
type SearchMemoryInput struct {
	Query     string  `json:"query" jsonschema:"the search query text"`
	Category  string  `json:"category" jsonschema:"which records to search: decisions or code_patterns"`
	Project   string  `json:"project,omitempty" jsonschema:"restrict hits to one project"`
	Limit     int     `json:"limit,omitempty" jsonschema:"maximum number of results (default: 10)"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"minimum similarity between 0 and 1 (default: 0.7)"`
}

// SearchMemoryOutput represents the output of the search_memory tool.
type SearchMemoryOutput struct {
	Query   string             `json:"query"`
	Results []memory.SearchHit `json:"results"`
	Count   int                `json:"count"`
}

// handleSearchMemory processes a search_memory request.
func (s *Server) handleSearchMemory(ctx context.Context, _ *mcp.CallToolRequest, input SearchMemoryInput) (*mcp.CallToolResult, SearchMemoryOutput, error) {
	s.config.Logger.Debug("MCP search_memory request",
		zap.String("query", input.Query),
		zap.String("category", input.Category),
	)

	hits, err := s.config.Coordinator.SemanticSearch(ctx, memory.SearchInput{
		Query:     input.Query,
		Category:  input.Category,
		Project:   input.Project,
		Limit:     input.Limit,
		Threshold: input.Threshold,
	})
	if err != nil {
		return toolError(fmt.Sprintf("Search failed: %v", err)), SearchMemoryOutput{}, nil
	}

	if hits == nil {
		hits = []memory.SearchHit{}
	}

	output := SearchMemoryOutput{
		Query:   input.Query,
		Results: hits,
		Count:   len(hits),
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), SearchMemoryOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

// FindSimilarPatternsInput represents the input arguments for the find_similar_patterns tool.
type FindSimilarPatternsInput struct {
	Descriptor string  `json:"descriptor" jsonschema:"text describing the proposed feature or functionality"`
	Threshold  float64 `json:"threshold,omitempty" jsonschema:"minimum similarity between 0 and 1 (default: 0.7)"`
}

// FindSimilarPatternsOutput represents the output of the find_similar_patterns tool.
type FindSimilarPatternsOutput struct {
	Descriptor string             `json:"descriptor"`
	Results    []memory.SearchHit `json:"results"`
	Count      int                `json:"count"`
}

// handleFindSimilarPatterns processes a find_similar_patterns request.
func (s *Server) handleFindSimilarPatterns(ctx context.Context, _ *mcp.CallToolRequest, input FindSimilarPatternsInput) (*mcp.CallToolResult, FindSimilarPatternsOutput, error) {
	hits, err := s.config.Coordinator.IdentifyDuplicates(ctx, input.Descriptor, input.Threshold)
	if err != nil {
		return toolError(fmt.Sprintf("Duplicate check failed: %v", err)), FindSimilarPatternsOutput{}, nil
	}

	if hits == nil {
		hits = []memory.SearchHit{}
	}

	output := FindSimilarPatternsOutput{
		Descriptor: input.Descriptor,
		Results:    hits,
		Count:      len(hits),
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), FindSimilarPatternsOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

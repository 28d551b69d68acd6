package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	projectMemoryToolName    = "get_project_memory"
	projectMemoryDescription = "List a project's stored memory for one category (decisions, progress, or code_patterns), most recent first. An optional query reorders the listing so semantically relevant entries lead."
)

// GetProjectMemoryInput represents the input arguments for the get_project_memory tool.
type GetProjectMemoryInput struct {
	Category string `json:"category" jsonschema:"which records to list: decisions, progress, or code_patterns"`
	Query    string `json:"query,omitempty" jsonschema:"optional text to rank relevant entries first"`
	Project  string `json:"project,omitempty" jsonschema:"project namespace (default: 'default')"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of entries (default: 10)"`
}

// GetProjectMemoryOutput represents the output of the get_project_memory tool.
type GetProjectMemoryOutput struct {
	Entries []memory.MemoryEntry `json:"entries"`
	Count   int                  `json:"count"`
}

// handleGetProjectMemory processes a get_project_memory request.
func (s *Server) handleGetProjectMemory(ctx context.Context, _ *mcp.CallToolRequest, input GetProjectMemoryInput) (*mcp.CallToolResult, GetProjectMemoryOutput, error) {
	entries, err := s.config.Coordinator.GetProjectMemory(ctx, memory.ProjectMemoryInput{
		Category: input.Category,
		Query:    input.Query,
		Project:  input.Project,
		Limit:    input.Limit,
	})
	if err != nil {
		return toolError(fmt.Sprintf("Failed to get project memory: %v", err)), GetProjectMemoryOutput{}, nil
	}

	if entries == nil {
		entries = []memory.MemoryEntry{}
	}

	output := GetProjectMemoryOutput{
		Entries: entries,
		Count:   len(entries),
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), GetProjectMemoryOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

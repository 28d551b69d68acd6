package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	addCodePatternToolName    = "add_code_pattern"
	addCodePatternDescription = "Store a reusable code pattern for later semantic recall and duplicate detection. Resubmitting the same file path and content length is recognized as a duplicate and returns the existing record without re-embedding."
)

// AddCodePatternInput represents the input arguments for the add_code_pattern tool.
type AddCodePatternInput struct {
	FilePath string `json:"file_path" jsonschema:"path of the file the pattern comes from"`
	Content  string `json:"content" jsonschema:"the pattern's source text"`
	Language string `json:"language,omitempty" jsonschema:"programming language of the content"`
	Project  string `json:"project,omitempty" jsonschema:"project namespace (default: 'default')"`
}

// AddCodePatternOutput represents the output of the add_code_pattern tool.
type AddCodePatternOutput struct {
	ID           string `json:"id"`
	EmbeddingRef string `json:"embedding_ref,omitempty"`
	Status       string `json:"status"`
	Warning      string `json:"warning,omitempty"`
}

// handleAddCodePattern processes an add_code_pattern request.
func (s *Server) handleAddCodePattern(ctx context.Context, _ *mcp.CallToolRequest, input AddCodePatternInput) (*mcp.CallToolResult, AddCodePatternOutput, error) {
	result, err := s.config.Coordinator.AddCodePattern(ctx, memory.AddCodePatternInput{
		FilePath: input.FilePath,
		Content:  input.Content,
		Language: input.Language,
		Project:  input.Project,
	})
	if err != nil {
		return toolError(fmt.Sprintf("Failed to add code pattern: %v", err)), AddCodePatternOutput{}, nil
	}

	output := AddCodePatternOutput{
		ID:           result.ID,
		EmbeddingRef: result.EmbeddingRef,
		Status:       result.Status,
		Warning:      result.Warning,
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize result: %v", err)), AddCodePatternOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

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
	recordDecisionToolName    = "record_decision"
	recordDecisionDescription = "Record an engineering decision with its rationale so it can be recalled later, both by listing and by semantic search. Returns the stored record's identifiers; a warning is set when the decision was stored but could not be semantically indexed."
)

// RecordDecisionInput represents the input arguments for the record_decision tool.
type RecordDecisionInput struct {
	Decision     string   `json:"decision" jsonschema:"the decision that was made"`
	Context      string   `json:"context,omitempty" jsonschema:"why the decision was made"`
	Alternatives []string `json:"alternatives,omitempty" jsonschema:"options that were considered and rejected"`
	Impact       string   `json:"impact,omitempty" jsonschema:"expected impact, e.g. low, medium, high"`
	Project      string   `json:"project,omitempty" jsonschema:"project namespace (default: 'default')"`
}

// RecordDecisionOutput represents the output of the record_decision tool.
type RecordDecisionOutput struct {
	ID           string `json:"id"`
	EmbeddingRef string `json:"embedding_ref,omitempty"`
	Warning      string `json:"warning,omitempty"`
}

// handleRecordDecision processes a record_decision request.
func (s *Server) handleRecordDecision(ctx context.Context, _ *mcp.CallToolRequest, input RecordDecisionInput) (*mcp.CallToolResult, RecordDecisionOutput, error) {
	s.config.Logger.Debug("MCP record_decision request",
		zap.String("project", input.Project),
	)

	result, err := s.config.Coordinator.RecordDecision(ctx, memory.RecordDecisionInput{
		Decision:     input.Decision,
		Context:      input.Context,
		Alternatives: input.Alternatives,
		Impact:       input.Impact,
		Project:      input.Project,
	})
	if err != nil {
		return toolError(fmt.Sprintf("Failed to record decision: %v", err)), RecordDecisionOutput{}, nil
	}

	output := RecordDecisionOutput{
		ID:           result.StructuredID,
		EmbeddingRef: result.EmbeddingRef,
		Warning:      result.Warning,
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize result: %v", err)), RecordDecisionOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

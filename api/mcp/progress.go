package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	trackProgressToolName    = "track_progress"
	trackProgressDescription = "Record or update the status of a project milestone. Repeated calls for the same milestone merge into one row: the status always updates, while empty notes and blockers preserve the previous values."
)

// TrackProgressInput represents the input arguments for the track_progress tool.
type TrackProgressInput struct {
	Milestone string   `json:"milestone" jsonschema:"the milestone being tracked"`
	Status    string   `json:"status" jsonschema:"one of: not_started, in_progress, testing, completed, blocked"`
	Notes     string   `json:"notes,omitempty" jsonschema:"free-form notes about the current state"`
	Blockers  []string `json:"blockers,omitempty" jsonschema:"things currently blocking the milestone"`
	Project   string   `json:"project,omitempty" jsonschema:"project namespace (default: 'default')"`
}

// TrackProgressOutput represents the output of the track_progress tool.
type TrackProgressOutput struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleTrackProgress processes a track_progress request.
func (s *Server) handleTrackProgress(ctx context.Context, _ *mcp.CallToolRequest, input TrackProgressInput) (*mcp.CallToolResult, TrackProgressOutput, error) {
	result, err := s.config.Coordinator.TrackProgress(ctx, memory.TrackProgressInput{
		Milestone: input.Milestone,
		Status:    input.Status,
		Notes:     input.Notes,
		Blockers:  input.Blockers,
		Project:   input.Project,
	})
	if err != nil {
		return toolError(fmt.Sprintf("Failed to track progress: %v", err)), TrackProgressOutput{}, nil
	}

	output := TrackProgressOutput{
		ID:        result.ID,
		Status:    result.Status,
		UpdatedAt: result.UpdatedAt,
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize result: %v", err)), TrackProgressOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

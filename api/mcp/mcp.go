// Package mcp provides an MCP (Model Context Protocol) server over the
// memory engine, so agent sessions can record and recall project memory.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/utils"
)

type Config struct {
	// Coordinator performs all reads and writes; tools are thin callers.
	Coordinator *memory.Coordinator

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server exposing the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "engram",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Coordinator == nil {
		return nil, errors.New("memory coordinator is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        recordDecisionToolName,
		Description: recordDecisionDescription,
	}, s.handleRecordDecision)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        trackProgressToolName,
		Description: trackProgressDescription,
	}, s.handleTrackProgress)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        searchMemoryToolName,
		Description: searchMemoryDescription,
	}, s.handleSearchMemory)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        projectMemoryToolName,
		Description: projectMemoryDescription,
	}, s.handleGetProjectMemory)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        addCodePatternToolName,
		Description: addCodePatternDescription,
	}, s.handleAddCodePattern)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        similarPatternsToolName,
		Description: similarPatternsDescription,
	}, s.handleFindSimilarPatterns)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server, or nil when the
// server was built with Noop set.
func (s *Server) Handler() http.Handler {
	if s.handler == nil {
		return nil
	}
	return s.handler
}

// toolError wraps a failure message as a tool-level error result.
func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

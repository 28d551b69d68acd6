package api

import (
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
)

// Server is the API server for writing and querying the memory engine.
type Server struct {
	config      Config
	coordinator *memory.Coordinator
	logger      *zap.Logger
	app         *fiber.App
}

// NewServer creates a new API server. The coordinator is injected to allow
// sharing with other components; mcpHandler, when non-nil, is mounted at
// /mcp so MCP clients and the REST surface share one listener.
func NewServer(config Config, coordinator *memory.Coordinator, mcpHandler http.Handler, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:      config,
		coordinator: coordinator,
		logger:      logger,
		app:         app,
	}

	app.Get("/ping", s.handlePing)

	app.Post("/v1/memory/decisions", s.handleRecordDecision)
	app.Post("/v1/memory/relations", s.handleRelateDecisions)
	app.Post("/v1/memory/progress", s.handleTrackProgress)
	app.Post("/v1/memory/patterns", s.handleAddCodePattern)
	app.Get("/v1/memory/search", s.handleSearch)
	app.Get("/v1/memory/duplicates", s.handleIdentifyDuplicates)
	app.Get("/v1/memory", s.handleGetProjectMemory)

	if mcpHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(mcpHandler))
		app.All("/mcp/*", adaptor.HTTPHandler(mcpHandler))
	}

	return s
}

// App returns the underlying fiber app, used by tests to issue requests
// without a listener.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Package servecmder provides the serve command for running the memory
// engine's API and MCP server.
package servecmder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/api"
	"github.com/papercomputeco/engram/api/mcp"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/engram/pkg/embeddings/utils"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/kafka"
	"github.com/papercomputeco/engram/pkg/eventstream/nop"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage/sqlite"
	vectorutils "github.com/papercomputeco/engram/pkg/vector/utils"
)

type ServeCommander struct {
	listen     string
	sqlitePath string
	noMCP      bool
	debug      bool
	configDir  string
	logger     *zap.Logger
}

const serveLongDesc string = `Run the engram memory server.

Serves the REST API and, unless disabled, an MCP endpoint at /mcp on the
same listener. Configuration follows config.toml in the .engram/ directory,
overridable via ENGRAM_* environment variables and CLI flags.

Examples:
  engram serve
  engram serve --listen :9000
  engram serve --sqlite /var/lib/engram/memory.db --no-mcp`

const serveShortDesc string = "Run the engram memory server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for the API server to listen on")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to the structured SQLite database")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Disable the MCP endpoint")

	return cmd
}

func (c *ServeCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}

	// Flags outrank environment and file values.
	if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
		v.Set("api.listen", c.listen)
	}
	if f := cmd.Flags().Lookup("sqlite"); f != nil && f.Changed {
		v.Set("storage.sqlite_path", c.sqlitePath)
	}

	dataDir, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return fmt.Errorf("resolving data dir: %w", err)
	}

	ctx := context.Background()

	coordinator, err := c.buildCoordinator(ctx, v, dataDir)
	if err != nil {
		return err
	}
	defer coordinator.Close()

	mcpHandler, err := c.buildMCPHandler(coordinator)
	if err != nil {
		return err
	}

	apiServer := api.NewServer(api.Config{
		ListenAddr: v.GetString("api.listen"),
	}, coordinator, mcpHandler, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}

func (c *ServeCommander) buildCoordinator(ctx context.Context, v *viper.Viper, dataDir string) (*memory.Coordinator, error) {
	sqlitePath := v.GetString("storage.sqlite_path")
	if sqlitePath == "" {
		sqlitePath = filepath.Join(dataDir, "memory.db")
	}

	store, err := sqlite.NewStore(sqlite.Config{DBPath: sqlitePath}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating structured store: %w", err)
	}
	c.logger.Info("using SQLite storage", zap.String("path", sqlitePath))

	vectorPath := v.GetString("vector_store.path")
	if vectorPath == "" {
		vectorPath = filepath.Join(dataDir, "vectors.db")
	}

	vectorDriver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: v.GetString("vector_store.provider"),
		Path:         vectorPath,
		TargetURL:    v.GetString("vector_store.target"),
		Dimensions:   v.GetUint("embedding.dimensions"),
		Logger:       c.logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}
	c.logger.Info("using vector store",
		zap.String("provider", v.GetString("vector_store.provider")),
	)

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: v.GetString("embedding.provider"),
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
	})
	if err != nil {
		vectorDriver.Close()
		store.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	publisher, err := c.newPublisher(v)
	if err != nil {
		embedder.Close()
		vectorDriver.Close()
		store.Close()
		return nil, err
	}

	return memory.NewCoordinator(memory.Config{
		Storage:   store,
		Vector:    vectorDriver,
		Embedder:  embedder,
		Publisher: publisher,
		Defaults: memory.Defaults{
			Project:             v.GetString("memory.default_project"),
			SearchLimit:         v.GetInt("memory.search_limit"),
			SimilarityThreshold: v.GetFloat64("memory.similarity_threshold"),
		},
		Logger: c.logger,
	})
}

func (c *ServeCommander) newPublisher(v *viper.Viper) (eventstream.Publisher, error) {
	switch provider := v.GetString("events.provider"); provider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: v.GetStringSlice("events.brokers"),
			Topic:   v.GetString("events.topic"),
		}, c.logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing write events to kafka",
			zap.Strings("brokers", v.GetStringSlice("events.brokers")),
			zap.String("topic", v.GetString("events.topic")),
		)
		return publisher, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", provider)
	}
}

func (c *ServeCommander) buildMCPHandler(coordinator *memory.Coordinator) (http.Handler, error) {
	mcpServer, err := mcp.NewServer(mcp.Config{
		Coordinator: coordinator,
		Noop:        c.noMCP,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}
	return mcpServer.Handler(), nil
}

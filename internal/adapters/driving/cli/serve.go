package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bioindex/internal/adapters/driven/auth"
	"github.com/custodia-labs/bioindex/internal/adapters/driven/collection/memory"
	"github.com/custodia-labs/bioindex/internal/adapters/driven/collection/qdrant"
	"github.com/custodia-labs/bioindex/internal/adapters/driven/collection/sqlite"
	"github.com/custodia-labs/bioindex/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/bioindex/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/bioindex/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/bioindex/internal/chunker"
	"github.com/custodia-labs/bioindex/internal/config"
	"github.com/custodia-labs/bioindex/internal/core/ports/driven"
	"github.com/custodia-labs/bioindex/internal/core/services"
	"github.com/custodia-labs/bioindex/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	// Best-effort reachability check; the server still starts if the
	// provider is down, requests will surface the outage.
	if p, ok := embedder.(interface{ Ping(context.Context) error }); ok {
		pingCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		if err := p.Ping(pingCtx); err != nil {
			logger.Warn("embedding provider not reachable: %v", err)
		}
		cancel()
	}

	metadata, content, cleanup, err := buildCollections(cfg, embedder)
	if err != nil {
		return err
	}
	defer cleanup()

	index := services.NewIndexService(metadata, content,
		chunker.New(chunker.WithMaxLen(cfg.Chunker.MaxLen)))
	search := services.NewSearchService(metadata, content)
	mutation := services.NewMutationService(metadata, content, index, auth.NewPresenceVerifier())

	server := httpapi.NewServer(httpapi.Config{
		Index:          index,
		Search:         search,
		Mutation:       mutation,
		RequestTimeout: cfg.RequestTimeout(),
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		Backend:        cfg.Index.Backend,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("backend=%s embedder=%s", cfg.Index.Backend, embedder.ModelName())
	return server.ListenAndServe(ctx, cfg.Server.Addr)
}

// buildEmbedder constructs the configured embedding provider.
func buildEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// buildCollections constructs the metadata and content collections for
// the configured backend. The returned cleanup closes shared resources.
func buildCollections(cfg *config.Config, embedder driven.EmbeddingService) (
	metadata, content driven.Collection, cleanup func(), err error,
) {
	switch cfg.Index.Backend {
	case "memory":
		return memory.New(embedder), memory.New(embedder), func() {}, nil

	case "sqlite":
		store, err := sqlite.NewStore(cfg.Index.DataDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		metadata = store.Collection(cfg.Index.MetadataCollection, embedder)
		content = store.Collection(cfg.Index.ContentCollection, embedder)
		return metadata, content, func() { store.Close() }, nil

	case "qdrant":
		metadata = qdrant.New(qdrant.Config{
			BaseURL: cfg.Index.QdrantURL,
			APIKey:  cfg.Index.QdrantAPIKey,
			Name:    cfg.Index.MetadataCollection,
		}, embedder)
		content = qdrant.New(qdrant.Config{
			BaseURL: cfg.Index.QdrantURL,
			APIKey:  cfg.Index.QdrantAPIKey,
			Name:    cfg.Index.ContentCollection,
		}, embedder)
		return metadata, content, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

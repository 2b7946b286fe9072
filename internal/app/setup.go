package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cellarist/cellarist/db"
	"github.com/cellarist/cellarist/internal/chat"
	"github.com/cellarist/cellarist/internal/config"
	"github.com/cellarist/cellarist/internal/contacts"
	"github.com/cellarist/cellarist/internal/conversation"
	"github.com/cellarist/cellarist/internal/database"
	"github.com/cellarist/cellarist/internal/inventory"
	"github.com/cellarist/cellarist/internal/log"
	"github.com/cellarist/cellarist/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	a.Inventory = inventory.NewPostgres(pool, logger)
	a.Contacts = contacts.NewPostgres(pool, logger)
	a.Conversations = conversation.NewPostgres(pool, logger)

	handler := tools.NewHandler(a.Inventory, a.Contacts, logger)
	cellarTools := tools.RegisterTools(g, handler)
	a.Registry = tools.NewRegistry(handler, logger)

	agent, err := chat.New(chat.Config{
		Genkit:        g,
		Conversations: a.Conversations,
		Dispatcher:    a.Registry,
		Inventory:     a.Inventory,
		Logger:        logger,
		Tools:         cellarTools,
		ModelName:     cfg.QualifiedModelName(),
		MaxIterations: cfg.MaxIterations,
		HistoryTurns:  cfg.HistoryTurns,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat agent: %w", err)
	}
	a.Agent = agent

	return a, nil
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.Connect(ctx, cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
// Supports googleai (default) and ollama.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery).
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		return g, nil

	default: // googleai
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		return g, nil
	}
}

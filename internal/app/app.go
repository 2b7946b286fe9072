// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component: the database
// pool, Genkit, the stores, the tool registry, and the chat agent. Setup
// builds them in dependency order; Close releases them.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cellarist/cellarist/internal/chat"
	"github.com/cellarist/cellarist/internal/config"
	"github.com/cellarist/cellarist/internal/contacts"
	"github.com/cellarist/cellarist/internal/conversation"
	"github.com/cellarist/cellarist/internal/inventory"
	"github.com/cellarist/cellarist/internal/tools"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit *genkit.Genkit
	Pool   *pgxpool.Pool

	Inventory     *inventory.Postgres
	Contacts      *contacts.Postgres
	Conversations *conversation.Postgres
	Registry      *tools.Registry
	Agent         *chat.Agent
}

// Close releases all resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	return nil
}

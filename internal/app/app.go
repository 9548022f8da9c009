// Package app provides application initialization and dependency wiring.
//
// App is the container that assembles the pieces: Genkit with the configured
// AI provider, the shared HTTP fetcher, the tools and their registry, and the
// agent. Setup builds everything in dependency order; Close releases it.
package app

import (
	"context"
	"time"

	"github.com/firebase/genkit/go/genkit"

	"github.com/leadscout/leadscout/internal/agent"
	"github.com/leadscout/leadscout/internal/config"
	"github.com/leadscout/leadscout/internal/log"
	"github.com/leadscout/leadscout/internal/tools"
)

// App is the core application container.
type App struct {
	Config   *config.Config
	Genkit   *genkit.Genkit
	Registry *tools.Registry
	Agent    *agent.Agent
	Logger   log.Logger

	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

// RunTimeout returns the configured per-run deadline.
func (a *App) RunTimeout() time.Duration {
	return time.Duration(a.Config.RunTimeoutSeconds) * time.Second
}

// Ask runs a single non-streaming chat turn. Used by the CLI.
func (a *App) Ask(ctx context.Context, message string) (string, error) {
	result, err := a.Agent.Run(ctx, message, nil)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

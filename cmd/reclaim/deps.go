package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/osidra/reclaim/internal/application/handlers"
	"github.com/osidra/reclaim/internal/domain/services"
	"github.com/osidra/reclaim/internal/infrastructure/config"
	"github.com/osidra/reclaim/internal/infrastructure/locks"
	"github.com/osidra/reclaim/internal/infrastructure/storage/sqlite"
)

// Deps holds high-level dependencies for commands. Only handlers and
// config are exposed; services and the repository stay internal.
type Deps struct {
	Config          *config.Config
	DeletionHandler *handlers.DeletionHandler
	ManifestHandler *handlers.ManifestHandler
}

// internalDeps holds all dependencies including low-level components.
type internalDeps struct {
	Deps
	repo    *sqlite.Repository
	service *services.ManifestService
}

// withDeps loads config and builds dependencies, then calls the
// provided function. It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		return fn(&d.Deps)
	})
}

// withInternalDeps provides access to all dependencies including
// low-level components. Used by commands that need service access.
func withInternalDeps(ctx context.Context, fn func(*internalDeps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	schema, err := config.LoadSchema(cwd)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	registry, err := services.NewRegistry(schema.Types)
	if err != nil {
		return fmt.Errorf("building registry: %w", err)
	}

	repo, err := sqlite.NewRepository(cfg.SQLite)
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	service := services.NewManifestService(
		repo,
		services.NewScheduler(registry),
		services.NewValidator(registry),
		locks.NewManager(),
		cfg.Engine.RetentionWindow,
		cfg.Engine.LockTimeout,
		log,
	)

	deps := &internalDeps{
		Deps: Deps{
			Config:          cfg,
			DeletionHandler: handlers.NewDeletionHandler(service),
			ManifestHandler: handlers.NewManifestHandler(service),
		},
		repo:    repo,
		service: service,
	}

	return fn(deps)
}

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/dmitrymomot/manifold/internal/bridge/chiserver"
	"github.com/dmitrymomot/manifold/internal/container"
	"github.com/dmitrymomot/manifold/internal/store"
	"github.com/dmitrymomot/manifold/internal/webapp"
	"github.com/dmitrymomot/manifold/pkg/appenv"
	"github.com/dmitrymomot/manifold/pkg/db"
	"github.com/dmitrymomot/manifold/pkg/health"
	"github.com/dmitrymomot/manifold/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	if err := run(log); err != nil {
		log.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx := context.Background()

	// Startup validation: every missing key at once, then exit.
	cfg, err := appenv.Extract(appenv.Environ())
	if err != nil {
		return err
	}

	pool, err := db.Shared(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx, pool, store.Migrations, store.MigrationsTable, log); err != nil {
		return err
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	app := webapp.New(log)
	srv := chiserver.New(addr, app.Handle,
		container.DefaultFactory(container.WithLogger(log)),
		appenv.Environ(), log,
		chiserver.WithHealthChecks(health.Checks{
			"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
		}),
		chiserver.WithShutdownHook(func(context.Context) error {
			db.CloseShared()
			return nil
		}))

	return srv.Run(ctx)
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dmitrymomot/manifold/internal/bridge/fiberserver"
	"github.com/dmitrymomot/manifold/internal/container"
	"github.com/dmitrymomot/manifold/internal/store"
	"github.com/dmitrymomot/manifold/internal/webapp"
	"github.com/dmitrymomot/manifold/pkg/appenv"
	"github.com/dmitrymomot/manifold/pkg/db"
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
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

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
	srv := fiberserver.New(app.Handle,
		container.DefaultFactory(container.WithLogger(log)),
		appenv.Environ(), log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := srv.Shutdown(); err != nil {
		return err
	}
	db.CloseShared()
	return nil
}

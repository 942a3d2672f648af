// Command authctl is the operator's side door: one-off administrative
// tasks that run outside the request path, against the same storage
// and configuration as the servers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/manifold/internal/auth"
	"github.com/dmitrymomot/manifold/internal/store"
	"github.com/dmitrymomot/manifold/pkg/appenv"
	"github.com/dmitrymomot/manifold/pkg/db"
	"github.com/dmitrymomot/manifold/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "migrate":
		err = runMigrate(log)
	case "create-user":
		err = runCreateUser(os.Args[2:])
	case "check-env":
		err = runCheckEnv()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: authctl <command>

commands:
  migrate        apply pending database migrations
  create-user    create a verified user account
  check-env      report missing configuration keys`)
}

func connect(ctx context.Context) (appenv.Config, error) {
	cfg, err := appenv.Extract(appenv.Environ())
	if err != nil {
		return appenv.Config{}, err
	}
	if _, err := db.Shared(ctx, cfg.DatabaseURL); err != nil {
		return appenv.Config{}, err
	}
	return cfg, nil
}

func runMigrate(log *slog.Logger) error {
	ctx := context.Background()
	cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.CloseShared()

	pool, err := db.Shared(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	return db.Migrate(ctx, pool, store.Migrations, store.MigrationsTable, log)
}

func runCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	email := fs.String("email", "", "email address (required)")
	password := fs.String("password", "", "password (required)")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("create-user: -email and -password are required")
	}

	ctx := context.Background()
	cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.CloseShared()

	pool, err := db.Shared(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	// Operator-created accounts skip email verification.
	user, err := auth.NewPostgresStore(pool).CreateUser(ctx, *email, *name, string(hash), true)
	if err != nil {
		return err
	}
	fmt.Printf("created user %s (%s)\n", user.ID, user.Email)
	return nil
}

func runCheckEnv() error {
	cfg, err := appenv.Extract(appenv.Environ())
	if err != nil {
		return err
	}
	fmt.Println("configuration complete")
	if cfg.ResendAPIKey == "" {
		fmt.Println("note: RESEND_API_KEY unset, email delivery disabled")
	}
	return nil
}

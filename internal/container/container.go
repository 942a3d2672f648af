// Package container assembles the per-request dependency graph: one
// Container is built for every request (or invocation) from a typed
// Config, wiring storage, email, identity and the application services
// in a fixed order. Only the database pool outlives a request.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/manifold/internal/auth"
	"github.com/dmitrymomot/manifold/internal/email"
	"github.com/dmitrymomot/manifold/internal/service"
	"github.com/dmitrymomot/manifold/internal/store"
	"github.com/dmitrymomot/manifold/pkg/appenv"
	"github.com/dmitrymomot/manifold/pkg/db"
	"github.com/dmitrymomot/manifold/pkg/oauth"
)

// Container exposes exactly the capabilities request handlers consume.
type Container struct {
	Auth  *service.AuthService
	Users *service.UserService
	Email email.Service

	// IdentityHandler serves the provider-native identity endpoints.
	// The application mounts it under /auth/api and relays requests
	// byte-for-byte.
	IdentityHandler http.Handler
}

// Option adjusts container construction.
type Option func(*options)

type options struct {
	logger *slog.Logger
	pool   *pgxpool.Pool
}

// WithLogger sets the logger passed down to the identity engine and
// services.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithPool overrides the shared database pool, primarily for tests.
func WithPool(pool *pgxpool.Pool) Option {
	return func(o *options) { o.pool = pool }
}

// New builds the dependency graph from cfg. Construction fails fast
// when mandatory configuration is missing, naming every absent key at
// once. Wiring order is fixed: storage, email, identity, services.
func New(ctx context.Context, cfg appenv.Config, opts ...Option) (*Container, error) {
	if !cfg.Valid() {
		return nil, fmt.Errorf("container: missing configuration: %s",
			strings.Join(cfg.MissingKeys(), ", "))
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	pool := o.pool
	if pool == nil {
		var err error
		pool, err = db.Shared(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("container: database: %w", err)
		}
	}

	users := store.NewPostgresUserRepository(pool)
	profiles := store.NewPostgresProfileRepository(pool)

	// The email adapter always exists; without an API key every send
	// reports not configured instead of failing construction.
	mailer := email.NewResend(cfg.ResendAPIKey, cfg.ResendFromEmail)

	engine, err := auth.NewEngine(auth.NewPostgresStore(pool), auth.Config{
		Secret:                 cfg.AuthSecret,
		BaseURL:                cfg.BaseURL,
		Providers:              providers(cfg),
		SendVerificationEmail:  verificationSender(cfg, mailer),
		SendPasswordResetEmail: resetSender(cfg, mailer),
		OnUserCreated:          profileCreator(profiles, log),
		Logger:                 log,
	})
	if err != nil {
		return nil, fmt.Errorf("container: identity: %w", err)
	}

	port := auth.NewAdapter(engine)

	return &Container{
		Auth:            service.NewAuthService(port, users, log),
		Users:           service.NewUserService(users, profiles),
		Email:           mailer,
		IdentityHandler: auth.Handler(engine),
	}, nil
}

// profileCreator returns the post-signup hook that writes the profile
// row for a new account. The identity engine treats hook failures as
// non-fatal, so a failed write is logged there and the sign-up still
// succeeds.
func profileCreator(profiles store.ProfileRepository, log *slog.Logger) func(context.Context, *auth.User) error {
	return func(ctx context.Context, user *auth.User) error {
		data := store.CreateProfileData{UserID: user.ID}
		if user.Name != "" {
			data.FullName = &user.Name
		}
		if _, err := profiles.Create(ctx, data); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		log.InfoContext(ctx, "user created",
			slog.String("user_id", user.ID), slog.String("email", user.Email))
		return nil
	}
}

// providers builds the OAuth provider set from whichever credential
// pairs are present. A half-configured pair is ignored.
func providers(cfg appenv.Config) map[string]oauth.Provider {
	out := make(map[string]oauth.Provider)
	redirect := func(name string) string {
		return cfg.BaseURL + "/auth/api/callback/" + name
	}

	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		if p, err := oauth.NewGitHubProvider(oauth.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  redirect("github"),
		}); err == nil {
			out["github"] = p
		}
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		if p, err := oauth.NewGoogleProvider(oauth.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  redirect("google"),
		}); err == nil {
			out["google"] = p
		}
	}
	if cfg.KakaoClientID != "" && cfg.KakaoClientSecret != "" {
		if p, err := oauth.NewKakaoProvider(oauth.Config{
			ClientID:     cfg.KakaoClientID,
			ClientSecret: cfg.KakaoClientSecret,
			RedirectURL:  redirect("kakao"),
		}); err == nil {
			out["kakao"] = p
		}
	}
	return out
}

// verificationSender wires the verification email only when delivery
// is configured; otherwise sign-ups complete without a verification
// step.
func verificationSender(cfg appenv.Config, mailer email.Service) func(context.Context, string, string, string) error {
	if cfg.ResendAPIKey == "" {
		return nil
	}
	return func(ctx context.Context, to, _ string, verifyURL string) error {
		return mailer.SendVerificationEmail(ctx, to, verifyURL)
	}
}

func resetSender(cfg appenv.Config, mailer email.Service) func(context.Context, string, string) error {
	if cfg.ResendAPIKey == "" {
		return nil
	}
	return func(ctx context.Context, to, resetURL string) error {
		return mailer.SendPasswordResetEmail(ctx, to, resetURL)
	}
}

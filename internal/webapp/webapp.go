// Package webapp is the platform-agnostic application core. It maps a
// plain *http.Request plus a per-request LoadContext to a plain
// *http.Response; the runtime bridges translate between that contract
// and whatever server shape hosts the process. Nothing in here touches
// a net.Listener or a platform SDK.
package webapp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/manifold/internal/container"
	"github.com/dmitrymomot/manifold/pkg/appenv"
)

// Handler is the request contract every runtime bridge drives: one
// request and its composition root in, one complete response out.
type Handler func(r *http.Request, lc *LoadContext) *http.Response

// LoadContext is the per-request composition root handed to the
// application alongside the request. It is built fresh for every
// request and never shared across requests.
type LoadContext struct {
	Config    appenv.Config
	Container *container.Container

	// Platform names the hosting runtime ("edge", "server", "fiber").
	// Handlers may branch on it for diagnostics only, never for
	// behavior.
	Platform string
}

type ctxKey struct{}

// loadContext pulls the LoadContext stored by Handle.
func loadContext(r *http.Request) *LoadContext {
	lc, _ := r.Context().Value(ctxKey{}).(*LoadContext)
	return lc
}

// App routes requests to the application handlers. The router is built
// once; per-request state travels in the LoadContext.
type App struct {
	router chi.Router
	log    *slog.Logger
}

// New builds the application router.
func New(log *slog.Logger) *App {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	app := &App{log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Mount("/auth/api", http.HandlerFunc(app.relayIdentity))

	r.Post("/auth/sign-in", app.handleSignIn)
	r.Post("/auth/sign-up", app.handleSignUp)
	r.Post("/auth/sign-out", app.handleSignOut)
	r.Post("/auth/forgot-password", app.handleForgotPassword)
	r.Post("/auth/reset-password", app.handleResetPassword)
	r.Post("/auth/change-password", app.handleChangePassword)

	r.Get("/me", app.handleMe)
	r.Put("/profile", app.handleUpdateProfile)

	app.router = r
	return app
}

// Handle runs one request through the application and captures the
// complete response. It satisfies the Handler contract.
func (a *App) Handle(r *http.Request, lc *LoadContext) *http.Response {
	rec := newRecorder()
	req := r.WithContext(context.WithValue(r.Context(), ctxKey{}, lc))
	a.router.ServeHTTP(rec, req)
	return rec.response(req)
}

// relayIdentity hands the request to the identity endpoints unchanged.
// The mount prefix is stripped by chi; headers and body pass through
// byte-for-byte in both directions.
func (a *App) relayIdentity(w http.ResponseWriter, r *http.Request) {
	lc := loadContext(r)
	if lc == nil || lc.Container == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	http.StripPrefix("/auth/api", lc.Container.IdentityHandler).ServeHTTP(w, r)
}

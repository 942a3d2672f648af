package auth

import (
	"context"
	"net/http"
)

// Adapter implements Port over an in-process Engine. It forwards the
// inbound request headers wherever the engine reads the session from
// them, applies a structural check to session payloads and never
// retries.
type Adapter struct {
	engine *Engine
}

// NewAdapter wraps engine in the Port boundary.
func NewAdapter(engine *Engine) *Adapter {
	return &Adapter{engine: engine}
}

var _ Port = (*Adapter)(nil)

// GetSession resolves the session carried by h. Payloads missing a
// user ID or email are treated as no session rather than an error.
func (a *Adapter) GetSession(ctx context.Context, h http.Header) (*SessionData, error) {
	data, err := a.engine.Session(ctx, h)
	if err != nil {
		return nil, err
	}
	if data == nil || data.User.ID == "" || data.User.Email == "" {
		return nil, nil
	}
	return data, nil
}

// The header parameter on the operations below is part of the Port
// contract for implementations that relay over HTTP. The in-process
// engine establishes credentials from the arguments alone and has no
// use for the caller's cookies on these calls.

func (a *Adapter) SignInEmail(ctx context.Context, _ http.Header, email, password string) (*SignInResult, error) {
	return a.engine.SignInEmail(ctx, email, password)
}

func (a *Adapter) SignUpEmail(ctx context.Context, _ http.Header, email, password, name string) (SignUpOutcome, error) {
	return a.engine.SignUpEmail(ctx, email, password, name)
}

func (a *Adapter) SignInSocial(ctx context.Context, _ http.Header, provider, callbackURL string) (*OAuthSignInResult, error) {
	return a.engine.SignInSocial(ctx, provider, callbackURL)
}

func (a *Adapter) SignOut(ctx context.Context, h http.Header) ([]string, error) {
	return a.engine.SignOut(ctx, h)
}

func (a *Adapter) ChangePassword(ctx context.Context, h http.Header, current, next string, revokeOther bool) error {
	return a.engine.ChangePassword(ctx, h, current, next, revokeOther)
}

func (a *Adapter) RequestPasswordReset(ctx context.Context, _ http.Header, email, redirectTo string) error {
	return a.engine.RequestPasswordReset(ctx, email, redirectTo)
}

func (a *Adapter) ResetPassword(ctx context.Context, _ http.Header, token, newPassword string) error {
	return a.engine.ResetPassword(ctx, token, newPassword)
}

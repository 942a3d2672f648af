package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/manifold/internal/auth"
	"github.com/dmitrymomot/manifold/internal/store"
)

// AuthService drives the identity flows the web handlers expose. It
// forwards the inbound request headers to the identity boundary on
// every call and hands back whatever Set-Cookie values come out.
type AuthService struct {
	port  auth.Port
	users store.UserRepository
	log   *slog.Logger
}

// NewAuthService builds an AuthService over the identity port.
func NewAuthService(port auth.Port, users store.UserRepository, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &AuthService{port: port, users: users, log: log}
}

// GetCurrentUser resolves the signed-in user from the request headers.
// Returns (nil, nil) when no valid session is present.
func (s *AuthService) GetCurrentUser(ctx context.Context, h http.Header) (*auth.User, error) {
	data, err := s.port.GetSession(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	u := data.User
	return &u, nil
}

// SignIn authenticates email/password credentials.
func (s *AuthService) SignIn(ctx context.Context, h http.Header, email, password string) (*auth.SignInResult, error) {
	return s.port.SignInEmail(ctx, h, email, password)
}

// SignUp registers a new account. A repository pre-check catches taken
// emails before the identity flow starts.
func (s *AuthService) SignUp(ctx context.Context, h http.Header, email, password, name string) (auth.SignUpOutcome, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, auth.ErrUserAlreadyExists
	}
	return s.port.SignUpEmail(ctx, h, email, password, name)
}

// SignInSocial starts an OAuth flow. The redirect URL is passed
// through verbatim, including an empty one.
func (s *AuthService) SignInSocial(ctx context.Context, h http.Header, provider, callbackURL string) (*auth.OAuthSignInResult, error) {
	return s.port.SignInSocial(ctx, h, provider, callbackURL)
}

// SignOut revokes the current session. Upstream failures are logged
// and swallowed so the caller always clears the session cookies.
func (s *AuthService) SignOut(ctx context.Context, h http.Header) []string {
	cookies, err := s.port.SignOut(ctx, h)
	if err != nil {
		s.log.ErrorContext(ctx, "sign out failed", slog.Any("error", err))
		return nil
	}
	return cookies
}

// ChangePassword replaces the signed-in user's password.
func (s *AuthService) ChangePassword(ctx context.Context, h http.Header, current, next string, revokeOther bool) error {
	return s.port.ChangePassword(ctx, h, current, next, revokeOther)
}

// RequestPasswordReset sends a reset link. Unknown addresses succeed
// silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, h http.Header, email, redirectTo string) error {
	return s.port.RequestPasswordReset(ctx, h, email, redirectTo)
}

// ResetPassword consumes a reset token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, h http.Header, token, newPassword string) error {
	return s.port.ResetPassword(ctx, h, token, newPassword)
}

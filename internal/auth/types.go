package auth

import (
	"context"
	"net/http"
	"time"
)

// User is the identity view of an account holder.
type User struct {
	ID            string
	Email         string
	Name          string
	EmailVerified bool
	Image         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Session is an authenticated session bound to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionData couples a session with the user it belongs to.
type SessionData struct {
	Session Session
	User    User
}

// SignInResult carries the Set-Cookie values a successful sign-in
// produced. Callers relay them to the client verbatim.
type SignInResult struct {
	User       User
	SetCookies []string
}

// OAuthSignInResult carries the provider authorization URL and the
// state cookie for an OAuth sign-in. RedirectURL may be empty when the
// provider returns none; callers surface it as-is.
type OAuthSignInResult struct {
	RedirectURL string
	SetCookies  []string
}

// SignUpOutcome is the result of a sign-up attempt. It is either a
// PendingSignUp awaiting email verification or a ConfirmedSignUp with
// an active session.
type SignUpOutcome interface {
	signUpOutcome()
}

// PendingSignUp reports that the account was created but requires
// email verification before sign-in. The user ID is withheld until the
// address is confirmed.
type PendingSignUp struct {
	Email string
	Name  string
}

func (PendingSignUp) signUpOutcome() {}

// ConfirmedSignUp reports that the account was created and signed in
// immediately.
type ConfirmedSignUp struct {
	User       User
	SetCookies []string
}

func (ConfirmedSignUp) signUpOutcome() {}

// Port is the identity boundary the application programs against.
// Every operation receives the inbound request headers so session
// cookies travel with the call, and returns any Set-Cookie values the
// caller must relay. Implementations never write to a response
// themselves.
type Port interface {
	// GetSession resolves the session carried by h. It returns
	// (nil, nil) when no valid session is present.
	GetSession(ctx context.Context, h http.Header) (*SessionData, error)

	// SignInEmail authenticates email/password credentials.
	SignInEmail(ctx context.Context, h http.Header, email, password string) (*SignInResult, error)

	// SignUpEmail registers a new account.
	SignUpEmail(ctx context.Context, h http.Header, email, password, name string) (SignUpOutcome, error)

	// SignInSocial begins an OAuth flow with the named provider,
	// returning the provider redirect URL and the state cookie.
	SignInSocial(ctx context.Context, h http.Header, provider, callbackURL string) (*OAuthSignInResult, error)

	// SignOut revokes the session carried by h. It succeeds even
	// when no session is present.
	SignOut(ctx context.Context, h http.Header) ([]string, error)

	// ChangePassword replaces the password of the signed-in user
	// after verifying the current one. When revokeOther is true all
	// other sessions of the user are deleted.
	ChangePassword(ctx context.Context, h http.Header, current, next string, revokeOther bool) error

	// RequestPasswordReset issues a reset token for the address and
	// emails it. Unknown addresses succeed silently.
	RequestPasswordReset(ctx context.Context, h http.Header, email, redirectTo string) error

	// ResetPassword consumes a reset token and sets a new password,
	// revoking every session of the user.
	ResetPassword(ctx context.Context, h http.Header, token, newPassword string) error
}

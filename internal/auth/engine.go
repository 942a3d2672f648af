package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/manifold/pkg/oauth"
	"github.com/dmitrymomot/manifold/pkg/sessioncookie"
)

// Verification token purposes.
const (
	purposeEmailVerification = "email-verification"
	purposePasswordReset     = "password-reset"
)

const (
	stateCookieName = sessioncookie.Prefix + ".oauth_state"
	stateTTL        = 10 * time.Minute

	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input limit

	verificationTTL  = 24 * time.Hour
	passwordResetTTL = time.Hour

	// snapshotFreshness bounds how long the signed session-data cookie
	// is trusted before the session is re-checked against storage.
	snapshotFreshness = 5 * time.Minute
)

// Config configures an Engine. Secret and BaseURL are required.
type Config struct {
	// Secret signs session-data and OAuth state cookies.
	Secret string

	// BaseURL is the public origin of the application, e.g.
	// "https://app.example.com". Cookies are marked Secure when it is
	// served over HTTPS.
	BaseURL string

	// BasePath is the mount point of the identity HTTP endpoints.
	// Defaults to "/auth/api".
	BasePath string

	// SessionTTL is the lifetime of issued sessions. Defaults to
	// seven days.
	SessionTTL time.Duration

	// Providers maps provider names to OAuth implementations.
	Providers map[string]oauth.Provider

	// SendVerificationEmail delivers the email-verification link after
	// sign-up. When nil, accounts are created verified and signed in
	// immediately.
	SendVerificationEmail func(ctx context.Context, email, name, verifyURL string) error

	// SendPasswordResetEmail delivers the password-reset link. When
	// nil, reset requests succeed without sending anything.
	SendPasswordResetEmail func(ctx context.Context, email, resetURL string) error

	// OnUserCreated runs after a new account is persisted. Failures
	// are logged and do not fail the sign-up.
	OnUserCreated func(ctx context.Context, user *User) error

	Logger *slog.Logger
}

// Engine implements identity operations on top of a Store. All
// operations read session state from the supplied request headers and
// return any Set-Cookie values explicitly; nothing is ever written to
// a response from here.
type Engine struct {
	store  Store
	cfg    Config
	secret []byte
	secure bool
	log    *slog.Logger
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(store Store, cfg Config) (*Engine, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("auth: base URL is required")
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/auth/api"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		store:  store,
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		secure: strings.HasPrefix(cfg.BaseURL, "https://"),
		log:    log,
	}, nil
}

// BasePath returns the mount point of the identity HTTP endpoints.
func (e *Engine) BasePath() string { return e.cfg.BasePath }

// sessionSnapshot is the payload of the signed session-data cookie.
type sessionSnapshot struct {
	Session  Session   `json:"session"`
	User     User      `json:"user"`
	IssuedAt time.Time `json:"issued_at"`
}

// Session resolves the session carried by the request headers. A
// fresh, validly signed session-data cookie short-circuits the storage
// lookup; otherwise the token cookie is checked against the store.
// Returns (nil, nil) when no valid session is present.
func (e *Engine) Session(ctx context.Context, h http.Header) (*SessionData, error) {
	token, err := sessioncookie.Token(h)
	if err != nil {
		return nil, nil
	}

	if snap := e.freshSnapshot(h, token); snap != nil {
		return &SessionData{Session: snap.Session, User: snap.User}, nil
	}

	sess, user, err := e.store.SessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return &SessionData{Session: *sess, User: *user}, nil
}

func (e *Engine) freshSnapshot(h http.Header, token string) *sessionSnapshot {
	r := http.Request{Header: h}
	c, err := r.Cookie(sessioncookie.DataName)
	if err != nil {
		return nil
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	payload, err := sessioncookie.Verify(raw, e.secret)
	if err != nil {
		return nil
	}
	var snap sessionSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil
	}
	now := time.Now()
	if snap.Session.Token != token ||
		now.After(snap.Session.ExpiresAt) ||
		now.Sub(snap.IssuedAt) > snapshotFreshness {
		return nil
	}
	return &snap
}

// SignInEmail authenticates email/password credentials and issues a
// session. Unknown addresses and wrong passwords are indistinguishable
// to the caller.
func (e *Engine) SignInEmail(ctx context.Context, email, password string) (*SignInResult, error) {
	user, hash, err := e.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, ErrInvalidEmailOrPassword
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if hash == "" {
		return nil, ErrInvalidEmailOrPassword
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidEmailOrPassword
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	cookies, _, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &SignInResult{User: *user, SetCookies: cookies}, nil
}

// SignUpEmail registers a new account. With email verification
// configured the account starts unverified and a verification link is
// sent; otherwise it is created verified and signed in immediately.
func (e *Engine) SignUpEmail(ctx context.Context, email, password, name string) (SignUpOutcome, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	verified := e.cfg.SendVerificationEmail == nil
	user, err := e.store.CreateUser(ctx, email, name, string(hash), verified)
	if err != nil {
		if errors.Is(err, errDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if e.cfg.OnUserCreated != nil {
		if err := e.cfg.OnUserCreated(ctx, user); err != nil {
			e.log.ErrorContext(ctx, "user created hook failed",
				slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}

	if verified {
		cookies, _, err := e.issueSession(ctx, user)
		if err != nil {
			return nil, err
		}
		return ConfirmedSignUp{User: *user, SetCookies: cookies}, nil
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateVerification(ctx, user.Email, token, purposeEmailVerification, time.Now().Add(verificationTTL)); err != nil {
		return nil, fmt.Errorf("create verification: %w", err)
	}
	verifyURL := e.cfg.BaseURL + e.cfg.BasePath + "/verify-email?token=" + url.QueryEscape(token)
	if err := e.cfg.SendVerificationEmail(ctx, user.Email, user.Name, verifyURL); err != nil {
		return nil, fmt.Errorf("send verification email: %w", err)
	}

	return PendingSignUp{Email: user.Email, Name: user.Name}, nil
}

// VerifyEmail consumes a verification token, marks the address
// verified and signs the user in.
func (e *Engine) VerifyEmail(ctx context.Context, token string) ([]string, *User, error) {
	email, err := e.store.ConsumeVerification(ctx, token, purposeEmailVerification)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("consume verification: %w", err)
	}
	user, _, err := e.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.EmailVerified {
		if err := e.store.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, nil, fmt.Errorf("mark verified: %w", err)
		}
		user.EmailVerified = true
	}

	cookies, _, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return cookies, user, nil
}

// oauthState is the payload of the signed OAuth state cookie.
type oauthState struct {
	State       string `json:"state"`
	Provider    string `json:"provider"`
	CallbackURL string `json:"callback_url"`
}

// SignInSocial begins an OAuth flow. The returned redirect URL is the
// provider's value verbatim, including an empty one.
func (e *Engine) SignInSocial(ctx context.Context, provider, callbackURL string) (*OAuthSignInResult, error) {
	p, ok := e.cfg.Providers[provider]
	if !ok {
		return nil, ErrProviderNotFound
	}

	state, err := newToken()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(oauthState{State: state, Provider: provider, CallbackURL: callbackURL})
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	c := sessioncookie.New(stateCookieName, url.QueryEscape(sessioncookie.Sign(payload, e.secret)), int(stateTTL.Seconds()), e.secure)

	return &OAuthSignInResult{
		RedirectURL: p.AuthCodeURL(state),
		SetCookies:  []string{c.String()},
	}, nil
}

// OAuthCallback completes an OAuth flow: it verifies the state cookie,
// exchanges the code, resolves or creates the user, links the provider
// account and issues a session. It returns the Set-Cookie values and
// the callback URL captured when the flow started.
func (e *Engine) OAuthCallback(ctx context.Context, h http.Header, provider, code, state string) ([]string, string, error) {
	st, err := e.readState(h)
	if err != nil || st.State != state || st.Provider != provider {
		return nil, "", ErrStateMismatch
	}
	p, ok := e.cfg.Providers[provider]
	if !ok {
		return nil, "", ErrProviderNotFound
	}

	tok, err := p.Exchange(ctx, code, "")
	if err != nil {
		return nil, "", fmt.Errorf("exchange code: %w", err)
	}
	info, err := p.FetchUserInfo(ctx, tok)
	if err != nil {
		return nil, "", fmt.Errorf("fetch user info: %w", err)
	}

	user, _, err := e.store.UserByEmail(ctx, info.Email)
	switch {
	case errors.Is(err, errNotFound):
		var image *string
		if info.Picture != "" {
			image = &info.Picture
		}
		user, err = e.store.CreateOAuthUser(ctx, info.Email, info.Name, image)
		if err != nil {
			return nil, "", fmt.Errorf("create user: %w", err)
		}
		if e.cfg.OnUserCreated != nil {
			if hookErr := e.cfg.OnUserCreated(ctx, user); hookErr != nil {
				e.log.ErrorContext(ctx, "user created hook failed",
					slog.String("user_id", user.ID), slog.Any("error", hookErr))
			}
		}
	case err != nil:
		return nil, "", fmt.Errorf("lookup user: %w", err)
	case !user.EmailVerified:
		if err := e.store.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, "", fmt.Errorf("mark verified: %w", err)
		}
		user.EmailVerified = true
	}

	if err := e.store.UpsertOAuthAccount(ctx, user.ID, provider, info.ID); err != nil {
		return nil, "", fmt.Errorf("link account: %w", err)
	}

	cookies, _, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, "", err
	}
	clear := sessioncookie.New(stateCookieName, "", -1, e.secure)
	cookies = append(cookies, clear.String())

	return cookies, st.CallbackURL, nil
}

func (e *Engine) readState(h http.Header) (*oauthState, error) {
	r := http.Request{Header: h}
	c, err := r.Cookie(stateCookieName)
	if err != nil {
		return nil, ErrStateMismatch
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil, ErrStateMismatch
	}
	payload, err := sessioncookie.Verify(raw, e.secret)
	if err != nil {
		return nil, ErrStateMismatch
	}
	var st oauthState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, ErrStateMismatch
	}
	return &st, nil
}

// SignOut revokes the session carried by the request headers and
// returns the cookie-clearing entries. It succeeds when no session is
// present.
func (e *Engine) SignOut(ctx context.Context, h http.Header) ([]string, error) {
	if token, err := sessioncookie.Token(h); err == nil {
		if err := e.store.DeleteSession(ctx, token); err != nil {
			return nil, fmt.Errorf("delete session: %w", err)
		}
	}
	return sessioncookie.ClearHeaders().Values("Set-Cookie"), nil
}

// ChangePassword replaces the signed-in user's password after checking
// the current one. With revokeOther set, every other session of the
// user is deleted.
func (e *Engine) ChangePassword(ctx context.Context, h http.Header, current, next string, revokeOther bool) error {
	data, err := e.Session(ctx, h)
	if err != nil {
		return err
	}
	if data == nil {
		return ErrUnauthorized
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	_, hash, err := e.store.UserByEmail(ctx, data.User.Email)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)) != nil {
		return ErrInvalidPassword
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := e.store.UpdatePassword(ctx, data.User.ID, string(newHash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if revokeOther {
		if err := e.store.DeleteUserSessions(ctx, data.User.ID, data.Session.Token); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}
	return nil
}

// RequestPasswordReset issues a reset token and emails the link.
// Unknown addresses succeed silently so the endpoint does not reveal
// which emails exist.
func (e *Engine) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	user, _, err := e.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return err
	}
	if err := e.store.CreateVerification(ctx, user.Email, token, purposePasswordReset, time.Now().Add(passwordResetTTL)); err != nil {
		return fmt.Errorf("create verification: %w", err)
	}

	target := redirectTo
	if target == "" {
		target = e.cfg.BaseURL + "/auth/reset-password"
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	resetURL := target + sep + "token=" + url.QueryEscape(token)

	if e.cfg.SendPasswordResetEmail == nil {
		e.log.WarnContext(ctx, "password reset requested but email delivery is not configured",
			slog.String("email", user.Email))
		return nil
	}
	if err := e.cfg.SendPasswordResetEmail(ctx, user.Email, resetURL); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token, sets the new password and
// revokes every session of the user.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	email, err := e.store.ConsumeVerification(ctx, token, purposePasswordReset)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("consume verification: %w", err)
	}
	user, _, err := e.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := e.store.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := e.store.DeleteUserSessions(ctx, user.ID, ""); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func (e *Engine) issueSession(ctx context.Context, user *User) ([]string, *Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, nil, err
	}
	sess, err := e.store.CreateSession(ctx, user.ID, token, time.Now().Add(e.cfg.SessionTTL))
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	maxAge := int(e.cfg.SessionTTL.Seconds())
	tokenCookie := sessioncookie.New(sessioncookie.TokenName, token, maxAge, e.secure)

	payload, err := json.Marshal(sessionSnapshot{Session: *sess, User: *user, IssuedAt: time.Now()})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	dataCookie := sessioncookie.New(sessioncookie.DataName,
		url.QueryEscape(sessioncookie.Sign(payload, e.secret)), maxAge, e.secure)

	return []string{tokenCookie.String(), dataCookie.String()}, sess, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordLen {
		return ErrPasswordTooLong
	}
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

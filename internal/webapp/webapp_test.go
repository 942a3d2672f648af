package webapp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/manifold/internal/auth"
	"github.com/dmitrymomot/manifold/internal/container"
	"github.com/dmitrymomot/manifold/internal/service"
	"github.com/dmitrymomot/manifold/internal/store"
	"github.com/dmitrymomot/manifold/pkg/appenv"
)

// stubPort is a programmable identity boundary for handler tests.
type stubPort struct {
	session    *auth.SessionData
	signInRes  *auth.SignInResult
	signInErr  error
	signUpOut  auth.SignUpOutcome
	signUpErr  error
	signOutErr error
}

func (s *stubPort) GetSession(context.Context, http.Header) (*auth.SessionData, error) {
	return s.session, nil
}

func (s *stubPort) SignInEmail(context.Context, http.Header, string, string) (*auth.SignInResult, error) {
	return s.signInRes, s.signInErr
}

func (s *stubPort) SignUpEmail(context.Context, http.Header, string, string, string) (auth.SignUpOutcome, error) {
	return s.signUpOut, s.signUpErr
}

func (s *stubPort) SignInSocial(context.Context, http.Header, string, string) (*auth.OAuthSignInResult, error) {
	return &auth.OAuthSignInResult{}, nil
}

func (s *stubPort) SignOut(context.Context, http.Header) ([]string, error) {
	if s.signOutErr != nil {
		return nil, s.signOutErr
	}
	return []string{"mf.session_token=; Path=/; Expires=Thu, 01 Jan 1970 00:00:00 GMT; HttpOnly",
		"mf.session_data=; Path=/; Expires=Thu, 01 Jan 1970 00:00:00 GMT; HttpOnly"}, nil
}

func (s *stubPort) ChangePassword(context.Context, http.Header, string, string, bool) error {
	return nil
}

func (s *stubPort) RequestPasswordReset(context.Context, http.Header, string, string) error {
	return nil
}

func (s *stubPort) ResetPassword(context.Context, http.Header, string, string) error {
	return nil
}

type stubUserRepo struct{}

func (stubUserRepo) FindByID(context.Context, string) (*store.User, error) {
	return nil, store.ErrUserNotFound
}
func (stubUserRepo) FindByEmail(context.Context, string) (*store.User, error) { return nil, nil }
func (stubUserRepo) FindWithProfile(context.Context, string) (*store.UserWithProfile, error) {
	return nil, store.ErrUserNotFound
}
func (stubUserRepo) Update(context.Context, string, store.UpdateUserData) (*store.User, error) {
	return nil, store.ErrUserNotFound
}

type stubProfileRepo struct{}

func (stubProfileRepo) FindByUserID(context.Context, string) (*store.Profile, error) {
	return nil, nil
}
func (stubProfileRepo) Create(_ context.Context, d store.CreateProfileData) (*store.Profile, error) {
	return &store.Profile{ID: "p1", UserID: d.UserID, FullName: d.FullName, Bio: d.Bio}, nil
}
func (stubProfileRepo) Update(context.Context, string, store.UpdateProfileData) (*store.Profile, error) {
	return nil, store.ErrProfileNotFound
}

func testLoadContext(port auth.Port, identity http.Handler) *LoadContext {
	return &LoadContext{
		Config: appenv.Config{
			DatabaseURL: "postgres://localhost:5432/test",
			BaseURL:     "http://localhost:8080",
			AuthSecret:  "webapp-test-secret",
		},
		Container: &container.Container{
			Auth:            service.NewAuthService(port, stubUserRepo{}, nil),
			Users:           service.NewUserService(stubUserRepo{}, stubProfileRepo{}),
			IdentityHandler: identity,
		},
		Platform: "server",
	}
}

func do(t *testing.T, app *App, lc *LoadContext, method, target, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	resp := app.Handle(req, lc)
	require.NotNil(t, resp)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestApp_Me_Anonymous(t *testing.T) {
	t.Parallel()

	app := New(nil)
	lc := testLoadContext(&stubPort{}, nil)

	resp := do(t, app, lc, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "no session is a normal outcome")
	assert.Contains(t, readBody(t, resp), `"user":null`)
}

func TestApp_Me_SignedIn(t *testing.T) {
	t.Parallel()

	app := New(nil)
	port := &stubPort{session: &auth.SessionData{
		User: auth.User{ID: "u1", Email: "me@example.com", Name: "Me", EmailVerified: true},
	}}
	lc := testLoadContext(port, nil)

	resp := do(t, app, lc, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `"me@example.com"`)
}

func TestApp_SignOut_ClearsCookiesOnUpstreamFailure(t *testing.T) {
	t.Parallel()

	app := New(nil)
	port := &stubPort{signOutErr: errors.New("identity store down")}
	lc := testLoadContext(port, nil)

	resp := do(t, app, lc, http.MethodPost, "/auth/sign-out", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	setCookies := resp.Header.Values("Set-Cookie")
	require.Len(t, setCookies, 2, "clearing entries are merged even when upstream failed")
	for _, c := range setCookies {
		assert.Contains(t, c, "Expires=Thu, 01 Jan 1970 00:00:00 GMT")
		assert.Contains(t, c, "HttpOnly")
	}
}

func TestApp_SignIn_Validation(t *testing.T) {
	t.Parallel()

	app := New(nil)
	lc := testLoadContext(&stubPort{}, nil)

	resp := do(t, app, lc, http.MethodPost, "/auth/sign-in", `{"email":"not-an-email","password":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `"email"`)
	assert.Contains(t, body, `"password"`)
}

func TestApp_SignIn_BadCredentials(t *testing.T) {
	t.Parallel()

	app := New(nil)
	port := &stubPort{signInErr: auth.ErrInvalidEmailOrPassword}
	lc := testLoadContext(port, nil)

	resp := do(t, app, lc, http.MethodPost, "/auth/sign-in", `{"email":"a@example.com","password":"wrongpass1"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Invalid email or password.")
	assert.NotContains(t, body, "INVALID_EMAIL_OR_PASSWORD", "codes never reach users")
}

func TestApp_SignUp_Pending(t *testing.T) {
	t.Parallel()

	app := New(nil)
	port := &stubPort{signUpOut: auth.PendingSignUp{Email: "new@example.com", Name: "New"}}
	lc := testLoadContext(port, nil)

	resp := do(t, app, lc, http.MethodPost, "/auth/sign-up",
		`{"email":"new@example.com","password":"sup3rsecret","name":"New"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "pending_verification")
	assert.NotContains(t, body, `"id"`, "no user ID while verification is outstanding")
}

func TestApp_UpdateProfile_RequiresSession(t *testing.T) {
	t.Parallel()

	app := New(nil)
	lc := testLoadContext(&stubPort{}, nil)

	resp := do(t, app, lc, http.MethodPut, "/profile", `{"bio":"hello"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestApp_UpdateProfile(t *testing.T) {
	t.Parallel()

	app := New(nil)
	port := &stubPort{session: &auth.SessionData{
		User: auth.User{ID: "u1", Email: "me@example.com"},
	}}
	lc := testLoadContext(port, nil)

	// stubUserRepo rejects FindByID, so the service reports not found.
	resp := do(t, app, lc, http.MethodPut, "/profile", `{"bio":"hello"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApp_IdentityRelay(t *testing.T) {
	t.Parallel()

	var gotPath string
	identity := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Identity", "yes")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write(b)
	})

	app := New(nil)
	lc := testLoadContext(&stubPort{}, identity)

	resp := do(t, app, lc, http.MethodPost, "/auth/api/sign-in/email", `{"raw":"payload"}`)
	assert.Equal(t, "/sign-in/email", gotPath, "mount prefix is stripped before relay")
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "yes", resp.Header.Get("X-Identity"))
	assert.Equal(t, `{"raw":"payload"}`, readBody(t, resp), "body passes through byte-for-byte")
}

func TestApp_MissingContainer(t *testing.T) {
	t.Parallel()

	app := New(nil)
	resp := app.Handle(httptest.NewRequest(http.MethodPost, "/auth/api/sign-out", nil), &LoadContext{})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

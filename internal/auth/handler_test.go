package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_GetSession_Anonymous(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, nil)
	srv := Handler(e)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get-session", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Session *Session     `json:"session"`
		User    *userPayload `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Session)
	assert.Nil(t, body.User)
}

func TestHandler_SignUpAndSession(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, nil)
	srv := Handler(e)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sign-up/email",
		strings.NewReader(`{"email":"web@example.com","password":"sup3rsecret","name":"Web"}`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	setCookies := rec.Result().Header.Values("Set-Cookie")
	require.Len(t, setCookies, 2)

	// The issued cookies resolve to the new user.
	req = httptest.NewRequest(http.MethodGet, "/get-session", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		User *userPayload `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.User)
	assert.Equal(t, "web@example.com", body.User.Email)
}

func TestHandler_SignIn_BadCredentials(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, nil)
	srv := Handler(e)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sign-in/email",
		strings.NewReader(`{"email":"nobody@example.com","password":"whatever1"}`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_EMAIL_OR_PASSWORD", body.Code)
}

func TestHandler_SignOut_ClearsCookies(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, nil)
	srv := Handler(e)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sign-out", strings.NewReader(`{}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	setCookies := rec.Result().Header.Values("Set-Cookie")
	require.Len(t, setCookies, 2)
	for _, c := range setCookies {
		assert.Contains(t, c, "Expires=Thu, 01 Jan 1970 00:00:00 GMT")
		assert.Contains(t, c, "HttpOnly")
		assert.Contains(t, c, "Path=/")
	}
}

func TestHandler_MalformedBody(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, nil)
	srv := Handler(e)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sign-in/email", strings.NewReader(`{not json`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_BODY", body.Code)
}

func TestHandler_VerifyEmail_InvalidToken(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, func(cfg *Config) {
		cfg.SendVerificationEmail = func(context.Context, string, string, string) error { return nil }
	})
	srv := Handler(e)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verify-email?token=bogus", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_TOKEN", body.Code)
}

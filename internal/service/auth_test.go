package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/manifold/internal/auth"
	"github.com/dmitrymomot/manifold/internal/store"
)

// fakePort is a programmable auth.Port.
type fakePort struct {
	session       *auth.SessionData
	sessionErr    error
	signUpOutcome auth.SignUpOutcome
	signUpErr     error
	signOutErr    error
	signOutCalled bool
}

func (f *fakePort) GetSession(context.Context, http.Header) (*auth.SessionData, error) {
	return f.session, f.sessionErr
}

func (f *fakePort) SignInEmail(context.Context, http.Header, string, string) (*auth.SignInResult, error) {
	return nil, auth.ErrInvalidEmailOrPassword
}

func (f *fakePort) SignUpEmail(context.Context, http.Header, string, string, string) (auth.SignUpOutcome, error) {
	return f.signUpOutcome, f.signUpErr
}

func (f *fakePort) SignInSocial(context.Context, http.Header, string, string) (*auth.OAuthSignInResult, error) {
	return &auth.OAuthSignInResult{}, nil
}

func (f *fakePort) SignOut(context.Context, http.Header) ([]string, error) {
	f.signOutCalled = true
	if f.signOutErr != nil {
		return nil, f.signOutErr
	}
	return []string{"mf.session_token=; Path=/", "mf.session_data=; Path=/"}, nil
}

func (f *fakePort) ChangePassword(context.Context, http.Header, string, string, bool) error {
	return nil
}

func (f *fakePort) RequestPasswordReset(context.Context, http.Header, string, string) error {
	return nil
}

func (f *fakePort) ResetPassword(context.Context, http.Header, string, string) error {
	return nil
}

// fakeUserRepo serves FindByEmail from a fixed map.
type fakeUserRepo struct {
	byEmail map[string]*store.User
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*store.User, error) {
	return nil, store.ErrUserNotFound
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*store.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserRepo) FindWithProfile(context.Context, string) (*store.UserWithProfile, error) {
	return nil, store.ErrUserNotFound
}

func (f *fakeUserRepo) Update(context.Context, string, store.UpdateUserData) (*store.User, error) {
	return nil, store.ErrUserNotFound
}

func TestAuthService_GetCurrentUser_NoSession(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(&fakePort{}, &fakeUserRepo{}, nil)

	user, err := svc.GetCurrentUser(context.Background(), http.Header{})
	require.NoError(t, err, "an absent session is not an error")
	assert.Nil(t, user)
}

func TestAuthService_GetCurrentUser_WithSession(t *testing.T) {
	t.Parallel()

	port := &fakePort{session: &auth.SessionData{
		User: auth.User{ID: "u1", Email: "me@example.com"},
	}}
	svc := NewAuthService(port, &fakeUserRepo{}, nil)

	user, err := svc.GetCurrentUser(context.Background(), http.Header{})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "me@example.com", user.Email)
}

func TestAuthService_SignUp_DuplicatePreCheck(t *testing.T) {
	t.Parallel()

	repo := &fakeUserRepo{byEmail: map[string]*store.User{
		"taken@example.com": {ID: "u1", Email: "taken@example.com"},
	}}
	port := &fakePort{signUpErr: errors.New("must not be reached")}
	svc := NewAuthService(port, repo, nil)

	_, err := svc.SignUp(context.Background(), http.Header{}, "taken@example.com", "sup3rsecret", "T")
	assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
}

func TestAuthService_SignUp_Passthrough(t *testing.T) {
	t.Parallel()

	repo := &fakeUserRepo{byEmail: map[string]*store.User{}}
	port := &fakePort{signUpOutcome: auth.PendingSignUp{Email: "new@example.com", Name: "N"}}
	svc := NewAuthService(port, repo, nil)

	outcome, err := svc.SignUp(context.Background(), http.Header{}, "new@example.com", "sup3rsecret", "N")
	require.NoError(t, err)
	pending, ok := outcome.(auth.PendingSignUp)
	require.True(t, ok)
	assert.Equal(t, "new@example.com", pending.Email)
}

func TestAuthService_SignOut_SwallowsFailure(t *testing.T) {
	t.Parallel()

	port := &fakePort{signOutErr: errors.New("identity store down")}
	svc := NewAuthService(port, &fakeUserRepo{}, nil)

	cookies := svc.SignOut(context.Background(), http.Header{})
	assert.True(t, port.signOutCalled)
	assert.Nil(t, cookies, "failed upstream sign-out yields no cookies; the handler clears its own")
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Invalid email or password.", UserMessage(auth.ErrInvalidEmailOrPassword))
	assert.Equal(t, "An account with this email already exists.", UserMessage(auth.ErrUserAlreadyExists))

	unknown := &auth.Error{Code: "SOMETHING_NEW", Message: "internal detail"}
	msg := UserMessage(unknown)
	assert.Equal(t, genericMessage, msg)
	assert.NotContains(t, msg, "SOMETHING_NEW")
	assert.NotContains(t, msg, "internal detail")

	assert.Equal(t, genericMessage, UserMessage(errors.New("pg: connection refused")))
}

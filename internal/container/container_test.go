package container

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/manifold/internal/auth"
	"github.com/dmitrymomot/manifold/internal/email"
	"github.com/dmitrymomot/manifold/internal/store"
	"github.com/dmitrymomot/manifold/pkg/appenv"
)

// testPool returns an unconnected pool; construction never touches the
// database, so a lazy pool is enough.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), "postgres://localhost:5432/container_test")
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func minimalConfig() appenv.Config {
	return appenv.Config{
		DatabaseURL: "postgres://localhost:5432/container_test",
		BaseURL:     "http://localhost:8080",
		AuthSecret:  "container-test-secret",
	}
}

func TestNew_MinimalConfig(t *testing.T) {
	t.Parallel()

	c, err := New(context.Background(), minimalConfig(), WithPool(testPool(t)))
	require.NoError(t, err, "the three mandatory keys are enough to build")

	assert.NotNil(t, c.Auth)
	assert.NotNil(t, c.Users)
	assert.NotNil(t, c.Email)
	assert.NotNil(t, c.IdentityHandler)

	// Without an API key the email capability exists but rejects sends.
	err = c.Email.Send(context.Background(), email.Message{To: "x@example.com", Subject: "s"})
	assert.ErrorIs(t, err, email.ErrNotConfigured)
}

func TestNew_ExposesExactlyFourCapabilities(t *testing.T) {
	t.Parallel()

	typ := reflect.TypeOf(Container{})
	assert.Equal(t, 4, typ.NumField(),
		"the container surface is fixed: Auth, Users, Email, IdentityHandler")
}

func TestNew_MissingConfig_ListsEveryKey(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), appenv.Config{BaseURL: "http://localhost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), appenv.KeyDatabaseURL)
	assert.Contains(t, err.Error(), appenv.KeyAuthSecret)
	assert.NotContains(t, err.Error(), appenv.KeyBaseURL)
}

// memProfiles records Create calls; other operations are unused by the
// post-signup hook.
type memProfiles struct {
	created []store.CreateProfileData
	fail    error
}

func (m *memProfiles) FindByUserID(context.Context, string) (*store.Profile, error) {
	return nil, nil
}

func (m *memProfiles) Create(_ context.Context, data store.CreateProfileData) (*store.Profile, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.created = append(m.created, data)
	return &store.Profile{UserID: data.UserID, FullName: data.FullName}, nil
}

func (m *memProfiles) Update(context.Context, string, store.UpdateProfileData) (*store.Profile, error) {
	return nil, nil
}

func TestProfileCreator_WritesProfileRow(t *testing.T) {
	t.Parallel()

	profiles := &memProfiles{}
	hook := profileCreator(profiles, slog.New(slog.DiscardHandler))

	err := hook(context.Background(), &auth.User{ID: "u1", Email: "new@example.com", Name: "New User"})
	require.NoError(t, err)

	require.Len(t, profiles.created, 1, "a fresh account gets a profile row without any user action")
	assert.Equal(t, "u1", profiles.created[0].UserID)
	require.NotNil(t, profiles.created[0].FullName)
	assert.Equal(t, "New User", *profiles.created[0].FullName)
}

func TestProfileCreator_EmptyNameStaysNull(t *testing.T) {
	t.Parallel()

	profiles := &memProfiles{}
	hook := profileCreator(profiles, slog.New(slog.DiscardHandler))

	err := hook(context.Background(), &auth.User{ID: "u2", Email: "oauth@example.com"})
	require.NoError(t, err)

	require.Len(t, profiles.created, 1)
	assert.Nil(t, profiles.created[0].FullName)
}

func TestProfileCreator_ReportsWriteFailure(t *testing.T) {
	t.Parallel()

	profiles := &memProfiles{fail: errors.New("connection reset")}
	hook := profileCreator(profiles, slog.New(slog.DiscardHandler))

	// The engine logs the error and completes the sign-up; the hook
	// itself only has to surface it.
	err := hook(context.Background(), &auth.User{ID: "u3", Email: "x@example.com", Name: "X"})
	assert.ErrorContains(t, err, "create profile")
}

func TestProviders_HalfConfiguredPairIgnored(t *testing.T) {
	t.Parallel()

	cfg := minimalConfig()
	cfg.GitHubClientID = "id-only"
	cfg.GoogleClientID = "gid"
	cfg.GoogleClientSecret = "gsecret"

	out := providers(cfg)
	assert.NotContains(t, out, "github", "a client ID without a secret is not a provider")
	assert.Contains(t, out, "google")
}

func TestProviders_AllConfigured(t *testing.T) {
	t.Parallel()

	cfg := minimalConfig()
	cfg.GitHubClientID, cfg.GitHubClientSecret = "a", "b"
	cfg.GoogleClientID, cfg.GoogleClientSecret = "c", "d"
	cfg.KakaoClientID, cfg.KakaoClientSecret = "e", "f"

	out := providers(cfg)
	assert.Len(t, out, 3)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/manifold/internal/store"
)

// memUserRepo and memProfileRepo are map-backed repositories.
type memUserRepo struct {
	users map[string]*store.User
}

func (m *memUserRepo) FindByID(_ context.Context, id string) (*store.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserRepo) FindByEmail(_ context.Context, email string) (*store.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) FindWithProfile(_ context.Context, userID string) (*store.UserWithProfile, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &store.UserWithProfile{User: *u}, nil
}

func (m *memUserRepo) Update(_ context.Context, id string, data store.UpdateUserData) (*store.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if data.Name != nil {
		u.Name = *data.Name
	}
	if data.Image != nil {
		u.Image = data.Image
	}
	return u, nil
}

type memProfileRepo struct {
	profiles map[string]*store.Profile // by user ID
}

func (m *memProfileRepo) FindByUserID(_ context.Context, userID string) (*store.Profile, error) {
	return m.profiles[userID], nil
}

func (m *memProfileRepo) Create(_ context.Context, data store.CreateProfileData) (*store.Profile, error) {
	p := &store.Profile{
		ID:        "p-" + data.UserID,
		UserID:    data.UserID,
		FullName:  data.FullName,
		AvatarURL: data.AvatarURL,
		Bio:       data.Bio,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.profiles[data.UserID] = p
	return p, nil
}

func (m *memProfileRepo) Update(_ context.Context, userID string, data store.UpdateProfileData) (*store.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, store.ErrProfileNotFound
	}
	if data.FullName != nil {
		p.FullName = data.FullName
	}
	if data.AvatarURL != nil {
		p.AvatarURL = data.AvatarURL
	}
	if data.Bio != nil {
		p.Bio = data.Bio
	}
	return p, nil
}

func newUserServiceFixture() (*UserService, *memUserRepo, *memProfileRepo) {
	users := &memUserRepo{users: map[string]*store.User{
		"u1": {ID: "u1", Email: "one@example.com", Name: "One"},
	}}
	profiles := &memProfileRepo{profiles: map[string]*store.Profile{}}
	return NewUserService(users, profiles), users, profiles
}

func strptr(s string) *string { return &s }

func TestUserService_UpdateProfile_CreatesWhenAbsent(t *testing.T) {
	t.Parallel()

	svc, _, profiles := newUserServiceFixture()

	p, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileInput{
		FullName: strptr("Jane Roe"),
		Bio:      strptr("Backend engineer."),
	})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Jane Roe", *p.FullName)
	assert.Equal(t, "Backend engineer.", *p.Bio)
	assert.NotNil(t, profiles.profiles["u1"])
}

func TestUserService_UpdateProfile_UpdatesExisting(t *testing.T) {
	t.Parallel()

	svc, _, profiles := newUserServiceFixture()
	profiles.profiles["u1"] = &store.Profile{ID: "p1", UserID: "u1", FullName: strptr("Old")}

	p, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileInput{
		FullName: strptr("New Name"),
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", *p.FullName)
	assert.Nil(t, p.Bio, "untouched fields stay as they were")
}

func TestUserService_UpdateProfile_SanitizesMarkup(t *testing.T) {
	t.Parallel()

	svc, _, _ := newUserServiceFixture()

	p, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileInput{
		FullName: strptr(`<script>alert(1)</script>Jane`),
		Bio:      strptr(`I <b>love</b> Go`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane", *p.FullName)
	assert.Equal(t, "I love Go", *p.Bio)
}

func TestUserService_UpdateProfile_UnknownUser(t *testing.T) {
	t.Parallel()

	svc, _, _ := newUserServiceFixture()

	_, err := svc.UpdateProfile(context.Background(), "missing", UpdateProfileInput{
		Bio: strptr("hi"),
	})
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

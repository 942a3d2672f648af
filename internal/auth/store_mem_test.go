package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*User // by ID
	hashes        map[string]string
	sessions      map[string]*Session // by token
	verifications map[string]verification
	oauthAccounts map[string]string // provider/providerAccountID -> userID
}

type verification struct {
	identifier string
	purpose    string
	expiresAt  time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]*User),
		hashes:        make(map[string]string),
		sessions:      make(map[string]*Session),
		verifications: make(map[string]verification),
		oauthAccounts: make(map[string]string),
	}
}

func (m *memStore) findByEmail(email string) *User {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (m *memStore) CreateUser(_ context.Context, email, name, passwordHash string, emailVerified bool) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findByEmail(email) != nil {
		return nil, errDuplicate
	}
	now := time.Now()
	u := &User{ID: uuid.NewString(), Email: email, Name: name, EmailVerified: emailVerified, CreatedAt: now, UpdatedAt: now}
	m.users[u.ID] = u
	m.hashes[u.ID] = passwordHash
	cp := *u
	return &cp, nil
}

func (m *memStore) CreateOAuthUser(_ context.Context, email, name string, image *string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findByEmail(email) != nil {
		return nil, errDuplicate
	}
	now := time.Now()
	u := &User{ID: uuid.NewString(), Email: email, Name: name, EmailVerified: true, Image: image, CreatedAt: now, UpdatedAt: now}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.findByEmail(email)
	if u == nil {
		return nil, "", errNotFound
	}
	cp := *u
	return &cp, m.hashes[u.ID], nil
}

func (m *memStore) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) MarkEmailVerified(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return errNotFound
	}
	u.EmailVerified = true
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[userID] = passwordHash
	return nil
}

func (m *memStore) CreateSession(_ context.Context, userID, token string, expiresAt time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{ID: uuid.NewString(), UserID: userID, Token: token, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	m.sessions[token] = s
	cp := *s
	return &cp, nil
}

func (m *memStore) SessionByToken(_ context.Context, token string) (*Session, *User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, nil, errNotFound
	}
	u, ok := m.users[s.UserID]
	if !ok {
		return nil, nil, errNotFound
	}
	sc, uc := *s, *u
	return &sc, &uc, nil
}

func (m *memStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memStore) DeleteUserSessions(_ context.Context, userID, keepToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if s.UserID == userID && token != keepToken {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *memStore) CreateVerification(_ context.Context, identifier, token, purpose string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for t, v := range m.verifications {
		if v.identifier == identifier && v.purpose == purpose {
			delete(m.verifications, t)
		}
	}
	m.verifications[token] = verification{identifier: identifier, purpose: purpose, expiresAt: expiresAt}
	return nil
}

func (m *memStore) ConsumeVerification(_ context.Context, token, purpose string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.verifications[token]
	if !ok || v.purpose != purpose || time.Now().After(v.expiresAt) {
		return "", errNotFound
	}
	delete(m.verifications, token)
	return v.identifier, nil
}

func (m *memStore) UpsertOAuthAccount(_ context.Context, userID, provider, providerAccountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oauthAccounts[provider+"/"+providerAccountID] = userID
	return nil
}

func (m *memStore) sessionCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

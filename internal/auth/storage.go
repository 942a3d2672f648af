package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/manifold/pkg/db"
)

// storage sentinels. The engine maps these to coded identity errors.
var (
	errNotFound  = errors.New("auth: record not found")
	errDuplicate = errors.New("auth: duplicate record")
)

const credentialProvider = "credential"

// Store persists identity state: users with credential accounts,
// sessions, verification tokens, and OAuth account links.
type Store interface {
	// CreateUser inserts a user together with a credential account
	// holding the password hash. Returns errDuplicate when the email
	// is taken.
	CreateUser(ctx context.Context, email, name, passwordHash string, emailVerified bool) (*User, error)

	// CreateOAuthUser inserts a verified user without a credential
	// account. Returns errDuplicate when the email is taken.
	CreateOAuthUser(ctx context.Context, email, name string, image *string) (*User, error)

	// UserByEmail fetches a user and the password hash of its
	// credential account. The hash is empty for OAuth-only users.
	UserByEmail(ctx context.Context, email string) (*User, string, error)

	UserByID(ctx context.Context, id string) (*User, error)

	MarkEmailVerified(ctx context.Context, userID string) error

	// UpdatePassword replaces the credential account hash, creating
	// the account when the user signed up through OAuth.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	CreateSession(ctx context.Context, userID, token string, expiresAt time.Time) (*Session, error)

	// SessionByToken fetches a session and its user. Expired
	// sessions are treated as absent.
	SessionByToken(ctx context.Context, token string) (*Session, *User, error)

	DeleteSession(ctx context.Context, token string) error

	// DeleteUserSessions removes every session of the user except
	// the one identified by keepToken. Pass an empty keepToken to
	// remove all of them.
	DeleteUserSessions(ctx context.Context, userID, keepToken string) error

	// CreateVerification stores a single-use token for the
	// identifier and purpose, replacing any outstanding one.
	CreateVerification(ctx context.Context, identifier, token, purpose string, expiresAt time.Time) error

	// ConsumeVerification atomically fetches and deletes an unexpired
	// token, returning its identifier.
	ConsumeVerification(ctx context.Context, token, purpose string) (string, error)

	// UpsertOAuthAccount links a provider account to the user.
	UpsertOAuthAccount(ctx context.Context, userID, provider, providerAccountID string) error
}

// PostgresStore implements Store over a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const userCols = "id, email, name, email_verified, image, created_at, updated_at"

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.EmailVerified, &u.Image, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, name, passwordHash string, emailVerified bool) (*User, error) {
	var user *User
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO users (id, email, name, email_verified) VALUES ($1, $2, $3, $4) RETURNING `+userCols,
			uuid.NewString(), email, name, emailVerified)
		u, err := scanUser(row)
		if err != nil {
			if isUniqueViolation(err) {
				return errDuplicate
			}
			return fmt.Errorf("insert user: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO accounts (id, user_id, provider, provider_account_id, password_hash) VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), u.ID, credentialProvider, u.ID, passwordHash)
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *PostgresStore) CreateOAuthUser(ctx context.Context, email, name string, image *string) (*User, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, email_verified, image) VALUES ($1, $2, $3, true, $4) RETURNING `+userCols,
		uuid.NewString(), email, name, image)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (*User, string, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.name, u.email_verified, u.image, u.created_at, u.updated_at,
		       COALESCE(a.password_hash, '')
		FROM users u
		LEFT JOIN accounts a ON a.user_id = u.id AND a.provider = $2
		WHERE lower(u.email) = lower($1)`,
		email, credentialProvider)

	var u User
	var hash string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.EmailVerified, &u.Image, &u.CreatedAt, &u.UpdatedAt, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", errNotFound
		}
		return nil, "", fmt.Errorf("select user: %w", err)
	}
	return &u, hash, nil
}

func (s *PostgresStore) UserByID(ctx context.Context, id string) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) MarkEmailVerified(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET email_verified = true, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, user_id, provider, provider_account_id, password_hash)
		VALUES ($1, $2, $3, $2, $4)
		ON CONFLICT (provider, provider_account_id)
		DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = now()`,
		uuid.NewString(), userID, credentialProvider, passwordHash)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID, token string, expiresAt time.Time) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, user_id, token, expires_at) VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, token, expires_at, created_at`,
		uuid.NewString(), userID, token, expiresAt)

	var sess Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Token, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return &sess, nil
}

func (s *PostgresStore) SessionByToken(ctx context.Context, token string) (*Session, *User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.token, s.expires_at, s.created_at,
		       u.id, u.email, u.name, u.email_verified, u.image, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > now()`,
		token)

	var sess Session
	var u User
	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.Token, &sess.ExpiresAt, &sess.CreatedAt,
		&u.ID, &u.Email, &u.Name, &u.EmailVerified, &u.Image, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, errNotFound
		}
		return nil, nil, fmt.Errorf("select session: %w", err)
	}
	return &sess, &u, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteUserSessions(ctx context.Context, userID, keepToken string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND token <> $2`, userID, keepToken)
	if err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateVerification(ctx context.Context, identifier, token, purpose string, expiresAt time.Time) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM verifications WHERE identifier = $1 AND purpose = $2`, identifier, purpose)
		if err != nil {
			return fmt.Errorf("delete verifications: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO verifications (id, identifier, token, purpose, expires_at) VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), identifier, token, purpose, expiresAt)
		if err != nil {
			return fmt.Errorf("insert verification: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ConsumeVerification(ctx context.Context, token, purpose string) (string, error) {
	row := s.pool.QueryRow(ctx, `
		DELETE FROM verifications
		WHERE token = $1 AND purpose = $2 AND expires_at > now()
		RETURNING identifier`,
		token, purpose)

	var identifier string
	if err := row.Scan(&identifier); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errNotFound
		}
		return "", fmt.Errorf("consume verification: %w", err)
	}
	return identifier, nil
}

func (s *PostgresStore) UpsertOAuthAccount(ctx context.Context, userID, provider, providerAccountID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, user_id, provider, provider_account_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, provider_account_id)
		DO UPDATE SET user_id = EXCLUDED.user_id, updated_at = now()`,
		uuid.NewString(), userID, provider, providerAccountID)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

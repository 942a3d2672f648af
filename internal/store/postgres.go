package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUserRepository implements UserRepository against pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a user repository backed by pool.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, email, name, email_verified, image, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.EmailVerified, &u.Image, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID returns the user or ErrUserNotFound.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// FindByEmail returns the user or nil when no account uses the email.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// FindWithProfile returns the user joined with its optional profile.
func (r *PostgresUserRepository) FindWithProfile(ctx context.Context, userID string) (*UserWithProfile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.name, u.email_verified, u.image, u.created_at, u.updated_at,
		       p.id, p.user_id, p.full_name, p.avatar_url, p.bio, p.created_at, p.updated_at
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1`, userID)

	var (
		u User
		// profile columns come back NULL when the row is absent
		pID, pUserID                *string
		pFullName, pAvatar, pBio    *string
		pCreatedAt, pUpdatedAt      *time.Time
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.EmailVerified, &u.Image, &u.CreatedAt, &u.UpdatedAt,
		&pID, &pUserID, &pFullName, &pAvatar, &pBio, &pCreatedAt, &pUpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user with profile: %w", err)
	}

	result := &UserWithProfile{User: u}
	if pID != nil {
		result.Profile = &Profile{
			ID:        *pID,
			UserID:    *pUserID,
			FullName:  pFullName,
			AvatarURL: pAvatar,
			Bio:       pBio,
			CreatedAt: *pCreatedAt,
			UpdatedAt: *pUpdatedAt,
		}
	}
	return result, nil
}

// Update applies the non-nil fields and returns the updated user.
func (r *PostgresUserRepository) Update(ctx context.Context, id string, data UpdateUserData) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE($2, name),
		    image = COALESCE($3, image),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id, data.Name, data.Image))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// PostgresProfileRepository implements ProfileRepository against pgx.
type PostgresProfileRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresProfileRepository creates a profile repository backed by pool.
func NewPostgresProfileRepository(pool *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

const profileColumns = `id, user_id, full_name, avatar_url, bio, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.UserID, &p.FullName, &p.AvatarURL, &p.Bio, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByUserID returns the profile or nil when the user has none.
func (r *PostgresProfileRepository) FindByUserID(ctx context.Context, userID string) (*Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

// Create inserts a new profile row.
func (r *PostgresProfileRepository) Create(ctx context.Context, data CreateProfileData) (*Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, user_id, full_name, avatar_url, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+profileColumns,
		uuid.NewString(), data.UserID, data.FullName, data.AvatarURL, data.Bio))
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

// Update applies the non-nil fields and returns the updated profile.
func (r *PostgresProfileRepository) Update(ctx context.Context, userID string, data UpdateProfileData) (*Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `
		UPDATE profiles
		SET full_name = COALESCE($2, full_name),
		    avatar_url = COALESCE($3, avatar_url),
		    bio = COALESCE($4, bio),
		    updated_at = now()
		WHERE user_id = $1
		RETURNING `+profileColumns, userID, data.FullName, data.AvatarURL, data.Bio))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

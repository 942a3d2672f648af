package store

import "context"

// UserRepository is the entity-lookup port consumed by the application
// services. Implemented once against PostgreSQL; never retried here.
type UserRepository interface {
	// FindByID returns the user or ErrUserNotFound.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail returns the user or nil when no account uses the email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindWithProfile returns the user joined with its optional profile,
	// or ErrUserNotFound.
	FindWithProfile(ctx context.Context, userID string) (*UserWithProfile, error)

	// Update applies the non-nil fields and returns the updated user.
	Update(ctx context.Context, id string, data UpdateUserData) (*User, error)
}

// ProfileRepository manages the profile extension rows.
type ProfileRepository interface {
	// FindByUserID returns the profile or nil when the user has none.
	FindByUserID(ctx context.Context, userID string) (*Profile, error)

	// Create inserts a new profile row.
	Create(ctx context.Context, data CreateProfileData) (*Profile, error)

	// Update applies the non-nil fields and returns the updated profile.
	Update(ctx context.Context, userID string, data UpdateProfileData) (*Profile, error)
}

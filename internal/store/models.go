// Package store holds the persistence layer: user and profile entities,
// the repository ports the application services consume, and their pgx
// implementations.
package store

import "time"

// User mirrors the users table. Image is nullable in storage and stays a
// pointer here so "no image" is distinguishable from an empty URL.
type User struct {
	ID            string
	Email         string
	Name          string
	EmailVerified bool
	Image         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Profile carries the user's extended, user-editable attributes.
type Profile struct {
	ID        string
	UserID    string
	FullName  *string
	AvatarURL *string
	Bio       *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserWithProfile joins a user with its optional profile row.
type UserWithProfile struct {
	User
	Profile *Profile
}

// UpdateUserData carries the mutable user fields. Nil means "leave as is".
type UpdateUserData struct {
	Name  *string
	Image *string
}

// CreateProfileData carries the fields for a new profile row.
type CreateProfileData struct {
	UserID    string
	FullName  *string
	AvatarURL *string
	Bio       *string
}

// UpdateProfileData carries the mutable profile fields. Nil means "leave as is".
type UpdateProfileData struct {
	FullName  *string
	AvatarURL *string
	Bio       *string
}

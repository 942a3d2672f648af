package service

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/manifold/internal/store"
	"github.com/dmitrymomot/manifold/pkg/sanitizer"
)

// UserService manages user records and their profile extension.
type UserService struct {
	users    store.UserRepository
	profiles store.ProfileRepository
}

// NewUserService builds a UserService over the repositories.
func NewUserService(users store.UserRepository, profiles store.ProfileRepository) *UserService {
	return &UserService{users: users, profiles: profiles}
}

// GetUserByID returns the user or store.ErrUserNotFound.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.users.FindByID(ctx, id)
}

// GetUserByEmail returns the user or nil when the email is unknown.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.users.FindByEmail(ctx, email)
}

// GetUserWithProfile returns the user joined with its optional profile.
func (s *UserService) GetUserWithProfile(ctx context.Context, userID string) (*store.UserWithProfile, error) {
	return s.users.FindWithProfile(ctx, userID)
}

// UpdateProfileInput carries the user-editable profile fields. Nil
// means "leave as is".
type UpdateProfileInput struct {
	FullName  *string
	AvatarURL *string
	Bio       *string
}

// UpdateProfile sanitizes the input and creates or updates the profile
// row of the user.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*store.Profile, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	fullName := clean(input.FullName)
	avatarURL := clean(input.AvatarURL)
	bio := clean(input.Bio)

	existing, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if existing == nil {
		return s.profiles.Create(ctx, store.CreateProfileData{
			UserID:    userID,
			FullName:  fullName,
			AvatarURL: avatarURL,
			Bio:       bio,
		})
	}
	return s.profiles.Update(ctx, userID, store.UpdateProfileData{
		FullName:  fullName,
		AvatarURL: avatarURL,
		Bio:       bio,
	})
}

// clean strips markup from user input, preserving nil.
func clean(v *string) *string {
	if v == nil {
		return nil
	}
	cleaned := sanitizer.StripHTML(*v)
	return &cleaned
}

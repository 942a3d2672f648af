// Package service holds the application services the request handlers
// call into: identity flows behind the Port boundary and user/profile
// management over the repositories.
package service

import (
	"errors"

	"github.com/dmitrymomot/manifold/internal/auth"
)

// genericMessage is shown whenever an error carries no known code.
// Raw codes and internal messages never reach users.
const genericMessage = "Something went wrong. Please try again."

// userMessages maps identity error codes to user-facing copy.
var userMessages = map[string]string{
	"INVALID_EMAIL_OR_PASSWORD": "Invalid email or password.",
	"EMAIL_NOT_VERIFIED":        "Please verify your email address before signing in.",
	"USER_NOT_FOUND":            "Account not found.",
	"INVALID_PASSWORD":          "Current password is incorrect.",
	"INVALID_TOKEN":             "This link is invalid or has expired. Please request a new one.",
	"USER_ALREADY_EXISTS":       "An account with this email already exists.",
	"PASSWORD_TOO_SHORT":        "Password must be at least 8 characters.",
	"PASSWORD_TOO_LONG":         "Password is too long.",
	"EMAIL_ALREADY_VERIFIED":    "This email address is already verified.",
	"UNAUTHORIZED":              "Please sign in to continue.",
	"PROVIDER_NOT_FOUND":        "This sign-in method is not available.",
	"STATE_MISMATCH":            "Sign-in could not be completed. Please try again.",
}

// UserMessage translates err into user-facing copy. Unknown codes and
// plain errors collapse into a generic message.
func UserMessage(err error) string {
	var ae *auth.Error
	if errors.As(err, &ae) {
		if msg, ok := userMessages[ae.Code]; ok {
			return msg
		}
	}
	return genericMessage
}

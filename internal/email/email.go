// Package email defines the transactional email port and its Resend
// adapter. The adapter is always constructed, even without an API key, so
// the container shape stays stable; sends simply fail with
// ErrNotConfigured until a key is supplied.
package email

import (
	"context"
	"errors"
)

// Errors.
var (
	// ErrNotConfigured is returned by every send when no mail API key is
	// present in the configuration.
	ErrNotConfigured = errors.New("email: service not configured")

	// ErrSendFailed wraps provider delivery failures.
	ErrSendFailed = errors.New("email: failed to send")
)

// Message is a fully-prepared transactional email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	From    string // override default sender when non-empty
}

// Service is the transactional email port consumed by the application
// layer and the identity engine's verification/reset hooks.
type Service interface {
	// Send delivers a prepared message.
	Send(ctx context.Context, msg Message) error

	// SendVerificationEmail sends the email-verification link.
	SendVerificationEmail(ctx context.Context, to, verificationURL string) error

	// SendPasswordResetEmail sends the password-reset link.
	SendPasswordResetEmail(ctx context.Context, to, resetURL string) error
}

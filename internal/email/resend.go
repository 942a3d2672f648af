package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// defaultFrom is Resend's shared onboarding sender, used until a sender
// address is configured.
const defaultFrom = "onboarding@resend.dev"

// ResendService implements Service using the Resend API.
type ResendService struct {
	client *resend.Client
	from   string
}

// NewResend creates the Resend-backed email service. An empty apiKey yields
// a service whose sends fail with ErrNotConfigured; an empty fromEmail
// falls back to Resend's onboarding sender.
func NewResend(apiKey, fromEmail string) *ResendService {
	s := &ResendService{from: fromEmail}
	if s.from == "" {
		s.from = defaultFrom
	}
	if apiKey != "" {
		s.client = resend.NewClient(apiKey)
	}
	return s
}

// Send implements Service.
func (s *ResendService) Send(ctx context.Context, msg Message) error {
	if s.client == nil {
		return ErrNotConfigured
	}

	from := msg.From
	if from == "" {
		from = s.from
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

// SendVerificationEmail implements Service.
func (s *ResendService) SendVerificationEmail(ctx context.Context, to, verificationURL string) error {
	return s.Send(ctx, Message{
		To:      to,
		Subject: "Verify your email address",
		HTML: fmt.Sprintf(
			`<p>Welcome! Confirm your email address to activate your account.</p><p><a href=%q>Verify email</a></p>`,
			verificationURL),
		Text: "Welcome! Confirm your email address to activate your account: " + verificationURL,
	})
}

// SendPasswordResetEmail implements Service.
func (s *ResendService) SendPasswordResetEmail(ctx context.Context, to, resetURL string) error {
	return s.Send(ctx, Message{
		To:      to,
		Subject: "Reset your password",
		HTML: fmt.Sprintf(
			`<p>A password reset was requested for your account. If this was you, follow the link below.</p><p><a href=%q>Reset password</a></p>`,
			resetURL),
		Text: "A password reset was requested for your account: " + resetURL,
	})
}

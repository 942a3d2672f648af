package oauth

import (
	"context"

	"golang.org/x/oauth2"
)

// UserInfo is the provider-agnostic identity returned from a provider's
// userinfo endpoint. Email is always verified by the provider before it
// reaches this struct.
type UserInfo struct {
	ID      string // provider's unique user identifier
	Email   string
	Name    string
	Picture string
}

// Provider abstracts provider-specific OAuth operations.
type Provider interface {
	// Name returns the provider identifier (e.g. "github").
	Name() string

	// AuthCodeURL generates the authorization URL for the OAuth flow.
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string

	// Exchange trades an authorization code for tokens. A non-empty
	// redirectURI overrides the configured one for this exchange.
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)

	// FetchUserInfo retrieves user information using the access token.
	// Implementations verify the user's email and return ErrEmailNotVerified
	// when the provider reports it unverified.
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error)
}

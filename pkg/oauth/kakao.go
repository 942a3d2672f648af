package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
)

const (
	// KakaoProviderName is the identifier for the Kakao OAuth provider.
	KakaoProviderName = "kakao"
	kakaoAuthURL      = "https://kauth.kakao.com/oauth/authorize"
	kakaoTokenURL     = "https://kauth.kakao.com/oauth/token"
	kakaoUserInfoURL  = "https://kapi.kakao.com/v2/user/me"
)

// KakaoDefaultScopes returns the default scopes for Kakao OAuth.
func KakaoDefaultScopes() []string {
	return []string{"account_email", "profile_nickname", "profile_image"}
}

// KakaoProvider implements Provider for Kakao OAuth.
type KakaoProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewKakaoProvider creates a new Kakao OAuth provider.
// Returns an error if ClientID or ClientSecret is empty.
func NewKakaoProvider(cfg Config, opts ...Option) (*KakaoProvider, error) {
	if cfg.ClientID == "" {
		return nil, ErrMissingClientID
	}
	if cfg.ClientSecret == "" {
		return nil, ErrMissingClientSecret
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = KakaoDefaultScopes()
	}

	return &KakaoProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  kakaoAuthURL,
				TokenURL: kakaoTokenURL,
			},
		},
		httpClient: o.httpClient,
	}, nil
}

// Name returns the provider identifier.
func (p *KakaoProvider) Name() string {
	return KakaoProviderName
}

// AuthCodeURL generates the authorization URL.
func (p *KakaoProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.config.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for tokens.
func (p *KakaoProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	cfg := p.config
	if redirectURI != "" {
		override := *p.config
		override.RedirectURL = redirectURI
		cfg = &override
	}
	return cfg.Exchange(p.contextWithHTTPClient(ctx), code)
}

// FetchUserInfo retrieves user information from Kakao.
// Returns ErrEmailNotVerified if the Kakao account's email is missing or
// reported unverified.
func (p *KakaoProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	client := p.config.Client(p.contextWithHTTPClient(ctx), token)

	resp, err := client.Get(kakaoUserInfoURL)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, fmt.Errorf("fetch userinfo: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Join(ErrRequestFailed, fmt.Errorf("userinfo request failed: status=%d", resp.StatusCode))
	}

	var user kakaoUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Join(ErrDecodeFailed, fmt.Errorf("decode userinfo: %w", err))
	}

	if user.KakaoAccount.Email == "" || !user.KakaoAccount.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}

	return &UserInfo{
		ID:      strconv.FormatInt(user.ID, 10),
		Email:   user.KakaoAccount.Email,
		Name:    user.KakaoAccount.Profile.Nickname,
		Picture: user.KakaoAccount.Profile.ProfileImageURL,
	}, nil
}

func (p *KakaoProvider) contextWithHTTPClient(ctx context.Context) context.Context {
	if p.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	return ctx
}

type kakaoUserInfo struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email           string `json:"email"`
		IsEmailVerified bool   `json:"is_email_verified"`
		Profile         struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

package appenv

// Mandatory configuration keys. Extraction fails unless all of them are
// present and non-empty in the source.
const (
	KeyDatabaseURL = "DATABASE_URL"
	KeyBaseURL     = "BASE_URL"
	KeyAuthSecret  = "AUTH_SECRET"
)

// Optional configuration keys. Absent keys stay empty strings and are never
// defaulted here; consumers decide what a missing value means.
const (
	KeyGitHubClientID     = "GITHUB_CLIENT_ID"
	KeyGitHubClientSecret = "GITHUB_CLIENT_SECRET"
	KeyGoogleClientID     = "GOOGLE_CLIENT_ID"
	KeyGoogleClientSecret = "GOOGLE_CLIENT_SECRET"
	KeyKakaoClientID      = "KAKAO_CLIENT_ID"
	KeyKakaoClientSecret  = "KAKAO_CLIENT_SECRET"
	KeyResendAPIKey       = "RESEND_API_KEY"
	KeyResendFromEmail    = "RESEND_FROM_EMAIL"
)

// Config is the typed configuration record shared by every runtime.
// It is created once per request (server processes) or once per invocation
// (edge) and never mutated afterwards.
type Config struct {
	DatabaseURL string
	BaseURL     string
	AuthSecret  string

	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	KakaoClientID      string
	KakaoClientSecret  string

	ResendAPIKey    string
	ResendFromEmail string
}

// Valid reports whether all mandatory fields are non-empty. Container
// construction rechecks this to fail fast when validation was skipped
// upstream.
func (c Config) Valid() bool {
	return c.DatabaseURL != "" && c.BaseURL != "" && c.AuthSecret != ""
}

// MissingKeys returns the mandatory keys whose fields are empty, in
// declaration order.
func (c Config) MissingKeys() []string {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, KeyDatabaseURL)
	}
	if c.BaseURL == "" {
		missing = append(missing, KeyBaseURL)
	}
	if c.AuthSecret == "" {
		missing = append(missing, KeyAuthSecret)
	}
	return missing
}

// Extract pulls the known keys out of src and validates the result.
// Every missing mandatory key is collected into a single *ValidationError
// rather than failing on the first one.
func Extract(src Source) (Config, error) {
	cfg := Config{
		DatabaseURL: src.Lookup(KeyDatabaseURL),
		BaseURL:     src.Lookup(KeyBaseURL),
		AuthSecret:  src.Lookup(KeyAuthSecret),

		GitHubClientID:     src.Lookup(KeyGitHubClientID),
		GitHubClientSecret: src.Lookup(KeyGitHubClientSecret),
		GoogleClientID:     src.Lookup(KeyGoogleClientID),
		GoogleClientSecret: src.Lookup(KeyGoogleClientSecret),
		KakaoClientID:      src.Lookup(KeyKakaoClientID),
		KakaoClientSecret:  src.Lookup(KeyKakaoClientSecret),

		ResendAPIKey:    src.Lookup(KeyResendAPIKey),
		ResendFromEmail: src.Lookup(KeyResendFromEmail),
	}

	if missing := cfg.MissingKeys(); len(missing) > 0 {
		return Config{}, &ValidationError{Missing: missing}
	}

	return cfg, nil
}

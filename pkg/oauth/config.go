package oauth

// Config holds the client credentials shared by every provider constructor.
// RedirectURL may be left empty and supplied per exchange instead.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

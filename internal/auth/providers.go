package auth

import (
	"net/http"
	"strings"

	"codeberg.org/nexusdigital/identity/internal/config"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/apple"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
)

// sets up all configured OAuth providers using goth. Providers without
// credentials are simply skipped; social login is optional.
func InitializeProviders(cfg *config.Config) []string {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))

	isHTTPS := strings.HasPrefix(cfg.BaseURL, "https://")

	// cookie only needs to survive the OAuth redirect round trip
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   isHTTPS,
		SameSite: http.SameSiteLaxMode,
	}

	gothic.Store = store

	callback := func(provider string) string {
		return cfg.BaseURL + "/api/v1/auth/" + provider + "/callback"
	}

	var providers []goth.Provider
	var enabled []string

	if cfg.Google.Enabled() {
		providers = append(providers, google.New(
			cfg.Google.ClientID,
			cfg.Google.ClientSecret,
			callback("google"),
			"email", "profile",
		))
		enabled = append(enabled, "google")
	}

	if cfg.Facebook.Enabled() {
		providers = append(providers, facebook.New(
			cfg.Facebook.ClientID,
			cfg.Facebook.ClientSecret,
			callback("facebook"),
			"email",
		))
		enabled = append(enabled, "facebook")
	}

	if cfg.GitHub.Enabled() {
		providers = append(providers, github.New(
			cfg.GitHub.ClientID,
			cfg.GitHub.ClientSecret,
			callback("github"),
			"user:email",
		))
		enabled = append(enabled, "github")
	}

	if cfg.Apple.Enabled() {
		providers = append(providers, apple.New(
			cfg.Apple.ClientID,
			cfg.Apple.ClientSecret,
			callback("apple"),
			nil,
			apple.ScopeName, apple.ScopeEmail,
		))
		enabled = append(enabled, "apple")
	}

	goth.UseProviders(providers...)
	return enabled
}

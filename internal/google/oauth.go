// Package google wraps the Google Calendar and Sheets REST clients.
package google

import (
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/config"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// Scopes requested on the consent screen: read calendars, read/write events.
var Scopes = []string{gcal.CalendarReadonlyScope, gcal.CalendarEventsScope}

// OAuthConfig returns the authorization-code flow configuration, or nil when
// the client credentials are not set.
func OAuthConfig(cfg *config.Config) *oauth2.Config {
	if !cfg.GoogleOAuthConfigured() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Scopes:       Scopes,
		Endpoint:     googleoauth.Endpoint,
	}
}

// Package config reads the planner's settings from the environment. The
// entrypoint loads a .env file first, so local development and deployment
// configure the same variables.
package config

import "os"

// Config carries every setting the server binary needs.
type Config struct {
	// ListenAddr is the HTTP listen address of the API server.
	ListenAddr string
	// LogLevel selects the slog level: debug, info, warn or error.
	LogLevel string

	// GoogleClientID / GoogleClientSecret / GoogleRedirectURL configure the
	// OAuth application used for the Google Calendar connect flow.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	// GoogleCalendarID is the calendar events are written to; "primary" is
	// the user's default calendar.
	GoogleCalendarID string

	// CalDAVServerURL is the protocol provider's endpoint. Empty selects
	// iCloud.
	CalDAVServerURL string

	// FrontendURL feeds the deep links rendered into event descriptions.
	FrontendURL string
}

// Load reads the configuration from environment variables, applying
// defaults where a setting has a sensible one. Credentials have no
// defaults; handlers answer 500 when a flow needs an unset one.
func Load() Config {
	return Config{
		ListenAddr:         getenv("LISTEN_ADDR", ":8000"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		GoogleCalendarID:   getenv("GOOGLE_CALENDAR_ID", "primary"),
		CalDAVServerURL:    os.Getenv("CALDAV_SERVER_URL"),
		FrontendURL:        getenv("FRONTEND_URL", "http://localhost:3000"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

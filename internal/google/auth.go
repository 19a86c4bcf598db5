// Package google implements the Google Calendar side of the sync engine:
// OAuth token exchange, the typed event transport and the event body
// builder.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// AuthExchangeError is returned when the provider rejects an authorization
// code exchange. The provider's error body is preserved for diagnostics.
type AuthExchangeError struct {
	Status int
	Body   string
	err    error
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("google: code exchange rejected (status %d): %s", e.Status, e.Body)
}

func (e *AuthExchangeError) Unwrap() error { return e.err }

// AuthRefreshError is returned when the provider rejects the stored refresh
// token. The user has revoked access and must reconnect the calendar.
type AuthRefreshError struct {
	Status int
	Body   string
	err    error
}

func (e *AuthRefreshError) Error() string {
	return fmt.Sprintf("google: token refresh rejected (status %d): %s", e.Status, e.Body)
}

func (e *AuthRefreshError) Unwrap() error { return e.err }

// TokenClient performs the OAuth2 exchanges against the Google token
// endpoint. Access tokens are deliberately not cached across calls: every
// sync operation refreshes, trading one extra round trip for freshness.
type TokenClient struct {
	cfg    *oauth2.Config
	logger *slog.Logger
}

// NewTokenClient assembles the OAuth2 configuration for the calendar scope.
func NewTokenClient(logger *slog.Logger, clientID, clientSecret, redirectURL string) *TokenClient {
	return &TokenClient{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		},
		logger: logger,
	}
}

// AuthURL builds the consent URL for the connect flow. Offline access plus
// forced consent so the provider reissues a refresh token on repeat
// connects.
func (c *TokenClient) AuthURL(state string) string {
	return c.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for the initial token bundle.
// One-shot, no retries.
func (c *TokenClient) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, &AuthExchangeError{Status: re.Response.StatusCode, Body: string(re.Body), err: err}
		}
		return nil, fmt.Errorf("google: exchange authorization code: %w", err)
	}
	c.logger.Debug("exchanged authorization code", "hasRefreshToken", tok.RefreshToken != "")
	return tok, nil
}

// Refresh trades the stored refresh token for a fresh access token. Called
// on every sync operation; a rejection means the user must reconnect.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, &AuthRefreshError{Body: "no refresh token stored"}
	}
	tok, err := c.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, &AuthRefreshError{Status: re.Response.StatusCode, Body: string(re.Body), err: err}
		}
		return nil, fmt.Errorf("google: refresh access token: %w", err)
	}
	return tok, nil
}

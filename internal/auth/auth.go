// Package auth handles Spotify OAuth for TuneSwipe users: authorization
// URLs, the callback exchange, and refreshing stored credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/tuneswipe/tuneswipe-api/internal/db"
	"github.com/tuneswipe/tuneswipe-api/internal/spotify"
)

// tokenExpiryBuffer forces a refresh when a token is close to expiring, so
// a playlist call does not fail mid-flight with a just-expired token.
const tokenExpiryBuffer = 5 * time.Minute

// ErrReauthRequired is returned when stored credentials are missing, expired
// beyond refresh, or lack playlist permissions. Callers surface it with a
// needs_auth flag so the frontend restarts the OAuth flow.
var ErrReauthRequired = errors.New("authentication required, please sign in again")

// Authenticator handles the Spotify OAuth flows for the API.
type Authenticator struct {
	auth   *spotifyauth.Authenticator
	config *oauth2.Config
	users  *db.UserRepository
}

// New creates an Authenticator. The redirect URI must match the Spotify app
// configuration.
func New(clientID, clientSecret, redirectURI string, users *db.UserRepository) *Authenticator {
	auth := spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURI),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
		),
	)

	// Plain oauth2 config for refreshing stored tokens outside a request flow.
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}

	return &Authenticator{
		auth:   auth,
		config: config,
		users:  users,
	}
}

// AuthURL returns the Spotify authorization URL with a fresh state value.
// The consent dialog is always shown so users can switch accounts.
func (a *Authenticator) AuthURL() string {
	state := uuid.NewString()
	return a.auth.AuthURL(state, spotifyauth.ShowDialog)
}

// Exchange completes the OAuth callback: it trades the authorization code
// for tokens, fetches the user's profile, and upserts the user row with the
// fresh credentials.
func (a *Authenticator) Exchange(ctx context.Context, r *http.Request) (*db.User, error) {
	state := r.URL.Query().Get("state")
	token, err := a.auth.Token(ctx, state, r)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	client := spotifyapi.New(a.auth.Client(ctx, token))
	profile, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting user profile: %w", err)
	}
	if profile.ID == "" {
		return nil, errors.New("spotify returned an empty user id")
	}

	user := &db.User{
		SpotifyID:      profile.ID,
		DisplayName:    profile.DisplayName,
		Email:          profile.Email,
		AccessToken:    &token.AccessToken,
		RefreshToken:   &token.RefreshToken,
		TokenExpiresAt: &token.Expiry,
	}
	if err := a.users.UpsertOnLogin(ctx, user); err != nil {
		return nil, fmt.Errorf("storing user: %w", err)
	}
	return user, nil
}

// FreshToken returns a valid access token for the user, refreshing and
// persisting rotated credentials when the stored token is near expiry.
// Returns ErrReauthRequired when no usable credentials remain.
func (a *Authenticator) FreshToken(ctx context.Context, user *db.User) (*oauth2.Token, error) {
	if user.AccessToken == nil || user.RefreshToken == nil || user.TokenExpiresAt == nil {
		return nil, ErrReauthRequired
	}

	current := &oauth2.Token{
		AccessToken:  *user.AccessToken,
		RefreshToken: *user.RefreshToken,
		Expiry:       *user.TokenExpiresAt,
		TokenType:    "Bearer",
	}

	if time.Until(current.Expiry) > tokenExpiryBuffer {
		return current, nil
	}

	fresh, err := a.config.TokenSource(ctx, current).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refreshing token: %v", ErrReauthRequired, err)
	}

	// Spotify may or may not rotate the refresh token.
	refreshToken := fresh.RefreshToken
	if refreshToken == "" {
		refreshToken = current.RefreshToken
	}
	if err := a.users.UpdateTokens(ctx, user.SpotifyID, fresh.AccessToken, refreshToken, fresh.Expiry); err != nil {
		return nil, fmt.Errorf("persisting refreshed token: %w", err)
	}

	return fresh, nil
}

// ClientFor builds an authenticated Spotify client wrapper for a user.
func (a *Authenticator) ClientFor(ctx context.Context, user *db.User) (*spotify.Client, error) {
	token, err := a.FreshToken(ctx, user)
	if err != nil {
		return nil, err
	}
	httpClient := a.auth.Client(ctx, token)
	return spotify.New(spotifyapi.New(httpClient, spotifyapi.WithRetry(true))), nil
}

// CheckAuth verifies the user's stored credentials can be refreshed and
// carry playlist permissions. Returns ErrReauthRequired when they cannot.
func (a *Authenticator) CheckAuth(ctx context.Context, user *db.User) error {
	client, err := a.ClientFor(ctx, user)
	if err != nil {
		return err
	}
	if _, err := client.CurrentUserPlaylistCount(ctx); err != nil {
		return fmt.Errorf("%w: playlist access probe: %v", ErrReauthRequired, err)
	}
	return nil
}

// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// NewAppClient creates a client authenticated with the client-credentials
// flow. It can search the catalog but cannot act on behalf of a user.
func NewAppClient(ctx context.Context, clientID, clientSecret string) (*Client, error) {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting client credentials token: %w", err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	return New(spotify.New(httpClient, spotify.WithRetry(true))), nil
}

// UserID returns the current user's Spotify ID.
func (c *Client) UserID(ctx context.Context) (string, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("getting current user: %w", err)
	}
	return user.ID, nil
}

// CurrentUserPlaylistCount fetches a single page of the current user's
// playlists as a cheap probe for playlist permissions.
func (c *Client) CurrentUserPlaylistCount(ctx context.Context) (int, error) {
	page, err := c.api.CurrentUsersPlaylists(ctx, spotify.Limit(1))
	if err != nil {
		return 0, fmt.Errorf("probing playlist access: %w", err)
	}
	return int(page.Total), nil
}

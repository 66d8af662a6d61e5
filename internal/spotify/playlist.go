package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
)

const maxTracksPerRequest = 100

// CreatedPlaylist holds the identifiers of a newly created Spotify playlist.
type CreatedPlaylist struct {
	ID          string
	ExternalURL string
}

// CreatePlaylist creates a new playlist on the given user's account.
func (c *Client) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*CreatedPlaylist, error) {
	playlist, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return nil, fmt.Errorf("creating playlist: %w", err)
	}

	return &CreatedPlaylist{
		ID:          playlist.ID.String(),
		ExternalURL: playlist.ExternalURLs["spotify"],
	}, nil
}

// AddTracksToPlaylist adds tracks to a playlist, handling batching for large sets.
// Spotify allows max 100 tracks per request.
func (c *Client) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	// Convert to spotify.ID
	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	// Batch in chunks of 100
	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		batch := ids[i:end]

		_, err := c.api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...)
		if err != nil {
			return fmt.Errorf("adding tracks (batch %d-%d): %w", i+1, end, err)
		}
	}

	return nil
}

// URIToID extracts the track ID from a Spotify URI such as
// "spotify:track:4iV5W9uYEdYUVa79Axb7Rh". Bare IDs pass through unchanged.
func URIToID(uri string) string {
	if i := strings.LastIndex(uri, ":"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

const (
	// searchPageSize is the maximum page size Spotify allows for search.
	searchPageSize = 50

	searchMarket = "US"
)

// SearchGenre searches the catalog for tracks in a genre at the given page
// offset. Tracks missing an ID, title or artist are dropped.
func (c *Client) SearchGenre(ctx context.Context, genre string, offset int) ([]Track, error) {
	query := fmt.Sprintf("genre:%q", genre)
	return c.searchTracks(ctx, query, offset)
}

// SearchText runs a plain-text track search, used as a fallback when genre
// queries return nothing.
func (c *Client) SearchText(ctx context.Context, query string) ([]Track, error) {
	return c.searchTracks(ctx, query, 0)
}

func (c *Client) searchTracks(ctx context.Context, query string, offset int) ([]Track, error) {
	result, err := c.api.Search(ctx, query, spotify.SearchTypeTrack,
		spotify.Limit(searchPageSize),
		spotify.Offset(offset),
		spotify.Market(searchMarket),
	)
	if err != nil {
		return nil, fmt.Errorf("searching tracks: %w", err)
	}
	if result.Tracks == nil {
		return nil, nil
	}

	tracks := make([]Track, 0, len(result.Tracks.Tracks))
	for _, ft := range result.Tracks.Tracks {
		track := convertTrack(ft)
		if track.SpotifyID == "" || track.Title == "" || track.Artist == "" {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// convertTrack converts a Spotify FullTrack to a Track.
func convertTrack(ft spotify.FullTrack) Track {
	track := Track{
		SpotifyID:   ft.ID.String(),
		URI:         string(ft.URI),
		Title:       ft.Name,
		Album:       ft.Album.Name,
		ReleaseDate: ft.Album.ReleaseDate,
		ExternalURL: ft.ExternalURLs["spotify"],
		Popularity:  int(ft.Popularity),
		DurationMs:  int(ft.Duration),
		Explicit:    ft.Explicit,
	}
	if len(ft.Artists) > 0 {
		track.Artist = ft.Artists[0].Name
	}
	if len(ft.Album.Images) > 0 {
		track.AlbumCover = ft.Album.Images[0].URL
	}
	return track
}

// Package playlist materializes liked songs into real Spotify playlists and
// tracks them locally.
package playlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tuneswipe/tuneswipe-api/internal/db"
	"github.com/tuneswipe/tuneswipe-api/internal/spotify"
)

// Sentinel errors.
var (
	// ErrTracksNotAdded means the external playlist was created but adding
	// tracks failed; without this the playlist would silently exist empty.
	ErrTracksNotAdded = errors.New("playlist created but tracks could not be added")

	// ErrNoLikedSongs means the session has nothing to materialize.
	ErrNoLikedSongs = errors.New("session has no liked songs")
)

// UserStore loads users and their stored credentials.
type UserStore interface {
	Get(ctx context.Context, spotifyID string) (*db.User, error)
}

// PlaylistStore persists local playlist rows and their song membership.
type PlaylistStore interface {
	Create(ctx context.Context, playlist *db.Playlist) error
	AddSongs(ctx context.Context, id uuid.UUID, songIDs []uuid.UUID) error
}

// LikedLister returns a session's liked songs in swipe order.
type LikedLister interface {
	LikedSongs(ctx context.Context, sessionID uuid.UUID) ([]db.Song, error)
}

// SpotifyClient is the playlist surface of the Spotify API.
type SpotifyClient interface {
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*spotify.CreatedPlaylist, error)
	AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error
}

// ClientSource builds an authenticated Spotify client for a user.
type ClientSource interface {
	ClientFor(ctx context.Context, user *db.User) (SpotifyClient, error)
}

// ClientSourceFunc adapts a function to the ClientSource interface.
type ClientSourceFunc func(ctx context.Context, user *db.User) (SpotifyClient, error)

// ClientFor calls f.
func (f ClientSourceFunc) ClientFor(ctx context.Context, user *db.User) (SpotifyClient, error) {
	return f(ctx, user)
}

// Service creates and populates playlists.
type Service struct {
	users     UserStore
	playlists PlaylistStore
	likes     LikedLister
	clients   ClientSource
	log       *zap.SugaredLogger
}

// New creates a playlist service.
func New(users UserStore, playlists PlaylistStore, likes LikedLister, clients ClientSource, log *zap.SugaredLogger) *Service {
	return &Service{
		users:     users,
		playlists: playlists,
		likes:     likes,
		clients:   clients,
		log:       log,
	}
}

// Created describes a playlist created on Spotify and tracked locally.
type Created struct {
	PlaylistID        uuid.UUID
	SpotifyPlaylistID string
	ExternalURL       string
}

// CreateForUser creates an empty playlist on the user's Spotify account and
// records it locally.
func (s *Service) CreateForUser(ctx context.Context, spotifyID, name, description string, public bool) (*Created, error) {
	user, err := s.users.Get(ctx, spotifyID)
	if err != nil {
		return nil, err
	}

	client, err := s.clients.ClientFor(ctx, user)
	if err != nil {
		return nil, err
	}

	external, err := client.CreatePlaylist(ctx, user.SpotifyID, name, description, public)
	if err != nil {
		return nil, fmt.Errorf("creating spotify playlist: %w", err)
	}

	row := &db.Playlist{
		SpotifyID:         user.SpotifyID,
		SpotifyPlaylistID: &external.ID,
		Name:              name,
		Description:       description,
	}
	if err := s.playlists.Create(ctx, row); err != nil {
		// The external playlist exists; losing the local row is not worth
		// failing the request over.
		s.log.Errorw("saving playlist row failed", "spotify_playlist_id", external.ID, "error", err)
	}

	return &Created{
		PlaylistID:        row.PlaylistID,
		SpotifyPlaylistID: external.ID,
		ExternalURL:       external.ExternalURL,
	}, nil
}

// AddTracks adds track URIs to an existing Spotify playlist on behalf of a
// user. Returns the number of tracks added.
func (s *Service) AddTracks(ctx context.Context, spotifyID, spotifyPlaylistID string, trackURIs []string) (int, error) {
	if len(trackURIs) == 0 {
		return 0, nil
	}

	user, err := s.users.Get(ctx, spotifyID)
	if err != nil {
		return 0, err
	}

	client, err := s.clients.ClientFor(ctx, user)
	if err != nil {
		return 0, err
	}

	trackIDs := make([]string, len(trackURIs))
	for i, uri := range trackURIs {
		trackIDs[i] = spotify.URIToID(uri)
	}

	if err := client.AddTracksToPlaylist(ctx, spotifyPlaylistID, trackIDs); err != nil {
		return 0, fmt.Errorf("adding tracks: %w", err)
	}
	return len(trackIDs), nil
}

// Materialize turns a session's liked songs into a populated Spotify
// playlist: create, then add all tracks in swipe order, then record the
// ordered membership locally. When track adding fails after creation, the
// partial result is returned together with ErrTracksNotAdded.
func (s *Service) Materialize(ctx context.Context, spotifyID string, sessionID uuid.UUID, name, description string, public bool) (*Created, error) {
	liked, err := s.likes.LikedSongs(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(liked) == 0 {
		return nil, ErrNoLikedSongs
	}

	created, err := s.CreateForUser(ctx, spotifyID, name, description, public)
	if err != nil {
		return nil, err
	}

	trackIDs := make([]string, len(liked))
	songIDs := make([]uuid.UUID, len(liked))
	for i, song := range liked {
		trackIDs[i] = song.SpotifyID
		songIDs[i] = song.SongID
	}

	user, err := s.users.Get(ctx, spotifyID)
	if err != nil {
		return created, fmt.Errorf("%w: %v", ErrTracksNotAdded, err)
	}
	client, err := s.clients.ClientFor(ctx, user)
	if err != nil {
		return created, fmt.Errorf("%w: %v", ErrTracksNotAdded, err)
	}
	if err := client.AddTracksToPlaylist(ctx, created.SpotifyPlaylistID, trackIDs); err != nil {
		return created, fmt.Errorf("%w: %v", ErrTracksNotAdded, err)
	}

	if err := s.playlists.AddSongs(ctx, created.PlaylistID, songIDs); err != nil {
		s.log.Errorw("saving playlist songs failed", "playlist_id", created.PlaylistID, "error", err)
	}

	return created, nil
}

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlaylistRepository handles playlist database operations.
type PlaylistRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a new playlist row.
func (r *PlaylistRepository) Create(ctx context.Context, playlist *Playlist) error {
	query := `
		INSERT INTO playlists (playlist_id, spotify_id, spotify_playlist_id, name, description, creation_date)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING creation_date
	`
	if playlist.PlaylistID == uuid.Nil {
		playlist.PlaylistID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query,
		playlist.PlaylistID,
		playlist.SpotifyID,
		playlist.SpotifyPlaylistID,
		playlist.Name,
		playlist.Description,
	).Scan(&playlist.CreationDate)
	if err != nil {
		return fmt.Errorf("inserting playlist: %w", err)
	}
	return nil
}

// Get retrieves a playlist by internal ID.
func (r *PlaylistRepository) Get(ctx context.Context, id uuid.UUID) (*Playlist, error) {
	query := `
		SELECT playlist_id, spotify_id, spotify_playlist_id, name, description, creation_date
		FROM playlists
		WHERE playlist_id = $1
	`
	var playlist Playlist
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&playlist.PlaylistID,
		&playlist.SpotifyID,
		&playlist.SpotifyPlaylistID,
		&playlist.Name,
		&playlist.Description,
		&playlist.CreationDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying playlist: %w", err)
	}
	return &playlist, nil
}

// ListForUser retrieves all playlists for a user, newest first.
func (r *PlaylistRepository) ListForUser(ctx context.Context, spotifyID string) ([]Playlist, error) {
	query := `
		SELECT playlist_id, spotify_id, spotify_playlist_id, name, description, creation_date
		FROM playlists
		WHERE spotify_id = $1
		ORDER BY creation_date DESC
	`
	rows, err := r.pool.Query(ctx, query, spotifyID)
	if err != nil {
		return nil, fmt.Errorf("querying user playlists: %w", err)
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(
			&p.PlaylistID,
			&p.SpotifyID,
			&p.SpotifyPlaylistID,
			&p.Name,
			&p.Description,
			&p.CreationDate,
		); err != nil {
			return nil, fmt.Errorf("scanning playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// SetSpotifyPlaylistID links a local playlist to its materialized Spotify playlist.
func (r *PlaylistRepository) SetSpotifyPlaylistID(ctx context.Context, id uuid.UUID, spotifyPlaylistID string) error {
	query := `UPDATE playlists SET spotify_playlist_id = $2 WHERE playlist_id = $1`
	result, err := r.pool.Exec(ctx, query, id, spotifyPlaylistID)
	if err != nil {
		return fmt.Errorf("linking spotify playlist: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSongs records the ordered song membership of a playlist.
// Positions follow the order of songIDs, starting at 1.
func (r *PlaylistRepository) AddSongs(ctx context.Context, id uuid.UUID, songIDs []uuid.UUID) error {
	if len(songIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO playlist_songs (playlist_id, song_id, position)
		SELECT $1, song_id, ord
		FROM unnest($2::uuid[]) WITH ORDINALITY AS t(song_id, ord)
		ON CONFLICT (playlist_id, song_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, id, songIDs)
	if err != nil {
		return fmt.Errorf("adding playlist songs: %w", err)
	}
	return nil
}

// Songs retrieves a playlist's songs in position order.
func (r *PlaylistRepository) Songs(ctx context.Context, id uuid.UUID) ([]Song, error) {
	query := `
		SELECT s.song_id, s.spotify_id, s.spotify_uri, s.title, s.artist, s.preview_url, s.album, s.album_cover,
			s.genre, s.mood, s.popularity, s.duration_ms, s.explicit, s.release_date, s.external_url, s.last_updated
		FROM playlist_songs ps
		JOIN songs s ON ps.song_id = s.song_id
		WHERE ps.playlist_id = $1
		ORDER BY ps.position
	`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("querying playlist songs: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		var song Song
		if err := rows.Scan(songFields(&song)...); err != nil {
			return nil, fmt.Errorf("scanning playlist song: %w", err)
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SongRepository handles song database operations.
type SongRepository struct {
	pool *pgxpool.Pool
}

// Upsert creates or updates a song, deduplicated by Spotify track ID.
// Resolving the same Spotify ID twice yields one row with unchanged identity;
// the song's SongID is populated from the existing row on conflict.
// A stored preview URL is never overwritten with an empty one.
func (r *SongRepository) Upsert(ctx context.Context, song *Song) error {
	query := `
		INSERT INTO songs (song_id, spotify_id, spotify_uri, title, artist, preview_url, album, album_cover,
			genre, mood, popularity, duration_ms, explicit, release_date, external_url, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (spotify_id) DO UPDATE SET
			title = EXCLUDED.title,
			artist = EXCLUDED.artist,
			preview_url = COALESCE(EXCLUDED.preview_url, songs.preview_url),
			album = COALESCE(EXCLUDED.album, songs.album),
			album_cover = COALESCE(EXCLUDED.album_cover, songs.album_cover),
			genre = COALESCE(EXCLUDED.genre, songs.genre),
			mood = COALESCE(EXCLUDED.mood, songs.mood),
			popularity = EXCLUDED.popularity,
			duration_ms = COALESCE(EXCLUDED.duration_ms, songs.duration_ms),
			explicit = EXCLUDED.explicit,
			release_date = COALESCE(EXCLUDED.release_date, songs.release_date),
			external_url = COALESCE(EXCLUDED.external_url, songs.external_url),
			last_updated = NOW()
		RETURNING song_id, last_updated
	`
	if song.SongID == uuid.Nil {
		song.SongID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query,
		song.SongID,
		song.SpotifyID,
		song.SpotifyURI,
		song.Title,
		song.Artist,
		song.PreviewURL,
		song.Album,
		song.AlbumCover,
		song.Genre,
		song.Mood,
		song.Popularity,
		song.DurationMs,
		song.Explicit,
		song.ReleaseDate,
		song.ExternalURL,
	).Scan(&song.SongID, &song.LastUpdated)
	if err != nil {
		return fmt.Errorf("upserting song: %w", err)
	}
	return nil
}

// Get retrieves a song by internal ID.
func (r *SongRepository) Get(ctx context.Context, id uuid.UUID) (*Song, error) {
	query := songSelect + ` WHERE song_id = $1`
	var song Song
	err := r.pool.QueryRow(ctx, query, id).Scan(songFields(&song)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying song: %w", err)
	}
	return &song, nil
}

// GetBySpotifyID retrieves a song by its Spotify track ID.
func (r *SongRepository) GetBySpotifyID(ctx context.Context, spotifyID string) (*Song, error) {
	query := songSelect + ` WHERE spotify_id = $1`
	var song Song
	err := r.pool.QueryRow(ctx, query, spotifyID).Scan(songFields(&song)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying song by spotify id: %w", err)
	}
	return &song, nil
}

// GetBySpotifyIDs retrieves cached songs for a set of Spotify track IDs.
// Missing IDs are simply absent from the result.
func (r *SongRepository) GetBySpotifyIDs(ctx context.Context, spotifyIDs []string) (map[string]Song, error) {
	if len(spotifyIDs) == 0 {
		return map[string]Song{}, nil
	}

	query := songSelect + ` WHERE spotify_id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, spotifyIDs)
	if err != nil {
		return nil, fmt.Errorf("querying songs by spotify ids: %w", err)
	}
	defer rows.Close()

	songs := make(map[string]Song)
	for rows.Next() {
		var song Song
		if err := rows.Scan(songFields(&song)...); err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		songs[song.SpotifyID] = song
	}
	return songs, rows.Err()
}

const songSelect = `
	SELECT song_id, spotify_id, spotify_uri, title, artist, preview_url, album, album_cover,
		genre, mood, popularity, duration_ms, explicit, release_date, external_url, last_updated
	FROM songs`

// songFields returns scan destinations matching songSelect column order.
func songFields(s *Song) []any {
	return []any{
		&s.SongID,
		&s.SpotifyID,
		&s.SpotifyURI,
		&s.Title,
		&s.Artist,
		&s.PreviewURL,
		&s.Album,
		&s.AlbumCover,
		&s.Genre,
		&s.Mood,
		&s.Popularity,
		&s.DurationMs,
		&s.Explicit,
		&s.ReleaseDate,
		&s.ExternalURL,
		&s.LastUpdated,
	}
}

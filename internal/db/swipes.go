package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SwipeRepository handles swipe database operations.
type SwipeRepository struct {
	pool *pgxpool.Pool
}

// Record inserts a swipe with the next sequential order value for its session.
// Returns ErrDuplicateSwipe when the (session, song) pair was already swiped;
// the unique constraint makes this safe under concurrent duplicate requests.
func (r *SwipeRepository) Record(ctx context.Context, swipe *Swipe) error {
	query := `
		INSERT INTO swipes (swipe_id, session_id, song_id, direction, swipe_order, swipe_timestamp)
		SELECT $1, $2, $3, $4, COALESCE(MAX(swipe_order), 0) + 1, NOW()
		FROM swipes
		WHERE session_id = $2
		RETURNING swipe_order, swipe_timestamp
	`
	if swipe.SwipeID == uuid.Nil {
		swipe.SwipeID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query,
		swipe.SwipeID,
		swipe.SessionID,
		swipe.SongID,
		swipe.Direction,
	).Scan(&swipe.SwipeOrder, &swipe.SwipeTimestamp)
	if isUniqueViolation(err) {
		return ErrDuplicateSwipe
	}
	if err != nil {
		return fmt.Errorf("inserting swipe: %w", err)
	}
	return nil
}

// SessionSongs retrieves all songs swiped in a session with their swipe
// outcome, in presentation order.
func (r *SwipeRepository) SessionSongs(ctx context.Context, sessionID uuid.UUID) ([]SessionSong, error) {
	query := `
		SELECT s.song_id, s.spotify_id, s.spotify_uri, s.title, s.artist, s.preview_url, s.album, s.album_cover,
			s.genre, s.mood, s.popularity, s.duration_ms, s.explicit, s.release_date, s.external_url, s.last_updated,
			sw.direction, sw.swipe_order, sw.swipe_timestamp
		FROM swipes sw
		JOIN songs s ON sw.song_id = s.song_id
		WHERE sw.session_id = $1
		ORDER BY sw.swipe_order
	`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session songs: %w", err)
	}
	defer rows.Close()

	var songs []SessionSong
	for rows.Next() {
		var ss SessionSong
		dest := songFields(&ss.Song)
		dest = append(dest, &ss.Direction, &ss.SwipeOrder, &ss.SwipeTimestamp)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning session song: %w", err)
		}
		ss.IsLiked = ss.Direction == DirectionRight
		ss.IsPassed = ss.Direction == DirectionLeft
		songs = append(songs, ss)
	}
	return songs, rows.Err()
}

// LikedSongs retrieves the songs swiped RIGHT in a session, in swipe order.
func (r *SwipeRepository) LikedSongs(ctx context.Context, sessionID uuid.UUID) ([]Song, error) {
	query := `
		SELECT s.song_id, s.spotify_id, s.spotify_uri, s.title, s.artist, s.preview_url, s.album, s.album_cover,
			s.genre, s.mood, s.popularity, s.duration_ms, s.explicit, s.release_date, s.external_url, s.last_updated
		FROM swipes sw
		JOIN songs s ON sw.song_id = s.song_id
		WHERE sw.session_id = $1 AND sw.direction = 'RIGHT'
		ORDER BY sw.swipe_order
	`
	return r.querySongs(ctx, query, sessionID)
}

// LikedSongsForUser retrieves every song a user has swiped RIGHT across all
// sessions, most recent first.
func (r *SwipeRepository) LikedSongsForUser(ctx context.Context, spotifyID string) ([]Song, error) {
	query := `
		SELECT DISTINCT ON (s.song_id)
			s.song_id, s.spotify_id, s.spotify_uri, s.title, s.artist, s.preview_url, s.album, s.album_cover,
			s.genre, s.mood, s.popularity, s.duration_ms, s.explicit, s.release_date, s.external_url, s.last_updated
		FROM swipes sw
		JOIN songs s ON sw.song_id = s.song_id
		JOIN swipe_sessions ss ON sw.session_id = ss.session_id
		WHERE ss.spotify_id = $1 AND sw.direction = 'RIGHT'
		ORDER BY s.song_id, sw.swipe_timestamp DESC
	`
	return r.querySongs(ctx, query, spotifyID)
}

func (r *SwipeRepository) querySongs(ctx context.Context, query string, arg any) ([]Song, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("querying songs: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		var song Song
		if err := rows.Scan(songFields(&song)...); err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles swipe session database operations.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a new session in ACTIVE state.
func (r *SessionRepository) Create(ctx context.Context, session *SwipeSession) error {
	query := `
		INSERT INTO swipe_sessions (session_id, spotify_id, target_playlist_length, session_preferences, session_status, creation_date)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING creation_date
	`
	if session.SessionID == uuid.Nil {
		session.SessionID = uuid.New()
	}
	session.Status = StatusActive
	err := r.pool.QueryRow(ctx, query,
		session.SessionID,
		session.SpotifyID,
		session.TargetLength,
		session.Preferences,
		session.Status,
	).Scan(&session.CreationDate)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*SwipeSession, error) {
	query := `
		SELECT session_id, spotify_id, target_playlist_length, session_preferences, session_status, creation_date, completion_date
		FROM swipe_sessions
		WHERE session_id = $1
	`
	var session SwipeSession
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.SessionID,
		&session.SpotifyID,
		&session.TargetLength,
		&session.Preferences,
		&session.Status,
		&session.CreationDate,
		&session.CompletionDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &session, nil
}

// MarkCompleted transitions an ACTIVE session to COMPLETED.
// Returns false when the session was not ACTIVE (no state change).
func (r *SessionRepository) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	query := `
		UPDATE swipe_sessions
		SET session_status = $2, completion_date = $3
		WHERE session_id = $1 AND session_status = $4
	`
	result, err := r.pool.Exec(ctx, query, id, StatusCompleted, completedAt, StatusActive)
	if err != nil {
		return false, fmt.Errorf("completing session: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// MarkAbandoned transitions an ACTIVE session to ABANDONED.
// Returns false when the session was not ACTIVE (no state change).
func (r *SessionRepository) MarkAbandoned(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE swipe_sessions
		SET session_status = $2, completion_date = NOW()
		WHERE session_id = $1 AND session_status = $3
	`
	result, err := r.pool.Exec(ctx, query, id, StatusAbandoned, StatusActive)
	if err != nil {
		return false, fmt.Errorf("abandoning session: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Stats returns aggregated swipe counts for a session.
func (r *SessionRepository) Stats(ctx context.Context, id uuid.UUID) (*SessionStats, error) {
	query := `
		SELECT
			ss.target_playlist_length,
			ss.session_status,
			COUNT(sw.swipe_id) AS total_swipes,
			COUNT(sw.swipe_id) FILTER (WHERE sw.direction = 'RIGHT') AS liked_count,
			COUNT(sw.swipe_id) FILTER (WHERE sw.direction = 'LEFT') AS passed_count,
			COALESCE(MAX(sw.swipe_order), 0) AS current_swipe_index
		FROM swipe_sessions ss
		LEFT JOIN swipes sw ON ss.session_id = sw.session_id
		WHERE ss.session_id = $1
		GROUP BY ss.session_id
	`
	var stats SessionStats
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&stats.TargetLength,
		&stats.Status,
		&stats.TotalSwipes,
		&stats.LikedCount,
		&stats.PassedCount,
		&stats.CurrentSwipeIndex,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session stats: %w", err)
	}
	return &stats, nil
}

// ListForUser retrieves all sessions for a user with aggregated swipe counts,
// newest first.
func (r *SessionRepository) ListForUser(ctx context.Context, spotifyID string) ([]SessionWithStats, error) {
	query := `
		SELECT
			ss.session_id,
			ss.spotify_id,
			ss.target_playlist_length,
			ss.session_preferences,
			ss.session_status,
			ss.creation_date,
			ss.completion_date,
			COUNT(sw.swipe_id) AS total_swipes,
			COUNT(sw.swipe_id) FILTER (WHERE sw.direction = 'RIGHT') AS liked_count,
			COUNT(sw.swipe_id) FILTER (WHERE sw.direction = 'LEFT') AS passed_count
		FROM swipe_sessions ss
		LEFT JOIN swipes sw ON ss.session_id = sw.session_id
		WHERE ss.spotify_id = $1
		GROUP BY ss.session_id
		ORDER BY ss.creation_date DESC
	`
	rows, err := r.pool.Query(ctx, query, spotifyID)
	if err != nil {
		return nil, fmt.Errorf("querying user sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionWithStats
	for rows.Next() {
		var s SessionWithStats
		if err := rows.Scan(
			&s.SessionID,
			&s.SpotifyID,
			&s.TargetLength,
			&s.Preferences,
			&s.Status,
			&s.CreationDate,
			&s.CompletionDate,
			&s.TotalSwipes,
			&s.LikedCount,
			&s.PassedCount,
		); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// SeenSpotifyIDs returns the Spotify track IDs already swiped in a session.
func (r *SessionRepository) SeenSpotifyIDs(ctx context.Context, id uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT s.spotify_id
		FROM songs s
		JOIN swipes sw ON s.song_id = sw.song_id
		WHERE sw.session_id = $1
	`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("querying seen songs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var spotifyID string
		if err := rows.Scan(&spotifyID); err != nil {
			return nil, fmt.Errorf("scanning seen song: %w", err)
		}
		ids = append(ids, spotifyID)
	}
	return ids, rows.Err()
}

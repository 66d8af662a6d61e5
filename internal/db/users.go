package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles user database operations.
type UserRepository struct {
	pool *pgxpool.Pool
}

// UpsertOnLogin creates or updates a user after an OAuth callback.
// Profile fields and credentials are refreshed and last_login is bumped.
func (r *UserRepository) UpsertOnLogin(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (spotify_id, display_name, email, access_token, refresh_token, token_expires_at, creation_date, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (spotify_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			last_login = NOW()
		RETURNING creation_date, last_login
	`
	err := r.pool.QueryRow(ctx, query,
		user.SpotifyID,
		user.DisplayName,
		user.Email,
		user.AccessToken,
		user.RefreshToken,
		user.TokenExpiresAt,
	).Scan(&user.CreationDate, &user.LastLogin)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// Get retrieves a user by Spotify ID.
func (r *UserRepository) Get(ctx context.Context, spotifyID string) (*User, error) {
	query := `
		SELECT spotify_id, display_name, email, access_token, refresh_token, token_expires_at, creation_date, last_login
		FROM users
		WHERE spotify_id = $1
	`
	var user User
	err := r.pool.QueryRow(ctx, query, spotifyID).Scan(
		&user.SpotifyID,
		&user.DisplayName,
		&user.Email,
		&user.AccessToken,
		&user.RefreshToken,
		&user.TokenExpiresAt,
		&user.CreationDate,
		&user.LastLogin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}

// UpdateTokens stores rotated OAuth credentials after a token refresh.
func (r *UserRepository) UpdateTokens(ctx context.Context, spotifyID, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET access_token = $2, refresh_token = $3, token_expires_at = $4
		WHERE spotify_id = $1
	`
	result, err := r.pool.Exec(ctx, query, spotifyID, accessToken, refreshToken, expiresAt)
	if err != nil {
		return fmt.Errorf("updating user tokens: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user. Sessions, swipes and playlists cascade.
func (r *UserRepository) Delete(ctx context.Context, spotifyID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE spotify_id = $1`, spotifyID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

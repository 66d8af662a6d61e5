package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents a Spotify user profile with stored OAuth credentials.
type User struct {
	SpotifyID      string     `json:"spotify_id"`
	DisplayName    string     `json:"display_name"`
	Email          string     `json:"email"`
	AccessToken    *string    `json:"-"`
	RefreshToken   *string    `json:"-"`
	TokenExpiresAt *time.Time `json:"-"`
	CreationDate   time.Time  `json:"creation_date"`
	LastLogin      time.Time  `json:"last_login"`
}

// Preferences is the typed session preference blob stored as JSONB.
type Preferences struct {
	Genres []string `json:"genres"`
}

// SessionStatus is the lifecycle state of a swipe session.
// Transitions only ACTIVE -> COMPLETED or ACTIVE -> ABANDONED.
type SessionStatus string

// Session statuses.
const (
	StatusActive    SessionStatus = "ACTIVE"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusAbandoned SessionStatus = "ABANDONED"
)

// SwipeSession represents one swipe-to-playlist journey.
type SwipeSession struct {
	SessionID      uuid.UUID     `json:"session_id"`
	SpotifyID      string        `json:"spotify_id"`
	TargetLength   int           `json:"target_playlist_length"`
	Preferences    Preferences   `json:"session_preferences"`
	Status         SessionStatus `json:"session_status"`
	CreationDate   time.Time     `json:"creation_date"`
	CompletionDate *time.Time    `json:"completion_date"`
}

// Song represents a catalog track, deduplicated by Spotify identity.
type Song struct {
	SongID      uuid.UUID `json:"song_id"`
	SpotifyID   string    `json:"spotify_id"`
	SpotifyURI  *string   `json:"spotify_uri"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	PreviewURL  *string   `json:"preview_url"`
	Album       *string   `json:"album"`
	AlbumCover  *string   `json:"album_cover"`
	Genre       *string   `json:"genre"`
	Mood        *string   `json:"mood"`
	Popularity  int       `json:"popularity"`
	DurationMs  *int      `json:"duration_ms"`
	Explicit    bool      `json:"explicit"`
	ReleaseDate *string   `json:"release_date"`
	ExternalURL *string   `json:"external_url"`
	LastUpdated time.Time `json:"last_updated"`
}

// Direction is a swipe decision.
type Direction string

// Swipe directions.
const (
	DirectionLeft  Direction = "LEFT"
	DirectionRight Direction = "RIGHT"
)

// Swipe records a single like/pass decision within a session.
type Swipe struct {
	SwipeID        uuid.UUID `json:"swipe_id"`
	SessionID      uuid.UUID `json:"session_id"`
	SongID         uuid.UUID `json:"song_id"`
	Direction      Direction `json:"direction"`
	SwipeOrder     int       `json:"swipe_order"`
	SwipeTimestamp time.Time `json:"swipe_timestamp"`
}

// SessionStats holds aggregated swipe counts for a session.
type SessionStats struct {
	TargetLength int           `json:"target_length"`
	Status       SessionStatus `json:"status"`
	TotalSwipes  int           `json:"total_swipes"`
	LikedCount   int           `json:"liked_count"`
	PassedCount  int           `json:"passed_count"`
	// CurrentSwipeIndex is the max swipe_order, 0 when no swipes yet.
	CurrentSwipeIndex int `json:"current_swipe_index"`
}

// SessionWithStats is a session joined with its aggregated swipe counts.
type SessionWithStats struct {
	SwipeSession
	TotalSwipes int `json:"total_swipes"`
	LikedCount  int `json:"liked_count"`
	PassedCount int `json:"passed_count"`
}

// SessionSong is a song served in a session together with its swipe outcome.
type SessionSong struct {
	Song
	Direction      Direction `json:"direction"`
	SwipeOrder     int       `json:"swipe_order"`
	SwipeTimestamp time.Time `json:"swipe_timestamp"`
	IsLiked        bool      `json:"is_liked"`
	IsPassed       bool      `json:"is_passed"`
}

// Playlist represents a locally tracked playlist, optionally linked to
// Spotify after materialization.
type Playlist struct {
	PlaylistID        uuid.UUID `json:"playlist_id"`
	SpotifyID         string    `json:"spotify_id"`
	SpotifyPlaylistID *string   `json:"spotify_playlist_id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	CreationDate      time.Time `json:"creation_date"`
}

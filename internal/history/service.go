// Package history exposes a user's past swipe sessions, their swipe
// records, and an aggregate taste profile derived from liked songs.
package history

import (
	"context"

	"github.com/google/uuid"

	"github.com/tuneswipe/tuneswipe-api/internal/db"
)

// SessionLister lists a user's sessions with their aggregate counters.
type SessionLister interface {
	ListForUser(ctx context.Context, spotifyID string) ([]db.SessionWithStats, error)
}

// SwipeLister returns per-session swipe records and liked songs across
// sessions.
type SwipeLister interface {
	SessionSongs(ctx context.Context, sessionID uuid.UUID) ([]db.SessionSong, error)
	LikedSongsForUser(ctx context.Context, spotifyID string) ([]db.Song, error)
}

// Service answers history and analytics queries.
type Service struct {
	sessions SessionLister
	swipes   SwipeLister
}

// New creates a history service.
func New(sessions SessionLister, swipes SwipeLister) *Service {
	return &Service{
		sessions: sessions,
		swipes:   swipes,
	}
}

// UserSessions returns the user's sessions, newest first, each with its
// swipe counters.
func (s *Service) UserSessions(ctx context.Context, spotifyID string) ([]db.SessionWithStats, error) {
	return s.sessions.ListForUser(ctx, spotifyID)
}

// SessionSongs returns every song swiped in a session, in swipe order,
// with the direction of each decision.
func (s *Service) SessionSongs(ctx context.Context, sessionID uuid.UUID) ([]db.SessionSong, error) {
	return s.swipes.SessionSongs(ctx, sessionID)
}

// TasteProfile clusters the user's liked songs into taste groups. Users
// with too few likes get an empty profile rather than an error.
func (s *Service) TasteProfile(ctx context.Context, spotifyID string) (*Profile, error) {
	liked, err := s.swipes.LikedSongsForUser(ctx, spotifyID)
	if err != nil {
		return nil, err
	}
	return buildProfile(liked), nil
}

// Package session implements the swipe session lifecycle: creation,
// swipe recording, progress, and the ACTIVE -> COMPLETED / ABANDONED
// transitions.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tuneswipe/tuneswipe-api/internal/db"
)

// Bounds on the liked-song target of a session.
const (
	MinTargetLength     = 5
	MaxTargetLength     = 50
	DefaultTargetLength = 20
)

// Sentinel errors.
var (
	// ErrInvalidTarget is returned when the target length is out of range.
	ErrInvalidTarget = fmt.Errorf("target playlist length must be between %d and %d", MinTargetLength, MaxTargetLength)

	// ErrInvalidDirection is returned for a direction other than LEFT or RIGHT.
	ErrInvalidDirection = errors.New("swipe direction must be LEFT or RIGHT")

	// ErrSessionNotActive is returned when an operation requires an ACTIVE
	// session; a COMPLETED or ABANDONED session never becomes ACTIVE again.
	ErrSessionNotActive = errors.New("session is not active")
)

// SessionStore is the session persistence surface used by the service.
type SessionStore interface {
	Create(ctx context.Context, session *db.SwipeSession) error
	Get(ctx context.Context, id uuid.UUID) (*db.SwipeSession, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error)
	MarkAbandoned(ctx context.Context, id uuid.UUID) (bool, error)
	Stats(ctx context.Context, id uuid.UUID) (*db.SessionStats, error)
}

// SwipeStore records swipe decisions.
type SwipeStore interface {
	Record(ctx context.Context, swipe *db.Swipe) error
}

// SongStore ensures served songs exist before swipes reference them.
type SongStore interface {
	Upsert(ctx context.Context, song *db.Song) error
}

// Service governs the swipe session state machine.
type Service struct {
	sessions SessionStore
	swipes   SwipeStore
	songs    SongStore
}

// New creates a session service.
func New(sessions SessionStore, swipes SwipeStore, songs SongStore) *Service {
	return &Service{
		sessions: sessions,
		swipes:   swipes,
		songs:    songs,
	}
}

// Create opens a new ACTIVE session for a user. A zero target uses the
// default; out-of-range targets are rejected before any persistence.
func (s *Service) Create(ctx context.Context, spotifyID string, targetLength int, prefs db.Preferences) (*db.SwipeSession, error) {
	if targetLength == 0 {
		targetLength = DefaultTargetLength
	}
	if targetLength < MinTargetLength || targetLength > MaxTargetLength {
		return nil, ErrInvalidTarget
	}

	session := &db.SwipeSession{
		SpotifyID:    spotifyID,
		TargetLength: targetLength,
		Preferences:  prefs,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return session, nil
}

// SwipeResult reports the state of a session after a recorded swipe.
type SwipeResult struct {
	SwipeID     uuid.UUID
	SwipeOrder  int
	LikedCount  int
	TotalSwipes int
	Target      int
	// TargetReached means the liked count has hit the session target and
	// the session is eligible for completion.
	TargetReached bool
}

// RecordSwipe records a like/pass decision for a song in a session.
// The song is upserted first so the swipe can reference it. Rejected with
// ErrSessionNotActive for finished sessions and db.ErrDuplicateSwipe when
// the (session, song) pair was already swiped; neither changes state.
func (s *Service) RecordSwipe(ctx context.Context, sessionID uuid.UUID, song *db.Song, direction db.Direction) (*SwipeResult, error) {
	if direction != db.DirectionLeft && direction != db.DirectionRight {
		return nil, ErrInvalidDirection
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != db.StatusActive {
		return nil, ErrSessionNotActive
	}

	if err := s.songs.Upsert(ctx, song); err != nil {
		return nil, fmt.Errorf("storing song: %w", err)
	}

	swipe := &db.Swipe{
		SessionID: sessionID,
		SongID:    song.SongID,
		Direction: direction,
	}
	if err := s.swipes.Record(ctx, swipe); err != nil {
		return nil, err
	}

	stats, err := s.sessions.Stats(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session stats: %w", err)
	}

	return &SwipeResult{
		SwipeID:       swipe.SwipeID,
		SwipeOrder:    swipe.SwipeOrder,
		LikedCount:    stats.LikedCount,
		TotalSwipes:   stats.TotalSwipes,
		Target:        stats.TargetLength,
		TargetReached: stats.LikedCount >= stats.TargetLength,
	}, nil
}

// Progress describes a session's advancement toward its target.
type Progress struct {
	SessionID          uuid.UUID
	Status             db.SessionStatus
	Target             int
	LikedCount         int
	PassedCount        int
	TotalSwipes        int
	CurrentSwipeIndex  int
	ProgressPercentage float64
	IsComplete         bool
}

// GetProgress returns the session's counters without replaying swipe history.
func (s *Service) GetProgress(ctx context.Context, sessionID uuid.UUID) (*Progress, error) {
	stats, err := s.sessions.Stats(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Progress{
		SessionID:          sessionID,
		Status:             stats.Status,
		Target:             stats.TargetLength,
		LikedCount:         stats.LikedCount,
		PassedCount:        stats.PassedCount,
		TotalSwipes:        stats.TotalSwipes,
		CurrentSwipeIndex:  stats.CurrentSwipeIndex,
		ProgressPercentage: float64(stats.LikedCount) / float64(stats.TargetLength) * 100,
		IsComplete:         stats.LikedCount >= stats.TargetLength,
	}, nil
}

// Complete transitions an ACTIVE session to COMPLETED and returns its final
// stats. Finishing early (liked count below target) is allowed. Completing
// an already COMPLETED session returns its frozen stats without a state
// change; an ABANDONED session is rejected.
func (s *Service) Complete(ctx context.Context, sessionID uuid.UUID) (*db.SessionStats, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == db.StatusAbandoned {
		return nil, ErrSessionNotActive
	}

	if session.Status == db.StatusActive {
		// Transition guarded by status in the UPDATE; losing a race to a
		// concurrent Complete is fine, the outcome is the same.
		if _, err := s.sessions.MarkCompleted(ctx, sessionID, time.Now().UTC()); err != nil {
			return nil, err
		}
	}

	stats, err := s.sessions.Stats(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session stats: %w", err)
	}
	return stats, nil
}

// Abandon discards an ACTIVE session. Only the explicit call path sets
// ABANDONED; there is no automatic timeout. Abandoning twice is a no-op;
// a COMPLETED session is rejected.
func (s *Service) Abandon(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	switch session.Status {
	case db.StatusCompleted:
		return ErrSessionNotActive
	case db.StatusAbandoned:
		return nil
	}

	if _, err := s.sessions.MarkAbandoned(ctx, sessionID); err != nil {
		return err
	}
	return nil
}

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tuneswipe/tuneswipe-api/internal/db"
)

// fakeStore implements SessionStore, SwipeStore and SongStore in memory.
type fakeStore struct {
	sessions map[uuid.UUID]*db.SwipeSession
	swipes   map[uuid.UUID]map[uuid.UUID]db.Direction // session -> song -> direction
	order    map[uuid.UUID]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID]*db.SwipeSession),
		swipes:   make(map[uuid.UUID]map[uuid.UUID]db.Direction),
		order:    make(map[uuid.UUID]int),
	}
}

func (f *fakeStore) Create(_ context.Context, s *db.SwipeSession) error {
	if s.SessionID == uuid.Nil {
		s.SessionID = uuid.New()
	}
	s.Status = db.StatusActive
	f.sessions[s.SessionID] = s
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*db.SwipeSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != db.StatusActive {
		return false, nil
	}
	s.Status = db.StatusCompleted
	s.CompletionDate = &completedAt
	return true, nil
}

func (f *fakeStore) MarkAbandoned(_ context.Context, id uuid.UUID) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != db.StatusActive {
		return false, nil
	}
	s.Status = db.StatusAbandoned
	return true, nil
}

func (f *fakeStore) Stats(_ context.Context, id uuid.UUID) (*db.SessionStats, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	stats := &db.SessionStats{
		TargetLength:      s.TargetLength,
		Status:            s.Status,
		CurrentSwipeIndex: f.order[id],
	}
	for _, dir := range f.swipes[id] {
		stats.TotalSwipes++
		if dir == db.DirectionRight {
			stats.LikedCount++
		} else {
			stats.PassedCount++
		}
	}
	return stats, nil
}

func (f *fakeStore) Record(_ context.Context, swipe *db.Swipe) error {
	bySession, ok := f.swipes[swipe.SessionID]
	if !ok {
		bySession = make(map[uuid.UUID]db.Direction)
		f.swipes[swipe.SessionID] = bySession
	}
	if _, dup := bySession[swipe.SongID]; dup {
		return db.ErrDuplicateSwipe
	}
	bySession[swipe.SongID] = swipe.Direction
	f.order[swipe.SessionID]++
	swipe.SwipeID = uuid.New()
	swipe.SwipeOrder = f.order[swipe.SessionID]
	swipe.SwipeTimestamp = time.Now()
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, song *db.Song) error {
	if song.SongID == uuid.Nil {
		song.SongID = uuid.New()
	}
	return nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	return New(store, store, store), store
}

func testSong() *db.Song {
	return &db.Song{
		SpotifyID: uuid.NewString(),
		Title:     "Test Song",
		Artist:    "Test Artist",
	}
}

func TestCreateValidatesTarget(t *testing.T) {
	tests := []struct {
		name       string
		target     int
		wantErr    error
		wantTarget int
	}{
		{name: "zero uses default", target: 0, wantTarget: DefaultTargetLength},
		{name: "minimum accepted", target: MinTargetLength, wantTarget: MinTargetLength},
		{name: "maximum accepted", target: MaxTargetLength, wantTarget: MaxTargetLength},
		{name: "below minimum rejected", target: MinTargetLength - 1, wantErr: ErrInvalidTarget},
		{name: "above maximum rejected", target: MaxTargetLength + 1, wantErr: ErrInvalidTarget},
		{name: "negative rejected", target: -3, wantErr: ErrInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			got, err := svc.Create(context.Background(), "user1", tt.target, db.Preferences{Genres: []string{"rock"}})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got.TargetLength != tt.wantTarget {
				t.Errorf("TargetLength = %d, want %d", got.TargetLength, tt.wantTarget)
			}
			if got.Status != db.StatusActive {
				t.Errorf("Status = %q, want %q", got.Status, db.StatusActive)
			}
		})
	}
}

func TestRecordSwipe(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, err := svc.Create(ctx, "user1", 5, db.Preferences{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	result, err := svc.RecordSwipe(ctx, created.SessionID, testSong(), db.DirectionRight)
	if err != nil {
		t.Fatalf("RecordSwipe() error = %v", err)
	}
	if result.SwipeOrder != 1 {
		t.Errorf("SwipeOrder = %d, want 1", result.SwipeOrder)
	}
	if result.LikedCount != 1 || result.TotalSwipes != 1 {
		t.Errorf("counts = %d liked / %d total, want 1/1", result.LikedCount, result.TotalSwipes)
	}
	if result.TargetReached {
		t.Error("TargetReached = true after one like of five")
	}
}

func TestRecordSwipeInvalidDirection(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, _ := svc.Create(ctx, "user1", 5, db.Preferences{})
	if _, err := svc.RecordSwipe(ctx, created.SessionID, testSong(), "UP"); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("RecordSwipe() error = %v, want ErrInvalidDirection", err)
	}
}

func TestRecordSwipeDuplicateConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, _ := svc.Create(ctx, "user1", 5, db.Preferences{})
	song := testSong()

	if _, err := svc.RecordSwipe(ctx, created.SessionID, song, db.DirectionRight); err != nil {
		t.Fatalf("first RecordSwipe() error = %v", err)
	}
	if _, err := svc.RecordSwipe(ctx, created.SessionID, song, db.DirectionLeft); !errors.Is(err, db.ErrDuplicateSwipe) {
		t.Fatalf("duplicate RecordSwipe() error = %v, want ErrDuplicateSwipe", err)
	}

	// The rejected swipe must not change the counters.
	progress, err := svc.GetProgress(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if progress.TotalSwipes != 1 || progress.LikedCount != 1 {
		t.Errorf("counts after duplicate = %d liked / %d total, want 1/1", progress.LikedCount, progress.TotalSwipes)
	}
}

func TestRecordSwipeOnFinishedSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, _ := svc.Create(ctx, "user1", 5, db.Preferences{})
	if _, err := svc.Complete(ctx, created.SessionID); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if _, err := svc.RecordSwipe(ctx, created.SessionID, testSong(), db.DirectionRight); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("RecordSwipe() on completed session error = %v, want ErrSessionNotActive", err)
	}
}

func TestTargetReached(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, _ := svc.Create(ctx, "user1", 5, db.Preferences{})

	var last *SwipeResult
	for i := 0; i < 5; i++ {
		var err error
		last, err = svc.RecordSwipe(ctx, created.SessionID, testSong(), db.DirectionRight)
		if err != nil {
			t.Fatalf("RecordSwipe() #%d error = %v", i+1, err)
		}
	}
	if !last.TargetReached {
		t.Error("TargetReached = false after hitting the target")
	}
}

func TestCompleteEarlyFreezesStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, _ := svc.Create(ctx, "user1", 10, db.Preferences{})
	if _, err := svc.RecordSwipe(ctx, created.SessionID, testSong(), db.DirectionRight); err != nil {
		t.Fatalf("RecordSwipe() error = %v", err)
	}
	if _, err := svc.RecordSwipe(ctx, created.SessionID, testSong(), db.DirectionLeft); err != nil {
		t.Fatalf("RecordSwipe() error = %v", err)
	}

	stats, err := svc.Complete(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if stats.Status != db.StatusCompleted {
		t.Errorf("Status = %q, want %q", stats.Status, db.StatusCompleted)
	}
	if stats.LikedCount != 1 || stats.TotalSwipes != 2 {
		t.Errorf("stats = %d liked / %d total, want 1/2", stats.LikedCount, stats.TotalSwipes)
	}
}

func TestCompleteIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	created, _ := svc.Create(ctx, "user1", 5, db.Preferences{})

	first, err := svc.Complete(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("first Complete() error = %v", err)
	}
	completedAt := *store.sessions[created.SessionID].CompletionDate

	second, err := svc.Complete(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("second Complete() error = %v", err)
	}
	if second.Status != first.Status || second.TotalSwipes != first.TotalSwipes {
		t.Errorf("second Complete() stats differ: %+v vs %+v", second, first)
	}
	if got := *store.sessions[created.SessionID].CompletionDate; !got.Equal(completedAt) {
		t.Errorf("completion date moved from %v to %v", completedAt, got)
	}
}

func TestCompleteAbandonedConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, _ := svc.Create(ctx, "user1", 5, db.Preferences{})
	if err := svc.Abandon(ctx, created.SessionID); err != nil {
		t.Fatalf("Abandon() error = %v", err)
	}

	if _, err := svc.Complete(ctx, created.SessionID); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("Complete() on abandoned session error = %v, want ErrSessionNotActive", err)
	}
}

func TestAbandon(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	created, _ := svc.Create(ctx, "user1", 5, db.Preferences{})

	if err := svc.Abandon(ctx, created.SessionID); err != nil {
		t.Fatalf("Abandon() error = %v", err)
	}
	if got := store.sessions[created.SessionID].Status; got != db.StatusAbandoned {
		t.Errorf("Status = %q, want %q", got, db.StatusAbandoned)
	}

	// Abandoning twice is a no-op.
	if err := svc.Abandon(ctx, created.SessionID); err != nil {
		t.Errorf("second Abandon() error = %v", err)
	}

	// A completed session cannot be abandoned.
	other, _ := svc.Create(ctx, "user1", 5, db.Preferences{})
	if _, err := svc.Complete(ctx, other.SessionID); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := svc.Abandon(ctx, other.SessionID); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("Abandon() on completed session error = %v, want ErrSessionNotActive", err)
	}
}

func TestGetProgress(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	created, _ := svc.Create(ctx, "user1", 10, db.Preferences{})
	for i := 0; i < 4; i++ {
		dir := db.DirectionRight
		if i%2 == 1 {
			dir = db.DirectionLeft
		}
		if _, err := svc.RecordSwipe(ctx, created.SessionID, testSong(), dir); err != nil {
			t.Fatalf("RecordSwipe() error = %v", err)
		}
	}

	progress, err := svc.GetProgress(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if progress.LikedCount != 2 || progress.PassedCount != 2 || progress.TotalSwipes != 4 {
		t.Errorf("progress = %+v, want 2 liked / 2 passed / 4 total", progress)
	}
	if progress.ProgressPercentage != 20 {
		t.Errorf("ProgressPercentage = %v, want 20", progress.ProgressPercentage)
	}
	if progress.CurrentSwipeIndex != 4 {
		t.Errorf("CurrentSwipeIndex = %d, want 4", progress.CurrentSwipeIndex)
	}
	if progress.IsComplete {
		t.Error("IsComplete = true at 2 of 10 likes")
	}
}

func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	missing := uuid.New()
	if _, err := svc.RecordSwipe(ctx, missing, testSong(), db.DirectionRight); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("RecordSwipe() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Complete(ctx, missing); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Complete() error = %v, want ErrNotFound", err)
	}
	if err := svc.Abandon(ctx, missing); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Abandon() error = %v, want ErrNotFound", err)
	}
}

package history

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/tuneswipe/tuneswipe-api/internal/db"
)

func liked(title, genre string, popularity, durationMs int) db.Song {
	return db.Song{
		SongID:     uuid.New(),
		SpotifyID:  uuid.NewString(),
		Title:      title,
		Artist:     "Artist",
		Genre:      &genre,
		Popularity: popularity,
		DurationMs: &durationMs,
	}
}

func TestBuildProfileTooFewSongs(t *testing.T) {
	songs := []db.Song{
		liked("A", "rock", 80, 200_000),
		liked("B", "rock", 70, 210_000),
	}

	profile := buildProfile(songs)
	if profile.TotalLiked != 2 {
		t.Errorf("TotalLiked = %d, want 2", profile.TotalLiked)
	}
	if len(profile.Groups) != 0 {
		t.Errorf("Groups = %d, want none below the clustering threshold", len(profile.Groups))
	}
	if len(profile.TopGenres) != 1 || profile.TopGenres[0].Genre != "rock" {
		t.Errorf("TopGenres = %+v", profile.TopGenres)
	}
}

func TestBuildProfileGroups(t *testing.T) {
	// Two well-separated populations: popular short pop songs and obscure
	// long ambient tracks.
	var songs []db.Song
	for i := 0; i < 6; i++ {
		songs = append(songs, liked("Pop", "pop", 90+i, 180_000))
	}
	for i := 0; i < 6; i++ {
		songs = append(songs, liked("Ambient", "ambient", 5+i, 540_000))
	}

	profile := buildProfile(songs)
	if profile.TotalLiked != 12 {
		t.Fatalf("TotalLiked = %d, want 12", profile.TotalLiked)
	}
	if len(profile.Groups) == 0 {
		t.Fatal("Groups is empty")
	}

	total := 0
	labels := make(map[string]bool)
	for _, g := range profile.Groups {
		total += g.SongCount
		labels[g.Label] = true
		if g.SongCount == 0 {
			t.Errorf("group %q has zero songs", g.Label)
		}
	}
	if total != 12 {
		t.Errorf("groups cover %d songs, want 12", total)
	}
	if !labels["pop"] || !labels["ambient"] {
		t.Errorf("group labels = %v, want pop and ambient groups", labels)
	}

	// Largest group first.
	for i := 1; i < len(profile.Groups); i++ {
		if profile.Groups[i].SongCount > profile.Groups[i-1].SongCount {
			t.Error("groups not sorted by size")
		}
	}
}

func TestTopGenres(t *testing.T) {
	songs := []db.Song{
		liked("A", "rock", 80, 200_000),
		liked("B", "rock", 70, 210_000),
		liked("C", "jazz", 60, 300_000),
	}
	songs = append(songs, db.Song{SongID: uuid.New(), Title: "No Genre"})

	got := topGenres(songs)
	if len(got) != 2 {
		t.Fatalf("topGenres() returned %d entries, want 2", len(got))
	}
	if got[0].Genre != "rock" || got[0].Count != 2 {
		t.Errorf("top genre = %+v, want rock x2", got[0])
	}
	if got[1].Genre != "jazz" || got[1].Count != 1 {
		t.Errorf("second genre = %+v, want jazz x1", got[1])
	}
}

type fakeSwipeLister struct {
	songs []db.Song
}

func (f *fakeSwipeLister) SessionSongs(_ context.Context, _ uuid.UUID) ([]db.SessionSong, error) {
	return nil, nil
}

func (f *fakeSwipeLister) LikedSongsForUser(_ context.Context, _ string) ([]db.Song, error) {
	return f.songs, nil
}

type fakeSessionLister struct{}

func (f *fakeSessionLister) ListForUser(_ context.Context, _ string) ([]db.SessionWithStats, error) {
	return nil, nil
}

func TestTasteProfileEmptyHistory(t *testing.T) {
	svc := New(&fakeSessionLister{}, &fakeSwipeLister{})

	profile, err := svc.TasteProfile(context.Background(), "user1")
	if err != nil {
		t.Fatalf("TasteProfile() error = %v", err)
	}
	if profile.TotalLiked != 0 || len(profile.Groups) != 0 {
		t.Errorf("TasteProfile() on empty history = %+v", profile)
	}
}

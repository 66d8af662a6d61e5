// Package catalog resolves genre-filtered candidate tracks for swiping,
// deduplicated against songs already swiped in the session and cached
// through the local songs table.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tuneswipe/tuneswipe-api/internal/db"
	"github.com/tuneswipe/tuneswipe-api/internal/spotify"
)

// Limits on the number of candidates served per request.
const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Sentinel errors distinguishing terminal from retryable discovery failures.
var (
	// ErrNoResults means the catalog had nothing for the requested genres;
	// the user must change filters.
	ErrNoResults = errors.New("no songs found for the requested genres")

	// ErrProviderUnavailable means the catalog provider could not be
	// reached; the caller may retry.
	ErrProviderUnavailable = errors.New("catalog provider unavailable")
)

// Searcher is the catalog search surface of the Spotify client.
type Searcher interface {
	SearchGenre(ctx context.Context, genre string, offset int) ([]spotify.Track, error)
	SearchText(ctx context.Context, query string) ([]spotify.Track, error)
}

// PreviewFinder resolves preview URLs for tracks.
type PreviewFinder interface {
	FindPreview(ctx context.Context, title, artist string) (string, error)
}

// SongStore persists resolved songs.
type SongStore interface {
	Upsert(ctx context.Context, song *db.Song) error
	GetBySpotifyIDs(ctx context.Context, spotifyIDs []string) (map[string]db.Song, error)
}

// SeenLister reports which Spotify tracks a session has already swiped.
type SeenLister interface {
	SeenSpotifyIDs(ctx context.Context, sessionID uuid.UUID) ([]string, error)
}

// Candidate is a track offered for swiping.
type Candidate struct {
	SongID      string `json:"id"`
	SpotifyID   string `json:"spotify_id"`
	Title       string `json:"name"`
	Artist      string `json:"artist"`
	PreviewURL  string `json:"previewUrl"`
	AlbumCover  string `json:"image_url"`
	URI         string `json:"uri"`
	Popularity  int    `json:"popularity"`
	Album       string `json:"album"`
	Genre       string `json:"genre"`
	DurationMs  int    `json:"duration_ms"`
	ReleaseDate string `json:"release_date"`
	ExternalURL string `json:"external_url"`
	Explicit    bool   `json:"isExplicit"`
}

// Service discovers candidate tracks for swipe sessions.
type Service struct {
	search   Searcher
	previews PreviewFinder
	songs    SongStore
	seen     SeenLister
	log      *zap.SugaredLogger
}

// New creates a catalog service.
func New(search Searcher, previews PreviewFinder, songs SongStore, seen SeenLister, log *zap.SugaredLogger) *Service {
	return &Service{
		search:   search,
		previews: previews,
		songs:    songs,
		seen:     seen,
		log:      log,
	}
}

// Discover returns up to limit candidate tracks for the requested genres,
// excluding songs already swiped in the session, ordered by popularity.
// Results are upserted into the songs table (cache-through) and enriched
// with preview URLs on a best-effort basis.
func (s *Service) Discover(ctx context.Context, sessionID uuid.UUID, genres []string, limit int) ([]Candidate, error) {
	genres = normalizeGenres(genres)
	if len(genres) == 0 {
		genres = []string{"pop"}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	// Songs already swiped in this session are never served again.
	seen := make(map[string]bool)
	if sessionID != uuid.Nil {
		ids, err := s.seen.SeenSpotifyIDs(ctx, sessionID)
		if err != nil {
			s.log.Warnw("loading seen songs failed, serving unfiltered", "session_id", sessionID, "error", err)
		}
		for _, id := range ids {
			seen[id] = true
		}
	}

	found, searchFailures := s.searchGenres(ctx, genres, seen)
	if len(found) == 0 {
		if searchFailures == len(genres) {
			return nil, fmt.Errorf("%w: all genre searches failed", ErrProviderUnavailable)
		}
		// Genre queries can legitimately come back empty; try a plain search.
		var err error
		found, err = s.fallbackSearch(ctx, genres, seen)
		if err != nil {
			return nil, err
		}
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, strings.Join(genres, ", "))
	}

	selected := selectCandidates(found, limit)
	return s.resolve(ctx, selected)
}

// genreHit pairs a track with the genre query that found it.
type genreHit struct {
	track spotify.Track
	genre string
}

// searchGenres runs one search per genre at a randomized offset, dropping
// seen and duplicate tracks. Returns the hits and the number of failed
// genre queries.
func (s *Service) searchGenres(ctx context.Context, genres []string, seen map[string]bool) ([]genreHit, int) {
	var hits []genreHit
	taken := make(map[string]bool)
	failures := 0

	for _, genre := range genres {
		tracks, err := s.search.SearchGenre(ctx, genre, randomOffset())
		if err != nil {
			s.log.Warnw("genre search failed", "genre", genre, "error", err)
			failures++
			continue
		}
		for _, track := range tracks {
			if seen[track.SpotifyID] || taken[track.SpotifyID] {
				continue
			}
			taken[track.SpotifyID] = true
			hits = append(hits, genreHit{track: track, genre: genre})
		}
	}
	return hits, failures
}

// fallbackSearch joins the genres into a plain-text query.
func (s *Service) fallbackSearch(ctx context.Context, genres []string, seen map[string]bool) ([]genreHit, error) {
	tracks, err := s.search.SearchText(ctx, strings.Join(genres, " OR "))
	if err != nil {
		return nil, fmt.Errorf("%w: fallback search: %v", ErrProviderUnavailable, err)
	}

	var hits []genreHit
	taken := make(map[string]bool)
	for _, track := range tracks {
		if seen[track.SpotifyID] || taken[track.SpotifyID] {
			continue
		}
		taken[track.SpotifyID] = true
		hits = append(hits, genreHit{track: track, genre: genres[0]})
	}
	return hits, nil
}

// selectCandidates shuffles for variety, then orders by popularity so the
// strongest candidates are served first, and cuts to limit.
func selectCandidates(hits []genreHit, limit int) []genreHit {
	rand.Shuffle(len(hits), func(i, j int) {
		hits[i], hits[j] = hits[j], hits[i]
	})
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].track.Popularity > hits[j].track.Popularity
	})
	return hits[:min(limit, len(hits))]
}

// resolve upserts the selected tracks into the songs table and attaches
// preview URLs, consulting the local cache before Deezer.
func (s *Service) resolve(ctx context.Context, hits []genreHit) ([]Candidate, error) {
	spotifyIDs := make([]string, len(hits))
	for i, h := range hits {
		spotifyIDs[i] = h.track.SpotifyID
	}
	cached, err := s.songs.GetBySpotifyIDs(ctx, spotifyIDs)
	if err != nil {
		s.log.Warnw("song cache lookup failed", "error", err)
		cached = map[string]db.Song{}
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		preview := ""
		if known, ok := cached[h.track.SpotifyID]; ok && known.PreviewURL != nil {
			preview = *known.PreviewURL
		} else {
			// Preview lookup is best effort; a song without a preview is
			// still a valid candidate.
			preview, err = s.previews.FindPreview(ctx, h.track.Title, h.track.Artist)
			if err != nil {
				s.log.Warnw("preview lookup failed", "title", h.track.Title, "artist", h.track.Artist, "error", err)
				preview = ""
			}
		}

		song := toSong(h.track, h.genre, preview)
		if err := s.songs.Upsert(ctx, &song); err != nil {
			s.log.Warnw("song upsert failed", "spotify_id", h.track.SpotifyID, "error", err)
			continue
		}

		candidates = append(candidates, Candidate{
			SongID:      song.SongID.String(),
			SpotifyID:   h.track.SpotifyID,
			Title:       h.track.Title,
			Artist:      h.track.Artist,
			PreviewURL:  preview,
			AlbumCover:  h.track.AlbumCover,
			URI:         h.track.URI,
			Popularity:  h.track.Popularity,
			Album:       h.track.Album,
			Genre:       h.genre,
			DurationMs:  h.track.DurationMs,
			ReleaseDate: h.track.ReleaseDate,
			ExternalURL: h.track.ExternalURL,
			Explicit:    h.track.Explicit,
		})
	}
	return candidates, nil
}

// toSong converts a catalog track to its songs-table representation.
func toSong(track spotify.Track, genre, preview string) db.Song {
	song := db.Song{
		SpotifyID:  track.SpotifyID,
		Title:      track.Title,
		Artist:     track.Artist,
		Popularity: track.Popularity,
		Explicit:   track.Explicit,
	}
	if track.URI != "" {
		song.SpotifyURI = &track.URI
	}
	if preview != "" {
		song.PreviewURL = &preview
	}
	if track.Album != "" {
		song.Album = &track.Album
	}
	if track.AlbumCover != "" {
		song.AlbumCover = &track.AlbumCover
	}
	if genre != "" {
		song.Genre = &genre
	}
	if track.DurationMs > 0 {
		song.DurationMs = &track.DurationMs
	}
	if track.ReleaseDate != "" {
		song.ReleaseDate = &track.ReleaseDate
	}
	if track.ExternalURL != "" {
		song.ExternalURL = &track.ExternalURL
	}
	return song
}

// randomOffset biases toward the front of the result space while still
// reaching deeper pages for variety.
func randomOffset() int {
	if rand.Float64() < 0.65 {
		return rand.IntN(200)
	}
	return 200 + rand.IntN(200)
}

// normalizeGenres trims whitespace and drops empty entries.
func normalizeGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

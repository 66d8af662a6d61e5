package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tuneswipe/tuneswipe-api/internal/auth"
	"github.com/tuneswipe/tuneswipe-api/internal/catalog"
	"github.com/tuneswipe/tuneswipe-api/internal/db"
	"github.com/tuneswipe/tuneswipe-api/internal/history"
	"github.com/tuneswipe/tuneswipe-api/internal/playlist"
	"github.com/tuneswipe/tuneswipe-api/internal/session"
)

// Authenticator is the OAuth surface the handlers need.
type Authenticator interface {
	AuthURL() string
	Exchange(ctx context.Context, r *http.Request) (*db.User, error)
	CheckAuth(ctx context.Context, user *db.User) error
}

// Discoverer serves swipe candidates.
type Discoverer interface {
	Discover(ctx context.Context, sessionID uuid.UUID, genres []string, limit int) ([]catalog.Candidate, error)
}

// Sessions is the swipe session surface the handlers need.
type Sessions interface {
	Create(ctx context.Context, spotifyID string, targetLength int, prefs db.Preferences) (*db.SwipeSession, error)
	RecordSwipe(ctx context.Context, sessionID uuid.UUID, song *db.Song, direction db.Direction) (*session.SwipeResult, error)
	GetProgress(ctx context.Context, sessionID uuid.UUID) (*session.Progress, error)
	Complete(ctx context.Context, sessionID uuid.UUID) (*db.SessionStats, error)
	Abandon(ctx context.Context, sessionID uuid.UUID) error
}

// Playlists is the playlist surface the handlers need.
type Playlists interface {
	CreateForUser(ctx context.Context, spotifyID, name, description string, public bool) (*playlist.Created, error)
	AddTracks(ctx context.Context, spotifyID, spotifyPlaylistID string, trackURIs []string) (int, error)
}

// History is the history/analytics surface the handlers need.
type History interface {
	UserSessions(ctx context.Context, spotifyID string) ([]db.SessionWithStats, error)
	SessionSongs(ctx context.Context, sessionID uuid.UUID) ([]db.SessionSong, error)
	TasteProfile(ctx context.Context, spotifyID string) (*history.Profile, error)
}

// UserGetter loads user rows by Spotify ID.
type UserGetter interface {
	Get(ctx context.Context, spotifyID string) (*db.User, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	auth        Authenticator
	catalog     Discoverer
	sessions    Sessions
	playlists   Playlists
	history     History
	users       UserGetter
	frontendURL string
	log         *zap.SugaredLogger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(authn Authenticator, cat Discoverer, sessions Sessions, playlists Playlists, hist History, users UserGetter, frontendURL string, log *zap.SugaredLogger) *Handlers {
	return &Handlers{
		auth:        authn,
		catalog:     cat,
		sessions:    sessions,
		playlists:   playlists,
		history:     hist,
		users:       users,
		frontendURL: frontendURL,
		log:         log,
	}
}

// Health reports service liveness (GET /).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.success(w, map[string]string{
		"service": "tuneswipe-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// AuthURL returns the Spotify authorization URL (GET /api/spotify/auth_url).
func (h *Handlers) AuthURL(w http.ResponseWriter, r *http.Request) {
	h.success(w, map[string]string{"auth_url": h.auth.AuthURL()})
}

// Callback handles the Spotify OAuth redirect (GET /callback). It always
// answers with a redirect to the frontend, carrying either the signed-in
// user's identity or an error code.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	if errCode := r.URL.Query().Get("error"); errCode != "" {
		h.redirectFrontend(w, r, url.Values{"error": {errCode}})
		return
	}
	if r.URL.Query().Get("code") == "" {
		h.redirectFrontend(w, r, url.Values{"error": {"missing_code"}})
		return
	}

	user, err := h.auth.Exchange(r.Context(), r)
	if err != nil {
		h.log.Errorw("oauth callback failed", "error", err)
		h.redirectFrontend(w, r, url.Values{"error": {"auth_failed"}})
		return
	}

	params := url.Values{
		"auth":         {"success"},
		"spotify_id":   {user.SpotifyID},
		"display_name": {user.DisplayName},
		"email":        {user.Email},
	}
	if !user.LastLogin.IsZero() {
		params.Set("last_login", user.LastLogin.UTC().Format(time.RFC3339))
	}
	h.redirectFrontend(w, r, params)
}

func (h *Handlers) redirectFrontend(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, h.frontendURL+"?"+params.Encode(), http.StatusTemporaryRedirect)
}

// CheckAuth verifies a user's stored credentials still carry playlist
// permissions (GET /api/check_auth/{spotifyID}).
func (h *Handlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	spotifyID := chi.URLParam(r, "spotifyID")

	user, err := h.users.Get(r.Context(), spotifyID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.failAuth(w, http.StatusNotFound, "user not found")
			return
		}
		h.serviceError(w, err)
		return
	}

	if err := h.auth.CheckAuth(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrReauthRequired) {
			h.failAuth(w, http.StatusUnauthorized, "authentication required")
			return
		}
		h.serviceError(w, err)
		return
	}

	needsAuth := false
	h.writeJSON(w, http.StatusOK, envelope{
		Status:    "success",
		Message:   "user is authenticated with playlist permissions",
		NeedsAuth: &needsAuth,
	})
}

// GetSong serves candidate tracks for swiping (GET /api/get_song).
func (h *Handlers) GetSong(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var genres []string
	for _, g := range strings.Split(q.Get("genre"), ",") {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessionID := uuid.Nil
	if raw := q.Get("session_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.fail(w, http.StatusBadRequest, "invalid session_id")
			return
		}
		sessionID = id
	}

	tracks, err := h.catalog.Discover(r.Context(), sessionID, genres, limit)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.success(w, map[string]any{
		"tracks": tracks,
		"total":  len(tracks),
	})
}

// swipeRequest is the POST /api/swipe body.
type swipeRequest struct {
	SessionID string       `json:"session_id"`
	SongData  songPayload  `json:"song_data"`
	Direction db.Direction `json:"direction"`
}

// songPayload mirrors the candidate shape the frontend swipes on.
type songPayload struct {
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

func (p *songPayload) toSong() *db.Song {
	song := &db.Song{
		SpotifyID:  p.SpotifyID,
		Title:      p.Title,
		Artist:     p.Artist,
		Popularity: p.Popularity,
		Explicit:   p.Explicit,
	}
	setIfNotEmpty := func(dst **string, v string) {
		if v != "" {
			*dst = &v
		}
	}
	setIfNotEmpty(&song.SpotifyURI, p.URI)
	setIfNotEmpty(&song.PreviewURL, p.PreviewURL)
	setIfNotEmpty(&song.Album, p.Album)
	setIfNotEmpty(&song.AlbumCover, p.AlbumCover)
	setIfNotEmpty(&song.Genre, p.Genre)
	setIfNotEmpty(&song.ReleaseDate, p.ReleaseDate)
	setIfNotEmpty(&song.ExternalURL, p.ExternalURL)
	if p.DurationMs > 0 {
		song.DurationMs = &p.DurationMs
	}
	return song
}

// Swipe records a like/pass decision (POST /api/swipe).
func (h *Handlers) Swipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		h.fail(w, http.StatusBadRequest, "invalid session_id")
		return
	}
	if req.SongData.SpotifyID == "" {
		h.fail(w, http.StatusBadRequest, "song_data.spotify_id is required")
		return
	}

	result, err := h.sessions.RecordSwipe(r.Context(), sessionID, req.SongData.toSong(), req.Direction)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.success(w, map[string]any{
		"swipe_id":       result.SwipeID.String(),
		"swipe_order":    result.SwipeOrder,
		"liked_count":    result.LikedCount,
		"total_swipes":   result.TotalSwipes,
		"target":         result.Target,
		"target_reached": result.TargetReached,
	})
}

// createSessionRequest is the POST /api/swipe_sessions body.
type createSessionRequest struct {
	SpotifyID            string         `json:"spotify_id"`
	TargetPlaylistLength int            `json:"target_playlist_length"`
	SessionPreferences   db.Preferences `json:"session_preferences"`
}

// CreateSession opens a new swipe session (POST /api/swipe_sessions).
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SpotifyID == "" {
		h.fail(w, http.StatusBadRequest, "spotify_id is required")
		return
	}

	created, err := h.sessions.Create(r.Context(), req.SpotifyID, req.TargetPlaylistLength, req.SessionPreferences)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.successMsg(w, map[string]any{
		"session_id":             created.SessionID.String(),
		"spotify_id":             created.SpotifyID,
		"target_playlist_length": created.TargetLength,
	}, "swipe session created successfully")
}

// ListSessions returns a user's sessions with counters (GET /api/swipe_sessions).
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	spotifyID := r.URL.Query().Get("spotify_id")
	if spotifyID == "" {
		h.fail(w, http.StatusBadRequest, "spotify_id is required")
		return
	}

	sessions, err := h.history.UserSessions(r.Context(), spotifyID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.success(w, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// sessionIDParam parses the {sessionID} URL parameter.
func (h *Handlers) sessionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

// SessionProgress reports liked/total counters (GET /api/session_progress/{sessionID}).
func (h *Handlers) SessionProgress(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionIDParam(w, r)
	if !ok {
		return
	}

	progress, err := h.sessions.GetProgress(r.Context(), sessionID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.success(w, map[string]any{
		"session_id":          progress.SessionID.String(),
		"status":              progress.Status,
		"target_length":       progress.Target,
		"liked_count":         progress.LikedCount,
		"passed_count":        progress.PassedCount,
		"total_swipes":        progress.TotalSwipes,
		"current_swipe_index": progress.CurrentSwipeIndex,
		"progress_percentage": progress.ProgressPercentage,
		"is_complete":         progress.IsComplete,
	})
}

// CompleteSession marks a session COMPLETED (POST /api/complete_session/{sessionID}).
func (h *Handlers) CompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionIDParam(w, r)
	if !ok {
		return
	}

	stats, err := h.sessions.Complete(r.Context(), sessionID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.successMsg(w, map[string]any{
		"session_id": sessionID.String(),
		"stats":      stats,
	}, "session completed successfully")
}

// AbandonSession discards an active session (POST /api/abandon_session/{sessionID}).
func (h *Handlers) AbandonSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionIDParam(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Abandon(r.Context(), sessionID); err != nil {
		h.serviceError(w, err)
		return
	}

	h.successMsg(w, map[string]any{"session_id": sessionID.String()}, "session abandoned")
}

// SessionSongs lists every swiped song of a session (GET /api/session_songs/{sessionID}).
func (h *Handlers) SessionSongs(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionIDParam(w, r)
	if !ok {
		return
	}

	songs, err := h.history.SessionSongs(r.Context(), sessionID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.success(w, map[string]any{
		"songs": songs,
		"total": len(songs),
	})
}

// createPlaylistRequest is the POST /api/create_playlist body.
type createPlaylistRequest struct {
	SpotifyID   string `json:"spotify_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      *bool  `json:"public"`
}

// CreatePlaylist creates a playlist on the user's Spotify account
// (POST /api/create_playlist).
func (h *Handlers) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SpotifyID == "" || req.Name == "" {
		h.fail(w, http.StatusBadRequest, "spotify_id and name are required")
		return
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}

	created, err := h.playlists.CreateForUser(r.Context(), req.SpotifyID, req.Name, req.Description, public)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.failAuth(w, http.StatusNotFound, "user not found")
			return
		}
		h.serviceError(w, err)
		return
	}

	h.success(w, map[string]any{
		"playlist_id":  created.SpotifyPlaylistID,
		"external_url": created.ExternalURL,
	})
}

// addTracksRequest is the POST /api/add_tracks_to_playlist/{playlistID} body.
type addTracksRequest struct {
	SpotifyID string   `json:"spotify_id"`
	TrackURIs []string `json:"track_uris"`
}

// AddTracks adds tracks to an existing Spotify playlist
// (POST /api/add_tracks_to_playlist/{playlistID}).
func (h *Handlers) AddTracks(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")

	var req addTracksRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SpotifyID == "" {
		h.fail(w, http.StatusBadRequest, "spotify_id is required")
		return
	}
	if len(req.TrackURIs) == 0 {
		h.successMsg(w, nil, "no tracks to add")
		return
	}

	added, err := h.playlists.AddTracks(r.Context(), req.SpotifyID, playlistID, req.TrackURIs)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.failAuth(w, http.StatusNotFound, "user not found")
			return
		}
		h.serviceError(w, err)
		return
	}

	h.success(w, map[string]any{"added": added})
}

// TasteProfile returns the clustered taste profile for a user
// (GET /api/taste_profile/{spotifyID}).
func (h *Handlers) TasteProfile(w http.ResponseWriter, r *http.Request) {
	spotifyID := chi.URLParam(r, "spotifyID")
	if spotifyID == "" {
		h.fail(w, http.StatusBadRequest, "spotify ID is required")
		return
	}

	profile, err := h.history.TasteProfile(r.Context(), spotifyID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.success(w, profile)
}

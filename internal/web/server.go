// Package web is the HTTP surface of the TuneSwipe API: routing, the JSON
// response envelope, and request middleware.
package web

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server is the HTTP server for the API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	log      *zap.SugaredLogger
}

// ServerConfig holds server wiring.
type ServerConfig struct {
	Addr        string
	FrontendURL string
	Handlers    *Handlers
	Log         *zap.SugaredLogger
}

// NewServer creates the API server.
func NewServer(cfg ServerConfig) *Server {
	router := chi.NewRouter()

	s := &Server{
		router:   router,
		handlers: cfg.Handlers,
		log:      cfg.Log,
	}

	s.setupMiddleware(cfg.FrontendURL)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware(frontendURL string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(corsMiddleware(frontendURL))
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.Get("/", h.Health)
	s.router.Get("/callback", h.Callback)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/spotify/auth_url", h.AuthURL)
		r.Get("/check_auth/{spotifyID}", h.CheckAuth)

		r.Get("/get_song", h.GetSong)
		r.Post("/swipe", h.Swipe)

		r.Post("/swipe_sessions", h.CreateSession)
		r.Get("/swipe_sessions", h.ListSessions)
		r.Get("/session_progress/{sessionID}", h.SessionProgress)
		r.Post("/complete_session/{sessionID}", h.CompleteSession)
		r.Post("/abandon_session/{sessionID}", h.AbandonSession)
		r.Get("/session_songs/{sessionID}", h.SessionSongs)

		r.Post("/create_playlist", h.CreatePlaylist)
		r.Post("/add_tracks_to_playlist/{playlistID}", h.AddTracks)

		r.Get("/taste_profile/{spotifyID}", h.TasteProfile)
	})
}

// requestLogger logs each request with its status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// corsMiddleware allows the configured frontend origin to call the API.
func corsMiddleware(frontendURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", frontendURL)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Router exposes the configured routes, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Infow("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.log.Infow("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return err
	}

	s.log.Infow("server stopped")
	return nil
}

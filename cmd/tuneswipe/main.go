// Command tuneswipe runs the TuneSwipe API server.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/tuneswipe/tuneswipe-api/internal/auth"
	"github.com/tuneswipe/tuneswipe-api/internal/cache"
	"github.com/tuneswipe/tuneswipe-api/internal/catalog"
	"github.com/tuneswipe/tuneswipe-api/internal/config"
	"github.com/tuneswipe/tuneswipe-api/internal/db"
	"github.com/tuneswipe/tuneswipe-api/internal/deezer"
	"github.com/tuneswipe/tuneswipe-api/internal/history"
	"github.com/tuneswipe/tuneswipe-api/internal/playlist"
	"github.com/tuneswipe/tuneswipe-api/internal/session"
	"github.com/tuneswipe/tuneswipe-api/internal/spotify"
	"github.com/tuneswipe/tuneswipe-api/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Sugar()

	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := database.Setup(ctx); err != nil {
		return fmt.Errorf("setting up database: %w", err)
	}

	previewCache, err := newCache(ctx, cfg, log)
	if err != nil {
		return err
	}

	searchClient, err := spotify.NewAppClient(ctx, cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	if err != nil {
		return fmt.Errorf("creating spotify search client: %w", err)
	}

	authn := auth.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.RedirectURI(), database.Users())
	previews := deezer.NewClient(previewCache)

	catalogSvc := catalog.New(searchClient, previews, database.Songs(), database.Sessions(), log)
	sessionSvc := session.New(database.Sessions(), database.Swipes(), database.Songs())
	historySvc := history.New(database.Sessions(), database.Swipes())
	playlistSvc := playlist.New(
		database.Users(),
		database.Playlists(),
		database.Swipes(),
		playlist.ClientSourceFunc(func(ctx context.Context, user *db.User) (playlist.SpotifyClient, error) {
			return authn.ClientFor(ctx, user)
		}),
		log,
	)

	handlers := web.NewHandlers(authn, catalogSvc, sessionSvc, playlistSvc, historySvc, database.Users(), cfg.FrontendURL, log)

	server := web.NewServer(web.ServerConfig{
		Addr:        cfg.Addr,
		FrontendURL: cfg.FrontendURL,
		Handlers:    handlers,
		Log:         log,
	})

	return server.Run()
}

// newLogger builds the zap logger for the configured environment.
func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newCache picks Redis when configured and falls back to the in-process cache.
func newCache(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), nil
	}
	redisCache, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	log.Infow("using redis preview cache", "addr", cfg.RedisAddr)
	return redisCache, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/coinchat-server/internal/auth"
	"github.com/vovakirdan/coinchat-server/internal/callengine/livekit"
	"github.com/vovakirdan/coinchat-server/internal/config"
	"github.com/vovakirdan/coinchat-server/internal/core"
	"github.com/vovakirdan/coinchat-server/internal/service/economy"
	"github.com/vovakirdan/coinchat-server/internal/service/history"
	"github.com/vovakirdan/coinchat-server/internal/store"
	redisstore "github.com/vovakirdan/coinchat-server/internal/store/redis"
	"github.com/vovakirdan/coinchat-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/coinchat-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	mirror          *redisstore.PresenceMirror
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := sqlite.New(cfg.DatabasePath, sqlite.WithStartingCoins(cfg.StartingCoins))
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})
	econ := economy.New(st, cfg.UnlockCost, cfg.StoreTimeout, logger)
	hist := history.New(st, history.Options{
		Timeout:      cfg.StoreTimeout,
		DefaultLimit: cfg.HistoryDefaultLimit,
		MaxLimit:     cfg.HistoryMaxLimit,
	})

	deps := core.Dependencies{
		Auth:    authService,
		Economy: econ,
		History: hist,
	}

	if cfg.LiveKit.Enabled {
		deps.Media = livekit.New(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.URL)
		logger.Info().Str("url", cfg.LiveKit.URL).Msg("livekit media enabled")
	}

	var mirror *redisstore.PresenceMirror
	if cfg.Redis.Addr != "" {
		mirror, err = redisstore.Open(ctx, cfg.Redis, logger)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("init redis presence mirror: %w", err)
		}
		deps.PresenceSink = mirror
		logger.Info().Str("addr", cfg.Redis.Addr).Str("key", cfg.Redis.Key).Msg("redis presence mirror enabled")
	}

	hub := core.NewHub(deps, core.Options{
		OpTimeout:            cfg.OpTimeout,
		MaxMessageBytes:      int(cfg.MaxMessageBytes),
		MaxStageSpeakers:     cfg.MaxStageSpeakers,
		DegradeAfterFailures: cfg.DegradeAfterFailures,
	}, logger)

	server := transporthttp.NewServer(transporthttp.Deps{
		Hub:     hub,
		Auth:    authService,
		Users:   st,
		Wallet:  econ,
		History: hist,
	}, *cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		mirror:          mirror,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	workers.Add(1)
	go func() {
		defer workers.Done()
		a.hub.Run(hubCtx)
	}()
	if a.mirror != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			a.mirror.Run(hubCtx)
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// Shutdown does not wait for hijacked websocket connections; stopping the hub closes them.
		stopHub()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			runErr = err
		} else {
			runErr = <-serverErr
		}
	}

	stopHub()
	workers.Wait()
	a.cleanup()
	return runErr
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis presence mirror")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

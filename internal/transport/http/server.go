package http

import (
	"context"
	stdhttp "net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/coinchat-server/internal/auth"
	"github.com/vovakirdan/coinchat-server/internal/config"
	"github.com/vovakirdan/coinchat-server/internal/core"
	"github.com/vovakirdan/coinchat-server/internal/store"
)

// Wallet reads balances and unlocked peers.
type Wallet interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	UnlockedPeers(ctx context.Context, userID int64) ([]int64, error)
}

// HistoryReader serves paged message history.
type HistoryReader interface {
	Lobby(ctx context.Context, page store.Page) ([]*store.Message, error)
	Thread(ctx context.Context, a, b int64, page store.Page) ([]*store.Message, error)
}

// Hub is the part of the core hub the transport needs.
type Hub interface {
	RegisterClient(c *core.Client)
	Presence() *core.Presence
	VoiceRooms() []core.RoomSummary
}

// Deps are the collaborators served over HTTP.
type Deps struct {
	Hub     Hub
	Auth    *auth.Service
	Users   store.UserStore
	Wallet  Wallet
	History HistoryReader
}

// NewRouter builds the gin engine with the REST routes.
func NewRouter(deps Deps, cfg config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(deps.Auth, deps.Wallet, logger)
	userHandlers := NewUserHandlers(deps.Users, deps.Hub.Presence(), logger)
	historyHandlers := NewHistoryHandlers(deps.History, logger)
	voiceHandlers := NewVoiceHandlers(deps.Hub)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authed := api.Group("")
	authed.Use(AuthMiddleware(deps.Auth, logger))
	authed.GET("/me", apiHandlers.Me)
	authed.GET("/users", userHandlers.ListUsers)
	authed.GET("/messages", historyHandlers.ListMessages)
	authed.GET("/voice/rooms", voiceHandlers.ListRooms)

	return router
}

// NewHandler serves /ws directly and everything else through the gin engine.
// The upgrade stays outside gin so its response writer never sees the hijack.
func NewHandler(deps Deps, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(deps.Hub, WSOptions{
		Origins:            cfg.CORSOrigins,
		ClientBuffer:       cfg.ClientBuffer,
		MaxMessageBytes:    cfg.MaxMessageBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		WriteTimeout:       cfg.OpTimeout,
	}, logger))
	mux.Handle("/", NewRouter(deps, cfg, logger))
	return mux
}

// NewServer builds an HTTP server around NewHandler.
func NewServer(deps Deps, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(deps, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Accept"}
	return cfg
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

// Package api serves the REST API under /api with gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Sternrassler/cryptomark/internal/auth"
	"github.com/Sternrassler/cryptomark/internal/store"
	"github.com/Sternrassler/cryptomark/pkg/cache"
	"github.com/Sternrassler/cryptomark/pkg/logging"
	"github.com/Sternrassler/cryptomark/pkg/metrics"
)

// Store is the persistence used by the handlers. *store.Store satisfies it.
type Store interface {
	ListCoins(ctx context.Context, offset, limit int) ([]store.Coin, error)
	CountCoins(ctx context.Context) (int64, error)
	TopCoins(ctx context.Context, n int) ([]store.Coin, error)
	GetCoin(ctx context.Context, id string) (*store.Coin, error)

	AddBookmark(ctx context.Context, userID uint, coinID string) (*store.Bookmark, error)
	RemoveBookmark(ctx context.Context, userID uint, coinID string) error
	BookmarkedCoins(ctx context.Context, userID uint) ([]store.Coin, error)

	Buy(ctx context.Context, userID uint, coinID string, quantity decimal.Decimal) (*store.TradeResult, error)
	Sell(ctx context.Context, userID uint, coinID string, quantity decimal.Decimal) (*store.TradeResult, error)
	Portfolio(ctx context.Context, userID uint) (*store.Portfolio, error)
	TradeHistory(ctx context.Context, userID uint, page, pageSize int) (*store.HistoryPage, error)

	Ping(ctx context.Context) error
}

// StatusSource reports upstream connectivity. *network.Monitor satisfies it.
type StatusSource interface {
	Status() bool
}

// Config holds server settings.
type Config struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string

	// CoinListTTL is how long rendered coin list pages are cached.
	// Zero disables caching.
	CoinListTTL time.Duration

	// AuthRate and AuthBurst limit auth requests per client IP.
	// A rate of zero disables the limit.
	AuthRate  float64
	AuthBurst int

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Deps are the collaborators of the server. Cache and Network are optional.
type Deps struct {
	Store   Store
	Auth    *auth.Service
	Cache   *cache.Manager
	Network StatusSource
}

// Server is the HTTP API.
type Server struct {
	config Config
	deps   Deps
	engine *gin.Engine
	logger zerolog.Logger
}

// NewServer builds the router.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		engine: gin.New(),
		logger: logging.NewLogger("api"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.Use(RequestID(), RequestLogger(s.logger), gin.Recovery(), Instrument())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/health", s.health)

	tokens := s.deps.Auth.Tokens()
	requireAuth := auth.RequireAuth(tokens)

	authGroup := api.Group("/auth", RateLimit(s.config.AuthRate, s.config.AuthBurst))
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.POST("/logout", requireAuth, s.logout)

	api.GET("/coins", s.listCoins)
	api.GET("/coins/top10", s.topCoins)
	api.GET("/coins/:id", s.coinDetail)

	user := api.Group("", requireAuth)
	user.POST("/bookmarks", s.addBookmark)
	user.DELETE("/bookmarks/:coin_id", s.removeBookmark)
	user.GET("/user/bookmarks", s.userBookmarks)

	user.POST("/trade/buy", s.buy)
	user.POST("/trade/sell", s.sell)
	user.GET("/trade/portfolio", s.portfolio)
	user.GET("/trade/history", s.tradeHistory)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

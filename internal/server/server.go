package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/snaplist/internal/config"
	"github.com/pscheid92/snaplist/internal/domain"
	apperrors "github.com/pscheid92/snaplist/internal/errors"
	goredis "github.com/redis/go-redis/v9"
)

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	todos     domain.TodoService
	sessions  domain.SessionRepository
	cookies   *sessions.CookieStore
	clock     clockwork.Clock
	startTime time.Time

	db          *pgxpool.Pool
	redisClient *goredis.Client

	// Health check overrides for tests; nil means use the real clients.
	redisHealthCheck    redisHealthChecker
	postgresHealthCheck postgresHealthChecker
}

func NewServer(cfg *config.Config, todos domain.TodoService, sessionRepo domain.SessionRepository, pool *pgxpool.Pool, redisClient *goredis.Client, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(requestIDMiddleware)
	e.Use(apperrors.Middleware())

	cookieStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}

	srv := &Server{
		echo:        e,
		config:      cfg,
		todos:       todos,
		sessions:    sessionRepo,
		cookies:     cookieStore,
		clock:       clock,
		startTime:   clock.Now(),
		db:          pool,
		redisClient: redisClient,
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

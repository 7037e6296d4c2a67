package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/osa911/datacap/internal/api/handlers"
	"github.com/osa911/datacap/internal/api/validation"
	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/middleware"
	"github.com/osa911/datacap/internal/server/routes"
)

// Server is the loopback control API
type Server struct {
	router *gin.Engine
	http   *http.Server
	cfg    Config
	logger *logging.Logger
}

// NewServer creates the router and registers every route
func NewServer(cfg Config, deps Dependencies) *Server {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	// Our own logger middleware replaces gin's
	gin.DisableConsoleColor()
	gin.DefaultWriter = io.Discard

	validation.RegisterWithGin()

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(middleware.Logger(deps.Observer))
	if cfg.RPS > 0 {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{RPS: cfg.RPS, Burst: cfg.Burst}))
	}

	var metrics http.Handler
	if deps.Gatherer != nil {
		metrics = promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})
	}

	routes.Setup(router, &routes.Handlers{
		Health:   handlers.NewHealthHandler(deps.DB, deps.Engine),
		Status:   handlers.NewStatusHandler(deps.Status, deps.Engine),
		Quota:    handlers.NewQuotaHandler(deps.Commands),
		Command:  handlers.NewCommandHandler(deps.Commands),
		Packages: handlers.NewPackageHandler(deps.Purchases),
		Engine:   handlers.NewEngineHandler(deps.Engine),
	}, metrics)

	return &Server{
		router: router,
		cfg:    cfg,
		logger: logging.GetGlobalLogger(),
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.logger.Info("Control API listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("control API failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down control API: %w", err)
	}
	s.logger.Info("Control API stopped")
	return nil
}

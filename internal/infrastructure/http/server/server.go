// Package server provides the HTTP server for the shopping list API
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/alchemorsel/mealplan/pkg/healthcheck"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// APIPrefix is the mount point of the shopping list routes
const APIPrefix = "/api/v1/shopping-list"

// LivenessPath answers as long as the process serves HTTP
const LivenessPath = "/live"

// Server represents the HTTP server
type Server struct {
	config *config.Config
	logger *zap.Logger
	engine *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	mw *middleware.Middleware,
	auth *middleware.Authenticator,
	shopping *handlers.ShoppingHandlers,
	health *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
) (*Server, error) {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: cfg,
		logger: logger.Named("http-server"),
	}

	engine, err := s.setupRouter(mw, auth, shopping, health, metrics)
	if err != nil {
		return nil, err
	}
	s.engine = engine

	healthPaths := map[string]bool{
		cfg.Monitoring.HealthCheckPath: true,
		cfg.Monitoring.ReadinessPath:   true,
		LivenessPath:                   true,
		cfg.Monitoring.MetricsPath:     true,
	}

	s.server = &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: otelhttp.NewHandler(engine, cfg.App.Name,
			otelhttp.WithFilter(func(r *http.Request) bool {
				return !healthPaths[r.URL.Path]
			}),
		),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	return s, nil
}

func (s *Server) setupRouter(
	mw *middleware.Middleware,
	auth *middleware.Authenticator,
	shopping *handlers.ShoppingHandlers,
	health *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(s.config.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	r.Use(mw.RequestID())
	r.Use(mw.Recovery())
	r.Use(mw.Logger())
	r.Use(mw.Security())
	r.Use(metrics.HTTPMiddleware())

	r.GET(s.config.Monitoring.HealthCheckPath, health.Handler())
	r.GET(s.config.Monitoring.ReadinessPath, health.ReadinessHandler())
	r.GET(LivenessPath, health.LivenessHandler())
	if s.config.Monitoring.EnableMetrics {
		r.GET(s.config.Monitoring.MetricsPath, gin.WrapH(metrics.Handler()))
	}

	api := r.Group(APIPrefix,
		mw.ErrorHandler(),
		mw.Tracing(),
		auth.Middleware(),
		mw.RateLimit(),
	)
	shopping.Register(api)

	r.NoRoute(func(c *gin.Context) {
		appErr := errors.NewNotFoundError("Route")
		c.JSON(appErr.StatusCode(), errors.ToErrorResponse(appErr, c.GetString(middleware.RequestIDKey)))
	})

	return r, nil
}

// Handler returns the router without the server-level instrumentation
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.config.App.Environment),
	)

	if err := s.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/ngenohkevin/hivedeck-monitor/config"
	"github.com/ngenohkevin/hivedeck-monitor/internal/cache"
	"github.com/ngenohkevin/hivedeck-monitor/internal/monitor"
)

const shutdownTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	router     *gin.Engine
	handlers   *Handlers
	hosts      *cache.HostCache
	auth       *AuthService
	limiter    *RateLimiter
	httpServer *http.Server
}

// New creates a server exposing mon. Host information is loaded through
// hosts; nil uses gopsutil.
func New(cfg *config.Config, mon *monitor.Monitor, hosts *cache.HostCache) *Server {
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if hosts == nil {
		hosts = cache.NewHostCache(nil)
	}

	auth := NewAuthService(cfg.APIKey, cfg.JWTSecret)
	s := &Server{
		cfg:      cfg,
		router:   gin.New(),
		handlers: NewHandlers(mon, hosts, auth),
		hosts:    hosts,
		auth:     auth,
		limiter:  NewRateLimiter(cfg.RateLimitRPS),
	}

	if !cfg.AuthEnabled() {
		log.Warn("API_KEY is not set, the API is unauthenticated")
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(RecoveryMiddleware())
	s.router.Use(LoggerMiddleware())
	s.router.Use(CORSMiddleware(s.cfg.AllowedOrigins))
	s.router.Use(RateLimitMiddleware(s.limiter))
}

func (s *Server) setupRoutes() {
	// Health check (no auth)
	s.router.GET("/health", s.handlers.HealthCheck)

	authed := AuthMiddleware(s.auth)

	// Prometheus scrape endpoint
	s.router.GET("/metrics", authed, s.handlers.ExportMetrics)

	api := s.router.Group("/api")
	api.Use(authed)
	{
		api.GET("/info", s.handlers.GetInfo)
		api.GET("/status", s.handlers.GetStatus)
		api.POST("/token", s.handlers.IssueToken)

		// Metrics
		api.GET("/metrics", s.handlers.GetMetrics)
		api.GET("/metrics/history", s.handlers.GetHistory)
		api.GET("/metrics/:channel", s.handlers.GetChannel)

		// Processes
		api.GET("/processes", s.handlers.ListProcesses)
		api.POST("/processes/refresh", s.handlers.RefreshProcesses)
		api.POST("/processes/:pid/terminate", s.handlers.TerminateProcess)

		// Real-time events (SSE)
		api.GET("/events", s.handlers.StreamEvents)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		// event streams end when ctx does instead of holding Shutdown open
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go s.hosts.Start()
	defer s.hosts.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting hivedeck-monitor on %s", s.cfg.Addr())
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Server forced to shutdown: %v", err)
	}
	log.Info("Server stopped")
	return nil
}

// Router returns the Gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

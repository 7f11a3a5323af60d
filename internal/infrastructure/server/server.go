package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/memsweep/memsweep/internal/api/http"
	"github.com/memsweep/memsweep/internal/api/middleware"
	"github.com/memsweep/memsweep/internal/api/ws"
	"github.com/memsweep/memsweep/internal/infrastructure/config"
	"github.com/memsweep/memsweep/internal/infrastructure/logging"
	"github.com/memsweep/memsweep/internal/infrastructure/monitoring"
	"github.com/memsweep/memsweep/internal/sysinfo"
	"github.com/memsweep/memsweep/internal/trim"
	"github.com/memsweep/memsweep/internal/winsys"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// New creates a server instance around the trim engine.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("initializing memsweep",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
	)

	metrics := monitoring.NewMetrics()

	sys, err := winsys.New()
	if err != nil {
		return nil, fmt.Errorf("system surface unavailable: %w", err)
	}

	engine := trim.NewEngine(sys, logger).WithMetrics(metrics)
	runner := trim.NewRunner(engine, logger)
	hub := ws.NewHub(logger)
	stats := sysinfo.NewProvider()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(monitoring.Middleware(metrics))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(runner, hub, stats, logger)
	wsHandler := ws.NewHandler(hub, runner, logger, metrics)

	router.POST("/trim", handlers.StartTrim)
	router.GET("/trim/status", handlers.TrimStatus)
	router.GET("/stats", handlers.Stats)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", wsHandler.HandleConnection)

	return &Server{
		router:  router,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Run starts serving and blocks until the listener fails or Close is
// called.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go s.updateUptime()

	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the server down gracefully.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.logger.Sync()
}

func (s *Server) updateUptime() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		s.metrics.UpdateUptime()
	}
}

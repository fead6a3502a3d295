// Package server implements the polishing service: a gin HTTP server exposing one
// streaming and two one-shot endpoints in front of a language model backend.
package server

import (
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/zoobzio/polish"
	"github.com/zoobzio/polish/providers"
)

// ServiceName is reported by the root route.
const ServiceName = "polish"

// Config holds the server dependencies.
type Config struct {
	Backend providers.Backend // Required
	Logger  *zap.Logger       // Optional, defaults to a no-op logger
	Metrics *Metrics          // Optional, defaults to a fresh registry
	// BackendTimeout bounds one backend call. Zero means no limit beyond the
	// client's own connection.
	BackendTimeout time.Duration
}

// Server is the polishing HTTP service.
type Server struct {
	engine         *gin.Engine
	backend        providers.Backend
	logger         *zap.Logger
	metrics        *Metrics
	backendTimeout time.Duration
}

// New builds the server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}

	s := &Server{
		engine:         gin.New(),
		backend:        cfg.Backend,
		logger:         cfg.Logger.Named("server"),
		metrics:        cfg.Metrics,
		backendTimeout: cfg.BackendTimeout,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.RedirectTrailingSlash = false

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Cache-Control", "Pragma", RequestIDHeader}
	corsCfg.ExposeHeaders = []string{RequestIDHeader}

	s.engine.Use(
		requestID(),
		accessLog(s.logger, s.metrics),
		recovery(s.logger),
		cors.New(corsCfg),
	)

	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.engine.POST(polish.PathText, s.handlePolishText)
	s.engine.POST(polish.PathResp, s.handlePolishTextResp)
	s.engine.POST(polish.PathStream, s.handlePolishTextStream)
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dynamic-sky/internal/astro"
	"dynamic-sky/internal/layers"
	"dynamic-sky/internal/reconciler"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// StateSource is the running loop as seen by the API.
type StateSource interface {
	Latest() *reconciler.Snapshot
	Directory() *layers.Directory
}

// AstroEntrySource exposes the cache entry behind the current astro data.
type AstroEntrySource interface {
	Entry() *astro.CacheEntry
}

type Server struct {
	router *gin.Engine
	server *http.Server
	state  StateSource
	astro  AstroEntrySource
	port   int
	logger zerolog.Logger
}

type ServerConfig struct {
	Port   int
	State  StateSource
	Astro  AstroEntrySource
	Logger zerolog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	logger := cfg.Logger.With().Str("component", "api").Logger()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	s := &Server{
		router: router,
		state:  cfg.State,
		astro:  cfg.Astro,
		port:   cfg.Port,
		logger: logger,
	}

	s.setupRoutes()
	return s
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)

	api := s.router.Group("/api/v1")
	{
		api.GET("/sky", s.skyHandler)
		api.GET("/astro", s.astroHandler)
		api.GET("/layers", s.layersHandler)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	s.logger.Info().Int("port", s.port).Msg("API server starting")
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) healthHandler(c *gin.Context) {
	snap := s.state.Latest()
	resp := gin.H{
		"status":    "healthy",
		"has_state": snap != nil,
		"timestamp": time.Now(),
	}
	if snap != nil {
		resp["iteration"] = snap.Iteration
		resp["phase"] = snap.State.Phase
		resp["dry_run"] = snap.DryRun
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) skyHandler(c *gin.Context) {
	snap := s.state.Latest()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "No sky state computed yet",
		})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) astroHandler(c *gin.Context) {
	snap := s.state.Latest()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "No astro data available yet",
		})
		return
	}

	resp := gin.H{"astro": snap.Astro}
	if s.astro != nil {
		if entry := s.astro.Entry(); entry != nil {
			resp["source"] = entry.Source
			resp["fallback"] = entry.Fallback
			resp["fetched_at"] = entry.FetchedAt(snap.Astro.Sunrise.Location())
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) layersHandler(c *gin.Context) {
	dir := s.state.Directory()
	if dir == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Layers not discovered yet"})
		return
	}
	c.JSON(http.StatusOK, dir)
}

// Package httpapi exposes the REST surface over the station store and the
// sync orchestrator.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fuelmap-es/gasolineras-api/config"
	"github.com/fuelmap-es/gasolineras-api/db"
	"github.com/fuelmap-es/gasolineras-api/station"
	syncpkg "github.com/fuelmap-es/gasolineras-api/sync"
)

// Store is the read-side storage surface the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	ListStations(ctx context.Context, q db.ListQuery) ([]station.Station, int64, error)
	CountStations(ctx context.Context) (int64, error)
	GetStation(ctx context.Context, ideess string) (station.Station, error)
	Nearby(ctx context.Context, q db.NearbyQuery) ([]db.NearbyStation, error)
	FuelPrices(ctx context.Context, provincia, municipio string) (map[string][]float64, int64, error)
	History(ctx context.Context, ideess string, days int) ([]station.Snapshot, error)
}

// Syncer triggers one synchronization cycle.
type Syncer interface {
	Synchronize(ctx context.Context) (syncpkg.Result, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg    config.Config
	store  Store
	syncer Syncer
	engine *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, store Store, syncer Syncer) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(corsMiddleware())

	server := &Server{cfg: cfg, store: store, syncer: syncer, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := s.engine.Group("/api/gasolineras")
	g.GET("", s.handleList)
	g.GET("/count", s.handleCount)
	g.GET("/estadisticas", s.handleStatistics)
	g.GET("/cerca", s.handleNearby)
	g.GET("/:ideess", s.handleGet)
	g.GET("/:ideess/cerca", s.handleNearbySelf)
	g.GET("/:ideess/historial", s.handleHistory)

	if s.cfg.BearerToken != "" {
		g.POST("/sync", bearerAuthMiddleware(s.cfg.BearerToken), s.handleSync)
	} else {
		g.POST("/sync", s.handleSync)
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "gasolineras-api",
		"version": "1.0.0",
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

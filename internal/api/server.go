package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/agentmarket/internal/api/auth"
	"github.com/agentmarket/internal/market"
	"github.com/agentmarket/internal/negotiation"
)

// Queue accepts automated session runs for background execution
type Queue interface {
	QueueAutomatedSession(ctx context.Context, sessionID string) (int64, error)
}

// Deps are the services the API exposes
type Deps struct {
	Engine  *negotiation.Engine
	Manager *market.Manager
	// Queue is nil when no database is configured; async runs are then rejected
	Queue Queue
	// JWTSecret enables bearer-token auth on /api/v1 when non-empty
	JWTSecret string
}

// Server represents the API server
type Server struct {
	echo *echo.Echo
	port int
	deps Deps
}

// NewServer creates a new API server
func NewServer(port int, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo: e,
		port: port,
		deps: deps,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	// API v1 group
	v1 := s.echo.Group("/api/v1")
	if s.deps.JWTSecret != "" {
		v1.Use(auth.RequireAuth([]byte(s.deps.JWTSecret)))
	}

	v1.POST("/negotiate", s.negotiate)

	sessions := v1.Group("/sessions")
	sessions.POST("", s.createSession)
	sessions.GET("", s.listSessions)
	sessions.GET("/:id", s.getSession)
	sessions.DELETE("/:id", s.deleteSession)
	sessions.POST("/:id/interests", s.addInterest)
	sessions.POST("/:id/negotiations", s.startNegotiation)
	sessions.POST("/:id/negotiations/:nid/turns", s.executeTurn)
	sessions.POST("/:id/negotiations/:nid/switch", s.switchSeller)
	sessions.POST("/:id/run", s.runSession)
}

// ServeHTTP lets the server be driven directly, e.g. by httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start begins the API server and blocks until interrupted
func (s *Server) Start() error {
	// Start server in a goroutine
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("shutting down the server")
		}
	}()
	log.Info().Int("port", s.port).Msg("API server listening")

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

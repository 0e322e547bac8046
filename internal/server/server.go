// Package server is the web frontend. It renders the pages, owns the
// session cookies and talks to the remote calendar API on the user's behalf.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/calendrier-dev/calendrier/internal/config"
	"github.com/calendrier-dev/calendrier/internal/navigation"
	"github.com/calendrier-dev/calendrier/internal/validation"
)

// Server represents the HTTP server
type Server struct {
	router     *gin.Engine
	config     *config.Config
	logger     zerolog.Logger
	validator  *validation.Validator
	httpClient *http.Client
	nav        *navigation.Tree
	version    string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	nav, err := navigation.Load()
	if err != nil {
		return nil, err
	}

	server := &Server{
		config:    cfg,
		logger:    zlog,
		validator: validation.New(),
		// shared by every request; per-request clients only wrap it
		httpClient: &http.Client{
			Timeout: cfg.API.Timeout,
		},
		nav:     nav,
		version: version,
	}

	if err := server.setupRouter(); err != nil {
		return nil, err
	}

	if cfg.Auth.DevMode {
		zlog.Warn().Msg("DEV_MODE is on: authentication is bypassed")
	}

	return server, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() error {
	if s.config.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	tmpl, err := loadTemplates()
	if err != nil {
		return err
	}
	s.router.SetHTMLTemplate(tmpl)

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	// Health check endpoint (no session)
	s.router.GET("/health", s.healthCheck)

	pages := s.router.Group("/")
	pages.Use(s.edgeGuard(), s.sessionMiddleware())
	{
		pages.GET("/", s.landingPage)

		pages.GET("/login", s.loginPage)
		pages.POST("/login", s.login)
		pages.GET("/register", s.registerPage)
		pages.POST("/register", s.register)
		pages.POST("/logout", s.logout)

		dashboard := s.Guard(s.dashboardPage, s.RequireAuth("/login"))
		pages.GET("/dashboard", dashboard)
		pages.GET("/dashboard/*section", dashboard)
		pages.POST("/dashboard/refresh", s.Guard(s.refreshProfile, s.RequireAuth("/login")))
		pages.POST("/dashboard/renew", s.Guard(s.renewToken, s.RequireAuth("/login")))
	}

	origins := s.config.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{s.config.Server.PublicURL}
	}

	api := s.router.Group("/api")
	api.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	api.Use(s.sessionMiddleware())
	{
		api.GET("/session", s.getSession)
		api.OPTIONS("/session", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}

	s.router.NoRoute(s.notFound)

	return nil
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "calendrier-web",
		"version":   s.version,
	})
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	port := ":" + s.config.Server.Port

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              port,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.config.API.Timeout + 30*time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("port", port).
			Str("api_url", s.config.API.BaseURL).
			Str("env", s.config.Server.Environment).
			Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.httpClient.CloseIdleConnections()
	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

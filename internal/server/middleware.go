package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/calendrier-dev/calendrier/internal/apiclient"
	"github.com/calendrier-dev/calendrier/internal/auth"
	"github.com/calendrier-dev/calendrier/internal/session"
	"github.com/calendrier-dev/calendrier/internal/storage"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	sessionKey      = "session"
)

// Edge routing rules applied before any page handler
var (
	protectedPrefixes = []string{"/dashboard"}
	authRoutes        = []string{"/login", "/register"}
)

// requestSession is everything a page handler needs to act on the user's
// session. It lives for one request.
type requestSession struct {
	store     *storage.CookieStore
	notifier  *flashNotifier
	navigator *redirectNavigator
	manager   *session.Manager
	logger    zerolog.Logger
}

// requestIDMiddleware tags every request with a ULID, keeping a valid one
// supplied by the caller
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := ulid.ParseStrict(id); err != nil {
			id = ulid.Make().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// edgeGuard redirects on cookie presence alone, before any session work.
// It is a no-op in dev mode.
func (s *Server) edgeGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.config.Auth.DevMode {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		cookie, err := c.Request.Cookie(storage.TokenKey)
		hasToken := err == nil && cookie.Value != ""

		if hasToken && isAuthRoute(path) {
			c.Redirect(http.StatusSeeOther, "/dashboard")
			c.Abort()
			return
		}
		if !hasToken && isProtected(path) {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		c.Next()
	}
}

func isAuthRoute(path string) bool {
	for _, route := range authRoutes {
		if path == route {
			return true
		}
	}
	return false
}

func isProtected(path string) bool {
	for _, prefix := range protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// sessionMiddleware builds the request's session manager on top of the
// session cookies
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(sessionKey, s.newRequestSession(c))
		c.Next()
	}
}

func (s *Server) newRequestSession(c *gin.Context) *requestSession {
	log := s.logger.With().Str("request_id", c.GetString(requestIDKey)).Logger()

	store := storage.NewCookieStore(c.Writer, c.Request, storage.CookieOptions{
		Secure: s.config.Server.IsProduction(),
	}, log)
	notifier := &flashNotifier{}
	navigator := &redirectNavigator{}

	client := apiclient.New(s.config.API.BaseURL, store, navigator, log)
	client.SetHTTPClient(s.httpClient)

	manager := session.New(session.Deps{
		Service:   auth.NewService(client, log),
		Store:     store,
		Notifier:  notifier,
		Navigator: navigator,
		DevMode:   s.config.Auth.DevMode,
		Logger:    log,
		Routes:    session.DefaultRoutes(),
	})

	return &requestSession{
		store:     store,
		notifier:  notifier,
		navigator: navigator,
		manager:   manager,
		logger:    log,
	}
}

// getRequestSession returns the session built by sessionMiddleware
func getRequestSession(c *gin.Context) *requestSession {
	v, ok := c.Get(sessionKey)
	if !ok {
		panic("server: session middleware not installed")
	}
	return v.(*requestSession)
}

// startSession resolves the manager, giving a stored session at most the
// guard wait to be confirmed. ok is false when it is still unresolved, in
// which case the validation has been cancelled and cookie writes sealed.
func (s *Server) startSession(c *gin.Context, rs *requestSession) (session.State, bool) {
	validateCtx, cancel := context.WithCancel(c.Request.Context())
	rs.manager.Start(validateCtx)

	waitCtx, waitCancel := context.WithTimeout(c.Request.Context(), s.config.Auth.GuardWait)
	defer waitCancel()
	_ = rs.manager.Wait(waitCtx)

	st := rs.manager.State()
	if !st.Resolved() {
		rs.store.Seal()
		cancel()
		return st, false
	}
	cancel()
	return st, true
}

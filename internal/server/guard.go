package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Guard withholds protected until the session is resolved. While it is not,
// the loading page is shown. Once resolved, protected runs for an
// authenticated session and fallback otherwise; a nil fallback renders an
// empty page. Guard itself never redirects, but a navigation requested by
// the session (a rejected stored token logs the user out) is honored.
func (s *Server) Guard(protected, fallback gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		rs := getRequestSession(c)

		st, resolved := s.startSession(c, rs)
		if !resolved {
			s.render(c, http.StatusOK, "loading", gin.H{
				"Title":   "Loading",
				"Refresh": true,
			})
			c.Abort()
			return
		}

		if target, ok := rs.navigator.Target(); ok && !st.IsAuthenticated() {
			s.redirect(c, rs, target)
			c.Abort()
			return
		}

		if st.IsAuthenticated() {
			protected(c)
			return
		}

		if fallback != nil {
			fallback(c)
			return
		}
		c.Status(http.StatusOK)
		c.Abort()
	}
}

// RequireAuth redirects to redirectTo when the session is resolved and not
// authenticated. It is meant as the fallback of Guard or to be used after
// the session has been started.
func (s *Server) RequireAuth(redirectTo string) gin.HandlerFunc {
	if redirectTo == "" {
		redirectTo = "/login"
	}
	return func(c *gin.Context) {
		rs := getRequestSession(c)
		st := rs.manager.State()

		if st.IsLoading || st.IsAuthenticated() {
			return
		}

		rs.logger.Debug().Str("path", c.Request.URL.Path).Msg("Unauthenticated, redirecting")
		s.redirect(c, rs, redirectTo)
		c.Abort()
	}
}

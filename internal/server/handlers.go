package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calendrier-dev/calendrier/internal/auth"
	"github.com/calendrier-dev/calendrier/internal/models"
	"github.com/calendrier-dev/calendrier/internal/storage"
	"github.com/calendrier-dev/calendrier/internal/validation"
)

// formErrorKey holds errors that belong to the whole form rather than a field
const formErrorKey = "form"

// msgFormUnreadable is shown when the request body cannot be bound at all
const msgFormUnreadable = "The form could not be read, please try again"

// SessionResponse is the body of GET /api/session
type SessionResponse struct {
	Status        string       `json:"status"`
	Authenticated bool         `json:"authenticated"`
	Confirmed     bool         `json:"confirmed"`
	DevMode       bool         `json:"devMode"`
	User          *models.User `json:"user"`
}

func (s *Server) landingPage(c *gin.Context) {
	cookie, err := c.Request.Cookie(storage.TokenKey)
	s.render(c, http.StatusOK, "landing", gin.H{
		"Title":    "Home",
		"SignedIn": s.config.Auth.DevMode || (err == nil && cookie.Value != ""),
	})
}

func (s *Server) loginPage(c *gin.Context) {
	s.render(c, http.StatusOK, "login", gin.H{
		"Title":  "Sign in",
		"Form":   models.LoginCredentials{},
		"Errors": validation.FieldErrors{},
	})
}

func (s *Server) login(c *gin.Context) {
	rs := getRequestSession(c)

	var form models.LoginCredentials
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to bind login form")
		s.renderLogin(c, http.StatusBadRequest, form, validation.FieldErrors{formErrorKey: msgFormUnreadable})
		return
	}

	if err := s.validator.Struct(form); err != nil {
		fe, _ := validation.AsFieldErrors(err)
		s.renderLogin(c, http.StatusUnprocessableEntity, form, fe)
		return
	}

	if err := rs.manager.Login(c.Request.Context(), form); err != nil {
		s.renderLogin(c, statusFor(err), form, nil)
		return
	}

	s.follow(c, rs, "/dashboard")
}

func (s *Server) renderLogin(c *gin.Context, status int, form models.LoginCredentials, fe validation.FieldErrors) {
	if fe == nil {
		fe = validation.FieldErrors{}
	}
	form.Password = ""
	s.render(c, status, "login", gin.H{
		"Title":  "Sign in",
		"Form":   form,
		"Errors": fe,
	})
}

func (s *Server) registerPage(c *gin.Context) {
	s.render(c, http.StatusOK, "register", gin.H{
		"Title":  "Create an account",
		"Form":   models.RegisterCredentials{},
		"Errors": validation.FieldErrors{},
	})
}

func (s *Server) register(c *gin.Context) {
	rs := getRequestSession(c)

	var form models.RegisterCredentials
	if err := c.ShouldBind(&form); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to bind register form")
		s.renderRegister(c, http.StatusBadRequest, form, validation.FieldErrors{formErrorKey: msgFormUnreadable})
		return
	}

	if err := s.validator.Struct(form); err != nil {
		fe, _ := validation.AsFieldErrors(err)
		s.renderRegister(c, http.StatusUnprocessableEntity, form, fe)
		return
	}

	if err := rs.manager.Register(c.Request.Context(), form); err != nil {
		s.renderRegister(c, statusFor(err), form, nil)
		return
	}

	s.follow(c, rs, "/login")
}

func (s *Server) renderRegister(c *gin.Context, status int, form models.RegisterCredentials, fe validation.FieldErrors) {
	if fe == nil {
		fe = validation.FieldErrors{}
	}
	form.Password = ""
	form.ConfirmPassword = ""
	s.render(c, status, "register", gin.H{
		"Title":  "Create an account",
		"Form":   form,
		"Errors": fe,
	})
}

func (s *Server) logout(c *gin.Context) {
	rs := getRequestSession(c)
	rs.manager.Logout()
	s.follow(c, rs, "/login")
}

func (s *Server) dashboardPage(c *gin.Context) {
	rs := getRequestSession(c)
	st := rs.manager.State()

	path := c.Request.URL.Path
	if path == "/dashboard/" {
		path = "/dashboard"
	}

	item, ok := s.nav.Find(path)
	if !ok {
		s.notFound(c)
		return
	}

	s.render(c, http.StatusOK, "dashboard", gin.H{
		"Title":   item.Title,
		"Section": item.Title,
		"Nav":     s.nav.Active(path),
		"User":    st.User,
		"Pending": !st.IsConfirmed() && !st.DevMode,
	})
}

func (s *Server) refreshProfile(c *gin.Context) {
	rs := getRequestSession(c)
	rs.manager.RefreshUser(c.Request.Context())
	s.follow(c, rs, "/dashboard")
}

func (s *Server) renewToken(c *gin.Context) {
	rs := getRequestSession(c)
	rs.manager.RenewToken(c.Request.Context())
	s.follow(c, rs, "/dashboard")
}

// getSession reports the session state as JSON
func (s *Server) getSession(c *gin.Context) {
	rs := getRequestSession(c)
	st, _ := s.startSession(c, rs)

	c.JSON(http.StatusOK, SessionResponse{
		Status:        st.Status.String(),
		Authenticated: st.IsAuthenticated(),
		Confirmed:     st.IsConfirmed(),
		DevMode:       st.DevMode,
		User:          st.User,
	})
}

func (s *Server) notFound(c *gin.Context) {
	s.render(c, http.StatusNotFound, "notfound", gin.H{"Title": "Not found"})
}

// follow redirects to where the session navigated, or to fallback
func (s *Server) follow(c *gin.Context, rs *requestSession, fallback string) {
	target, ok := rs.navigator.Target()
	if !ok {
		target = fallback
	}
	s.redirect(c, rs, target)
}

// statusFor maps an auth failure to the status of the re-rendered form
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNetwork):
		return http.StatusBadGateway
	default:
		var authErr *auth.Error
		if errors.As(err, &authErr) && authErr.Status >= 400 && authErr.Status < 500 {
			return authErr.Status
		}
		return http.StatusBadGateway
	}
}

// Package session holds the authentication state of one browser session or
// CLI process and drives every transition of it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/calendrier-dev/calendrier/internal/auth"
	"github.com/calendrier-dev/calendrier/internal/models"
	"github.com/calendrier-dev/calendrier/internal/storage"
)

// Notification texts
const (
	MsgLoggedIn   = "Signed in successfully"
	MsgRegistered = "Account created, you can now sign in"
	MsgLoggedOut  = "Signed out"
)

// DevUser and DevToken replace the real session when dev mode is on
var (
	DevUser  = models.User{ID: 1, Username: "Developer", Email: "dev@calendrier.com"}
	DevToken = "dev-token"
)

// Service is the remote auth API
type Service interface {
	Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error)
	Register(ctx context.Context, creds models.RegisterCredentials) error
	GetCurrentUser(ctx context.Context) (*models.User, error)
	RefreshToken(ctx context.Context) (*models.AuthResponse, error)
}

// Notifier shows transient success and failure messages
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Navigator moves the user to another route
type Navigator interface {
	Navigate(path string)
}

// Routes are the navigation targets used by the manager
type Routes struct {
	Dashboard string
	Login     string
}

// DefaultRoutes returns the application routes
func DefaultRoutes() Routes {
	return Routes{Dashboard: "/dashboard", Login: "/login"}
}

// Deps are the collaborators of a Manager
type Deps struct {
	Service   Service
	Store     storage.Store
	Notifier  Notifier
	Navigator Navigator
	DevMode   bool
	Logger    zerolog.Logger
	Routes    Routes
}

// Manager owns the in-memory session and its persisted copy. Operations are
// not serialized; concurrent callers race and the last write wins.
type Manager struct {
	deps Deps
	now  func() time.Time

	mu      sync.RWMutex
	status  Status
	user    *models.User
	token   string
	loading bool

	startOnce sync.Once
	done      chan struct{}
}

// New creates a manager in the loading state. Call Start to resolve it.
func New(deps Deps) *Manager {
	if deps.Routes.Dashboard == "" || deps.Routes.Login == "" {
		deps.Routes = DefaultRoutes()
	}
	return &Manager{
		deps:    deps,
		now:     time.Now,
		status:  StatusLoading,
		loading: true,
		done:    make(chan struct{}),
	}
}

// State returns a snapshot of the session
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var user *models.User
	if m.user != nil {
		u := *m.user
		user = &u
	}
	return State{
		Status:    m.status,
		User:      user,
		Token:     m.token,
		IsLoading: m.loading,
		DevMode:   m.deps.DevMode,
	}
}

// Done is closed once startup has finished, successfully or not
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until startup has finished or ctx is done
func (m *Manager) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start resolves the initial state. A stored session is checked with the API
// in the background; ctx bounds that check. Only the first call has effect.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.start(ctx)
	})
}

func (m *Manager) start(ctx context.Context) {
	if m.deps.DevMode {
		m.devSession()
		m.deps.Logger.Debug().Msg("Dev mode session")
		close(m.done)
		return
	}

	token, hasToken := m.deps.Store.GetToken()
	user, hasUser := m.deps.Store.GetUser()
	if !hasToken || !hasUser {
		// a half-written session is dropped so the edge rules see no token either
		if hasToken || hasUser {
			m.deps.Logger.Debug().Bool("token", hasToken).Bool("user", hasUser).Msg("Clearing partial session")
			m.deps.Store.RemoveToken()
		}
		m.set(func() {
			m.status = StatusUnauthenticated
			m.loading = false
		})
		close(m.done)
		return
	}

	m.set(func() {
		m.user = user
		m.token = token
		m.status = StatusPending
		m.loading = false
	})

	if auth.Expired(token, m.now()) {
		m.deps.Logger.Info().Int64("user_id", user.ID).Msg("Stored token expired")
		m.Logout()
		close(m.done)
		return
	}

	go func() {
		defer close(m.done)
		m.validate(ctx, token)
	}()
}

// validate checks the stored token with the API
func (m *Manager) validate(ctx context.Context, token string) {
	if _, err := m.deps.Service.GetCurrentUser(ctx); err != nil {
		if ctx.Err() != nil && !errors.Is(err, auth.ErrUnauthorized) {
			m.deps.Logger.Debug().Err(err).Msg("Session validation cancelled")
			return
		}
		m.deps.Logger.Info().Err(err).Msg("Stored session rejected")
		m.Logout()
		return
	}

	m.set(func() {
		// a concurrent login or logout wins over the startup check
		if m.status == StatusPending && m.token == token {
			m.status = StatusAuthenticated
		}
	})
}

// Login authenticates with the API and persists the session
func (m *Manager) Login(ctx context.Context, creds models.LoginCredentials) error {
	if m.deps.DevMode {
		m.devSession()
		m.deps.Notifier.Success(MsgLoggedIn)
		m.deps.Navigator.Navigate(m.deps.Routes.Dashboard)
		return nil
	}

	m.setLoading(true)
	defer m.setLoading(false)

	resp, err := m.deps.Service.Login(ctx, creds)
	if err != nil {
		m.deps.Notifier.Error(auth.Message(err, auth.MsgLoginFailed))
		return err
	}

	m.deps.Store.SetToken(resp.Token)
	m.deps.Store.SetUser(resp.User)

	user := resp.User
	m.set(func() {
		m.user = &user
		m.token = resp.Token
		m.status = StatusAuthenticated
	})

	m.deps.Logger.Info().Int64("user_id", user.ID).Msg("User logged in")
	m.deps.Notifier.Success(MsgLoggedIn)
	m.deps.Navigator.Navigate(m.deps.Routes.Dashboard)
	return nil
}

// Register creates an account. It does not sign the user in.
func (m *Manager) Register(ctx context.Context, creds models.RegisterCredentials) error {
	m.setLoading(true)
	defer m.setLoading(false)

	if err := m.deps.Service.Register(ctx, creds); err != nil {
		m.deps.Notifier.Error(auth.Message(err, auth.MsgRegisterFailed))
		return err
	}

	m.deps.Logger.Info().Str("email", creds.Email).Msg("User registered")
	m.deps.Notifier.Success(MsgRegistered)
	m.deps.Navigator.Navigate(m.deps.Routes.Login)
	return nil
}

// Logout clears the session locally. It never calls the API.
func (m *Manager) Logout() {
	m.deps.Store.RemoveToken()
	m.set(func() {
		m.user = nil
		m.token = ""
		m.status = StatusUnauthenticated
	})

	m.deps.Notifier.Success(MsgLoggedOut)
	m.deps.Navigator.Navigate(m.deps.Routes.Login)
}

// RefreshUser reloads the profile. Any failure ends the session.
func (m *Manager) RefreshUser(ctx context.Context) {
	if m.deps.DevMode {
		m.devSession()
		return
	}

	user, err := m.deps.Service.GetCurrentUser(ctx)
	if err != nil {
		m.deps.Logger.Warn().Err(err).Msg("Failed to refresh profile")
		m.Logout()
		return
	}

	m.deps.Store.SetUser(*user)
	m.set(func() {
		m.user = user
		if m.token != "" {
			m.status = StatusAuthenticated
		}
	})
}

// RenewToken swaps the current token for a fresh one. Any failure ends the
// session.
func (m *Manager) RenewToken(ctx context.Context) {
	if m.deps.DevMode {
		m.devSession()
		return
	}

	resp, err := m.deps.Service.RefreshToken(ctx)
	if err != nil {
		m.deps.Logger.Warn().Err(err).Msg("Failed to renew token")
		m.Logout()
		return
	}

	m.deps.Store.SetToken(resp.Token)
	m.deps.Store.SetUser(resp.User)

	user := resp.User
	m.set(func() {
		m.user = &user
		m.token = resp.Token
		m.status = StatusAuthenticated
	})
}

// devSession installs the fake dev user without touching storage or the API
func (m *Manager) devSession() {
	user := DevUser
	m.set(func() {
		m.user = &user
		m.token = DevToken
		m.status = StatusAuthenticated
		m.loading = false
	})
}

func (m *Manager) setLoading(v bool) {
	m.set(func() { m.loading = v })
}

func (m *Manager) set(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

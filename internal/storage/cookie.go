package storage

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/calendrier-dev/calendrier/internal/models"
)

// CookieOptions defines how session cookies are issued. They are always
// HttpOnly.
type CookieOptions struct {
	Path     string
	Secure   bool
	SameSite http.SameSite
	TTL      time.Duration
}

// normalize applies the session defaults
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteStrictMode
	}
	if o.TTL <= 0 {
		o.TTL = TTL
	}
	return o
}

// CookieStore keeps the session in two browser cookies. It is bound to a
// single request/response pair. Writes made during the request are visible
// to later reads of the same request. Once sealed, writes are dropped since
// the response headers are gone.
type CookieStore struct {
	mu      sync.Mutex
	sealed  bool
	w       http.ResponseWriter
	r       *http.Request
	opts    CookieOptions
	logger  zerolog.Logger
	pending map[string]*string
	now     func() time.Time
}

// NewCookieStore binds a store to the request. Secure should be true outside
// local development.
func NewCookieStore(w http.ResponseWriter, r *http.Request, opts CookieOptions, logger zerolog.Logger) *CookieStore {
	return &CookieStore{
		w:       w,
		r:       r,
		opts:    opts.normalize(),
		logger:  logger,
		pending: make(map[string]*string),
		now:     time.Now,
	}
}

func (s *CookieStore) SetToken(token string) {
	s.set(TokenKey, token)
}

func (s *CookieStore) GetToken() (string, bool) {
	return s.get(TokenKey)
}

func (s *CookieStore) SetUser(user models.User) {
	data, err := json.Marshal(user)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode user cookie")
		return
	}
	s.set(UserKey, base64.RawURLEncoding.EncodeToString(data))
}

func (s *CookieStore) GetUser() (*models.User, bool) {
	raw, ok := s.get(UserKey)
	if !ok {
		return nil, false
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Ignoring malformed user cookie")
		return nil, false
	}
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		s.logger.Debug().Err(err).Msg("Ignoring malformed user cookie")
		return nil, false
	}
	return &user, true
}

func (s *CookieStore) RemoveToken() {
	s.clear(TokenKey)
	s.clear(UserKey)
}

// Seal stops further cookie writes. Call it before the response is written
// while other goroutines may still hold the store.
func (s *CookieStore) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

func (s *CookieStore) set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		s.logger.Debug().Str("cookie", name).Msg("Dropping cookie write after response")
		return
	}
	s.pending[name] = &value
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.opts.Path,
		Expires:  s.now().Add(s.opts.TTL),
		MaxAge:   int(s.opts.TTL.Seconds()),
		Secure:   s.opts.Secure,
		HttpOnly: true,
		SameSite: s.opts.SameSite,
	})
}

func (s *CookieStore) clear(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		s.logger.Debug().Str("cookie", name).Msg("Dropping cookie write after response")
		return
	}
	s.pending[name] = nil
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     s.opts.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   s.opts.Secure,
		HttpOnly: true,
		SameSite: s.opts.SameSite,
	})
}

func (s *CookieStore) get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, written := s.pending[name]; written {
		if v == nil || *v == "" {
			return "", false
		}
		return *v, true
	}
	if s.r == nil {
		return "", false
	}
	c, err := s.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

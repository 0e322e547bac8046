package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

const (
	flashCookie = "flash"
	flashMaxAge = 60
)

// Flash is a one-shot banner shown on the next rendered page
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// flashNotifier collects notifications raised while handling a request.
// They are rendered in place, or carried to the next page in a cookie when
// the handler redirects.
type flashNotifier struct {
	mu       sync.Mutex
	messages []Flash
}

func (f *flashNotifier) Success(msg string) {
	f.add(Flash{Kind: "success", Message: msg})
}

func (f *flashNotifier) Error(msg string) {
	f.add(Flash{Kind: "error", Message: msg})
}

func (f *flashNotifier) add(fl Flash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, fl)
}

// drain returns and forgets the collected messages
func (f *flashNotifier) drain() []Flash {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.messages
	f.messages = nil
	return out
}

// redirectNavigator records where the session wants to go. The handler turns
// the last target into a redirect.
type redirectNavigator struct {
	mu     sync.Mutex
	target string
}

func (n *redirectNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = path
}

// Target returns the last navigation target, if any
func (n *redirectNavigator) Target() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target, n.target != ""
}

// writeFlashes stores messages for the next request
func (s *Server) writeFlashes(c *gin.Context, messages []Flash) {
	if len(messages) == 0 {
		return
	}
	data, err := json.Marshal(messages)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode flash messages")
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		Secure:   s.config.Server.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

// readFlashes consumes the messages left by the previous request
func (s *Server) readFlashes(c *gin.Context) []Flash {
	cookie, err := c.Request.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:   flashCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var messages []Flash
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil
	}
	return messages
}

package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// render writes a page, adding the flash messages and the session view
func (s *Server) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	flashes := s.readFlashes(c)
	if v, ok := c.Get(sessionKey); ok {
		rs := v.(*requestSession)
		flashes = append(flashes, rs.notifier.drain()...)

		st := rs.manager.State()
		if _, set := data["User"]; !set && st.User != nil {
			data["User"] = st.User
		}
	}

	data["Flashes"] = flashes
	data["DevMode"] = s.config.Auth.DevMode
	data["Version"] = s.version
	if _, ok := data["Title"]; !ok {
		data["Title"] = s.nav.Title
	}
	data["AppTitle"] = s.nav.Title

	c.HTML(status, name, data)
}

// redirect sends the browser to target with a 303, carrying pending
// notifications over in the flash cookie
func (s *Server) redirect(c *gin.Context, rs *requestSession, target string) {
	if rs != nil {
		s.writeFlashes(c, rs.notifier.drain())
	}
	c.Redirect(http.StatusSeeOther, target)
}

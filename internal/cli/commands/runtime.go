package commands

import (
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/calendrier-dev/calendrier/internal/apiclient"
	"github.com/calendrier-dev/calendrier/internal/auth"
	"github.com/calendrier-dev/calendrier/internal/session"
	"github.com/calendrier-dev/calendrier/internal/storage"
)

// Runtime is what every command needs. The root command fills it in once
// flags and configuration are known.
type Runtime struct {
	Out         io.Writer
	Store       storage.Store
	APIURL      string
	PublicURL   string
	DevMode     bool
	HTTPClient  *http.Client
	Logger      zerolog.Logger
	Prompter    Prompter
	OpenBrowser func(url string) error
}

// printNotifier writes notifications to the command output
type printNotifier struct {
	out io.Writer
}

func (p printNotifier) Success(msg string) {
	fmt.Fprintf(p.out, "✓ %s\n", msg)
}

func (p printNotifier) Error(msg string) {
	fmt.Fprintf(p.out, "✗ %s\n", msg)
}

// logNavigator has nowhere to go in a terminal, it only logs the target
type logNavigator struct {
	logger zerolog.Logger
}

func (n *logNavigator) Navigate(path string) {
	n.logger.Debug().Str("route", path).Msg("Navigate")
}

// newManager builds a session manager over the runtime's store
func (rt *Runtime) newManager() *session.Manager {
	nav := &logNavigator{logger: rt.Logger}

	client := apiclient.New(rt.APIURL, rt.Store, nav, rt.Logger)
	if rt.HTTPClient != nil {
		client.SetHTTPClient(rt.HTTPClient)
	}

	return session.New(session.Deps{
		Service:   auth.NewService(client, rt.Logger),
		Store:     rt.Store,
		Notifier:  printNotifier{out: rt.Out},
		Navigator: nav,
		DevMode:   rt.DevMode,
		Logger:    rt.Logger,
		Routes:    session.DefaultRoutes(),
	})
}

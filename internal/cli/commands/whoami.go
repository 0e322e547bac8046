package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calendrier-dev/calendrier/internal/session"
)

// ErrNotSignedIn is returned when a command needs a session and has none
var ErrNotSignedIn = errors.New("not signed in, run 'calendrier login' first")

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := rt.newManager()
			st, err := confirmSession(cmd, rt, manager)
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.Out, "%s (%s)\n", st.User.Username, st.User.Email)
			if st.DevMode {
				fmt.Fprintln(rt.Out, "  dev mode, authentication is bypassed")
			}
			return nil
		},
	}
}

// confirmSession resolves the stored session against the API and fails
// unless it is confirmed
func confirmSession(cmd *cobra.Command, rt *Runtime, manager *session.Manager) (session.State, error) {
	manager.Start(cmd.Context())
	if err := manager.Wait(cmd.Context()); err != nil {
		return session.State{}, err
	}

	st := manager.State()
	if !st.IsAuthenticated() || st.User == nil {
		return st, ErrNotSignedIn
	}
	if !st.IsConfirmed() {
		return st, fmt.Errorf("could not confirm the session with %s", rt.APIURL)
	}
	return st, nil
}

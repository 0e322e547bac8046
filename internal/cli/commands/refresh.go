package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRefreshCmd creates the refresh command
func NewRefreshCmd(rt *Runtime) *cobra.Command {
	var renew bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Reload the profile, or renew the token with --token",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := rt.newManager()
			if _, err := confirmSession(cmd, rt, manager); err != nil {
				return err
			}

			if renew {
				manager.RenewToken(cmd.Context())
			} else {
				manager.RefreshUser(cmd.Context())
			}

			st := manager.State()
			if !st.IsAuthenticated() {
				return ErrNotSignedIn
			}
			if renew {
				fmt.Fprintln(rt.Out, "Token renewed")
			}
			fmt.Fprintf(rt.Out, "%s (%s)\n", st.User.Username, st.User.Email)
			return nil
		},
	}

	cmd.Flags().BoolVar(&renew, "token", false, "Exchange the current token for a fresh one")

	return cmd
}

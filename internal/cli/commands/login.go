package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calendrier-dev/calendrier/internal/models"
	"github.com/calendrier-dev/calendrier/internal/validation"
)

const (
	envEmail    = "CALENDRIER_EMAIL"
	envPassword = "CALENDRIER_PASSWORD"
)

// NewLoginCmd creates the login command
func NewLoginCmd(rt *Runtime) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the calendar API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, rt, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set "+envEmail+")")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set "+envPassword+", will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, rt *Runtime, email, password string) error {
	email, err := resolveValue(email, envEmail, rt.Prompter, "Email", false)
	if err != nil {
		return err
	}
	password, err = resolveValue(password, envPassword, rt.Prompter, "Password", true)
	if err != nil {
		return err
	}

	creds := models.LoginCredentials{Email: email, Password: password}
	if err := validation.New().Struct(creds); err != nil {
		return err
	}

	manager := rt.newManager()
	fmt.Fprintf(rt.Out, "Signing in to %s...\n", rt.APIURL)

	if err := manager.Login(cmd.Context(), creds); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if user := manager.State().User; user != nil {
		fmt.Fprintf(rt.Out, "  User: %s (%s)\n", user.Username, user.Email)
	}
	return nil
}

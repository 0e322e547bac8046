package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calendrier-dev/calendrier/internal/models"
	"github.com/calendrier-dev/calendrier/internal/validation"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(rt *Runtime) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, rt, username, email, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set "+envEmail+")")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set "+envPassword+", will prompt if not provided)")

	return cmd
}

func runRegister(cmd *cobra.Command, rt *Runtime, username, email, password string) error {
	username, err := resolveValue(username, "", rt.Prompter, "Username", false)
	if err != nil {
		return err
	}
	email, err = resolveValue(email, envEmail, rt.Prompter, "Email", false)
	if err != nil {
		return err
	}

	// a prompted password is typed twice; a scripted one is taken as is
	confirm := password
	if password == "" {
		password, err = resolveValue("", envPassword, rt.Prompter, "Password", true)
		if err != nil {
			return err
		}
		confirm = password
		if rt.Prompter != nil {
			confirm, err = rt.Prompter.Password("Confirm password")
			if err != nil {
				return fmt.Errorf("failed to read password confirmation: %w", err)
			}
		}
	}

	creds := models.RegisterCredentials{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	}
	if err := validation.New().Struct(creds); err != nil {
		return err
	}

	manager := rt.newManager()
	if err := manager.Register(cmd.Context(), creds); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Fprintln(rt.Out, "Run 'calendrier login' to sign in.")
	return nil
}

package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calendrier-dev/calendrier/internal/cli/commands"
	"github.com/calendrier-dev/calendrier/internal/config"
	"github.com/calendrier-dev/calendrier/internal/logger"
	"github.com/calendrier-dev/calendrier/internal/storage"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around rt. Fields already set on rt
// (store, prompter, browser opener) are kept; the rest come from flags and
// the environment.
func NewRootCmd(rt *commands.Runtime) *cobra.Command {
	var (
		apiURL    string
		noKeyring bool
	)

	rootCmd := &cobra.Command{
		Use:   "calendrier",
		Short: "Calendrier - Collaborative calendar",
		Long: `Calendrier CLI - Sign in to the calendar API from your terminal.

The session is kept in the OS keyring, one entry per API host, and shares
its lifetime rules with the web frontend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return configure(rt, apiURL, noKeyring)
		},
	}

	rootCmd.SetOut(rt.Out)
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Calendar API URL (defaults to API_URL)")
	rootCmd.PersistentFlags().BoolVar(&noKeyring, "no-keyring", false, "Keep the session in memory for this run only")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(rt.Out, "calendrier version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(rt))
	rootCmd.AddCommand(commands.NewRegisterCmd(rt))
	rootCmd.AddCommand(commands.NewLogoutCmd(rt))
	rootCmd.AddCommand(commands.NewWhoamiCmd(rt))
	rootCmd.AddCommand(commands.NewRefreshCmd(rt))
	rootCmd.AddCommand(commands.NewDashCmd(rt))

	return rootCmd
}

// configure completes rt from configuration and flags
func configure(rt *commands.Runtime, apiURL string, noKeyring bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	rt.Logger = logger.InitTo(os.Stderr, cfg.Logging.Level, "console")

	if apiURL == "" {
		apiURL = cfg.API.BaseURL
	}
	rt.APIURL = apiURL
	rt.PublicURL = cfg.Server.PublicURL
	rt.DevMode = cfg.Auth.DevMode

	if rt.HTTPClient == nil {
		rt.HTTPClient = &http.Client{Timeout: cfg.API.Timeout}
	}
	if rt.Store == nil {
		if noKeyring {
			rt.Store = storage.NewMemoryStore()
		} else {
			rt.Store = storage.NewKeyringStore(storage.OSKeyring, apiURL, rt.Logger)
		}
	}
	if rt.Prompter == nil {
		rt.Prompter = commands.NewPrompter()
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd(&commands.Runtime{Out: os.Stdout})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

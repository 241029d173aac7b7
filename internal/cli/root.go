package cli

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/truenumber/truenumber-cli/internal/admin"
	"github.com/truenumber/truenumber-cli/internal/apiclient"
	"github.com/truenumber/truenumber-cli/internal/game"
	"github.com/truenumber/truenumber-cli/internal/guard"
	"github.com/truenumber/truenumber-cli/internal/history"
	"github.com/truenumber/truenumber-cli/internal/session"
)

// App wires the components for one command invocation. Controllers receive
// the session store by reference; there is no ambient credential anywhere.
type App struct {
	Client  *apiclient.Client
	Session *session.Store
	History *history.Cache
	Game    *game.Controller
	Admin   *admin.Controller
}

var (
	cfg *Config
	app *App
	out *Output
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	loaded, err := LoadConfig()
	if err != nil {
		loaded = &Config{Output: "text", TokenFile: session.DefaultTokenPath(), ServerURL: "http://localhost:3001"}
	}
	cfg = loaded

	rootCmd := &cobra.Command{
		Use:   "truenumber",
		Short: "CLI client for the TrueNumber game API",
		Long: `truenumber is a terminal client for the TrueNumber points game.

Players log in, generate numbers and follow their balance and history.
Administrators additionally manage the user directory and browse the
global game history.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}))

			client := apiclient.New(cfg.ServerURL)
			tokens := session.NewTokenFile(cfg.TokenFile)
			sess := session.NewStore(client, tokens, logger)
			hist := history.New()

			app = &App{
				Client:  client,
				Session: sess,
				History: hist,
				Game:    game.NewController(client, sess, hist, logger),
				Admin:   admin.NewController(client, sess, hist, logger),
			}
			out = NewOutput(cfg.Output)

			// Re-establish the session before the command runs, mirroring a
			// page reload. Failure is silent here; gated commands surface it
			// through the guard.
			ctx := cmd.Context()
			if cfg.Token != "" {
				app.Session.RestoreToken(ctx, cfg.Token)
			} else {
				app.Session.Restore(ctx)
			}
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: TRUENUMBER_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Bearer token (env: TRUENUMBER_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Token file path (env: TRUENUMBER_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newMeCmd())
	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newUserCmd())

	return rootCmd
}

// requireCapability runs the access guard against the current session, the
// same decision a router would make before rendering a gated view.
func requireCapability(capability guard.Capability) error {
	switch guard.Decide(app.Session.Snapshot(), capability) {
	case guard.DecisionRender:
		return nil
	case guard.DecisionRedirectLogin:
		return errors.New("not logged in; run 'truenumber login' first")
	case guard.DecisionRedirectHome:
		return errors.New("admin privileges required")
	default:
		return errors.New("session is still restoring, try again")
	}
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

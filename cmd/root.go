// Package cmd (root.go) defines the root command for the eduapi CLI.
// It sets up global flags and registers subcommands.
package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/eduapi-client/internal/app"
	"github.com/tonimelisma/eduapi-client/internal/ui"
)

// errReported marks an error that has already been shown to the user.
var errReported = errors.New("error already reported")

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "eduapi",
	Short: "A CLI client for the education platform API",
	Long: `eduapi is a command-line client for the education platform's REST API.

Every request carries the stored bearer credential. When the server rejects
it, the client refreshes the credential once, replays the waiting requests
and asks you to sign in again only if the refresh itself fails.

Current capabilities include:
  - Authentication management (login, logout, status)
  - Single API calls with pretty-printed JSON output
  - Concurrent batch fetches sharing one credential refresh`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			ui.PrintError(err)
		}
		os.Exit(1)
	}
}

// newApp builds the App for cmd. Tests replace it.
var newApp = app.NewApp

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging for the request pipeline")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is <user config dir>/eduapi/config.toml)")
}

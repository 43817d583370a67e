// Package cmd (auth.go) defines the Cobra commands related to
// authentication: 'auth login', 'auth logout' and 'auth status'.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/eduapi-client/internal/app"
	"github.com/tonimelisma/eduapi-client/internal/ui"
)

// authCmd represents the base 'auth' command.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication with the platform API",
	Long:  `Provides subcommands to sign in, clear the stored credential (logout), and check authentication status.`,
}

// authLoginCmd signs in with email and password, or imports an existing
// credential with --token.
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the access credential",
	Long: `Signs in with --email and --password and stores the returned access
credential. Use --token instead to store a credential obtained elsewhere.

If a credential is already stored, run 'eduapi auth logout' first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		return authLoginLogic(a, cmd)
	},
}

func authLoginLogic(a *app.App, cmd *cobra.Command) error {
	current, err := a.Credential()
	if err != nil {
		return fmt.Errorf("reading stored credential: %w", err)
	}
	if current != "" {
		fmt.Println("You are already logged in. To switch accounts, please run 'eduapi auth logout' first.")
		return nil
	}

	token, _ := cmd.Flags().GetString("token")
	if token != "" {
		if err := a.ImportToken(token); err != nil {
			return err
		}
		ui.Success("Credential saved.")
		return nil
	}

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if err := a.Login(cmd.Context(), email, password); err != nil {
		return err
	}
	ui.Success("Login successful!")
	return nil
}

// authLogoutCmd clears the stored credential.
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored credential and log out",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		return authLogoutLogic(a)
	},
}

func authLogoutLogic(a *app.App) error {
	if err := a.Logout(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	ui.Success("You have been logged out.")
	return nil
}

// authStatusCmd shows whether a credential is stored and, for JWT
// credentials, who it belongs to and when it expires.
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display the current authentication status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		return authStatusLogic(a)
	},
}

func authStatusLogic(a *app.App) error {
	info, err := a.Inspect()
	if err != nil {
		return fmt.Errorf("checking authentication status: %w", err)
	}
	if !info.Present {
		fmt.Println("You are not logged in. Please run 'eduapi auth login'.")
		return nil
	}

	fmt.Println("You are logged in.")
	if !info.JWT {
		fmt.Println("Credential:  opaque (no readable claims)")
		return nil
	}
	if info.Subject != "" {
		fmt.Printf("Subject:     %s\n", info.Subject)
	}
	if info.Email != "" {
		fmt.Printf("Email:       %s\n", info.Email)
	}
	if info.Issuer != "" {
		fmt.Printf("Issuer:      %s\n", info.Issuer)
	}
	if !info.ExpiresAt.IsZero() {
		fmt.Printf("Expires:     %s\n", info.ExpiresAt.Local().Format(time.RFC1123))
	}
	if !info.Valid {
		fmt.Println("The credential has expired; it will be refreshed on the next request.")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)

	authLoginCmd.Flags().String("email", "", "Account email address")
	authLoginCmd.Flags().String("password", "", "Account password")
	authLoginCmd.Flags().String("token", "", "Store an existing access credential instead of signing in")
	authLoginCmd.MarkFlagsMutuallyExclusive("token", "email")
	authLoginCmd.MarkFlagsMutuallyExclusive("token", "password")
}

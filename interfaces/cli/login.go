package cli

import (
	"errors"
	"fmt"
	"os"

	"thoughtgraph/infrastructure/identity"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// EnvPassword lets scripts pass the password without a flag
const EnvPassword = "THOUGHTGRAPH_PASSWORD"

var errNotSupabase = errors.New("login is only needed with the supabase auth provider")

func newLoginCommand(app *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}
			source, ok := client.Credentials.(*identity.SupabaseSource)
			if !ok {
				return errNotSupabase
			}
			if password == "" {
				password = os.Getenv(EnvPassword)
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or %s) are required", EnvPassword)
			}

			if err := source.SignIn(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Signed in as %s", email))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.clearSession(); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintln("Signed out"))
			return nil
		},
	}
}

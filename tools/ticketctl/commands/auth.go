package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/ticketportal/portal"
)

func (c *cli) loginCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in",
		Long: `Sign in with username and password. Without --password the password
is read from the first line of stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("cannot read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			app, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.SignIn(cmd.Context(), portal.SignInForm{Username: args[0], Password: password}); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "signed in as %s (%s)\n", app.User().Username, app.User().Role.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "the password")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.SignOut(cmd.Context()); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "signed out\n")
			return nil
		},
	}
}

func (c *cli) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			user := app.User()
			if user == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s), session expires %s\n",
				user.Username, user.Role.Label(), user.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

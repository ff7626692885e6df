// Package commands holds the cobra commands of ticketctl
package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/ticketportal/core/client"
	"github.com/relabs-tech/ticketportal/portal"
	"github.com/relabs-tech/ticketportal/portal/session"
)

// Config is what all commands share
type Config struct {
	// Client talks to the ticketportal service
	Client client.Client
	// Tokens persists the session between invocations
	Tokens session.TokenStore
	// KafkaBrokers is the default for events --brokers
	KafkaBrokers string
	// KafkaTopic is the default for events --topic
	KafkaTopic string
}

type cli struct {
	config Config
}

// NewRootCommand returns the ticketctl command with all sub commands
func NewRootCommand(config Config) *cobra.Command {
	c := &cli{config: config}
	root := &cobra.Command{
		Use:   "ticketctl",
		Short: "ticketctl - command line front-end of the support ticket portal",
		Long: `ticketctl lists, creates and edits support tickets.

Sign in with 'ticketctl login'. The session is kept in a token file and
stays valid until you sign out or the token expires.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(
		c.loginCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.listCommand(),
		c.showCommand(),
		c.createCommand(),
		c.updateCommand(),
		c.deleteCommand(),
		c.eventsCommand(),
	)
	return root
}

// app returns a portal controller with the restored session
func (c *cli) app(ctx context.Context) (*portal.App, error) {
	s := session.New(c.config.Tokens)
	if err := s.Restore(); err != nil {
		return nil, fmt.Errorf("cannot restore session: %w", err)
	}
	return portal.New(&portal.Builder{Connect: portal.ClientConnector(c.config.Client), Session: s}), nil
}

// loadedApp returns a portal controller with all tickets loaded
func (c *cli) loadedApp(ctx context.Context) (*portal.App, error) {
	app, err := c.app(ctx)
	if err != nil {
		return nil, err
	}
	if err := app.Load(ctx); err != nil {
		return nil, fmt.Errorf("cannot load tickets: %w", err)
	}
	return app, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s is not a ticket id", arg)
	}
	return id, nil
}

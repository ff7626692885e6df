package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/ticketportal/core"
	"github.com/relabs-tech/ticketportal/core/notify"
)

func (c *cli) eventsCommand() *cobra.Command {
	sb := notify.SubscriberBuilder{}
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print ticket change events from Kafka",
		Long: `Print the ticket change events the ticketportal service publishes to Kafka,
starting with the newest. Stop with Ctrl-C.

This is an operator tool, it reads the broker directly and needs no sign in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sb.Brokers == "" {
				return errors.New("no Kafka brokers, use --brokers or TICKETPORTAL_KAFKA_BROKERS")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			w := cmd.OutOrStdout()
			return notify.Subscribe(ctx, &sb, func(ctx context.Context, event core.Event) error {
				printEvent(w, event)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sb.Brokers, "brokers", c.config.KafkaBrokers, "comma separated list of Kafka brokers")
	cmd.Flags().StringVar(&sb.Topic, "topic", c.config.KafkaTopic, "the topic of ticket events")
	cmd.Flags().StringVar(&sb.GroupID, "group", "", "consumer group, to continue where the group stopped")
	return cmd
}

func printEvent(w io.Writer, event core.Event) {
	verb := map[core.Operation]string{
		core.OperationCreate: green.Sprint("created"),
		core.OperationUpdate: yellow.Sprint("updated"),
		core.OperationDelete: red.Sprint("deleted"),
	}[event.Operation]
	fmt.Fprintf(w, "%s  ticket %-6d %s by %s  %s %s\n",
		event.Timestamp.Local().Format("2006-01-02 15:04:05"), event.Ticket.ID, verb, event.Actor,
		statusPill(event.Ticket.Status, 0), event.Ticket.Title)
}

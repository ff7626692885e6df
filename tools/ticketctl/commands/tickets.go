package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/ticketportal/core/ticket"
	"github.com/relabs-tech/ticketportal/portal"
)

func (c *cli) listCommand() *cobra.Command {
	var (
		filter   ticket.Filter
		status   string
		category string
		priority string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		Long: `List all tickets, optionally narrowed by status, category, priority and
a free text search over id, title, description, author and agent.

The total is the number of all tickets, not only the listed ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if status != "" {
				if filter.Status, err = ticket.ParseStatus(strings.ToUpper(status)); err != nil {
					return err
				}
			}
			if category != "" {
				if filter.Category, err = ticket.ParseCategory(strings.ToUpper(category)); err != nil {
					return err
				}
			}
			if priority != "" {
				if filter.Priority, err = ticket.ParsePriority(strings.ToUpper(priority)); err != nil {
					return err
				}
			}
			app, err := c.loadedApp(cmd.Context())
			if err != nil {
				return err
			}
			view, err := portal.ParseView(portal.TicketsPath, filter.Values().Encode())
			if err != nil {
				return err
			}
			visible := view.Visible(app.Store().All())
			if asJSON {
				data, err := json.MarshalIndent(visible, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if len(visible) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tickets found.")
				return nil
			}
			printTable(cmd.OutOrStdout(), visible, app.Store().Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only tickets with this status (OPEN, IN_PROGRESS, RESOLVED, CLOSED)")
	cmd.Flags().StringVar(&category, "category", "", "only tickets in this category (BUG, FEATURE_REQUEST, TECHNICAL_ISSUE, ACCOUNT)")
	cmd.Flags().StringVar(&priority, "priority", "", "only tickets with this priority (LOW, MEDIUM, HIGH)")
	cmd.Flags().StringVar(&filter.Search, "search", "", "free text search")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func (c *cli) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one ticket and what you may change about it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, err := c.loadedApp(cmd.Context())
			if err != nil {
				return err
			}
			t, ok := app.Store().Find(id)
			if !ok {
				return fmt.Errorf("ticket %d: %w", id, portal.ErrUnknownTicket)
			}
			w := cmd.OutOrStdout()
			printTicket(w, t)

			permissions := app.Permissions()
			editable := []string{}
			for _, f := range ticket.Fields() {
				if permissions.CanEdit(t, f) {
					editable = append(editable, string(f))
				}
			}
			if len(editable) > 0 {
				fmt.Fprintf(w, "\nYou may update: %s\n", strings.Join(editable, ", "))
			}
			if permissions.CanDelete(t) {
				fmt.Fprintln(w, "You may delete this ticket.")
			}
			return nil
		},
	}
}

func (c *cli) createCommand() *cobra.Command {
	form := portal.NewCreateTicketForm()
	var category string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form.Category = ticket.Category(strings.ToUpper(category))
			app, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			created, err := app.CreateTicket(cmd.Context(), form)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "created ticket %d\n", created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Title, "title", "", "the title, 5 to 100 characters")
	cmd.Flags().StringVar(&form.Description, "description", "", "the description, at most 1000 characters")
	cmd.Flags().StringVar(&category, "category", string(ticket.DefaultCategory), "the category (BUG, FEATURE_REQUEST, TECHNICAL_ISSUE, ACCOUNT)")
	return cmd
}

func (c *cli) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <field> [value]",
		Short: "Change one field of a ticket",
		Long: `Change one field of a ticket. The fields are description, status, category,
priority and agent. Leave out the value to unassign the agent.

Only the author may change description, category and priority. A client
author may open or close a ticket, an agent may open, start or resolve it.
Agents may assign a ticket to themselves or unassign it. A client author can
only close a ticket in progress or resolved, and agents reopen a closed ticket
before changing anything else.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			field, err := ticket.ParseField(args[1])
			if err != nil {
				return err
			}
			value := ""
			if len(args) == 3 {
				value = args[2]
			}
			if field != ticket.FieldDescription && field != ticket.FieldAgent {
				value = strings.ToUpper(value)
			}
			app, err := c.loadedApp(cmd.Context())
			if err != nil {
				return err
			}
			updated, err := app.UpdateField(cmd.Context(), id, field, value)
			if errors.Is(err, portal.ErrNotAllowed) {
				if t, ok := app.Store().Find(id); ok {
					if options := optionValues(app.Permissions(), t, field); len(options) > 0 {
						warning(cmd.ErrOrStderr(), "you may set %s to: %s\n", field, strings.Join(options, ", "))
					}
				}
			}
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "updated ticket %d\n", updated.ID)
			return nil
		},
	}
}

func optionValues(p portal.Permissions, t ticket.Ticket, field ticket.Field) []string {
	var options []portal.Option
	switch field {
	case ticket.FieldStatus:
		options = p.StatusOptions(t)
	case ticket.FieldCategory:
		options = p.CategoryOptions(t)
	case ticket.FieldPriority:
		options = p.PriorityOptions(t)
	case ticket.FieldAgent:
		options = p.AgentOptions(t)
	}
	values := []string{}
	for _, o := range options {
		if o.Value == "" {
			values = append(values, "(empty)")
		} else {
			values = append(values, o.Value)
		}
	}
	return values
}

func (c *cli) deleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				red.Fprintln(cmd.ErrOrStderr(), portal.ConfirmDeleteText)
				return errors.New("confirm with --yes")
			}
			app, err := c.loadedApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.DeleteTicket(cmd.Context(), id); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "deleted ticket %d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}

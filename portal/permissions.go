package portal

import (
	"github.com/relabs-tech/ticketportal/core/ticket"
	"github.com/relabs-tech/ticketportal/portal/session"
)

// Option is one choice of an editable select
type Option struct {
	Value string
	Label string
}

// Permissions decides which parts of the detail pane the signed-in user may edit.
// The service enforces its own policy, this only decides what is offered.
type Permissions struct {
	user *session.User
}

// PermissionsFor returns the permissions of a user, nil meaning signed out
func PermissionsFor(user *session.User) Permissions {
	return Permissions{user: user}
}

// CanCreate returns true if the user may create tickets
func (p Permissions) CanCreate() bool {
	return p.user.IsClient()
}

func (p Permissions) isAuthor(t ticket.Ticket) bool {
	return p.user != nil && t.IsAuthor(p.user.Username)
}

// CanDelete returns true if the user may delete the ticket
func (p Permissions) CanDelete(t ticket.Ticket) bool {
	return p.isAuthor(t)
}

// keepsStatus returns true if the user may save the ticket with its current status.
// Changes other than the status itself require that.
func (p Permissions) keepsStatus(t ticket.Ticket) bool {
	return p.user != nil && ticket.StatusAllowed(p.user.Role, t.Status)
}

// CanEdit returns true if the user may edit the field of the ticket
func (p Permissions) CanEdit(t ticket.Ticket, field ticket.Field) bool {
	switch field {
	case ticket.FieldDescription, ticket.FieldCategory, ticket.FieldPriority:
		return p.isAuthor(t) && p.keepsStatus(t)
	case ticket.FieldStatus:
		return len(p.StatusOptions(t)) > 0
	case ticket.FieldAgent:
		return p.user.IsAgent() && p.keepsStatus(t)
	}
	return false
}

// StatusOptions returns the statuses the user may choose for the ticket. A client
// author may open or close, an agent may open, start or resolve.
func (p Permissions) StatusOptions(t ticket.Ticket) []Option {
	var statuses []ticket.Status
	switch {
	case p.user.IsAgent():
		statuses = []ticket.Status{ticket.StatusOpen, ticket.StatusInProgress, ticket.StatusResolved}
	case p.user.IsClient() && p.isAuthor(t):
		statuses = []ticket.Status{ticket.StatusOpen, ticket.StatusClosed}
	}
	options := []Option{}
	for _, s := range statuses {
		options = append(options, Option{Value: string(s), Label: s.Label()})
	}
	return options
}

// CategoryOptions returns all categories if the user may edit the category
func (p Permissions) CategoryOptions(t ticket.Ticket) []Option {
	options := []Option{}
	if !p.CanEdit(t, ticket.FieldCategory) {
		return options
	}
	for _, c := range ticket.Categories() {
		options = append(options, Option{Value: string(c), Label: c.Label()})
	}
	return options
}

// PriorityOptions returns all priorities if the user may edit the priority
func (p Permissions) PriorityOptions(t ticket.Ticket) []Option {
	options := []Option{}
	if !p.CanEdit(t, ticket.FieldPriority) {
		return options
	}
	for _, pr := range ticket.Priorities() {
		options = append(options, Option{Value: string(pr), Label: pr.Label()})
	}
	return options
}

// AgentOptions returns the agent choices of an agent: assign to themselves or unassign.
// The empty value unassigns.
func (p Permissions) AgentOptions(t ticket.Ticket) []Option {
	options := []Option{}
	if !p.CanEdit(t, ticket.FieldAgent) {
		return options
	}
	if t.Agent != p.user.Username {
		options = append(options, Option{Value: p.user.Username, Label: "Assign to me"})
	}
	if t.Agent != "" {
		options = append(options, Option{Value: "", Label: "Unassign"})
	}
	return options
}

// Allows returns true if value is one of the user's options for the field
func (p Permissions) Allows(t ticket.Ticket, field ticket.Field, value string) bool {
	var options []Option
	switch field {
	case ticket.FieldDescription:
		return p.CanEdit(t, field)
	case ticket.FieldStatus:
		options = p.StatusOptions(t)
	case ticket.FieldCategory:
		options = p.CategoryOptions(t)
	case ticket.FieldPriority:
		options = p.PriorityOptions(t)
	case ticket.FieldAgent:
		options = p.AgentOptions(t)
	}
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}

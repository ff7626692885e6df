package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/ticketportal/core/ticket"
	"github.com/relabs-tech/ticketportal/portal/session"
)

func values(options []Option) []string {
	result := []string{}
	for _, o := range options {
		result = append(result, o.Value)
	}
	return result
}

func TestPermissions(t *testing.T) {
	tk := ticket.Ticket{ID: 1, Title: "Login broken", Status: ticket.StatusOpen, Category: ticket.CategoryBug, Priority: ticket.PriorityLow, Author: "noobMaster"}

	signedOut := PermissionsFor(nil)
	author := PermissionsFor(&session.User{Username: "noobMaster", Role: ticket.RoleClient})
	other := PermissionsFor(&session.User{Username: "someClient", Role: ticket.RoleClient})
	agent := PermissionsFor(&session.User{Username: "agent007", Role: ticket.RoleAgent})

	assert.False(t, signedOut.CanCreate())
	assert.True(t, author.CanCreate())
	assert.False(t, agent.CanCreate())

	for _, f := range ticket.Fields() {
		assert.False(t, signedOut.CanEdit(tk, f), f)
		assert.False(t, other.CanEdit(tk, f), f)
	}
	assert.False(t, author.CanEdit(tk, ticket.FieldTitle))
	assert.False(t, signedOut.CanDelete(tk))
	assert.False(t, other.CanDelete(tk))
	assert.False(t, agent.CanDelete(tk))
	assert.True(t, author.CanDelete(tk))

	assert.True(t, author.CanEdit(tk, ticket.FieldDescription))
	assert.True(t, author.CanEdit(tk, ticket.FieldCategory))
	assert.True(t, author.CanEdit(tk, ticket.FieldPriority))
	assert.True(t, author.CanEdit(tk, ticket.FieldStatus))
	assert.False(t, author.CanEdit(tk, ticket.FieldAgent))
	assert.Equal(t, []string{"OPEN", "CLOSED"}, values(author.StatusOptions(tk)))
	assert.Equal(t, []string{"LOW", "MEDIUM", "HIGH"}, values(author.PriorityOptions(tk)))
	assert.Len(t, author.CategoryOptions(tk), len(ticket.Categories()))
	assert.Empty(t, other.StatusOptions(tk))
	assert.Empty(t, other.CategoryOptions(tk))

	assert.False(t, agent.CanEdit(tk, ticket.FieldDescription))
	assert.True(t, agent.CanEdit(tk, ticket.FieldStatus))
	assert.True(t, agent.CanEdit(tk, ticket.FieldAgent))
	assert.Equal(t, []string{"OPEN", "IN_PROGRESS", "RESOLVED"}, values(agent.StatusOptions(tk)))
	assert.Empty(t, agent.PriorityOptions(tk))
	assert.Equal(t, []string{"agent007"}, values(agent.AgentOptions(tk)))

	tk.Agent = "agent007"
	assert.Equal(t, []string{""}, values(agent.AgentOptions(tk)))
	tk.Agent = "agentSmith"
	assert.Equal(t, []string{"agent007", ""}, values(agent.AgentOptions(tk)))
	assert.Empty(t, author.AgentOptions(tk))

	assert.True(t, agent.Allows(tk, ticket.FieldAgent, ""))
	assert.False(t, agent.Allows(tk, ticket.FieldAgent, "agentSmith"))
	assert.False(t, agent.Allows(tk, ticket.FieldStatus, "CLOSED"))
	assert.True(t, author.Allows(tk, ticket.FieldStatus, "CLOSED"))
	assert.True(t, author.Allows(tk, ticket.FieldDescription, "anything"))
	assert.False(t, author.Allows(tk, ticket.FieldTitle, "Another title"))
	assert.False(t, author.Allows(tk, ticket.FieldPriority, "URGENT"))
}

func TestPermissions_StatusLocksEdits(t *testing.T) {
	author := PermissionsFor(&session.User{Username: "noobMaster", Role: ticket.RoleClient})
	agent := PermissionsFor(&session.User{Username: "agent007", Role: ticket.RoleAgent})

	for _, status := range []ticket.Status{ticket.StatusInProgress, ticket.StatusResolved} {
		tk := ticket.Ticket{ID: 2, Title: "Dark mode", Status: status, Category: ticket.CategoryFeatureRequest,
			Priority: ticket.PriorityLow, Author: "noobMaster", Agent: "agent007"}
		assert.False(t, author.CanEdit(tk, ticket.FieldDescription), status)
		assert.False(t, author.CanEdit(tk, ticket.FieldCategory), status)
		assert.Empty(t, author.PriorityOptions(tk), status)
		assert.False(t, author.Allows(tk, ticket.FieldDescription, "more"), status)
		// the author may still close it
		assert.True(t, author.Allows(tk, ticket.FieldStatus, "CLOSED"), status)
		assert.True(t, author.CanDelete(tk), status)
		assert.True(t, agent.CanEdit(tk, ticket.FieldAgent), status)
	}

	closed := ticket.Ticket{ID: 3, Title: "Old one", Status: ticket.StatusClosed, Category: ticket.CategoryBug,
		Priority: ticket.PriorityLow, Author: "noobMaster"}
	assert.False(t, agent.CanEdit(closed, ticket.FieldAgent))
	assert.Empty(t, agent.AgentOptions(closed))
	assert.False(t, agent.Allows(closed, ticket.FieldAgent, "agent007"))
	// reopening is still offered
	assert.True(t, agent.Allows(closed, ticket.FieldStatus, "OPEN"))
	assert.True(t, author.CanEdit(closed, ticket.FieldDescription))
}

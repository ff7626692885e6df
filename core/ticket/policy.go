package ticket

import "fmt"

// Actor is the user on whose behalf a change is made
type Actor struct {
	Username string
	Role     Role
}

// CanCreate returns true if the role may create tickets. Only clients write tickets.
func CanCreate(role Role) bool {
	return role == RoleClient
}

// StatusAllowed returns true if the role may move a ticket into the status.
// Clients cannot mark work as in progress or resolved, agents cannot close tickets.
func StatusAllowed(role Role, status Status) bool {
	switch role {
	case RoleClient:
		return status != StatusInProgress && status != StatusResolved
	case RoleAgent:
		return status != StatusClosed
	}
	return false
}

// CheckUpdate checks whether the actor may change the current ticket into the
// state described by input. The resulting status must be one the role may set, also
// when it does not change: a client cannot edit a ticket in progress, an agent cannot
// edit a closed one without reopening it. Title, description, category and priority
// belong to the author.
func CheckUpdate(actor Actor, current Ticket, input UpdateInput) error {
	if !StatusAllowed(actor.Role, input.Status) {
		return fmt.Errorf("%s may not set status %s: %w", actor.Role, input.Status, ErrForbidden)
	}
	if !current.IsAuthor(actor.Username) &&
		(current.Title != input.Title ||
			current.Description != input.Description ||
			current.Category != input.Category ||
			current.Priority != input.Priority) {
		return fmt.Errorf("only the author may edit ticket %d: %w", current.ID, ErrForbidden)
	}
	return nil
}

// CheckDelete checks whether the actor may delete the ticket. Only the author may.
func CheckDelete(actor Actor, current Ticket) error {
	if !current.IsAuthor(actor.Username) {
		return fmt.Errorf("only the author may delete ticket %d: %w", current.ID, ErrForbidden)
	}
	return nil
}

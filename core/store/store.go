/*
Package store persists user accounts and tickets.

Two implementations exist: Memory, a mutex protected in-process store used by
tests and by the service when no database is configured, and Postgres, which
keeps the data in a postgres database schema. Both assign serial ticket ids
and maintain the createdAt and updatedAt timestamps.
*/
package store

import (
	"context"
	"errors"

	"github.com/relabs-tech/ticketportal/core/ticket"
)

var (
	// ErrNotFound is returned when a user or ticket does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a user already exists
	ErrDuplicate = errors.New("duplicate")
)

// User is a user account. The password hash is a bcrypt hash and never leaves the server.
type User struct {
	Username     string      `json:"username"`
	Role         ticket.Role `json:"role"`
	PasswordHash string      `json:"-"`
}

// Users is the account part of a store
type Users interface {
	// FindUser returns the user or ErrNotFound
	FindUser(ctx context.Context, username string) (User, error)
	// CreateUser creates a user or returns ErrDuplicate
	CreateUser(ctx context.Context, user User) error
}

// Tickets is the ticket part of a store
type Tickets interface {
	// ListTickets returns all tickets ordered by id
	ListTickets(ctx context.Context) ([]ticket.Ticket, error)
	// FindTicket returns the ticket or ErrNotFound
	FindTicket(ctx context.Context, id int64) (ticket.Ticket, error)
	// CreateTicket stores a new ticket and returns it with id and timestamps
	CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error)
	// UpdateTicket replaces the editable fields of an existing ticket and returns the result
	UpdateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error)
	// DeleteTicket deletes a ticket and returns what was deleted
	DeleteTicket(ctx context.Context, id int64) (ticket.Ticket, error)
}

// Store is the complete persistence layer of the ticket portal
type Store interface {
	Users
	Tickets
}

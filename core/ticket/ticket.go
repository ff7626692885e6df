/*
Package ticket holds the domain model of the support ticket portal.

A ticket is a support request written by a client. Agents work on tickets,
clients close them. The package contains the closed enumerations for status,
category and priority, the request inputs for creating and updating tickets,
the free-text and facet filter shared by the REST backend and the portal,
and the role based policy which decides who may change what.
*/
package ticket

import (
	"errors"
	"fmt"
	"time"
)

// Limits for ticket and user properties
const (
	TitleMinLength       = 5
	TitleMaxLength       = 100
	DescriptionMaxLength = 1000
	UsernameMinLength    = 6
	UsernameMaxLength    = 20
)

// Defaults for newly created tickets
const (
	DefaultStatus   = StatusOpen
	DefaultPriority = PriorityMedium
	DefaultCategory = CategoryBug
)

// ErrForbidden is returned by the policy checks when an actor may not perform a change
var ErrForbidden = errors.New("forbidden")

// Ticket is a support request record
type Ticket struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Category    Category  `json:"category"`
	Priority    Priority  `json:"priority"`
	Author      string    `json:"author"`
	Agent       string    `json:"agent,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateInput is the request body for creating a ticket
type CreateInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

// UpdateInput is the request body for updating a ticket. It always carries
// all editable fields. An empty agent means the ticket is unassigned.
type UpdateInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority"`
	Agent       string   `json:"agent,omitempty"`
}

// New creates a ticket from a create input with default status and priority.
// ID and timestamps are assigned by the store.
func New(input CreateInput, author string) Ticket {
	return Ticket{
		Title:       input.Title,
		Description: input.Description,
		Status:      DefaultStatus,
		Category:    input.Category,
		Priority:    DefaultPriority,
		Author:      author,
	}
}

// UpdateInput returns the full update body for the ticket's current state
func (t Ticket) UpdateInput() UpdateInput {
	return UpdateInput{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Category:    t.Category,
		Priority:    t.Priority,
		Agent:       t.Agent,
	}
}

// Apply returns a copy of the ticket with the update input applied.
// Timestamps are left untouched.
func (t Ticket) Apply(input UpdateInput) Ticket {
	t.Title = input.Title
	t.Description = input.Description
	t.Status = input.Status
	t.Category = input.Category
	t.Priority = input.Priority
	t.Agent = input.Agent
	return t
}

// IsAuthor returns true if username wrote the ticket
func (t Ticket) IsAuthor(username string) bool {
	return username != "" && t.Author == username
}

// Field names an editable ticket field
type Field string

// all editable fields
const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldStatus      Field = "status"
	FieldCategory    Field = "category"
	FieldPriority    Field = "priority"
	FieldAgent       Field = "agent"
)

// Fields returns all editable fields
func Fields() []Field {
	return []Field{FieldTitle, FieldDescription, FieldStatus, FieldCategory, FieldPriority, FieldAgent}
}

// ParseField parses a field name
func ParseField(s string) (Field, error) {
	for _, f := range Fields() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%s is not an editable field", s)
}

// With returns a copy of the input with one field overridden. Enumerated
// fields are parsed from their wire names.
func (u UpdateInput) With(field Field, value string) (UpdateInput, error) {
	var err error
	switch field {
	case FieldTitle:
		u.Title = value
	case FieldDescription:
		u.Description = value
	case FieldStatus:
		u.Status, err = ParseStatus(value)
	case FieldCategory:
		u.Category, err = ParseCategory(value)
	case FieldPriority:
		u.Priority, err = ParsePriority(value)
	case FieldAgent:
		u.Agent = value
	default:
		err = fmt.Errorf("%s is not an editable field", field)
	}
	return u, err
}

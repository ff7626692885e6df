// Package core contains the types shared between the backend and its plugins
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/ticketportal/core/ticket"
)

// Operation represents a modifying ticket operation, one of Create, Update, Delete
type Operation string

// all supported ticket operations
const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Operation(s)
	switch *o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return nil
	default:
		return fmt.Errorf("%s is not valid Operation", s)
	}
}

// Event describes a ticket change. For deletions the ticket is the deleted ticket.
type Event struct {
	Operation Operation     `json:"operation"`
	Ticket    ticket.Ticket `json:"ticket"`
	Actor     string        `json:"actor"`
	Timestamp time.Time     `json:"timestamp"`
}

// Key returns the partition key of the event, the ticket id
func (e Event) Key() []byte {
	return []byte(fmt.Sprint(e.Ticket.ID))
}

// Notifier is an interface to receive ticket change notifications
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

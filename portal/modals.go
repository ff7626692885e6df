package portal

import (
	"fmt"
	"sync"
)

// ModalKind is the kind of content shown in the modal slot
type ModalKind string

// all modal kinds
const (
	ModalSignIn       ModalKind = "SIGN_IN_FORM"
	ModalCreateTicket ModalKind = "CREATE_TICKET_FORM"
	ModalConfirmation ModalKind = "CONFIRMATION"
)

// ConfirmDeleteText is the question of the delete confirmation
const ConfirmDeleteText = "Are you sure you want to delete this ticket?"

// ParseModalKind parses a modal kind
func ParseModalKind(s string) (ModalKind, error) {
	switch k := ModalKind(s); k {
	case ModalSignIn, ModalCreateTicket, ModalConfirmation:
		return k, nil
	}
	return "", fmt.Errorf("%s is not a modal", s)
}

// Heading returns the heading of the modal
func (k ModalKind) Heading() string {
	switch k {
	case ModalSignIn:
		return "Sign In"
	case ModalCreateTicket:
		return "Create Ticket"
	case ModalConfirmation:
		return "Delete Ticket"
	}
	return ""
}

// Modal is the content of the modal slot
type Modal struct {
	Kind ModalKind
	// TicketID is the ticket a confirmation is about
	TicketID int64
}

// Heading returns the heading of the modal
func (m Modal) Heading() string {
	return m.Kind.Heading()
}

// Modals is the single modal slot. Opening a modal replaces the current one.
type Modals struct {
	mutex   sync.Mutex
	current *Modal
}

// Open shows a modal. ticketID is only used by confirmations.
func (m *Modals) Open(kind ModalKind, ticketID int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if kind != ModalConfirmation {
		ticketID = 0
	}
	m.current = &Modal{Kind: kind, TicketID: ticketID}
}

// Close empties the slot
func (m *Modals) Close() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.current = nil
}

// Current returns the shown modal or nil
func (m *Modals) Current() *Modal {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.current == nil {
		return nil
	}
	modal := *m.current
	return &modal
}

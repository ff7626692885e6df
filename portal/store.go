package portal

import (
	"sync"

	"github.com/relabs-tech/ticketportal/core/ticket"
)

// TicketStore holds the tickets fetched from the service. Mutations are applied
// locally from the service's responses so the list does not need to be reloaded.
type TicketStore struct {
	mutex   sync.RWMutex
	tickets []ticket.Ticket
}

// Replace replaces the whole collection
func (s *TicketStore) Replace(tickets []ticket.Ticket) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tickets = append([]ticket.Ticket{}, tickets...)
}

// All returns a copy of all tickets in fetch order
func (s *TicketStore) All() []ticket.Ticket {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]ticket.Ticket{}, s.tickets...)
}

// Len returns the number of tickets
func (s *TicketStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.tickets)
}

// Find returns the ticket with the given id
func (s *TicketStore) Find(id int64) (ticket.Ticket, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.tickets[i], true
	}
	return ticket.Ticket{}, false
}

// Add appends a newly created ticket
func (s *TicketStore) Add(t ticket.Ticket) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tickets = append(s.tickets, t)
}

// Update replaces the ticket with the same id. It returns false if there is none.
func (s *TicketStore) Update(t ticket.Ticket) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	i := s.index(t.ID)
	if i < 0 {
		return false
	}
	s.tickets[i] = t
	return true
}

// Remove removes the ticket with the given id. It returns false if there is none.
func (s *TicketStore) Remove(id int64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.tickets = append(s.tickets[:i], s.tickets[i+1:]...)
	return true
}

func (s *TicketStore) index(id int64) int {
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

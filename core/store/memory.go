package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/relabs-tech/ticketportal/core/ticket"
)

// Memory is an in-process store. It is safe for concurrent use.
type Memory struct {
	mutex   sync.RWMutex
	users   map[string]User
	tickets map[int64]ticket.Ticket
	lastID  int64
	now     func() time.Time
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]User),
		tickets: make(map[int64]ticket.Ticket),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FindUser implements Users
func (m *Memory) FindUser(ctx context.Context, username string) (User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	user, ok := m.users[username]
	if !ok {
		return User{}, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	return user, nil
}

// CreateUser implements Users
func (m *Memory) CreateUser(ctx context.Context, user User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
	}
	m.users[user.Username] = user
	return nil
}

// ListTickets implements Tickets
func (m *Memory) ListTickets(ctx context.Context) ([]ticket.Ticket, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	tickets := make([]ticket.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })
	return tickets, nil
}

// FindTicket implements Tickets
func (m *Memory) FindTicket(ctx context.Context, id int64) (ticket.Ticket, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	t, ok := m.tickets[id]
	if !ok {
		return ticket.Ticket{}, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
	}
	return t, nil
}

// CreateTicket implements Tickets
func (m *Memory) CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.lastID++
	t.ID = m.lastID
	t.CreatedAt = m.now()
	t.UpdatedAt = t.CreatedAt
	m.tickets[t.ID] = t
	return t, nil
}

// UpdateTicket implements Tickets. Author and createdAt of the stored ticket are kept.
func (m *Memory) UpdateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	current, ok := m.tickets[t.ID]
	if !ok {
		return ticket.Ticket{}, fmt.Errorf("ticket %d: %w", t.ID, ErrNotFound)
	}
	updated := current.Apply(t.UpdateInput())
	updated.UpdatedAt = m.now()
	m.tickets[t.ID] = updated
	return updated, nil
}

// DeleteTicket implements Tickets
func (m *Memory) DeleteTicket(ctx context.Context, id int64) (ticket.Ticket, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return ticket.Ticket{}, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
	}
	delete(m.tickets, id)
	return t, nil
}

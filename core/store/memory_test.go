package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/ticketportal/core/ticket"
)

func TestMemory_Users(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.FindUser(ctx, "noobMaster")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, m.CreateUser(ctx, User{Username: "noobMaster", Role: ticket.RoleClient, PasswordHash: "hash"}))
	err = m.CreateUser(ctx, User{Username: "noobMaster", Role: ticket.RoleAgent})
	assert.True(t, errors.Is(err, ErrDuplicate))

	user, err := m.FindUser(ctx, "noobMaster")
	require.NoError(t, err)
	assert.Equal(t, ticket.RoleClient, user.Role)
	assert.Equal(t, "hash", user.PasswordHash)
}

func TestMemory_Tickets(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	tickets, err := m.ListTickets(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	first, err := m.CreateTicket(ctx, ticket.New(ticket.CreateInput{Title: "Login broken", Category: ticket.CategoryBug}, "noobMaster"))
	require.NoError(t, err)
	second, err := m.CreateTicket(ctx, ticket.New(ticket.CreateInput{Title: "Dark mode", Category: ticket.CategoryFeatureRequest}, "noobMaster"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	input := second.UpdateInput()
	input.Status = ticket.StatusInProgress
	input.Agent = "agent007"
	changed := second.Apply(input)
	changed.Author = "someoneElse"
	updated, err := m.UpdateTicket(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusInProgress, updated.Status)
	assert.Equal(t, "agent007", updated.Agent)
	assert.Equal(t, "noobMaster", updated.Author, "author is not editable")
	assert.Equal(t, second.CreatedAt, updated.CreatedAt)

	_, err = m.UpdateTicket(ctx, ticket.Ticket{ID: 42})
	assert.True(t, errors.Is(err, ErrNotFound))

	deleted, err := m.DeleteTicket(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Login broken", deleted.Title)
	_, err = m.FindTicket(ctx, first.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = m.DeleteTicket(ctx, first.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	// ids are never reused
	third, err := m.CreateTicket(ctx, ticket.New(ticket.CreateInput{Title: "Account locked", Category: ticket.CategoryAccount}, "noobMaster"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.ID)

	tickets, err = m.ListTickets(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, int64(2), tickets[0].ID)
	assert.Equal(t, int64(3), tickets[1].ID)
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.CreateTicket(ctx, ticket.New(ticket.CreateInput{Title: "Parallel", Category: ticket.CategoryBug}, "noobMaster"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	tickets, err := m.ListTickets(ctx)
	require.NoError(t, err)
	assert.Len(t, tickets, 20)
	assert.Equal(t, int64(20), tickets[19].ID)
}

/*
Package portal is the front-end state of the support ticket portal.

It owns the fetched ticket collection, the URL encoded filter and selection,
the single modal slot, the sign in and create forms and the rules which decide
which fields of the selected ticket the signed-in user is offered for editing.
App sequences the calls to the service: every call either succeeds and is
applied to the local collection, or fails and leaves its message as the
current alert.

The package does not render anything. The web front-end in portal/web and the
command line tool ticketctl are both built on top of it.
*/
package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/relabs-tech/ticketportal/core/client"
	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/core/ticket"
	"github.com/relabs-tech/ticketportal/portal/session"
)

// errors returned by App before a request is made
var (
	ErrNotAllowed    = errors.New("not allowed")
	ErrUnknownTicket = errors.New("no such ticket")
)

// API is the part of the service the portal uses. client.Client implements it.
type API interface {
	Authenticate(username, password string) (string, error)
	ListTickets(filter ticket.Filter) ([]ticket.Ticket, error)
	CreateTicket(input ticket.CreateInput) (ticket.Ticket, error)
	UpdateTicket(id int64, input ticket.UpdateInput) (ticket.Ticket, error)
	DeleteTicket(id int64) (ticket.Ticket, error)
}

// Connector returns an API which sends the given bearer token
type Connector func(ctx context.Context, token string) API

// ClientConnector returns a connector for a service client
func ClientConnector(c client.Client) Connector {
	return func(ctx context.Context, token string) API {
		return c.WithContext(ctx).WithToken(token)
	}
}

// Builder is a builder helper for the App
type Builder struct {
	// Connect is mandatory
	Connect Connector
	// Session is mandatory
	Session *session.Session
}

// App is the portal controller
type App struct {
	connect Connector
	session *session.Session
	store   TicketStore
	modals  Modals

	mutex sync.Mutex
	alert string
}

// New creates a new portal controller
func New(ab *Builder) *App {
	if ab.Connect == nil {
		panic("connector missing")
	}
	if ab.Session == nil {
		panic("session missing")
	}
	return &App{connect: ab.Connect, session: ab.Session}
}

// Store returns the ticket collection
func (a *App) Store() *TicketStore {
	return &a.store
}

// Modals returns the modal slot
func (a *App) Modals() *Modals {
	return &a.modals
}

// Session returns the session
func (a *App) Session() *session.Session {
	return a.session
}

// User returns the signed-in user or nil
func (a *App) User() *session.User {
	return a.session.User()
}

// Permissions returns the permissions of the signed-in user
func (a *App) Permissions() Permissions {
	return PermissionsFor(a.session.User())
}

// Alert returns the message of the last failure, or an empty string
func (a *App) Alert() string {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.alert
}

// ClearAlert removes the alert
func (a *App) ClearAlert() {
	a.setAlert("")
}

func (a *App) setAlert(alert string) {
	a.mutex.Lock()
	a.alert = alert
	a.mutex.Unlock()
}

func (a *App) api(ctx context.Context) API {
	return a.connect(ctx, a.session.Token())
}

func (a *App) fail(ctx context.Context, operation string, err error) error {
	logger.FromContext(ctx).WithError(err).Debugf("portal: %s failed", operation)
	a.setAlert(err.Error())
	return err
}

// Load fetches all tickets
func (a *App) Load(ctx context.Context) error {
	tickets, err := a.api(ctx).ListTickets(ticket.Filter{})
	if err != nil {
		return a.fail(ctx, "load", err)
	}
	a.store.Replace(tickets)
	return nil
}

// SignIn authenticates with the service and signs in with the returned token
func (a *App) SignIn(ctx context.Context, form SignInForm) error {
	if err := form.Validate(); err != nil {
		return a.fail(ctx, "sign in", err)
	}
	token, err := a.api(ctx).Authenticate(form.Username, form.Password)
	if err != nil {
		return a.fail(ctx, "sign in", err)
	}
	if err := a.session.SignIn(token); err != nil {
		return a.fail(ctx, "sign in", err)
	}
	logger.FromContext(ctx).Infof("portal: %s signed in", form.Username)
	a.ClearAlert()
	a.modals.Close()
	return nil
}

// SignOut signs out and closes any modal
func (a *App) SignOut(ctx context.Context) error {
	a.modals.Close()
	if err := a.session.SignOut(); err != nil {
		return a.fail(ctx, "sign out", err)
	}
	a.ClearAlert()
	return nil
}

// CreateTicket creates a ticket from the form and adds it to the collection
func (a *App) CreateTicket(ctx context.Context, form CreateTicketForm) (ticket.Ticket, error) {
	if !a.Permissions().CanCreate() {
		return ticket.Ticket{}, a.fail(ctx, "create", fmt.Errorf("only signed in clients can create tickets: %w", ErrNotAllowed))
	}
	if err := form.Validate(); err != nil {
		return ticket.Ticket{}, a.fail(ctx, "create", err)
	}
	created, err := a.api(ctx).CreateTicket(form.Input())
	if err != nil {
		return ticket.Ticket{}, a.fail(ctx, "create", err)
	}
	a.store.Add(created)
	a.ClearAlert()
	a.modals.Close()
	return created, nil
}

// UpdateField changes one field of a ticket. The service receives all fields of the
// ticket with the one field replaced.
func (a *App) UpdateField(ctx context.Context, id int64, field ticket.Field, value string) (ticket.Ticket, error) {
	current, ok := a.store.Find(id)
	if !ok {
		return ticket.Ticket{}, a.fail(ctx, "update", fmt.Errorf("ticket %d: %w", id, ErrUnknownTicket))
	}
	if !a.Permissions().Allows(current, field, value) {
		return ticket.Ticket{}, a.fail(ctx, "update", fmt.Errorf("cannot set %s to %q: %w", field, value, ErrNotAllowed))
	}
	input, err := current.UpdateInput().With(field, value)
	if err != nil {
		return ticket.Ticket{}, a.fail(ctx, "update", err)
	}
	updated, err := a.api(ctx).UpdateTicket(id, input)
	if err != nil {
		return ticket.Ticket{}, a.fail(ctx, "update", err)
	}
	a.store.Update(updated)
	a.ClearAlert()
	return updated, nil
}

// DeleteTicket deletes a ticket and removes it from the collection
func (a *App) DeleteTicket(ctx context.Context, id int64) error {
	current, ok := a.store.Find(id)
	if !ok {
		return a.fail(ctx, "delete", fmt.Errorf("ticket %d: %w", id, ErrUnknownTicket))
	}
	if !a.Permissions().CanDelete(current) {
		return a.fail(ctx, "delete", fmt.Errorf("only the author can delete ticket %d: %w", id, ErrNotAllowed))
	}
	if _, err := a.api(ctx).DeleteTicket(id); err != nil {
		return a.fail(ctx, "delete", err)
	}
	a.store.Remove(id)
	a.ClearAlert()
	a.modals.Close()
	return nil
}

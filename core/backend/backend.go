package backend

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/ticketportal/core"
	"github.com/relabs-tech/ticketportal/core/access"
	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/core/schema"
	"github.com/relabs-tech/ticketportal/core/store"
)

//go:embed schemas
var schemaFS embed.FS

// ids of the embedded request schemas
const (
	schemaAuthenticate = "https://ticketportal.relabs.tech/schemas/authenticate.json"
	schemaCreateTicket = "https://ticketportal.relabs.tech/schemas/create_ticket.json"
	schemaUpdateTicket = "https://ticketportal.relabs.tech/schemas/update_ticket.json"
)

// maximum size of a request body
const maxBodySize = 1 << 20

// Backend is the ticket portal REST backend
type Backend struct {
	router    *mux.Router
	store     store.Store
	issuer    *access.TokenIssuer
	validator *schema.Validator
	notifier  core.Notifier
	now       func() time.Time
}

// Builder is a builder helper for the Backend
type Builder struct {
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Store persists users and tickets. This is mandatory.
	Store store.Store
	// Issuer issues and verifies bearer tokens. This is mandatory.
	Issuer *access.TokenIssuer
	// Notifier receives an event for every ticket change. This is optional.
	Notifier core.Notifier
	// AuthorizationCache caches verified tokens. This is optional.
	AuthorizationCache *access.AuthorizationCache
	// AllowedOrigins are the origins browsers may call the API from. All origins if empty.
	AllowedOrigins []string
}

// New realizes the actual backend. It installs the middleware and adds all routes to the router
func New(bb *Builder) *Backend {
	if bb.Router == nil {
		panic("Router is missing")
	}
	if bb.Store == nil {
		panic("Store is missing")
	}
	if bb.Issuer == nil {
		panic("Issuer is missing")
	}

	schemas, err := fs.Sub(schemaFS, "schemas")
	if err != nil {
		panic(err)
	}
	validator, err := schema.NewValidatorFromFS(schemas)
	if err != nil {
		panic(err)
	}

	b := &Backend{
		router:    bb.Router,
		store:     bb.Store,
		issuer:    bb.Issuer,
		validator: validator,
		notifier:  bb.Notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}

	logger.AddRequestID(b.router)
	b.router.Use(corsMiddleware(bb.AllowedOrigins))
	b.handleCompression()
	b.router.Use(access.NewJwtMiddleware(&access.JwtMiddlewareBuilder{
		Issuer: bb.Issuer,
		Users:  bb.Store,
		Cache:  bb.AuthorizationCache,
	}))

	access.HandleAuthorizationRoute(b.router)
	b.handleVersion(b.router)
	b.handleAuthenticate(b.router)
	b.handleTickets(b.router)
	return b
}

// EnsureUsers creates the specified user accounts if they do not exist yet
func (b *Backend) EnsureUsers(ctx context.Context, accounts ...access.Account) error {
	return access.EnsureAccounts(ctx, b.store, accounts...)
}

// notify sends an event to the notifier, if there is one. Failures are logged only.
func (b *Backend) notify(ctx context.Context, event core.Event) {
	if b.notifier == nil {
		return
	}
	event.Timestamp = b.now()
	if err := b.notifier.Notify(ctx, event); err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("Error 4760: cannot notify %s of ticket %d", event.Operation, event.Ticket.ID)
	}
}

// marshalResponse marshals value for a response. On failure the response has been
// written and ok is false.
func marshalResponse(w http.ResponseWriter, r *http.Request, value interface{}) (jsonData []byte, ok bool) {
	jsonData, err := json.Marshal(value)
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorf("Error 4701: cannot marshal response")
		http.Error(w, "Error 4701", http.StatusInternalServerError)
		return nil, false
	}
	return jsonData, true
}

// writeJSON writes value as JSON response with status code
func writeJSON(w http.ResponseWriter, r *http.Request, status int, value interface{}) {
	jsonData, ok := marshalResponse(w, r, value)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(jsonData)
}

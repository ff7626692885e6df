/*
Package access provides utilities for access control

Requests are authenticated with HS256 signed JWT bearer tokens, issued by
POST /authenticate. The jwt middleware verifies the token, looks up the
user and puts an Authorization into the request context:

	auth := access.AuthorizationFromContext(r.Context())
	if auth.HasRole(ticket.RoleClient) { ... }

A request without a valid token carries no authorization. Handlers decide
whether that is sufficient.
*/
package access

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/core/ticket"
)

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

// the predefined context key
const (
	contextKeyAuthorization contextKey = "_authorization_"
)

// Authorization is a context object which stores the authenticated user
type Authorization struct {
	Username string      `json:"username"`
	Role     ticket.Role `json:"role"`
}

// HasRole returns true if the authorization has the requested role;
// otherwise it returns false. A nil authorization has no role.
func (a *Authorization) HasRole(role ticket.Role) bool {
	return a != nil && a.Role == role
}

// IsAuthenticated returns true for a non-nil authorization of a named user
func (a *Authorization) IsAuthenticated() bool {
	return a != nil && a.Username != ""
}

// Actor returns the actor for the ticket policy. A nil authorization is an anonymous actor.
func (a *Authorization) Actor() ticket.Actor {
	if a == nil {
		return ticket.Actor{}
	}
	return ticket.Actor{Username: a.Username, Role: a.Role}
}

// ContextWithAuthorization returns a new context with this authorization added to it
func (a *Authorization) ContextWithAuthorization(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, a)
}

// AuthorizationFromContext retrieves an authorization from the context
func AuthorizationFromContext(ctx context.Context) *Authorization {
	a, ok := ctx.Value(contextKeyAuthorization).(*Authorization)
	if ok {
		return a
	}
	return nil
}

type cacheEntry struct {
	auth    *Authorization
	expires time.Time
}

// maximum number of cached tokens before expired entries are purged
const cachePurgeSize = 1024

// AuthorizationCache is an in-memory cache for authorizations. It is used by
// jwt middleware to cache authorization objects for bearer tokens, so that
// a token is verified and its user looked up only once.
// Entries expire together with the token they were derived from.
type AuthorizationCache struct {
	mutex sync.RWMutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// NewAuthorizationCache creates a new authorization cache
func NewAuthorizationCache() *AuthorizationCache {
	return &AuthorizationCache{cache: make(map[string]cacheEntry), now: time.Now}
}

// Read returns an authorization from in-process cache, or nil if there is none
// or it has expired.
// This function is go-routine safe
func (a *AuthorizationCache) Read(token string) *Authorization {
	a.mutex.RLock()
	entry, ok := a.cache[token]
	a.mutex.RUnlock()
	if ok && a.now().Before(entry.expires) {
		return entry.auth
	}
	return nil
}

// Write stores an authorization in the in-memory cache until expires.
// This function is go-routine safe
func (a *AuthorizationCache) Write(token string, auth *Authorization, expires time.Time) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if len(a.cache) >= cachePurgeSize {
		now := a.now()
		for key, entry := range a.cache {
			if !now.Before(entry.expires) {
				delete(a.cache, key)
			}
		}
	}
	a.cache[token] = cacheEntry{auth: auth, expires: expires}
}

// Len returns the number of cached entries, including expired ones
func (a *AuthorizationCache) Len() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return len(a.cache)
}

// HandleAuthorizationRoute adds a route /authorization GET to the router
//
// The route returns the current authorization for provided bearer token, or 204 without one.
func HandleAuthorizationRoute(router *mux.Router) {
	logger.Default().Debugln("  handle route: /authorization GET")
	router.HandleFunc("/authorization", func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
		auth := AuthorizationFromContext(r.Context())
		if auth == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		jsonData, _ := json.MarshalIndent(auth, "", " ")
		w.Header().Set("Content-Type", "application/json")
		w.Write(jsonData)
	}).Methods(http.MethodGet)
}

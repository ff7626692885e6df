/*
Package session keeps the signed-in state of a portal front-end.

The portal never validates tokens, that is the service's business. It only
decodes the payload of the bearer token to learn who is signed in and with
which role, and keeps the token in a TokenStore so that a restarted
front-end is still signed in.
*/
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/relabs-tech/ticketportal/core/ticket"
)

// User is the signed-in user as decoded from the token payload
type User struct {
	Username  string
	Role      ticket.Role
	ExpiresAt time.Time
}

// IsAgent returns true for a signed-in agent
func (u *User) IsAgent() bool {
	return u != nil && u.Role == ticket.RoleAgent
}

// IsClient returns true for a signed-in client
func (u *User) IsClient() bool {
	return u != nil && u.Role == ticket.RoleClient
}

type claims struct {
	Role ticket.Role `json:"role"`
	jwt.RegisteredClaims
}

// DecodeToken decodes the payload of a bearer token without verifying it. The subject
// becomes the username.
func DecodeToken(token string) (User, error) {
	var c claims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &c); err != nil {
		return User{}, fmt.Errorf("malformed token: %w", err)
	}
	if c.Subject == "" {
		return User{}, errors.New("malformed token: no subject")
	}
	user := User{Username: c.Subject, Role: c.Role}
	if c.ExpiresAt != nil {
		user.ExpiresAt = c.ExpiresAt.Time
	}
	return user, nil
}

// Session is the signed-in state of one front-end user. It is safe for concurrent use.
type Session struct {
	mutex sync.RWMutex
	store TokenStore
	token string
	user  *User
	now   func() time.Time
}

// New returns a signed-out session which persists its token in store
func New(store TokenStore) *Session {
	return &Session{store: store, now: time.Now}
}

// Restore signs in with the persisted token, if there is one. An undecodable or expired
// token is removed from the store and the session stays signed out.
func (s *Session) Restore() error {
	token, err := s.store.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	user, err := DecodeToken(token)
	if err == nil && !user.ExpiresAt.IsZero() && !s.now().Before(user.ExpiresAt) {
		err = errors.New("token expired")
	}
	if err != nil {
		if clearErr := s.store.Clear(); clearErr != nil {
			return clearErr
		}
		return nil
	}
	s.set(token, &user)
	return nil
}

// SignIn persists the token and decodes the signed-in user from it
func (s *Session) SignIn(token string) error {
	user, err := DecodeToken(token)
	if err != nil {
		return err
	}
	if err := s.store.Save(token); err != nil {
		return err
	}
	s.set(token, &user)
	return nil
}

// SignOut removes the persisted token and clears the user
func (s *Session) SignOut() error {
	s.set("", nil)
	return s.store.Clear()
}

// User returns the signed-in user or nil
func (s *Session) User() *User {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.user
}

// Token returns the bearer token, or an empty string when signed out
func (s *Session) Token() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.token
}

// SignedIn returns true if there is a signed-in user
func (s *Session) SignedIn() bool {
	return s.User() != nil
}

func (s *Session) set(token string, user *User) {
	s.mutex.Lock()
	s.token = token
	s.user = user
	s.mutex.Unlock()
}

package access

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/core/registry"
	"github.com/relabs-tech/ticketportal/core/store"
	"github.com/relabs-tech/ticketportal/core/ticket"
)

// TokenLifetime is the validity of an issued token
const TokenLifetime = 7 * 24 * time.Hour

// TokenCookieName is the cookie which may carry the bearer token instead of the Authorization header
const TokenCookieName = "Ticketportal-JWT"

// secretLength is the number of random bytes of a generated signing secret
const secretLength = 64

// Claims are the claims of a ticket portal token. The subject is the username.
type Claims struct {
	Role ticket.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies HS256 signed tokens
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenIssuer returns an issuer for the signing secret
func NewTokenIssuer(secret []byte) *TokenIssuer {
	return &TokenIssuer{secret: secret, lifetime: TokenLifetime, now: time.Now}
}

// Issue returns a signed token for the user
func (ti *TokenIssuer) Issue(username string, role ticket.Role) (string, error) {
	now := ti.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.lifetime)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("cannot sign token: %w", err)
	}
	return token, nil
}

// Verify checks signature and expiry of the token and returns its claims. Tokens
// without expiry are rejected.
func (ti *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := &jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("invalid token: no expiry")
	}
	return claims, nil
}

// DecodeSecret decodes a base64 encoded signing secret
func DecodeSecret(encoded string) ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("signing secret is not base64: %w", err)
	}
	if len(secret) == 0 {
		return nil, errors.New("signing secret is empty")
	}
	return secret, nil
}

// GenerateSecret returns a new random signing secret
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, secretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("cannot generate signing secret: %w", err)
	}
	return secret, nil
}

// LoadOrCreateSecret reads the signing secret from the registry. If there is none yet, a new
// secret is generated and written, so that tokens remain valid across restarts.
func LoadOrCreateSecret(accessor registry.Accessor) ([]byte, error) {
	var encoded string
	timestamp, err := accessor.Read("secret", &encoded)
	if err != nil {
		return nil, err
	}
	if !timestamp.IsZero() {
		return DecodeSecret(encoded)
	}
	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}
	logger.Default().Infoln("generated new token signing secret")
	if err := accessor.Write("secret", base64.StdEncoding.EncodeToString(secret)); err != nil {
		return nil, fmt.Errorf("cannot persist signing secret: %w", err)
	}
	return secret, nil
}

// JwtMiddlewareBuilder is a helper builder for NewJwtMiddleware
type JwtMiddlewareBuilder struct {
	// Issuer verifies the tokens
	Issuer *TokenIssuer
	// Users is used to look up the role of a token's subject
	Users store.Users
	// Cache is optional, a new cache is created if it is nil
	Cache *AuthorizationCache
}

// bearerToken returns the token from the Authorization header or the token cookie
func bearerToken(r *http.Request) string {
	bearer := r.Header.Get("Authorization")
	if len(bearer) > 0 && bearer != "null" {
		if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
			return bearer[7:]
		}
		return bearer
	}
	if cookie, _ := r.Cookie(TokenCookieName); cookie != nil {
		return cookie.Value
	}
	return ""
}

// NewJwtMiddleware returns a middleware handler to validate JWT bearer tokens.
//
// Tokens are accepted as "Authorization: Bearer" header or as Ticketportal-JWT cookie.
//
// A valid token of an existing user adds an Authorization to the request context. The role is
// taken from the user record, not from the token. Requests with missing or invalid tokens, or
// tokens of users which no longer exist, pass through unauthenticated.
func NewJwtMiddleware(jmb *JwtMiddlewareBuilder) mux.MiddlewareFunc {
	authCache := jmb.Cache
	if authCache == nil {
		authCache = NewAuthorizationCache()
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AuthorizationFromContext(r.Context()) != nil { // already authorized?
				h.ServeHTTP(w, r)
				return
			}

			tokenString := bearerToken(r)
			if len(tokenString) == 0 {
				h.ServeHTTP(w, r) // no token no auth, moving on
				return
			}
			rlog := logger.FromContext(r.Context())

			auth := authCache.Read(tokenString)
			if auth == nil {
				claims, err := jmb.Issuer.Verify(tokenString)
				if err != nil {
					rlog.WithError(err).Debugln("ignoring bearer token")
					h.ServeHTTP(w, r)
					return
				}
				user, err := jmb.Users.FindUser(r.Context(), claims.Subject)
				if errors.Is(err, store.ErrNotFound) {
					rlog.Debugf("ignoring bearer token of unknown user %s", claims.Subject)
					h.ServeHTTP(w, r)
					return
				}
				if err != nil {
					rlog.WithError(err).Errorf("Error 4723: cannot look up user %s", claims.Subject)
					http.Error(w, "Error 4723", http.StatusInternalServerError)
					return
				}
				auth = &Authorization{Username: user.Username, Role: user.Role}
				authCache.Write(tokenString, auth, claims.ExpiresAt.Time)
			}

			ctx, _ := logger.ContextWithLoggerIdentity(r.Context(), auth.Username)
			ctx = auth.ContextWithAuthorization(ctx)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

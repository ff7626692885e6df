package access

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/relabs-tech/ticketportal/core/store"
	"github.com/relabs-tech/ticketportal/core/ticket"
)

func init() {
	PasswordCost = bcrypt.MinCost
}

func TestAuthorization_Roles(t *testing.T) {
	var auth *Authorization
	assert.False(t, auth.HasRole(ticket.RoleClient))
	assert.False(t, auth.IsAuthenticated())
	assert.Equal(t, ticket.Actor{}, auth.Actor())

	auth = &Authorization{Username: "agent007", Role: ticket.RoleAgent}
	assert.True(t, auth.HasRole(ticket.RoleAgent))
	assert.False(t, auth.HasRole(ticket.RoleClient))
	assert.True(t, auth.IsAuthenticated())
	assert.Equal(t, ticket.Actor{Username: "agent007", Role: ticket.RoleAgent}, auth.Actor())

	ctx := auth.ContextWithAuthorization(context.Background())
	assert.Equal(t, auth, AuthorizationFromContext(ctx))
	assert.Nil(t, AuthorizationFromContext(context.Background()))
}

func TestAuthorizationCache(t *testing.T) {
	now := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewAuthorizationCache()
	cache.now = func() time.Time { return now }

	auth := &Authorization{Username: "noobMaster", Role: ticket.RoleClient}
	cache.Write("token", auth, now.Add(time.Hour))
	assert.Equal(t, auth, cache.Read("token"))
	assert.Nil(t, cache.Read("other"))

	now = now.Add(2 * time.Hour)
	assert.Nil(t, cache.Read("token"), "expired")
	assert.Equal(t, 1, cache.Len())
}

func TestTokenIssuer(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	issuer := NewTokenIssuer(secret)

	token, err := issuer.Issue("noobMaster", ticket.RoleClient)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "noobMaster", claims.Subject)
	assert.Equal(t, ticket.RoleClient, claims.Role)
	assert.Equal(t, TokenLifetime, claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time))

	other, err := GenerateSecret()
	require.NoError(t, err)
	_, err = NewTokenIssuer(other).Verify(token)
	assert.Error(t, err, "wrong secret")

	_, err = issuer.Verify("not.a.token")
	assert.Error(t, err)

	expired := NewTokenIssuer(secret)
	expired.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	token, err = expired.Issue("noobMaster", ticket.RoleClient)
	require.NoError(t, err)
	_, err = issuer.Verify(token)
	assert.Error(t, err, "expired")

	forever, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "noobMaster", "role": "CLIENT"}).SignedString(secret)
	require.NoError(t, err)
	_, err = issuer.Verify(forever)
	assert.EqualError(t, err, "invalid token: no expiry")
}

func TestDecodeSecret(t *testing.T) {
	secret, err := DecodeSecret(" c2VjcmV0 ")
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), secret)

	_, err = DecodeSecret("***")
	assert.Error(t, err)
	_, err = DecodeSecret("")
	assert.Error(t, err)
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()

	accounts, err := ParseAccounts("noobMaster:CLIENT:pass:word, agent007:AGENT:secret,")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, Account{Username: "noobMaster", Role: ticket.RoleClient, Password: "pass:word"}, accounts[0])
	assert.Equal(t, ticket.RoleAgent, accounts[1].Role)

	_, err = ParseAccounts("noobMaster:ADMIN:secret")
	assert.Error(t, err)
	_, err = ParseAccounts("noob:CLIENT:secret")
	assert.Error(t, err, "username too short")
	_, err = ParseAccounts("noobMaster:CLIENT")
	assert.Error(t, err)

	users := store.NewMemory()
	require.NoError(t, EnsureAccounts(ctx, users, accounts...))
	// a second run leaves existing accounts alone
	require.NoError(t, EnsureAccounts(ctx, users, Account{Username: "noobMaster", Role: ticket.RoleAgent, Password: "changed"}))

	user, err := Authenticate(ctx, users, "noobMaster", "pass:word")
	require.NoError(t, err)
	assert.Equal(t, ticket.RoleClient, user.Role)

	_, err = Authenticate(ctx, users, "noobMaster", "changed")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = Authenticate(ctx, users, "nobodyAtAll", "secret")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestJwtMiddleware(t *testing.T) {
	ctx := context.Background()
	users := store.NewMemory()
	require.NoError(t, EnsureAccounts(ctx, users,
		Account{Username: "noobMaster", Role: ticket.RoleClient, Password: "secret"}))

	secret, err := GenerateSecret()
	require.NoError(t, err)
	issuer := NewTokenIssuer(secret)
	cache := NewAuthorizationCache()

	router := mux.NewRouter()
	router.Use(NewJwtMiddleware(&JwtMiddlewareBuilder{Issuer: issuer, Users: users, Cache: cache}))
	HandleAuthorizationRoute(router)

	get := func(header, cookie string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/authorization", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if cookie != "" {
			r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: cookie})
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, get("", "").Code)
	assert.Equal(t, http.StatusNoContent, get("Bearer garbage", "").Code, "invalid tokens are ignored")

	token, err := issuer.Issue("noobMaster", ticket.RoleAgent)
	require.NoError(t, err)

	rec := get("Bearer "+token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var auth Authorization
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	assert.Equal(t, Authorization{Username: "noobMaster", Role: ticket.RoleClient}, auth, "role comes from the user record")
	assert.Equal(t, 1, cache.Len())

	assert.Equal(t, http.StatusOK, get("", token).Code)

	ghost, err := issuer.Issue("ghostUser", ticket.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, get("Bearer "+ghost, "").Code, "unknown users are not authenticated")

	forever, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "noobMaster", "role": "CLIENT"}).SignedString(secret)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, get("Bearer "+forever, "").Code, "tokens without expiry are not authenticated")
	assert.Equal(t, 1, cache.Len())
}

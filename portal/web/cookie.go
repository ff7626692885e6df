package web

import (
	"net/http"

	"github.com/relabs-tech/ticketportal/core/access"
)

// cookieStore keeps the bearer token of one browser in an http-only cookie.
// It is created per request; a token saved or cleared during the request
// shadows the cookie the browser sent.
type cookieStore struct {
	r       *http.Request
	w       http.ResponseWriter
	secure  bool
	written bool
	token   string
}

func newCookieStore(w http.ResponseWriter, r *http.Request, secure bool) *cookieStore {
	return &cookieStore{r: r, w: w, secure: secure}
}

func (c *cookieStore) Load() (string, error) {
	if c.written {
		return c.token, nil
	}
	cookie, err := c.r.Cookie(access.TokenCookieName)
	if err != nil {
		return "", nil
	}
	return cookie.Value, nil
}

func (c *cookieStore) Save(token string) error {
	c.written, c.token = true, token
	http.SetCookie(c.w, c.cookie(token, int(access.TokenLifetime.Seconds())))
	return nil
}

func (c *cookieStore) Clear() error {
	c.written, c.token = true, ""
	http.SetCookie(c.w, c.cookie("", -1))
	return nil
}

func (c *cookieStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     access.TokenCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

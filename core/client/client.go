// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package client provides easy access to the ticket portal REST api

The client talks either directly to the mux router, without marshalling HTTP,
or to a remote service by URL. The in-process flavour is the tool of choice for
unit tests; the portal front-ends use the URL flavour.

Every non-success response is returned as *StatusError, whose message is the
text the server wrote into the response body.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/ticketportal/core/access"
	"github.com/relabs-tech/ticketportal/core/ticket"
)

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string
	auth       *access.Authorization
	ctx        context.Context
}

// StatusError is returned for responses with an unexpected status code
type StatusError struct {
	Status  int
	Message string
}

// Error returns the server's message, or the status text if the server did not send one
func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
//
// WithAuthorization() adds an authorization to the request context.
// WithContext() specifies a different base context all together.
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router: router,
	}
}

// NewWithURL creates a client to make REST requests to the backend
//
// WithToken adds an authorization token to the request header.
func NewWithURL(url string) Client {
	return Client{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// WithToken returns a new client which sends the bearer token with every request
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// Token returns the bearer token of the client
func (c Client) Token() string {
	return c.token
}

// WithAuthorization returns a new client with specific authorizations
// (this works only directly against the mux router, for a normal client
//
//	use WithToken())
func (c Client) WithAuthorization(auth *access.Authorization) Client {
	c.auth = auth
	return c
}

// WithContext returns a new client with specific request context
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the request context of the client
func (c Client) Context() context.Context {
	ctx := c.ctx
	if c.ctx == nil {
		ctx = context.Background()
	}
	if c.auth != nil {
		ctx = c.auth.ContextWithAuthorization(ctx)
	}
	return ctx
}

// do executes a request. body can also be a []byte, result can also be raw *[]byte.
// result can be nil. A status not in accepted results in a *StatusError.
func (c Client) do(method, path string, body interface{}, result interface{}, accepted ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		j, ok := body.([]byte)
		if !ok {
			var err error
			j, err = json.Marshal(body)
			if err != nil {
				return http.StatusBadRequest, err
			}
		}
		reader = bytes.NewReader(j)
	}

	r, err := http.NewRequestWithContext(c.Context(), method, c.url+path, reader)
	if err != nil {
		return http.StatusBadRequest, err
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}

	var (
		status  int
		resBody []byte
	)
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		status = rec.Code
		resBody = rec.Body.Bytes()
	} else {
		res, err := c.httpClient.Do(r)
		if err != nil {
			return http.StatusInternalServerError, err
		}
		defer res.Body.Close()
		status = res.StatusCode
		resBody, _ = io.ReadAll(res.Body)
	}

	ok := false
	for _, a := range accepted {
		ok = ok || status == a
	}
	if !ok {
		return status, &StatusError{Status: status, Message: strings.TrimSpace(string(resBody))}
	}

	if len(resBody) > 0 && result != nil && status != http.StatusNoContent {
		if raw, ok := result.(*[]byte); ok {
			*raw = resBody
		} else if err := json.Unmarshal(resBody, result); err != nil {
			return status, fmt.Errorf("cannot decode response of %s %s: %w", method, path, err)
		}
	}
	return status, nil
}

// RawGet fetches the resource at path.
//
// Expects http.StatusOK or http.StatusNoContent as valid responses, otherwise it
// will flag an error. Returns the actual http status code.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	return c.do(http.MethodGet, path, nil, result, http.StatusOK, http.StatusNoContent)
}

// RawPost posts body to path.
//
// Expects http.StatusOK or http.StatusCreated as valid responses, otherwise it
// will flag an error. Returns the actual http status code.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	return c.do(http.MethodPost, path, body, result, http.StatusOK, http.StatusCreated)
}

// RawPut puts body to path.
//
// Expects http.StatusOK or http.StatusNoContent as valid responses, otherwise it
// will flag an error. Returns the actual http status code.
func (c Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	return c.do(http.MethodPut, path, body, result, http.StatusOK, http.StatusNoContent)
}

// RawDelete deletes the resource at path. The server may answer with the deleted
// resource (http.StatusOK) or without it (http.StatusNoContent).
func (c Client) RawDelete(path string, result interface{}) (int, error) {
	return c.do(http.MethodDelete, path, nil, result, http.StatusOK, http.StatusNoContent)
}

// Credentials is the request body of POST /authenticate
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the response body of POST /authenticate
type TokenResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges username and password for a bearer token
func (c Client) Authenticate(username, password string) (string, error) {
	var response TokenResponse
	if _, err := c.RawPost("/authenticate", Credentials{Username: username, Password: password}, &response); err != nil {
		return "", err
	}
	return response.Token, nil
}

// Authorization returns the authorization the server derives from the client's token,
// or nil if the client is not authenticated
func (c Client) Authorization() (*access.Authorization, error) {
	var auth access.Authorization
	status, err := c.RawGet("/authorization", &auth)
	if err != nil || status == http.StatusNoContent {
		return nil, err
	}
	return &auth, nil
}

// Version returns the version of the service
func (c Client) Version() (string, error) {
	var response struct {
		Version string `json:"version"`
	}
	_, err := c.RawGet("/version", &response)
	return response.Version, err
}

// ListTickets returns all tickets which match the filter, ordered by id
func (c Client) ListTickets(filter ticket.Filter) ([]ticket.Ticket, error) {
	path := "/tickets"
	if query := filter.Values().Encode(); query != "" {
		path += "?" + query
	}
	tickets := []ticket.Ticket{}
	_, err := c.RawGet(path, &tickets)
	return tickets, err
}

// GetTicket returns a single ticket
func (c Client) GetTicket(id int64) (ticket.Ticket, error) {
	var t ticket.Ticket
	_, err := c.RawGet(ticketPath(id), &t)
	return t, err
}

// CreateTicket creates a ticket and returns it as stored by the server
func (c Client) CreateTicket(input ticket.CreateInput) (ticket.Ticket, error) {
	var t ticket.Ticket
	_, err := c.RawPost("/tickets", input, &t)
	return t, err
}

// UpdateTicket replaces all editable fields of a ticket and returns the result
func (c Client) UpdateTicket(id int64, input ticket.UpdateInput) (ticket.Ticket, error) {
	var t ticket.Ticket
	_, err := c.RawPut(ticketPath(id), input, &t)
	return t, err
}

// DeleteTicket deletes a ticket. The returned ticket is empty if the server did not send it.
func (c Client) DeleteTicket(id int64) (ticket.Ticket, error) {
	var t ticket.Ticket
	_, err := c.RawDelete(ticketPath(id), &t)
	return t, err
}

func ticketPath(id int64) string {
	return fmt.Sprintf("/tickets/%d", id)
}

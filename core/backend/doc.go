/*
Package backend implements the REST backend of the ticket portal

The backend serves the following routes:

	POST   /authenticate     exchange username and password for a bearer token
	GET    /authorization    the authorization of the current bearer token
	GET    /version          the version of the service
	GET    /tickets          all tickets, ordered by id
	POST   /tickets          create a ticket (clients only)
	GET    /tickets/{id}     a single ticket
	PUT    /tickets/{id}     update a ticket
	DELETE /tickets/{id}     delete a ticket (author only)

GET /tickets accepts the optional query parameters status, category, priority
and search, which narrow the result the same way the portal filters its list.

Request bodies are validated against JSON schemas before any policy is applied.
A violation is answered with http.StatusUnprocessableEntity and one
"property: message" line per violation. Policy violations are answered with
http.StatusForbidden, missing authentication with http.StatusUnauthorized.

Status rules

Clients cannot move tickets to IN_PROGRESS or RESOLVED, agents cannot close
tickets. Title, description, category and priority can only be changed by
the author. Only the author can delete a ticket. An agent assigned to a
ticket must be an existing user with role AGENT.

Notifications

If a notifier is configured, the backend emits a core.Event after every
successful create, update and delete. Notification failures are logged and
do not fail the request.

Usage

	router := mux.NewRouter()
	b := backend.New(&backend.Builder{
		Router: router,
		Store:  store.NewMemory(),
		Issuer: access.NewTokenIssuer(secret),
	})
	b.EnsureUsers(ctx, accounts...)
*/
package backend

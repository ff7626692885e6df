// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package backend

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/ticketportal/core"
	"github.com/relabs-tech/ticketportal/core/access"
	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/core/schema"
	"github.com/relabs-tech/ticketportal/core/store"
	"github.com/relabs-tech/ticketportal/core/ticket"
)

// TotalCountHeader is the response header of GET /tickets which carries the unfiltered number of tickets
const TotalCountHeader = "Ticketportal-Total-Count"

func (b *Backend) handleTickets(router *mux.Router) {
	rlog := logger.Default()
	rlog.Debugln("  handle route: /tickets GET")
	router.HandleFunc("/tickets", b.listTickets).Methods(http.MethodOptions, http.MethodGet)
	rlog.Debugln("  handle route: /tickets POST")
	router.HandleFunc("/tickets", b.createTicket).Methods(http.MethodOptions, http.MethodPost)
	rlog.Debugln("  handle route: /tickets/{id} GET")
	router.HandleFunc("/tickets/{id}", b.getTicket).Methods(http.MethodOptions, http.MethodGet)
	rlog.Debugln("  handle route: /tickets/{id} PUT")
	router.HandleFunc("/tickets/{id}", b.updateTicket).Methods(http.MethodOptions, http.MethodPut)
	rlog.Debugln("  handle route: /tickets/{id} DELETE")
	router.HandleFunc("/tickets/{id}", b.deleteTicket).Methods(http.MethodOptions, http.MethodDelete)
}

// readValidBody reads the request body and validates it against the schema. On failure the
// response has been written and ok is false.
func (b *Backend) readValidBody(w http.ResponseWriter, r *http.Request, schemaID string) (body []byte, ok bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "cannot read request body", http.StatusBadRequest)
		return nil, false
	}
	err = b.validator.ValidateBytes(body, schemaID)
	var validationError *schema.ValidationError
	if errors.As(err, &validationError) {
		http.Error(w, validationError.Error(), http.StatusUnprocessableEntity)
		return nil, false
	}
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Debugln("invalid request body")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// ticketID parses the id route variable. On failure the response has been written.
func ticketID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid ticket id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// findTicket loads the ticket of the id route variable. On failure the response has been written.
func (b *Backend) findTicket(w http.ResponseWriter, r *http.Request) (ticket.Ticket, bool) {
	id, ok := ticketID(w, r)
	if !ok {
		return ticket.Ticket{}, false
	}
	current, err := b.store.FindTicket(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no such ticket", http.StatusNotFound)
		return ticket.Ticket{}, false
	}
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorf("Error 4727: cannot find ticket %d", id)
		http.Error(w, "Error 4727", http.StatusInternalServerError)
		return ticket.Ticket{}, false
	}
	return current, true
}

func (b *Backend) listTickets(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	rlog.Debugln("called route for", r.URL, r.Method)

	tickets, err := b.store.ListTickets(r.Context())
	if err != nil {
		rlog.WithError(err).Errorf("Error 4721: cannot list tickets")
		http.Error(w, "Error 4721", http.StatusInternalServerError)
		return
	}
	totalCount := len(tickets)
	tickets = ticket.FilterFromValues(r.URL.Query()).Apply(tickets)

	jsonData, ok := marshalResponse(w, r, tickets)
	if !ok {
		return
	}
	etag := bytesPlusTotalCountToEtag(jsonData, totalCount)
	w.Header().Set("Etag", etag)
	w.Header().Set(TotalCountHeader, strconv.Itoa(totalCount))
	if ifNoneMatchFound(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(jsonData)
}

func (b *Backend) getTicket(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method)
	current, ok := b.findTicket(w, r)
	if !ok {
		return
	}
	jsonData, ok := marshalResponse(w, r, current)
	if !ok {
		return
	}
	etag := bytesToEtag(jsonData)
	w.Header().Set("Etag", etag)
	if ifNoneMatchFound(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(jsonData)
}

func (b *Backend) createTicket(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	rlog.Infoln("called route for", r.URL, r.Method)

	auth := access.AuthorizationFromContext(r.Context())
	if !auth.IsAuthenticated() {
		http.Error(w, "not authorized", http.StatusUnauthorized)
		return
	}
	if !ticket.CanCreate(auth.Role) {
		http.Error(w, "only clients can create tickets", http.StatusForbidden)
		return
	}

	body, ok := b.readValidBody(w, r, schemaCreateTicket)
	if !ok {
		return
	}
	var input ticket.CreateInput
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	_, err := b.store.FindUser(r.Context(), auth.Username)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "author: unknown username", http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		rlog.WithError(err).Errorf("Error 4728: cannot find user %s", auth.Username)
		http.Error(w, "Error 4728", http.StatusInternalServerError)
		return
	}

	created, err := b.store.CreateTicket(r.Context(), ticket.New(input, auth.Username))
	if err != nil {
		rlog.WithError(err).Errorf("Error 4740: cannot create ticket")
		http.Error(w, "Error 4740", http.StatusInternalServerError)
		return
	}
	rlog.Infof("created ticket %d", created.ID)
	b.notify(r.Context(), core.Event{Operation: core.OperationCreate, Ticket: created, Actor: auth.Username})
	writeJSON(w, r, http.StatusOK, created)
}

func (b *Backend) updateTicket(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	rlog.Infoln("called route for", r.URL, r.Method)

	auth := access.AuthorizationFromContext(r.Context())
	if !auth.IsAuthenticated() {
		http.Error(w, "not authorized", http.StatusUnauthorized)
		return
	}
	current, ok := b.findTicket(w, r)
	if !ok {
		return
	}

	body, ok := b.readValidBody(w, r, schemaUpdateTicket)
	if !ok {
		return
	}
	var input ticket.UpdateInput
	if err := json.Unmarshal(body, &input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if input.Agent != "" && input.Agent != current.Agent {
		agent, err := b.store.FindUser(r.Context(), input.Agent)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "agent: unknown username", http.StatusUnprocessableEntity)
			return
		}
		if err != nil {
			rlog.WithError(err).Errorf("Error 4729: cannot find user %s", input.Agent)
			http.Error(w, "Error 4729", http.StatusInternalServerError)
			return
		}
		if agent.Role != ticket.RoleAgent {
			http.Error(w, "agent: user is not an agent", http.StatusUnprocessableEntity)
			return
		}
	}

	if err := ticket.CheckUpdate(auth.Actor(), current, input); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	updated, err := b.store.UpdateTicket(r.Context(), current.Apply(input))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no such ticket", http.StatusNotFound)
		return
	}
	if err != nil {
		rlog.WithError(err).Errorf("Error 4741: cannot update ticket %d", current.ID)
		http.Error(w, "Error 4741", http.StatusInternalServerError)
		return
	}
	rlog.Infof("updated ticket %d", updated.ID)
	b.notify(r.Context(), core.Event{Operation: core.OperationUpdate, Ticket: updated, Actor: auth.Username})
	writeJSON(w, r, http.StatusOK, updated)
}

func (b *Backend) deleteTicket(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	rlog.Infoln("called route for", r.URL, r.Method)

	auth := access.AuthorizationFromContext(r.Context())
	if !auth.IsAuthenticated() {
		http.Error(w, "not authorized", http.StatusUnauthorized)
		return
	}
	current, ok := b.findTicket(w, r)
	if !ok {
		return
	}
	if err := ticket.CheckDelete(auth.Actor(), current); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	deleted, err := b.store.DeleteTicket(r.Context(), current.ID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no such ticket", http.StatusNotFound)
		return
	}
	if err != nil {
		rlog.WithError(err).Errorf("Error 4742: cannot delete ticket %d", current.ID)
		http.Error(w, "Error 4742", http.StatusInternalServerError)
		return
	}
	rlog.Infof("deleted ticket %d", deleted.ID)
	b.notify(r.Context(), core.Event{Operation: core.OperationDelete, Ticket: deleted, Actor: auth.Username})
	writeJSON(w, r, http.StatusOK, deleted)
}

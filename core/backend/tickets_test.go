package backend

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/ticketportal/core"
	"github.com/relabs-tech/ticketportal/core/client"
	"github.com/relabs-tech/ticketportal/core/ticket"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var statusError *client.StatusError
	require.True(t, errors.As(err, &statusError), "expected a status error, got %v", err)
	return statusError.Status
}

func TestAuthenticate(t *testing.T) {
	token, err := testService.anonymous.Authenticate("agent007", testPassword)
	require.NoError(t, err)
	claims, err := testService.issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "agent007", claims.Subject)
	assert.Equal(t, ticket.RoleAgent, claims.Role)

	_, err = testService.anonymous.Authenticate("agent007", "wrong")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	_, err = testService.anonymous.Authenticate("nobodyAtAll", testPassword)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = testService.anonymous.RawPost("/authenticate", []byte(`{"username":"agent007"}`), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
}

func TestAuthorization(t *testing.T) {
	auth, err := testService.author.Authorization()
	require.NoError(t, err)
	require.NotNil(t, auth)
	assert.Equal(t, "noobMaster", auth.Username)
	assert.True(t, auth.HasRole(ticket.RoleClient))

	auth, err = testService.anonymous.Authorization()
	require.NoError(t, err)
	assert.Nil(t, auth)
}

func TestCreateTicket(t *testing.T) {
	created, err := testService.author.CreateTicket(ticket.CreateInput{
		Title:       "Cannot sign in",
		Description: "The login page shows an error",
		Category:    ticket.CategoryAccount,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, ticket.StatusOpen, created.Status)
	assert.Equal(t, ticket.PriorityMedium, created.Priority)
	assert.Equal(t, "noobMaster", created.Author)
	assert.Empty(t, created.Agent)
	assert.False(t, created.CreatedAt.IsZero())

	event := testService.notifier.last()
	assert.Equal(t, core.OperationCreate, event.Operation)
	assert.Equal(t, created.ID, event.Ticket.ID)
	assert.Equal(t, "noobMaster", event.Actor)

	fetched, err := testService.anonymous.GetTicket(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)
}

func TestCreateTicket_Rejected(t *testing.T) {
	input := ticket.CreateInput{Title: "Valid title", Category: ticket.CategoryBug}

	_, err := testService.anonymous.CreateTicket(input)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = testService.agent.CreateTicket(input)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = testService.author.CreateTicket(ticket.CreateInput{Title: "Bad", Category: ticket.CategoryBug})
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
	assert.True(t, strings.HasPrefix(err.Error(), "title: "), err.Error())

	_, err = testService.author.CreateTicket(ticket.CreateInput{
		Title: "Valid title", Description: strings.Repeat("x", ticket.DescriptionMaxLength+1), Category: ticket.CategoryBug})
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
	assert.Contains(t, err.Error(), "description: ")

	_, err = testService.author.RawPost("/tickets", []byte(`{"title":"Valid title","category":"FOOD"}`), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
	assert.Contains(t, err.Error(), "category: ")

	_, err = testService.author.RawPost("/tickets", []byte(`{"title":`), nil)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestGetTicket_Errors(t *testing.T) {
	_, err := testService.anonymous.GetTicket(999999)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = testService.anonymous.RawGet("/tickets/abc", nil)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestListTickets(t *testing.T) {
	created := createTestTicket(t, "Unique zebra problem")

	all, err := testService.anonymous.ListTickets(ticket.Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID, "ordered by id")
	}

	found, err := testService.anonymous.ListTickets(ticket.Filter{Search: "  ZEBRA "})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	found, err = testService.anonymous.ListTickets(ticket.Filter{Search: "zebra", Status: ticket.StatusClosed})
	require.NoError(t, err)
	assert.Empty(t, found)

	rec := httptest.NewRecorder()
	testService.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets?search=zebra", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, len(all), atoi(t, rec.Header().Get(TotalCountHeader)), "total count is unfiltered")
	etag := rec.Header().Get("Etag")
	require.NotEmpty(t, etag)

	r := httptest.NewRequest(http.MethodGet, "/tickets?search=zebra", nil)
	r.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	testService.router.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestUpdateTicket_Author(t *testing.T) {
	created := createTestTicket(t, "Printer on fire")

	input, err := created.UpdateInput().With(ticket.FieldPriority, "HIGH")
	require.NoError(t, err)
	updated, err := testService.author.UpdateTicket(created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, ticket.PriorityHigh, updated.Priority)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, core.OperationUpdate, testService.notifier.last().Operation)

	input, _ = updated.UpdateInput().With(ticket.FieldStatus, "CLOSED")
	updated, err = testService.author.UpdateTicket(created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusClosed, updated.Status)

	input, _ = updated.UpdateInput().With(ticket.FieldStatus, "RESOLVED")
	_, err = testService.author.UpdateTicket(created.ID, input)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	input, _ = updated.UpdateInput().With(ticket.FieldTitle, "Oops")
	_, err = testService.author.UpdateTicket(created.ID, input)
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
}

func TestUpdateTicket_Others(t *testing.T) {
	created := createTestTicket(t, "Coffee machine broken")

	input, _ := created.UpdateInput().With(ticket.FieldDescription, "hijacked")
	_, err := testService.client.UpdateTicket(created.ID, input)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	_, err = testService.agent.UpdateTicket(created.ID, input)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	_, err = testService.anonymous.UpdateTicket(created.ID, input)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	// the agent takes over the ticket
	input, _ = created.UpdateInput().With(ticket.FieldAgent, "agent007")
	input, _ = input.With(ticket.FieldStatus, "IN_PROGRESS")
	updated, err := testService.agent.UpdateTicket(created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "agent007", updated.Agent)
	assert.Equal(t, ticket.StatusInProgress, updated.Status)

	input, _ = updated.UpdateInput().With(ticket.FieldStatus, "CLOSED")
	_, err = testService.agent.UpdateTicket(created.ID, input)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	// the author cannot edit a ticket in progress, only close it
	input, _ = updated.UpdateInput().With(ticket.FieldDescription, "more details")
	_, err = testService.author.UpdateTicket(created.ID, input)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	input, _ = updated.UpdateInput().With(ticket.FieldAgent, "nobodyAtAll")
	_, err = testService.agent.UpdateTicket(created.ID, input)
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
	assert.Equal(t, "agent: unknown username", err.Error())

	input, _ = updated.UpdateInput().With(ticket.FieldAgent, "someClient")
	_, err = testService.agent.UpdateTicket(created.ID, input)
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))

	input, _ = updated.UpdateInput().With(ticket.FieldAgent, "")
	updated, err = testService.agent2.UpdateTicket(created.ID, input)
	require.NoError(t, err)
	assert.Empty(t, updated.Agent)

	_, err = testService.agent.UpdateTicket(999999, input)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	// a closed ticket cannot be reassigned, agents have to reopen it first
	input, _ = updated.UpdateInput().With(ticket.FieldStatus, "CLOSED")
	closed, err := testService.author.UpdateTicket(created.ID, input)
	require.NoError(t, err)
	input, _ = closed.UpdateInput().With(ticket.FieldAgent, "agent007")
	_, err = testService.agent.UpdateTicket(created.ID, input)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	input, _ = input.With(ticket.FieldStatus, "OPEN")
	reopened, err := testService.agent.UpdateTicket(created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusOpen, reopened.Status)
	assert.Equal(t, "agent007", reopened.Agent)
}

func TestDeleteTicket(t *testing.T) {
	created := createTestTicket(t, "Delete me please")

	_, err := testService.anonymous.DeleteTicket(created.ID)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	_, err = testService.agent.DeleteTicket(created.ID)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	_, err = testService.client.DeleteTicket(created.ID)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	deleted, err := testService.author.DeleteTicket(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, core.OperationDelete, testService.notifier.last().Operation)

	_, err = testService.author.DeleteTicket(created.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestCORS(t *testing.T) {
	rec := httptest.NewRecorder()
	testService.router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/tickets", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), TotalCountHeader)
}

func TestAllowedOrigin(t *testing.T) {
	assert.Equal(t, "*", allowedOrigin(nil, "https://portal.example.com"))
	origins := []string{"https://portal.example.com"}
	assert.Equal(t, "https://portal.example.com", allowedOrigin(origins, "https://Portal.example.com"))
	assert.Empty(t, allowedOrigin(origins, "https://evil.example.com"))
	assert.Equal(t, "https://any.example.com", allowedOrigin([]string{"*"}, "https://any.example.com"))

	router := mux.NewRouter()
	router.Use(corsMiddleware(origins))
	router.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {}).Methods(http.MethodGet)
	r := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCompression(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/tickets", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	testService.router.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestIfNoneMatchFound(t *testing.T) {
	assert.False(t, ifNoneMatchFound("", `"abc"`))
	assert.True(t, ifNoneMatchFound("*", `"abc"`))
	assert.True(t, ifNoneMatchFound(`"xyz", "abc"`, `"abc"`))
	assert.False(t, ifNoneMatchFound(`"xyz"`, `"abc"`))
	assert.NotEqual(t, bytesPlusTotalCountToEtag([]byte("[]"), 1), bytesPlusTotalCountToEtag([]byte("[]"), 2))
}

func TestMarshalResponse(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/tickets", nil)
	rec := httptest.NewRecorder()
	_, ok := marshalResponse(rec, r, make(chan int))
	assert.False(t, ok)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error 4701\n", rec.Body.String())

	rec = httptest.NewRecorder()
	data, ok := marshalResponse(rec, r, ticket.Ticket{ID: 7, Title: "Seven"})
	assert.True(t, ok)
	assert.Contains(t, string(data), `"id":7`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

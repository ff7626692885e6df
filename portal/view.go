package portal

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/relabs-tech/ticketportal/core/ticket"
)

// TicketsPath is the path of the ticket list
const TicketsPath = "/tickets"

// View is the state of the ticket list as encoded in a URL: the selected ticket
// in the path and the filter in the query. Query parameters the view does not
// know about are carried along on navigation.
type View struct {
	// SelectedID is the id of the selected ticket, or 0
	SelectedID int64
	Filter     ticket.Filter
	query      url.Values
}

// ParseView parses a view from a path ("/", "/tickets" or "/tickets/{id}") and a raw query
func ParseView(path, rawQuery string) (View, error) {
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return View{}, fmt.Errorf("invalid query: %w", err)
	}
	v := View{Filter: ticket.FilterFromValues(query), query: query}

	path = strings.TrimSuffix(path, "/")
	switch {
	case path == "" || path == TicketsPath:
	case strings.HasPrefix(path, TicketsPath+"/"):
		id, err := strconv.ParseInt(strings.TrimPrefix(path, TicketsPath+"/"), 10, 64)
		if err != nil || id <= 0 {
			return View{}, fmt.Errorf("invalid ticket path %s", path)
		}
		v.SelectedID = id
	default:
		return View{}, fmt.Errorf("unknown path %s", path)
	}
	return v, nil
}

// Query returns a copy of the view's query
func (v View) Query() url.Values {
	query := url.Values{}
	for key, values := range v.query {
		query[key] = append([]string{}, values...)
	}
	return query
}

// Visible returns the tickets which pass the filter, in the given order
func (v View) Visible(tickets []ticket.Ticket) []ticket.Ticket {
	return v.Filter.Apply(tickets)
}

// Selected returns the selected ticket. The selection does not need to pass the filter.
func (v View) Selected(tickets []ticket.Ticket) (ticket.Ticket, bool) {
	if v.SelectedID == 0 {
		return ticket.Ticket{}, false
	}
	for _, t := range tickets {
		if t.ID == v.SelectedID {
			return t, true
		}
	}
	return ticket.Ticket{}, false
}

// FilterURL returns the URL of the view with a new filter. The selection is kept.
func (v View) FilterURL(filter ticket.Filter) string {
	query := v.Query()
	filter.SetValues(query)
	path := TicketsPath
	if v.SelectedID != 0 {
		path = TicketPath(v.SelectedID)
	}
	return withQuery(path, query)
}

// RowURL returns the URL which selects the ticket with the given id
func (v View) RowURL(id int64) string {
	return withQuery(TicketPath(id), v.Query())
}

// CloseURL returns the URL of the view without a selection
func (v View) CloseURL() string {
	return withQuery(TicketsPath, v.Query())
}

// URL returns the URL of the view itself
func (v View) URL() string {
	if v.SelectedID != 0 {
		return v.RowURL(v.SelectedID)
	}
	return v.CloseURL()
}

// WithParameter returns the URL of the view with one extra query parameter, or
// without it if value is empty
func (v View) WithParameter(key, value string) string {
	query := v.Query()
	query.Del(key)
	if value != "" {
		query.Set(key, value)
	}
	path := TicketsPath
	if v.SelectedID != 0 {
		path = TicketPath(v.SelectedID)
	}
	return withQuery(path, query)
}

// TicketPath returns the path of a single ticket
func TicketPath(id int64) string {
	return TicketsPath + "/" + strconv.FormatInt(id, 10)
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

/*
Package web is the server-rendered front-end of the ticket portal.

Every page is rendered from the URL alone: the path selects a ticket, the
query carries the filter and the "modal" parameter opens one of the modals.
Forms post to the routes below and redirect back to the page they came from
on success. On failure the page is rendered again with the error shown in
the form or as an alert.

	GET  /                         the ticket list
	GET  /tickets                  the ticket list
	GET  /tickets/{id}             the ticket list with a selected ticket
	POST /filter                   apply the filter form, keeps the selection
	POST /signin                   sign in, sets the token cookie
	POST /signout                  sign out, removes the token cookie
	POST /tickets                  create a ticket
	POST /tickets/{id}/update      change one field of a ticket
	POST /tickets/{id}/delete      delete a ticket
	GET  /static/...               style sheet

All forms carry a hidden "return" field with the page to go back to.
*/
package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/ticketportal/core/client"
	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/core/ticket"
	"github.com/relabs-tech/ticketportal/portal"
	"github.com/relabs-tech/ticketportal/portal/session"
)

//go:embed templates static
var content embed.FS

// ModalParameter is the query parameter which opens a modal
const ModalParameter = "modal"

// Web is the web front-end
type Web struct {
	router    *mux.Router
	client    client.Client
	secure    bool
	templates *template.Template
}

// Builder is a builder helper for the Web front-end
type Builder struct {
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Client talks to the ticket service. This is mandatory.
	Client *client.Client
	// SecureCookies marks the token cookie as https only
	SecureCookies bool
}

// New realizes the web front-end and adds all routes to the router
func New(wb *Builder) *Web {
	if wb.Router == nil {
		panic("Router is missing")
	}
	if wb.Client == nil {
		panic("Client is missing")
	}

	templates := template.Must(template.New("").Funcs(funcs).ParseFS(content, "templates/*.html"))
	w := &Web{
		router:    wb.Router,
		client:    *wb.Client,
		secure:    wb.SecureCookies,
		templates: templates,
	}

	logger.AddRequestID(w.router)
	w.router.Use(handlers.CompressHandler)

	static, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	w.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static)))).Methods(http.MethodGet)
	w.router.HandleFunc("/", w.handlePage).Methods(http.MethodGet)
	w.router.HandleFunc("/tickets", w.handlePage).Methods(http.MethodGet)
	w.router.HandleFunc("/tickets/{id}", w.handlePage).Methods(http.MethodGet)
	w.router.HandleFunc("/filter", w.handleFilter).Methods(http.MethodPost)
	w.router.HandleFunc("/signin", w.handleSignIn).Methods(http.MethodPost)
	w.router.HandleFunc("/signout", w.handleSignOut).Methods(http.MethodPost)
	w.router.HandleFunc("/tickets", w.handleCreate).Methods(http.MethodPost)
	w.router.HandleFunc("/tickets/{id}/update", w.handleUpdate).Methods(http.MethodPost)
	w.router.HandleFunc("/tickets/{id}/delete", w.handleDelete).Methods(http.MethodPost)
	return w
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	"lower": func(s interface{}) string {
		switch v := s.(type) {
		case ticket.Status:
			return strings.ToLower(string(v))
		case ticket.Category:
			return strings.ToLower(string(v))
		case ticket.Priority:
			return strings.ToLower(string(v))
		case string:
			return strings.ToLower(v)
		}
		return ""
	},
	"editable": func(ret string, id int64, field string, options []portal.Option) editable {
		return editable{Return: ret, ID: id, Field: field, Options: options}
	},
	"dots": func(p ticket.Priority) []bool {
		dots := make([]bool, len(ticket.Priorities()))
		for i := range dots {
			dots[i] = i < p.Level()
		}
		return dots
	},
}

// app returns a portal controller with the restored session of the browser
func (w *Web) app(rw http.ResponseWriter, r *http.Request) *portal.App {
	s := session.New(newCookieStore(rw, r, w.secure))
	if err := s.Restore(); err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorln("Error 4780: cannot restore session")
	}
	return portal.New(&portal.Builder{Connect: portal.ClientConnector(w.client), Session: s})
}

// returnView parses the page a form came from. Anything but a local path falls back to
// the ticket list.
func returnView(r *http.Request) portal.View {
	target := r.PostFormValue("return")
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		target = portal.TicketsPath
	}
	path, rawQuery := target, ""
	if i := strings.Index(target, "?"); i >= 0 {
		path, rawQuery = target[:i], target[i+1:]
	}
	v, err := portal.ParseView(path, rawQuery)
	if err != nil {
		v, _ = portal.ParseView(portal.TicketsPath, "")
	}
	return v
}

func redirect(rw http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(rw, r, target, http.StatusSeeOther)
}

func (w *Web) handlePage(rw http.ResponseWriter, r *http.Request) {
	view, err := portal.ParseView(r.URL.Path, r.URL.RawQuery)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}
	app := w.app(rw, r)
	app.Load(r.Context())
	if kind, err := portal.ParseModalKind(view.Query().Get(ModalParameter)); err == nil {
		app.Modals().Open(kind, view.SelectedID)
	}
	w.render(rw, r, http.StatusOK, app, view, nil)
}

func (w *Web) handleFilter(rw http.ResponseWriter, r *http.Request) {
	view := returnView(r)
	filter := ticket.FilterFromValues(r.PostForm)
	filter.Search = strings.TrimSpace(filter.Search)
	redirect(rw, r, view.FilterURL(filter))
}

func (w *Web) handleSignIn(rw http.ResponseWriter, r *http.Request) {
	view := returnView(r)
	app := w.app(rw, r)
	form := portal.SignInFormFromValues(r.PostForm)
	if err := app.SignIn(r.Context(), form); err != nil {
		form.Error = err.Error()
		app.ClearAlert()
		app.Load(r.Context())
		app.Modals().Open(portal.ModalSignIn, 0)
		w.render(rw, r, http.StatusUnauthorized, app, view, func(p *page) { p.SignIn = form })
		return
	}
	redirect(rw, r, view.WithParameter(ModalParameter, ""))
}

func (w *Web) handleSignOut(rw http.ResponseWriter, r *http.Request) {
	view := returnView(r)
	app := w.app(rw, r)
	app.SignOut(r.Context())
	redirect(rw, r, view.WithParameter(ModalParameter, ""))
}

func (w *Web) handleCreate(rw http.ResponseWriter, r *http.Request) {
	view := returnView(r)
	app := w.app(rw, r)
	form := portal.CreateTicketFormFromValues(r.PostForm)
	if _, err := app.CreateTicket(r.Context(), form); err != nil {
		form.Error = err.Error()
		app.ClearAlert()
		app.Load(r.Context())
		app.Modals().Open(portal.ModalCreateTicket, 0)
		w.render(rw, r, http.StatusUnprocessableEntity, app, view, func(p *page) { p.Create = form })
		return
	}
	redirect(rw, r, view.WithParameter(ModalParameter, ""))
}

func ticketID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func (w *Web) handleUpdate(rw http.ResponseWriter, r *http.Request) {
	view := returnView(r)
	app := w.app(rw, r)
	field, err := ticket.ParseField(r.PostFormValue("field"))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	if app.Load(r.Context()) == nil {
		app.UpdateField(r.Context(), ticketID(r), field, r.PostFormValue("value"))
	}
	if app.Alert() != "" {
		w.render(rw, r, http.StatusUnprocessableEntity, app, view, nil)
		return
	}
	redirect(rw, r, view.URL())
}

func (w *Web) handleDelete(rw http.ResponseWriter, r *http.Request) {
	view := returnView(r)
	app := w.app(rw, r)
	if app.Load(r.Context()) == nil {
		app.DeleteTicket(r.Context(), ticketID(r))
	}
	if app.Alert() != "" {
		w.render(rw, r, http.StatusUnprocessableEntity, app, view, nil)
		return
	}
	view.SelectedID = 0
	redirect(rw, r, view.WithParameter(ModalParameter, ""))
}

// editable is the data of an inline select which changes one field
type editable struct {
	Return  string
	ID      int64
	Field   string
	Options []portal.Option
}

// detail is the selected ticket with everything the user may change about it
type detail struct {
	Ticket             ticket.Ticket
	CanDelete          bool
	CanEditDescription bool
	StatusOptions      []portal.Option
	CategoryOptions    []portal.Option
	PriorityOptions    []portal.Option
	AgentOptions       []portal.Option
}

type filterOptions struct {
	Statuses   []portal.Option
	Categories []portal.Option
	Priorities []portal.Option
}

type page struct {
	User      *session.User
	CanCreate bool
	View      portal.View
	// Here is the current page without a modal, forms return to it
	Here    string
	Filter  ticket.Filter
	Options filterOptions
	Visible []ticket.Ticket
	Total   int
	Detail  *detail
	Modal   *portal.Modal
	SignIn  portal.SignInForm
	Create  portal.CreateTicketForm
	Alert   string
}

func newFilterOptions() filterOptions {
	var o filterOptions
	for _, s := range ticket.Statuses() {
		o.Statuses = append(o.Statuses, portal.Option{Value: string(s), Label: s.Label()})
	}
	for _, c := range ticket.Categories() {
		o.Categories = append(o.Categories, portal.Option{Value: string(c), Label: c.Label()})
	}
	for _, p := range ticket.Priorities() {
		o.Priorities = append(o.Priorities, portal.Option{Value: string(p), Label: p.Label()})
	}
	return o
}

func (w *Web) render(rw http.ResponseWriter, r *http.Request, status int, app *portal.App, view portal.View, modify func(*page)) {
	tickets := app.Store().All()
	permissions := app.Permissions()
	p := &page{
		User:      app.User(),
		CanCreate: permissions.CanCreate(),
		View:      view,
		Here:      view.WithParameter(ModalParameter, ""),
		Filter:    view.Filter,
		Options:   newFilterOptions(),
		Visible:   view.Visible(tickets),
		Total:     len(tickets),
		Modal:     app.Modals().Current(),
		Create:    portal.NewCreateTicketForm(),
		Alert:     app.Alert(),
	}
	if t, ok := view.Selected(tickets); ok {
		p.Detail = &detail{
			Ticket:             t,
			CanDelete:          permissions.CanDelete(t),
			CanEditDescription: permissions.CanEdit(t, ticket.FieldDescription),
			StatusOptions:      permissions.StatusOptions(t),
			CategoryOptions:    permissions.CategoryOptions(t),
			PriorityOptions:    permissions.PriorityOptions(t),
			AgentOptions:       permissions.AgentOptions(t),
		}
	}
	if modify != nil {
		modify(p)
	}
	p.Modal = allowedModal(p)

	var buf bytes.Buffer
	if err := w.templates.ExecuteTemplate(&buf, "page.html", p); err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorln("Error 4781: cannot render page")
		http.Error(rw, "Error 4781", http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(status)
	rw.Write(buf.Bytes())
}

// allowedModal drops modals which make no sense for the user, such as a
// delete confirmation for somebody else's ticket
func allowedModal(p *page) *portal.Modal {
	if p.Modal == nil {
		return nil
	}
	switch p.Modal.Kind {
	case portal.ModalSignIn:
		if p.User != nil {
			return nil
		}
	case portal.ModalCreateTicket:
		if !p.CanCreate {
			return nil
		}
	case portal.ModalConfirmation:
		if p.Detail == nil || !p.Detail.CanDelete || p.Detail.Ticket.ID != p.Modal.TicketID {
			return nil
		}
	}
	return p.Modal
}

package backend

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/ticketportal/core/access"
	"github.com/relabs-tech/ticketportal/core/client"
	"github.com/relabs-tech/ticketportal/core/logger"
)

func (b *Backend) handleAuthenticate(router *mux.Router) {
	logger.Default().Debugln("  handle route: /authenticate POST")
	router.HandleFunc("/authenticate", func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		rlog.Debugln("called route for", r.URL, r.Method)

		body, ok := b.readValidBody(w, r, schemaAuthenticate)
		if !ok {
			return
		}
		var credentials client.Credentials
		if err := json.Unmarshal(body, &credentials); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		user, err := access.Authenticate(r.Context(), b.store, credentials.Username, credentials.Password)
		if errors.Is(err, access.ErrInvalidCredentials) {
			rlog.Infof("failed sign in of %s", credentials.Username)
			http.Error(w, "invalid username or password", http.StatusUnauthorized)
			return
		}
		if err != nil {
			rlog.WithError(err).Errorf("Error 4730: cannot authenticate %s", credentials.Username)
			http.Error(w, "Error 4730", http.StatusInternalServerError)
			return
		}

		token, err := b.issuer.Issue(user.Username, user.Role)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4731: cannot issue token")
			http.Error(w, "Error 4731", http.StatusInternalServerError)
			return
		}
		rlog.Infof("signed in %s %s", user.Role, user.Username)
		writeJSON(w, r, http.StatusOK, client.TokenResponse{Token: token})
	}).Methods(http.MethodOptions, http.MethodPost)
}

package dashboard

import (
	"fmt"
	"net/http"

	"github.com/shopbots/admin-dashboard/pkg"

	"github.com/gorilla/mux"
)

// The bot resource endpoints are stubs: the envelope per resource kind is
// the contract, the collections stay empty until a data store backs them.
func (handler *Handler) setupBotRoutes(botsRouter *mux.Router) {
	botsRouter.HandleFunc("", handler.emptyCollection("bots")).
		Methods("GET", "OPTIONS").Name("list-bots")

	for _, kind := range []string{
		"categories",
		"products",
		"shipping",
		"payments",
		"contacts",
		"broadcasts",
	} {
		botsRouter.HandleFunc("/{botId}/"+kind, handler.emptyCollection(kind)).
			Methods("GET", "OPTIONS").Name("list-" + kind)
	}

	botsRouter.HandleFunc("/{botId}/users", handler.handleBotUsers).
		Methods("GET", "OPTIONS").Name("list-users")
}

func (handler *Handler) emptyCollection(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{%q:[]}`, kind))
	}
}

// users additionally carry aggregate stats next to the collection
func (handler *Handler) handleBotUsers(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSONResponseOK(w, `{"users":[],"stats":{"total":0,"active":0}}`)
}

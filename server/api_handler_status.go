package chserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openrport/dashnotify/notifications/channels/toast"
	"github.com/openrport/dashnotify/server/api"
	"github.com/openrport/dashnotify/server/routes"
)

func (al *APIListener) handleGetStatus(w http.ResponseWriter, req *http.Request) {
	al.writeJSONResponse(w, http.StatusOK, api.NewSuccessPayload(al.session.Status()))
}

func (al *APIListener) handleGetToasts(w http.ResponseWriter, req *http.Request) {
	toasts := al.session.Toasts()
	if toasts == nil {
		toasts = []toast.Toast{}
	}
	al.writeJSONResponse(w, http.StatusOK, api.NewSuccessPayload(toasts))
}

func (al *APIListener) handleDeleteToast(w http.ResponseWriter, req *http.Request) {
	al.session.DismissToast(mux.Vars(req)[routes.ParamToastID])
	w.WriteHeader(http.StatusNoContent)
}

package chserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/server/api"
	apierrors "github.com/openrport/dashnotify/server/api/errors"
	"github.com/openrport/dashnotify/server/routes"
)

type notificationsMeta struct {
	Count  int `json:"count"`
	Unread int `json:"unread"`
}

func (al *APIListener) handleGetNotifications(w http.ResponseWriter, req *http.Request) {
	list := al.session.Notifications()
	if list == nil {
		list = []notifications.Notification{}
	}
	al.writeJSONResponse(w, http.StatusOK, api.NewSuccessPayloadWithMeta(list, notificationsMeta{
		Count:  len(list),
		Unread: al.session.UnreadCount(),
	}))
}

func (al *APIListener) handlePostRead(w http.ResponseWriter, req *http.Request) {
	id, ok := al.existingNotification(w, req)
	if !ok {
		return
	}
	if al.session.MarkRead(req.Context(), id) {
		al.Debugf("notification %s marked read", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (al *APIListener) handlePostReadAll(w http.ResponseWriter, req *http.Request) {
	al.session.MarkAllRead(req.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (al *APIListener) handleDeleteNotification(w http.ResponseWriter, req *http.Request) {
	id, ok := al.existingNotification(w, req)
	if !ok {
		return
	}
	al.session.Remove(req.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (al *APIListener) handleDeleteNotifications(w http.ResponseWriter, req *http.Request) {
	al.session.Clear(req.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (al *APIListener) handleGetDeliveries(w http.ResponseWriter, req *http.Request) {
	id, ok := al.existingNotification(w, req)
	if !ok {
		return
	}
	deliveries, err := al.session.Deliveries(req.Context(), id)
	if err != nil {
		al.jsonError(w, err)
		return
	}
	if deliveries == nil {
		deliveries = []notifications.Delivery{}
	}
	al.writeJSONResponse(w, http.StatusOK, api.NewSuccessPayload(deliveries))
}

// existingNotification writes a 404 and returns false when the route id is unknown.
func (al *APIListener) existingNotification(w http.ResponseWriter, req *http.Request) (string, bool) {
	id := mux.Vars(req)[routes.ParamNotificationID]
	for _, n := range al.session.Notifications() {
		if n.ID == id {
			return id, true
		}
	}
	al.jsonError(w, apierrors.NotFound("notification "+id+" not found"))
	return "", false
}

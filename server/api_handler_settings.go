package chserver

import (
	"encoding/json"
	"net/http"

	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/server/api"
	apierrors "github.com/openrport/dashnotify/server/api/errors"
)

func (al *APIListener) handleGetSettings(w http.ResponseWriter, req *http.Request) {
	al.writeJSONResponse(w, http.StatusOK, api.NewSuccessPayload(al.session.Settings()))
}

func (al *APIListener) handlePatchSettings(w http.ResponseWriter, req *http.Request) {
	var patch notifications.SettingsPatch
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		al.jsonError(w, apierrors.InvalidInput("invalid settings", err))
		return
	}
	for key := range patch.Types {
		if !knownTypeKey(key) {
			al.jsonError(w, apierrors.InvalidInput("unknown notification type "+key, nil))
			return
		}
	}

	settings := al.session.UpdateSettings(req.Context(), patch)
	al.writeJSONResponse(w, http.StatusOK, api.NewSuccessPayload(settings))
}

func knownTypeKey(key string) bool {
	for _, t := range notifications.AllTypes {
		if t.SettingsKey() == key {
			return true
		}
	}
	return false
}

package chserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/pkg/errors"

	chclient "github.com/openrport/dashnotify/client"
	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/notifications/channels/toast"
	"github.com/openrport/dashnotify/server/api"
	apierrors "github.com/openrport/dashnotify/server/api/errors"
	chshare "github.com/openrport/dashnotify/share"
	"github.com/openrport/dashnotify/share/logger"
)

const (
	maxHeaderBytes  = 1 << 20
	maxRequestBytes = 1 << 16
)

// Session is what the local API reads and mutates.
type Session interface {
	Notifications() []notifications.Notification
	UnreadCount() int
	MarkRead(ctx context.Context, id string) bool
	MarkAllRead(ctx context.Context) bool
	Remove(ctx context.Context, id string) bool
	Clear(ctx context.Context) bool
	Settings() notifications.Settings
	UpdateSettings(ctx context.Context, patch notifications.SettingsPatch) notifications.Settings
	Status() chclient.Status
	Toasts() []toast.Toast
	DismissToast(id string)
	Deliveries(ctx context.Context, id string) ([]notifications.Delivery, error)
}

// APIListener serves the local notification API of a running session.
type APIListener struct {
	*logger.Logger

	config        chclient.APIConfig
	session       Session
	router        http.Handler
	httpServer    *chshare.HTTPServer
	accessLogFile io.WriteCloser
}

func NewAPIListener(config chclient.APIConfig, session Session, l *logger.Logger) (*APIListener, error) {
	al := &APIListener{
		Logger:  l.Fork("api"),
		config:  config,
		session: session,
	}
	if config.AccessLogFile != "" {
		f, err := os.OpenFile(config.AccessLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open api access log")
		}
		al.accessLogFile = f
	}
	al.initRouter()
	al.httpServer = chshare.NewHTTPServer(maxHeaderBytes, al.Logger)
	return al, nil
}

// Start binds the configured address and serves in the background.
func (al *APIListener) Start() error {
	if err := al.httpServer.GoListenAndServe(al.config.Address, al.router); err != nil {
		return errors.Wrapf(err, "failed to listen on %s", al.config.Address)
	}
	al.Infof("API listening on %s", al.httpServer.Addr())
	return nil
}

// Addr returns the bound address once started.
func (al *APIListener) Addr() string {
	return al.httpServer.Addr()
}

func (al *APIListener) Close() error {
	err := al.httpServer.Close()
	if al.accessLogFile != nil {
		if cerr := al.accessLogFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (al *APIListener) writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	b, err := json.Marshal(response)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write(b); err != nil {
		al.Errorf("error writing response: %s", err)
	}
}

func (al *APIListener) jsonErrorResponse(w http.ResponseWriter, statusCode int, err error) {
	al.writeJSONResponse(w, statusCode, api.NewErrorPayload(err))
}

func (al *APIListener) jsonError(w http.ResponseWriter, err error) {
	var apiErr apierrors.APIError
	if errors.As(err, &apiErr) {
		al.writeJSONResponse(w, apiErr.HTTPStatus, api.NewAPIErrorPayload(apiErr))
		return
	}
	al.jsonErrorResponse(w, http.StatusInternalServerError, err)
}

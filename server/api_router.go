package chserver

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/openrport/dashnotify/server/api/middleware"
	"github.com/openrport/dashnotify/server/routes"
)

func (al *APIListener) initRouter() {
	r := mux.NewRouter()
	sub := r.PathPrefix(routes.AllRoutesPrefix).Subrouter()

	sub.HandleFunc(routes.NotificationsRoute, al.handleGetNotifications).Methods(http.MethodGet)
	sub.HandleFunc(routes.NotificationsRoute, al.handleDeleteNotifications).Methods(http.MethodDelete)
	sub.HandleFunc(routes.NotificationsReadAll, al.handlePostReadAll).Methods(http.MethodPost)
	sub.HandleFunc(routes.NotificationReadRoute, al.handlePostRead).Methods(http.MethodPost)
	sub.HandleFunc(routes.NotificationDeliveries, al.handleGetDeliveries).Methods(http.MethodGet)
	sub.HandleFunc(routes.NotificationRoute, al.handleDeleteNotification).Methods(http.MethodDelete)
	sub.HandleFunc(routes.SettingsRoute, al.handleGetSettings).Methods(http.MethodGet)
	sub.HandleFunc(routes.SettingsRoute, al.handlePatchSettings).Methods(http.MethodPatch)
	sub.HandleFunc(routes.StatusRoute, al.handleGetStatus).Methods(http.MethodGet)
	sub.HandleFunc(routes.ToastsRoute, al.handleGetToasts).Methods(http.MethodGet)
	sub.HandleFunc(routes.ToastRoute, al.handleDeleteToast).Methods(http.MethodDelete)

	r.Use(middleware.MaxBytes(maxRequestBytes))
	if al.accessLogFile != nil {
		r.Use(func(next http.Handler) http.Handler { return handlers.CombinedLoggingHandler(al.accessLogFile, next) })
	}
	r.Use(handlers.RecoveryHandler(
		handlers.PrintRecoveryStack(true),
		handlers.RecoveryLogger(middleware.NewRecoveryLogger(al.Logger)),
	))

	var h http.Handler = r
	if len(al.config.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: al.config.CORSOrigins,
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPatch,
				http.MethodDelete,
			},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler(r)
	}
	al.router = h
}

package routes

const (
	ParamNotificationID = "notification_id"
	ParamToastID        = "toast_id"

	AllRoutesPrefix         = "/api/v1"
	NotificationsRoute      = "/notifications"
	NotificationsReadAll    = "/notifications/read-all"
	NotificationRoute       = "/notifications/{" + ParamNotificationID + "}"
	NotificationReadRoute   = NotificationRoute + "/read"
	NotificationDeliveries  = NotificationRoute + "/deliveries"
	SettingsRoute           = "/settings"
	StatusRoute             = "/status"
	ToastsRoute             = "/toasts"
	ToastRoute              = "/toasts/{" + ParamToastID + "}"
	DefaultAPIListenAddress = "127.0.0.1:7780"
)

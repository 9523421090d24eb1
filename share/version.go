package chshare

// BuildVersion represents a current build version. It can be overridden by CI workflow.
var BuildVersion = SourceVersion
var SourceVersion = "0.0.0-src"

// UserAgent is sent on every outbound request and websocket handshake.
func UserAgent() string {
	return "dashnotify/" + BuildVersion
}

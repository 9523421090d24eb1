package chshare

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/openrport/dashnotify/share/logger"
)

// HTTPServer extends net/http Server with a non-blocking start
// and a graceful shutdown.
type HTTPServer struct {
	*http.Server
	listener net.Listener
	running  chan error
	mu       sync.Mutex
	started  bool
	logger   *logger.Logger
}

func NewHTTPServer(maxHeaderBytes int, l *logger.Logger) *HTTPServer {
	if l == nil {
		l = logger.NewDiscardLogger()
	}
	return &HTTPServer{
		Server:  &http.Server{MaxHeaderBytes: maxHeaderBytes, ReadHeaderTimeout: 5 * time.Second},
		running: make(chan error, 1),
		logger:  l.Fork("http-server"),
	}
}

// GoListenAndServe binds addr synchronously and serves in the background.
func (h *HTTPServer) GoListenAndServe(addr string, handler http.Handler) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.started = true
	h.listener = l
	h.Handler = handler
	h.mu.Unlock()

	go func() {
		h.logger.Debugf("serving HTTP on %s", l.Addr())
		err := h.Serve(l)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		h.running <- err
	}()
	return nil
}

// Addr returns the bound address, useful when listening on port 0.
func (h *HTTPServer) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *HTTPServer) Close() error {
	h.mu.Lock()
	started := h.started
	h.started = false
	h.mu.Unlock()
	if !started {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		return err
	}
	return <-h.running
}

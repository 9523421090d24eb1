// Package transport keeps the push connection to the dashboard event stream.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"

	"github.com/openrport/dashnotify/notifications"
	chshare "github.com/openrport/dashnotify/share"
	"github.com/openrport/dashnotify/share/logger"
	"github.com/openrport/dashnotify/share/ws"
)

const (
	DefaultRetryDelay       = 3 * time.Second
	DefaultMaxRetryCount    = 10
	DefaultKeepAlive        = 30 * time.Second
	DefaultHandshakeTimeout = 45 * time.Second
)

type Config struct {
	URL     string
	Token   string
	Headers http.Header
	// RetryDelay is the fixed pause between connection attempts.
	RetryDelay time.Duration
	// MaxRetryCount bounds reconnects after a failure, negative retries forever.
	MaxRetryCount    int
	KeepAlive        time.Duration
	HandshakeTimeout time.Duration
}

// StateListener is told about every connection state change.
type StateListener func(connected bool)

// Handler receives the notification of every known inbound event.
type Handler func(n notifications.Notification)

// Transport owns one websocket to the event stream. Connection failures never
// reach the caller: they are logged, reported as disconnected and retried with
// a fixed delay until MaxRetryCount is used up. After that the transport stays
// down for good and GaveUp reports true.
type Transport struct {
	config Config
	logger *logger.Logger
	now    func() time.Time

	// cbMu guards the callbacks, Close takes it exclusively to unsubscribe.
	cbMu    sync.RWMutex
	onEvent Handler
	onState StateListener

	mu   sync.Mutex
	conn *ws.ConcurrentWebSocket

	connected atomic.Bool
	gaveUp    atomic.Bool

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	done      chan struct{}
}

func New(config Config, l *logger.Logger, onEvent Handler, onState StateListener) *Transport {
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		config:  config,
		logger:  l,
		now:     time.Now,
		onEvent: onEvent,
		onState: onState,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start launches the connection loop, it does not block.
func (t *Transport) Start() {
	t.startOnce.Do(func() {
		if t.ctx.Err() != nil {
			return
		}
		t.started.Store(true)
		go t.connectionLoop()
	})
}

func (t *Transport) IsConnected() bool {
	return t.connected.Load()
}

func (t *Transport) GaveUp() bool {
	return t.gaveUp.Load()
}

// Close unsubscribes the callbacks, closes the socket and waits for the loop
// to exit. No callback runs after Close returns. Safe to call more than once.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.cbMu.Lock()
		t.onEvent = nil
		t.onState = nil
		t.cbMu.Unlock()

		t.cancel()
		t.mu.Lock()
		if t.conn != nil {
			err = t.conn.Close()
		}
		t.mu.Unlock()

		if t.started.Load() {
			<-t.done
		}
		t.connected.Store(false)
	})
	return err
}

func (t *Transport) closed() bool {
	return t.ctx.Err() != nil
}

func (t *Transport) connectionLoop() {
	defer close(t.done)

	var connerr error
	b := &backoff.Backoff{Min: t.config.RetryDelay, Max: t.config.RetryDelay, Factor: 1}
	for !t.closed() {
		if connerr != nil {
			attempt := int(b.Attempt())
			d := b.Duration()
			t.showConnectionError(connerr, attempt)
			//give up?
			if t.config.MaxRetryCount >= 0 && attempt >= t.config.MaxRetryCount {
				t.gaveUp.Store(true)
				t.logger.Errorf("Giving up after %d attempts, staying disconnected", attempt+1)
				return
			}
			t.logger.Infof("Retrying in %s...", d)
			connerr = nil
			select {
			case <-time.After(d):
			case <-t.ctx.Done():
				return
			}
		}

		conn, err := t.connect()
		if err != nil {
			connerr = err
			continue
		}

		b.Reset()
		t.setConnected(true)

		err = t.serve(conn)
		t.mu.Lock()
		t.conn = nil
		t.mu.Unlock()
		_ = conn.Close()
		t.setConnected(false)

		if t.closed() {
			return
		}
		connerr = errors.Wrap(err, "connection lost")
		t.logger.Infof("Disconnected")
	}
}

func (t *Transport) connect() (*ws.ConcurrentWebSocket, error) {
	t.logger.Infof("Connecting to %s", t.config.URL)

	d := websocket.Dialer{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: t.config.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	headers := http.Header{}
	for k, v := range t.config.Headers {
		headers[k] = append([]string(nil), v...)
	}
	if t.config.Token != "" {
		headers.Set("Authorization", "Bearer "+t.config.Token)
	}
	if headers.Get("User-Agent") == "" {
		headers.Set("User-Agent", chshare.UserAgent())
	}

	wsConn, resp, err := d.DialContext(t.ctx, t.config.URL, headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, errors.Errorf("authentication rejected (%d)", resp.StatusCode)
		}
		return nil, err
	}

	conn := ws.NewConcurrentWebSocket(wsConn, t.logger)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed() {
		_ = conn.Close()
		return nil, errors.New("transport closed")
	}
	t.conn = conn
	t.logger.Infof("Connected")
	return conn, nil
}

func (t *Transport) serve(conn *ws.ConcurrentWebSocket) error {
	if t.config.KeepAlive > 0 {
		if err := conn.KeepReading(2 * t.config.KeepAlive); err != nil {
			return err
		}
		stop := make(chan struct{})
		defer close(stop)
		go t.keepAliveLoop(conn, stop)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, err := DecodeEvent(data)
		if err != nil {
			t.logger.Errorf("Dropping inbound frame: %v", err)
			continue
		}
		n, ok := ToNotification(ev, t.now())
		if !ok {
			t.logger.Debugf("Ignoring event %q", ev.EventName())
			continue
		}
		t.emit(n)
	}
}

func (t *Transport) keepAliveLoop(conn *ws.ConcurrentWebSocket, stop <-chan struct{}) {
	for {
		select {
		case <-time.After(t.config.KeepAlive):
			if err := conn.Ping(); err != nil {
				t.logger.Debugf("Ping failed: %v", err)
				return
			}
		case <-stop:
			return
		}
	}
}

func (t *Transport) emit(n notifications.Notification) {
	t.cbMu.RLock()
	defer t.cbMu.RUnlock()
	if t.onEvent != nil {
		t.onEvent(n)
	}
}

func (t *Transport) setConnected(connected bool) {
	if t.connected.Swap(connected) == connected {
		return
	}
	t.cbMu.RLock()
	defer t.cbMu.RUnlock()
	if t.onState != nil {
		t.onState(connected)
	}
}

func (t *Transport) showConnectionError(connerr error, attempt int) {
	maxAttempt := t.config.MaxRetryCount
	//show error and attempt counts
	msg := fmt.Sprintf("Connection error: %s", connerr)
	if attempt > 0 {
		msg += fmt.Sprintf(" (Attempt: %d", attempt)
		if maxAttempt > 0 {
			msg += fmt.Sprintf("/%d", maxAttempt)
		}
		msg += ")"
	}
	t.logger.Errorf("%s", msg)
}

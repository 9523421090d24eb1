package ws

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openrport/dashnotify/share/logger"
)

type Conn interface {
	NextReader() (messageType int, r io.Reader, err error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteJSON(v interface{}) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ConcurrentWebSocket serializes writes to a websocket. Reads must still come
// from a single goroutine.
type ConcurrentWebSocket struct {
	conn      Conn
	mu        sync.Mutex
	log       *logger.Logger
	closeOnce sync.Once
	closeErr  error
}

func NewConcurrentWebSocket(conn Conn, log *logger.Logger) *ConcurrentWebSocket {
	return &ConcurrentWebSocket{
		conn: conn,
		log:  log,
	}
}

func (ws *ConcurrentWebSocket) ReadJSON(inboundMsg interface{}) error {
	_, r, err := ws.conn.NextReader()
	if err != nil {
		return err
	}
	return json.NewDecoder(r).Decode(inboundMsg)
}

func (ws *ConcurrentWebSocket) ReadMessage() (messageType int, p []byte, err error) {
	return ws.conn.ReadMessage()
}

func (ws *ConcurrentWebSocket) WriteJSON(jsonOutboundMsg interface{}) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	err := ws.conn.WriteJSON(jsonOutboundMsg)
	if err != nil {
		ws.log.Errorf("Error WS json write: %v", err)
	}
	return err
}

func (ws *ConcurrentWebSocket) WriteMessage(messageType int, data []byte) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.conn.WriteMessage(messageType, data)
}

func (ws *ConcurrentWebSocket) Ping() error {
	return ws.WriteMessage(websocket.PingMessage, nil)
}

// KeepReading extends the read deadline by timeout now and on every pong.
func (ws *ConcurrentWebSocket) KeepReading(timeout time.Duration) error {
	ws.conn.SetPongHandler(func(string) error {
		return ws.conn.SetReadDeadline(time.Now().Add(timeout))
	})
	return ws.conn.SetReadDeadline(time.Now().Add(timeout))
}

// Close closes the underlying connection once, later calls return the first result.
func (ws *ConcurrentWebSocket) Close() error {
	ws.closeOnce.Do(func() {
		ws.mu.Lock()
		defer ws.mu.Unlock()
		ws.closeErr = ws.conn.Close()
		if ws.closeErr != nil {
			ws.log.Errorf("Error on Close ws: %v", ws.closeErr)
		} else {
			ws.log.Debugf("Close ws")
		}
	})
	return ws.closeErr
}

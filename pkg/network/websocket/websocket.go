package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/openhuddle/huddle/pkg/logger"
)

const (
	maxMessageSize = 10 * 1024
	pingTime       = pongTime * 9 / 10
	pongTime       = 60 * time.Second
	writeWait      = 10 * time.Second
)

// WS wraps a single websocket connection with
// one reader and one writer pump goroutine.
// The writer pump serializes all writes, so the delivery order
// for one receiver matches the order of the Write calls.
type WS struct {
	conn deadlinedConn
	send chan []byte

	OnMessage WSMessageHandler

	pingPong bool
	once     sync.Once
	done     chan struct{}
	log      *logger.Logger
}

type WSMessageHandler func(message []byte, err error)

type Upgrader struct {
	websocket.Upgrader
}

var DefaultUpgrader = Upgrader{
	Upgrader: websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		WriteBufferPool: &sync.Pool{},
	},
}

// NewUpgrader returns an upgrader which allows only the given origin,
// or any origin when the param is *.
func NewUpgrader(origin string) *Upgrader {
	u := DefaultUpgrader
	if origin == "*" {
		u.CheckOrigin = func(r *http.Request) bool { return true }
	} else if origin != "" {
		u.CheckOrigin = func(r *http.Request) bool { return r.Header.Get("Origin") == origin }
	}
	return &u
}

// NewServer initializes a new server-side websocket peer.
func NewServer(conn *websocket.Conn, log *logger.Logger) *WS {
	return newSocket(conn, true, log)
}

func newSocket(conn *websocket.Conn, pingPong bool, log *logger.Logger) *WS {
	return &WS{
		conn:     deadlinedConn{sock: conn, wt: writeWait},
		send:     make(chan []byte),
		pingPong: pingPong,
		done:     make(chan struct{}),
		log:      log,
	}
}

// Listen starts the pumps and returns a channel closed when the socket dies.
// The OnMessage handler must be set before the call.
func (ws *WS) Listen() chan struct{} {
	go ws.writer()
	go ws.reader()
	return ws.done
}

// reader pumps messages from the websocket connection to the OnMessage callback.
// Serializes all websocket reads.
func (ws *WS) reader() {
	defer ws.shutdown()
	ws.conn.setup(func(conn *websocket.Conn) {
		conn.SetReadLimit(maxMessageSize)
		if ws.pingPong {
			_ = conn.SetReadDeadline(time.Now().Add(pongTime))
			conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(pongTime)); return nil })
		}
	})
	for {
		message, err := ws.conn.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				ws.log.Debug().Err(err).Msg("[ws] read fail")
			}
			return
		}
		ws.OnMessage(message, err)
	}
}

// writer pumps messages from the send channel to the websocket connection.
// Serializes all websocket writes.
func (ws *WS) writer() {
	var tick <-chan time.Time
	if ws.pingPong {
		ticker := time.NewTicker(pingTime)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer ws.shutdown()
	for {
		select {
		case message := <-ws.send:
			if err := ws.conn.write(websocket.TextMessage, message); err != nil {
				return
			}
		case <-tick:
			if err := ws.conn.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ws.done:
			_ = ws.conn.write(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Write queues a message for delivery.
// Messages to an already closed socket are dropped.
func (ws *WS) Write(data []byte) {
	select {
	case ws.send <- data:
	case <-ws.done:
	}
}

func (ws *WS) Close() { ws.shutdown() }

func (ws *WS) shutdown() {
	ws.once.Do(func() {
		close(ws.done)
		_ = ws.conn.close()
		ws.log.Debug().Msg("[ws] close")
	})
}

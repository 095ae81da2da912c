package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// deadlinedConn guards every write on the underlying socket
// with a deadline, so one stuck receiver cannot hold the writer
// pump forever.
type deadlinedConn struct {
	sock *websocket.Conn
	wt   time.Duration
}

func (c *deadlinedConn) setup(fn func(conn *websocket.Conn)) { fn(c.sock) }

func (c *deadlinedConn) close() error { return c.sock.Close() }

func (c *deadlinedConn) read() ([]byte, error) {
	_, data, err := c.sock.ReadMessage()
	return data, err
}

func (c *deadlinedConn) write(t int, data []byte) error {
	if err := c.sock.SetWriteDeadline(time.Now().Add(c.wt)); err != nil {
		return err
	}
	return c.sock.WriteMessage(t, data)
}

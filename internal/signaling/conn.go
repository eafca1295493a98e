package signaling

import (
	"sync"

	"github.com/gorilla/websocket"
)

// wsConn is the duplex channel contract the registry depends on. Conn
// is the production implementation; tests substitute a fake.
type wsConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Conn is the registry's view of a duplex channel to one client. It
// wraps *websocket.Conn with a write mutex since gorilla/websocket
// forbids concurrent writers.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

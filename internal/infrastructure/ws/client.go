package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one live subscription to a node.
type Client struct {
	conn    *connWrapper
	Message chan *WSMessage
	ID      string
	Node    int
	UserID  string
}

func NewClient(conn *websocket.Conn, id string, node int, userID string) *Client {
	return &Client{
		conn:    newConnWrapper(conn),
		Message: make(chan *WSMessage, 64), // buffered so a slow client cannot stall the core
		ID:      id,
		Node:    node,
		UserID:  userID,
	}
}

// ReadMessage only drains control frames; subscribers send through the HTTP API.
func (c *Client) ReadMessage(core *Core) {
	defer func() {
		core.Unsubscribe(c)
		_ = c.conn.Close()
	}()

	c.conn.keepAlive(pongWait)

	for {
		if err := c.conn.discardFrame(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				core.logReadError(c, err)
			}
			return
		}
	}
}

func (c *Client) WriteMessage(core *Core) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Message:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				core.logWriteError(c, err)
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(); err != nil {
				return
			}
		}
	}
}

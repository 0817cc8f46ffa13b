package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/metrics"
)

type eviction struct {
	node   int
	userID string
}

// Core owns the subscription index. Register, unregister, eviction and delivery are
// all processed on the Run goroutine, so a client channel is never written after close.
type Core struct {
	nodeMgr    *NodeManager
	register   chan *Client
	unregister chan *Client
	evict      chan eviction
	deliver    chan domain.Message
	done       chan struct{}
	upgrader   websocket.Upgrader
	metrics    *metrics.Metrics
	logger     logging.Logger
}

func NewCore(metrics *metrics.Metrics, logger logging.Logger) *Core {
	return &Core{
		nodeMgr:    NewNodeManager(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		evict:      make(chan eviction),
		deliver:    make(chan domain.Message, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Run must be started exactly once.
func (c *Core) Run(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return

		case cl := <-c.register:
			c.nodeMgr.AddClient(cl)
			c.metrics.SubscriberDelta(1)

		case cl := <-c.unregister:
			if c.nodeMgr.RemoveClient(cl) {
				c.metrics.SubscriberDelta(-1)
			}

		case ev := <-c.evict:
			if n := c.nodeMgr.RemoveOccupant(ev.node, ev.userID); n > 0 {
				c.metrics.SubscriberDelta(-n)
				c.logger.Info(logging.Messaging, logging.Delivery, "live subscriptions closed", map[logging.ExtraKey]any{
					logging.NodeOrdinal: ev.node,
					logging.UserID:      ev.userID,
				})
			}

		case msg := <-c.deliver:
			c.push(msg)
		}
	}
}

func (c *Core) push(msg domain.Message) {
	out := &WSMessage{
		Type: MessageReceived,
		Data: messagePayload{
			ID:        msg.ID,
			FromNode:  msg.FromNode,
			FromUser:  msg.FromUser,
			Broadcast: msg.To.IsBroadcast(),
			Body:      msg.Body,
			Page:      msg.Page,
			CreatedAt: msg.CreatedAt,
		},
	}
	if msg.Page {
		out.Type = PageReceived
	}

	for _, cl := range c.nodeMgr.Recipients(msg) {
		evt := *out
		evt.Node = cl.Node
		select {
		case cl.Message <- &evt:
		default:
			c.logger.Warn(logging.Messaging, logging.Delivery, "client buffer full, dropping message", map[logging.ExtraKey]any{
				logging.NodeOrdinal: cl.Node,
				"ClientId":          cl.ID,
			})
		}
	}
}

// Notify queues a message for live delivery without blocking the sender.
func (c *Core) Notify(msg domain.Message) {
	select {
	case c.deliver <- msg:
	default:
		c.logger.Warn(logging.Messaging, logging.Delivery, "live delivery queue full", map[logging.ExtraKey]any{
			logging.NodeOrdinal: msg.FromNode,
		})
	}
}

func (c *Core) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return c.upgrader.Upgrade(w, r, nil)
}

func (c *Core) Subscribe(cl *Client) {
	select {
	case c.register <- cl:
	case <-c.done:
	}
}

func (c *Core) Unsubscribe(cl *Client) {
	select {
	case c.unregister <- cl:
	case <-c.done:
	}
}

// Evict closes the subscriptions userID opened on node. Called once the user's
// lease on the node has ended.
func (c *Core) Evict(node int, userID string) {
	select {
	case c.evict <- eviction{node: node, userID: userID}:
	case <-c.done:
	}
}

func (c *Core) logReadError(cl *Client, err error) {
	c.logger.Warn(logging.IO, logging.Delivery, "ws read error", map[logging.ExtraKey]any{
		logging.NodeOrdinal:  cl.Node,
		"ClientId":           cl.ID,
		logging.ErrorMessage: err.Error(),
	})
}

func (c *Core) logWriteError(cl *Client, err error) {
	c.logger.Warn(logging.IO, logging.Delivery, "ws write error", map[logging.ExtraKey]any{
		logging.NodeOrdinal:  cl.Node,
		"ClientId":           cl.ID,
		logging.ErrorMessage: err.Error(),
	})
}

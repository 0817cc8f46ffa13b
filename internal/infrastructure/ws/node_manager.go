package ws

import (
	"sync"

	"github.com/hilthontt/nodeline/internal/domain"
)

// NodeManager indexes live clients by node ordinal.
type NodeManager struct {
	nodes map[int]map[string]*Client // ordinal -> client id -> client
	mu    sync.RWMutex
}

func NewNodeManager() *NodeManager {
	return &NodeManager{
		nodes: make(map[int]map[string]*Client),
	}
}

func (nm *NodeManager) AddClient(cl *Client) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	clients, ok := nm.nodes[cl.Node]
	if !ok {
		clients = make(map[string]*Client)
		nm.nodes[cl.Node] = clients
	}
	if _, exists := clients[cl.ID]; !exists {
		clients[cl.ID] = cl
	}
}

// RemoveClient reports whether the client was registered.
func (nm *NodeManager) RemoveClient(cl *Client) bool {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	clients, ok := nm.nodes[cl.Node]
	if !ok {
		return false
	}
	if _, ok := clients[cl.ID]; !ok {
		return false
	}

	delete(clients, cl.ID)
	close(cl.Message)
	if len(clients) == 0 {
		delete(nm.nodes, cl.Node)
	}
	return true
}

// RemoveOccupant drops the node's clients that subscribed as userID and
// returns how many were removed.
func (nm *NodeManager) RemoveOccupant(node int, userID string) int {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	clients, ok := nm.nodes[node]
	if !ok {
		return 0
	}

	removed := 0
	for id, cl := range clients {
		if cl.UserID != userID {
			continue
		}
		delete(clients, id)
		close(cl.Message)
		removed++
	}
	if len(clients) == 0 {
		delete(nm.nodes, node)
	}
	return removed
}

// Recipients returns the clients a message should be pushed to. Direct messages
// that carry a user id follow the user; the others go to the addressed node.
func (nm *NodeManager) Recipients(msg domain.Message) []*Client {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	out := make([]*Client, 0)
	if msg.To.IsBroadcast() {
		for _, clients := range nm.nodes {
			for _, cl := range clients {
				out = append(out, cl)
			}
		}
		return out
	}

	if msg.ToUser != "" {
		for _, clients := range nm.nodes {
			for _, cl := range clients {
				if cl.UserID == msg.ToUser {
					out = append(out, cl)
				}
			}
		}
		return out
	}

	if node, ok := msg.To.Node(); ok {
		for _, cl := range nm.nodes[node] {
			out = append(out, cl)
		}
	}
	return out
}

func (nm *NodeManager) Count() int {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	n := 0
	for _, clients := range nm.nodes {
		n += len(clients)
	}
	return n
}

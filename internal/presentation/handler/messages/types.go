package messages

import (
	"time"

	"github.com/hilthontt/nodeline/internal/domain"
)

type sendMessageRequest struct {
	FromNode int    `json:"fromNode"`
	ToNode   int    `json:"toNode,omitempty"`
	ToUser   string `json:"toUser,omitempty"`
	Body     string `json:"body"`
}

type broadcastRequest struct {
	FromNode int    `json:"fromNode"`
	Body     string `json:"body"`
}

type pageRequest struct {
	FromNode int    `json:"fromNode"`
	ToUser   string `json:"toUser"`
	Body     string `json:"body"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	FromNode  int       `json:"fromNode"`
	FromUser  string    `json:"fromUser"`
	Target    string    `json:"target"`
	ToNode    int       `json:"toNode,omitempty"`
	ToUser    string    `json:"toUser,omitempty"`
	Body      string    `json:"body"`
	Page      bool      `json:"page"`
	CreatedAt time.Time `json:"createdAt"`
}

func newMessageResponse(m domain.Message) messageResponse {
	resp := messageResponse{
		ID:        m.ID,
		FromNode:  m.FromNode,
		FromUser:  m.FromUser,
		Target:    string(m.To.Kind()),
		ToUser:    m.ToUser,
		Body:      m.Body,
		Page:      m.Page,
		CreatedAt: m.CreatedAt,
	}
	if node, ok := m.To.Node(); ok {
		resp.ToNode = node
	}
	return resp
}

type deliveryResponse struct {
	Message   messageResponse `json:"message"`
	AutoReply string          `json:"autoReply,omitempty"`
}

type unreadResponse struct {
	Node     int               `json:"node"`
	Messages []messageResponse `json:"messages"`
}

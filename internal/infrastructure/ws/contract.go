package ws

import "time"

type WSMessage struct {
	Type string `json:"type"`
	Node int    `json:"node"`
	Data any    `json:"data,omitempty"`
}

type messagePayload struct {
	ID        string    `json:"id"`
	FromNode  int       `json:"fromNode"`
	FromUser  string    `json:"fromUser"`
	Broadcast bool      `json:"broadcast"`
	Body      string    `json:"body"`
	Page      bool      `json:"page"`
	CreatedAt time.Time `json:"createdAt"`
}

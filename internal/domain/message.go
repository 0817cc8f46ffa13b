package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TargetKind string

const (
	TargetDirect    TargetKind = "direct"
	TargetBroadcast TargetKind = "broadcast"
)

// Target is either Direct(node) or Broadcast(). A direct target with node 0 was
// addressed to a user who held no node at send time.
type Target struct {
	kind TargetKind
	node int
}

func Direct(node int) Target {
	return Target{kind: TargetDirect, node: node}
}

func Broadcast() Target {
	return Target{kind: TargetBroadcast}
}

func (t Target) Kind() TargetKind {
	if t.kind == "" {
		return TargetBroadcast
	}
	return t.kind
}

func (t Target) IsBroadcast() bool {
	return t.Kind() == TargetBroadcast
}

// Node returns the addressed node of a direct target.
func (t Target) Node() (int, bool) {
	if t.IsBroadcast() || t.node == 0 {
		return 0, false
	}
	return t.node, true
}

type Message struct {
	ID        string
	FromNode  int
	FromUser  string
	To        Target
	ToUser    string
	Body      string
	Page      bool
	Read      bool
	ReadBy    map[int]struct{}
	CreatedAt time.Time
}

func NewMessage(fromNode int, fromUser string, to Target, toUser, body string, page bool, at time.Time) *Message {
	return &Message{
		ID:        uuid.NewString(),
		FromNode:  fromNode,
		FromUser:  fromUser,
		To:        to,
		ToUser:    toUser,
		Body:      body,
		Page:      page,
		CreatedAt: at,
	}
}

// UnreadBy reports whether the message is pending for the given node and its current occupant.
// Direct messages follow their recipient user across nodes; broadcasts are read once per node.
func (m *Message) UnreadBy(ordinal int, occupant string) bool {
	if m.To.IsBroadcast() {
		_, seen := m.ReadBy[ordinal]
		return !seen
	}
	if m.Read {
		return false
	}
	if m.ToUser != "" {
		return occupant != "" && m.ToUser == occupant
	}
	node, ok := m.To.Node()
	return ok && node == ordinal
}

func (m *Message) MarkReadBy(ordinal int) {
	if !m.To.IsBroadcast() {
		m.Read = true
		return
	}
	if m.ReadBy == nil {
		m.ReadBy = make(map[int]struct{})
	}
	m.ReadBy[ordinal] = struct{}{}
}

func (m *Message) Clone() Message {
	cpy := *m
	if m.ReadBy != nil {
		cpy.ReadBy = make(map[int]struct{}, len(m.ReadBy))
		for k := range m.ReadBy {
			cpy.ReadBy[k] = struct{}{}
		}
	}
	return cpy
}

type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	// TakeUnread returns pending messages for the node oldest first and marks them read.
	TakeUnread(ctx context.Context, ordinal int, occupant string) ([]Message, error)
}

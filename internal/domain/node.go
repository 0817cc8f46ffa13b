package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hilthontt/nodeline/internal/infrastructure/validate"
)

const DefaultSeedCount = 6

type NodeStatus string

const (
	NodeOffline     NodeStatus = "OFFLINE"
	NodeOnline      NodeStatus = "ONLINE"
	NodeMaintenance NodeStatus = "MAINTENANCE"
)

var validateNodeStatus = validate.OneOf(string(NodeOffline), string(NodeOnline), string(NodeMaintenance))

func ParseNodeStatus(raw string) (NodeStatus, error) {
	status := strings.ToUpper(strings.TrimSpace(raw))
	if err := validateNodeStatus(status); err != nil {
		return "", NewValidationError("status", err.Error())
	}
	return NodeStatus(status), nil
}

// Node is one addressable session slot. Ordinals start at 1 and never change.
type Node struct {
	Ordinal       int
	Status        NodeStatus
	Occupant      string
	Activity      string
	OccupiedSince time.Time
	LastActivity  time.Time
}

func (n Node) IsFree() bool {
	return n.Status == NodeOnline && n.Occupant == ""
}

func (n Node) IsOccupied() bool {
	return n.Occupant != ""
}

func (n Node) IdleFor(now time.Time) time.Duration {
	if !n.IsOccupied() {
		return 0
	}
	return now.Sub(n.LastActivity)
}

// Lease describes the occupancy a release (or forced drop) removed from a node.
// Released is false when the node was already free or the release condition did not hold.
type Lease struct {
	Node          int
	UserID        string
	OccupiedSince time.Time
	LastActivity  time.Time
	Released      bool
}

func LeaseOf(n Node) Lease {
	return Lease{
		Node:          n.Ordinal,
		UserID:        n.Occupant,
		OccupiedSince: n.OccupiedSince,
		LastActivity:  n.LastActivity,
	}
}

func (l Lease) Duration(now time.Time) time.Duration {
	if !l.Released || l.OccupiedSince.IsZero() {
		return 0
	}
	if d := now.Sub(l.OccupiedSince); d > 0 {
		return d
	}
	return 0
}

// CapacityPolicy decides whether the registry may grow to the given size.
type CapacityPolicy interface {
	Allows(size int) bool
	String() string
}

type unbounded struct{}

func (unbounded) Allows(int) bool { return true }
func (unbounded) String() string  { return "unbounded" }

type bounded struct {
	max int
}

func (b bounded) Allows(size int) bool { return size <= b.max }
func (b bounded) String() string       { return fmt.Sprintf("bounded(%d)", b.max) }

// Unbounded lets the pool grow without limit, so an acquire never fails for lack of nodes.
func Unbounded() CapacityPolicy {
	return unbounded{}
}

// Bounded caps the pool at max nodes. max <= 0 means unbounded.
func Bounded(max int) CapacityPolicy {
	if max <= 0 {
		return Unbounded()
	}
	return bounded{max: max}
}

// NodeRegistry is the authoritative record of every node and its occupant.
// Each mutation is an atomic check-then-write on a single node.
type NodeRegistry interface {
	List(ctx context.Context) ([]Node, error)
	Get(ctx context.Context, ordinal int) (Node, error)
	FindFirstFree(ctx context.Context) (Node, bool, error)
	FindByOccupant(ctx context.Context, userID string) (Node, bool, error)
	MarkAssigned(ctx context.Context, ordinal int, userID string, at time.Time) (Node, error)
	MarkReleased(ctx context.Context, ordinal int, match func(Node) bool) (Lease, error)
	SetStatus(ctx context.Context, ordinal int, status NodeStatus) (Node, Lease, error)
	UpdateActivity(ctx context.Context, ordinal int, label string, at time.Time) (Node, error)
	Grow(ctx context.Context, at time.Time) (Node, error)
}

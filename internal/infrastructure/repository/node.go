package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hilthontt/nodeline/internal/domain"
)

type nodeSlot struct {
	mu   sync.Mutex
	node domain.Node
}

// nodeRegistry locks one slot at a time for check-then-write. The slice lock only
// guards lookup and growth; the occupant index is always taken after a slot lock.
type nodeRegistry struct {
	slots     []*nodeSlot // ordinal-1 -> slot
	policy    domain.CapacityPolicy
	occupants map[string]int // userID -> ordinal
	mu        *sync.RWMutex
	occMu     *sync.Mutex
}

func NewNodeRegistry(seed int, policy domain.CapacityPolicy) domain.NodeRegistry {
	if seed < 0 {
		seed = domain.DefaultSeedCount
	}
	if policy == nil {
		policy = domain.Unbounded()
	}

	r := &nodeRegistry{
		slots:     make([]*nodeSlot, 0, seed),
		policy:    policy,
		occupants: make(map[string]int),
		mu:        &sync.RWMutex{},
		occMu:     &sync.Mutex{},
	}
	for i := 1; i <= seed; i++ {
		r.slots = append(r.slots, newNodeSlot(i))
	}

	return r
}

func newNodeSlot(ordinal int) *nodeSlot {
	return &nodeSlot{node: domain.Node{Ordinal: ordinal, Status: domain.NodeOnline}}
}

func (r *nodeRegistry) slot(ordinal int) (*nodeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ordinal < 1 || ordinal > len(r.slots) {
		return nil, fmt.Errorf("node %d: %w", ordinal, domain.ErrNodeNotFound)
	}
	return r.slots[ordinal-1], nil
}

func (r *nodeRegistry) snapshot() []*nodeSlot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cpy := make([]*nodeSlot, len(r.slots))
	copy(cpy, r.slots)
	return cpy
}

func (r *nodeRegistry) List(ctx context.Context) ([]domain.Node, error) {
	slots := r.snapshot()
	nodes := make([]domain.Node, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		nodes = append(nodes, s.node)
		s.mu.Unlock()
	}
	return nodes, nil
}

func (r *nodeRegistry) Get(ctx context.Context, ordinal int) (domain.Node, error) {
	s, err := r.slot(ordinal)
	if err != nil {
		return domain.Node{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.node, nil
}

func (r *nodeRegistry) FindFirstFree(ctx context.Context) (domain.Node, bool, error) {
	for _, s := range r.snapshot() {
		s.mu.Lock()
		node := s.node
		s.mu.Unlock()

		if node.IsFree() {
			return node, true, nil
		}
	}
	return domain.Node{}, false, nil
}

func (r *nodeRegistry) FindByOccupant(ctx context.Context, userID string) (domain.Node, bool, error) {
	if userID == "" {
		return domain.Node{}, false, nil
	}

	r.occMu.Lock()
	ordinal, ok := r.occupants[userID]
	r.occMu.Unlock()
	if !ok {
		return domain.Node{}, false, nil
	}

	node, err := r.Get(ctx, ordinal)
	if err != nil {
		return domain.Node{}, false, err
	}
	// The occupant may have moved between the index read and the slot read.
	if node.Occupant != userID {
		return domain.Node{}, false, nil
	}
	return node, true, nil
}

func (r *nodeRegistry) MarkAssigned(ctx context.Context, ordinal int, userID string, at time.Time) (domain.Node, error) {
	if userID == "" {
		return domain.Node{}, domain.NewValidationError("userId", "this field is required")
	}

	s, err := r.slot(ordinal)
	if err != nil {
		return domain.Node{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.node.IsFree() {
		return domain.Node{}, fmt.Errorf("node %d: %w", ordinal, domain.ErrAlreadyOccupied)
	}

	r.occMu.Lock()
	if current, exists := r.occupants[userID]; exists && current != ordinal {
		r.occMu.Unlock()
		return domain.Node{}, fmt.Errorf("user %s on node %d: %w", userID, current, domain.ErrAlreadyConnected)
	}
	r.occupants[userID] = ordinal
	r.occMu.Unlock()

	s.node.Occupant = userID
	s.node.Activity = ""
	s.node.OccupiedSince = at
	s.node.LastActivity = at

	return s.node, nil
}

// MarkReleased is idempotent: a free node, or one failing match, is left untouched.
func (r *nodeRegistry) MarkReleased(ctx context.Context, ordinal int, match func(domain.Node) bool) (domain.Lease, error) {
	s, err := r.slot(ordinal)
	if err != nil {
		return domain.Lease{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.node.IsOccupied() {
		return domain.Lease{Node: ordinal}, nil
	}
	if match != nil && !match(s.node) {
		return domain.Lease{Node: ordinal}, nil
	}

	lease := domain.LeaseOf(s.node)
	lease.Released = true
	r.clearOccupant(s)

	return lease, nil
}

func (r *nodeRegistry) SetStatus(ctx context.Context, ordinal int, status domain.NodeStatus) (domain.Node, domain.Lease, error) {
	if _, err := domain.ParseNodeStatus(string(status)); err != nil {
		return domain.Node{}, domain.Lease{}, err
	}

	s, err := r.slot(ordinal)
	if err != nil {
		return domain.Node{}, domain.Lease{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lease := domain.Lease{Node: ordinal}
	if status != domain.NodeOnline && s.node.IsOccupied() {
		lease = domain.LeaseOf(s.node)
		lease.Released = true
		r.clearOccupant(s)
	}
	s.node.Status = status

	return s.node, lease, nil
}

func (r *nodeRegistry) UpdateActivity(ctx context.Context, ordinal int, label string, at time.Time) (domain.Node, error) {
	s, err := r.slot(ordinal)
	if err != nil {
		return domain.Node{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.node.IsOccupied() {
		return domain.Node{}, fmt.Errorf("node %d: %w", ordinal, domain.ErrNodeUnoccupied)
	}

	s.node.Activity = label
	s.node.LastActivity = at

	return s.node, nil
}

// Grow appends a free ONLINE node. Ordinals are contiguous, so len+1 is max+1.
func (r *nodeRegistry) Grow(ctx context.Context, at time.Time) (domain.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := len(r.slots) + 1
	if !r.policy.Allows(next) {
		return domain.Node{}, fmt.Errorf("%s: %w", r.policy, domain.ErrPoolExhausted)
	}

	s := newNodeSlot(next)
	s.node.LastActivity = at
	r.slots = append(r.slots, s)

	return s.node, nil
}

// clearOccupant must be called with the slot lock held.
func (r *nodeRegistry) clearOccupant(s *nodeSlot) {
	r.occMu.Lock()
	if current, ok := r.occupants[s.node.Occupant]; ok && current == s.node.Ordinal {
		delete(r.occupants, s.node.Occupant)
	}
	r.occMu.Unlock()

	s.node.Occupant = ""
	s.node.Activity = ""
	s.node.OccupiedSince = time.Time{}
}

package reaper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/nodeline/internal/application/usecases/activity"
	"github.com/hilthontt/nodeline/internal/application/usecases/session"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyReleaser fails for one node and delegates the rest.
type flakyReleaser struct {
	Releaser
	failNode int
}

func (r flakyReleaser) ReleaseNode(ctx context.Context, req session.ReleaseRequest) (session.ReleaseResult, error) {
	if req.Node == r.failNode {
		return session.ReleaseResult{}, errors.New("registry unavailable")
	}
	return r.Releaser.ReleaseNode(ctx, req)
}

type fixture struct {
	sessions session.UseCase
	registry domain.NodeRegistry
	events   domain.ActivityRepository
	clock    *testClock
}

func newFixture(t *testing.T, seed int) *fixture {
	t.Helper()

	logger := logging.NewNop()
	clock := &testClock{now: epoch}
	registry := repository.NewNodeRegistry(seed, nil)
	events := repository.NewActivityRepository()
	audit := activity.NewUseCase(events, nil, nil, logger, clock)

	return &fixture{
		sessions: session.NewUseCase(registry, repository.NewUserRepository(), audit, nil, nil, logger, clock, session.Options{}),
		registry: registry,
		events:   events,
		clock:    clock,
	}
}

func (f *fixture) login(t *testing.T, id, handle string) int {
	t.Helper()
	res, err := f.sessions.Acquire(context.Background(), session.Identity{ID: id, Handle: handle}, "")
	require.NoError(t, err)
	return res.Node.Ordinal
}

func TestIsTimedOut(t *testing.T) {
	t.Parallel()

	node := domain.Node{Ordinal: 1, Status: domain.NodeOnline, Occupant: "alice", LastActivity: epoch}
	assert.False(t, IsTimedOut(node, epoch.Add(14*time.Minute), DefaultTimeout))
	assert.True(t, IsTimedOut(node, epoch.Add(15*time.Minute), DefaultTimeout))

	node.Occupant = ""
	assert.False(t, IsTimedOut(node, epoch.Add(time.Hour), DefaultTimeout))
}

func TestSweepReclaimsIdleNodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, 3)

	idle := f.login(t, "u-alice", "alice")
	busy := f.login(t, "u-bob", "bob")

	f.clock.Advance(10 * time.Minute)
	_, err := f.sessions.Touch(ctx, "u-bob", "typing")
	require.NoError(t, err)
	f.clock.Advance(6 * time.Minute)

	uc := NewUseCase(f.registry, f.sessions, nil, logging.NewNop(), f.clock)
	reclaimed, err := uc.Sweep(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	node, err := f.registry.Get(ctx, idle)
	require.NoError(t, err)
	assert.True(t, node.IsFree())

	node, err = f.registry.Get(ctx, busy)
	require.NoError(t, err)
	assert.Equal(t, "u-bob", node.Occupant)

	timeouts, err := f.events.ByAction(ctx, domain.ActionTimeout, 0)
	require.NoError(t, err)
	require.Len(t, timeouts, 1)
	assert.Equal(t, "u-alice", timeouts[0].UserID)
	assert.Equal(t, idle, timeouts[0].Node)

	again, err := uc.Sweep(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, 3)

	failing := f.login(t, "u-alice", "alice")
	other := f.login(t, "u-bob", "bob")
	f.clock.Advance(20 * time.Minute)

	uc := NewUseCase(f.registry, flakyReleaser{Releaser: f.sessions, failNode: failing}, nil, logging.NewNop(), f.clock)
	reclaimed, err := uc.Sweep(ctx, 15*time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry unavailable")
	assert.Equal(t, 1, reclaimed)

	node, err := f.registry.Get(ctx, other)
	require.NoError(t, err)
	assert.True(t, node.IsFree())

	node, err = f.registry.Get(ctx, failing)
	require.NoError(t, err)
	assert.Equal(t, "u-alice", node.Occupant)
}

func TestSweepSkipsNodeReacquiredSinceSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, 1)

	ordinal := f.login(t, "u-alice", "alice")
	f.clock.Advance(20 * time.Minute)

	// Between the snapshot and the release, alice logs out and bob takes the node.
	stale := domain.Node{Ordinal: ordinal, Status: domain.NodeOnline, Occupant: "u-alice", LastActivity: epoch}
	_, err := f.sessions.Release(ctx, "u-alice", "")
	require.NoError(t, err)
	f.login(t, "u-bob", "bob")

	res, err := f.sessions.ReleaseNode(ctx, session.ReleaseRequest{
		Node:   stale.Ordinal,
		UserID: stale.Occupant,
		Action: domain.ActionTimeout,
		Match: func(current domain.Node) bool {
			return IsTimedOut(current, f.clock.Now(), DefaultTimeout)
		},
	})
	require.NoError(t, err)
	assert.False(t, res.Lease.Released)

	node, err := f.registry.Get(ctx, ordinal)
	require.NoError(t, err)
	assert.Equal(t, "u-bob", node.Occupant)
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	f.login(t, "u-alice", "alice")
	f.clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uc := NewUseCase(f.registry, f.sessions, nil, logging.NewNop(), f.clock)
	reclaimed, err := uc.Sweep(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, reclaimed)
}

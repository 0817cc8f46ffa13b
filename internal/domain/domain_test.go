package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestParseNodeStatus(t *testing.T) {
	t.Parallel()

	status, err := ParseNodeStatus(" maintenance ")
	require.NoError(t, err)
	assert.Equal(t, NodeMaintenance, status)

	_, err = ParseNodeStatus("sleeping")
	assert.ErrorIs(t, err, ErrInvalidInput)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "status", verr.Field)
}

func TestParseAction(t *testing.T) {
	t.Parallel()

	action, err := ParseAction("timeout")
	require.NoError(t, err)
	assert.Equal(t, ActionTimeout, action)

	_, err = ParseAction("REBOOT")
	assert.ErrorIs(t, err, ErrInvalidInput)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "action", verr.Field)
	assert.Equal(t, "must be one of: LOGIN, LOGOUT, ACTIVITY, TIMEOUT, DISCONNECT", verr.Reason)
}

func TestNodeIdleFor(t *testing.T) {
	t.Parallel()

	free := Node{Ordinal: 1, Status: NodeOnline}
	assert.Zero(t, free.IdleFor(epoch))
	assert.True(t, free.IsFree())

	busy := Node{Ordinal: 1, Status: NodeOnline, Occupant: "alice", LastActivity: epoch}
	assert.Equal(t, 10*time.Minute, busy.IdleFor(epoch.Add(10*time.Minute)))
	assert.False(t, busy.IsFree())

	maintenance := Node{Ordinal: 1, Status: NodeMaintenance}
	assert.False(t, maintenance.IsFree())
}

func TestLeaseDuration(t *testing.T) {
	t.Parallel()

	lease := LeaseOf(Node{Ordinal: 2, Occupant: "alice", OccupiedSince: epoch})
	assert.Zero(t, lease.Duration(epoch.Add(time.Hour)), "an unreleased lease credits nothing")

	lease.Released = true
	assert.Equal(t, time.Hour, lease.Duration(epoch.Add(time.Hour)))
	assert.Zero(t, lease.Duration(epoch.Add(-time.Minute)), "clock skew never credits negative time")
}

func TestCapacityPolicies(t *testing.T) {
	t.Parallel()

	assert.True(t, Unbounded().Allows(1_000_000))
	assert.True(t, Bounded(0).Allows(1_000_000))

	b := Bounded(3)
	assert.True(t, b.Allows(3))
	assert.False(t, b.Allows(4))
	assert.Equal(t, "bounded(3)", b.String())
}

func TestNewUser(t *testing.T) {
	t.Parallel()

	user, err := NewUser(" u-1 ", " alice ", true, false)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "alice", user.Handle)
	assert.True(t, user.Staff)

	_, err = NewUser("", "alice", false, false)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewUser("u-1", "two words", false, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTarget(t *testing.T) {
	t.Parallel()

	var zero Target
	assert.True(t, zero.IsBroadcast())

	node, ok := Direct(4).Node()
	assert.True(t, ok)
	assert.Equal(t, 4, node)

	_, ok = Direct(0).Node()
	assert.False(t, ok, "a direct target to an offline user has no node")
	assert.Equal(t, TargetDirect, Direct(0).Kind())
}

func TestMessageUnreadBy(t *testing.T) {
	t.Parallel()

	toNode := NewMessage(1, "alice", Direct(2), "", "hi", false, epoch)
	assert.True(t, toNode.UnreadBy(2, "anyone"))
	assert.False(t, toNode.UnreadBy(3, "anyone"))
	toNode.MarkReadBy(2)
	assert.False(t, toNode.UnreadBy(2, "anyone"))

	toUser := NewMessage(1, "alice", Direct(0), "bob", "hi", false, epoch)
	assert.False(t, toUser.UnreadBy(2, ""))
	assert.True(t, toUser.UnreadBy(5, "bob"))

	all := NewMessage(1, "alice", Broadcast(), "", "hi", false, epoch)
	all.MarkReadBy(1)
	assert.False(t, all.UnreadBy(1, "alice"))
	assert.True(t, all.UnreadBy(2, "bob"))

	cpy := all.Clone()
	cpy.MarkReadBy(2)
	assert.True(t, all.UnreadBy(2, "bob"), "clones do not share read state")
}

func TestAutoReplyConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, AutoReplyConfig{UserID: "alice", Enabled: false}.Validate())
	assert.NoError(t, AutoReplyConfig{UserID: "alice", Enabled: true, Message: "away"}.Validate())
	assert.ErrorIs(t, AutoReplyConfig{Enabled: true, Message: "away"}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, AutoReplyConfig{UserID: "alice", Enabled: true}.Validate(), ErrInvalidInput)

	long := AutoReplyConfig{UserID: "alice", Enabled: true, Message: strings.Repeat("x", MaxAutoReplyLength+1)}
	assert.ErrorIs(t, long.Validate(), ErrInvalidInput)
}

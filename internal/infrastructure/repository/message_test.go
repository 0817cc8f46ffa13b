package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepositoryDirectFollowsRecipient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := NewMessageRepository()
	msg := domain.NewMessage(1, "alice", domain.Direct(2), "bob", "hi", false, epoch)
	require.NoError(t, r.Create(ctx, msg))

	// Bob reconnected on node 3 before reading.
	unread, err := r.TakeUnread(ctx, 2, "carol")
	require.NoError(t, err)
	assert.Empty(t, unread)

	unread, err = r.TakeUnread(ctx, 3, "bob")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "hi", unread[0].Body)

	unread, err = r.TakeUnread(ctx, 3, "bob")
	require.NoError(t, err)
	assert.Empty(t, unread, "messages are delivered once")
}

func TestMessageRepositoryBroadcastReadOncePerNode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := NewMessageRepository()
	require.NoError(t, r.Create(ctx, domain.NewMessage(1, "alice", domain.Broadcast(), "", "system restart", false, epoch)))

	for _, ordinal := range []int{1, 2} {
		unread, err := r.TakeUnread(ctx, ordinal, "someone")
		require.NoError(t, err)
		assert.Len(t, unread, 1, "node %d", ordinal)
	}

	unread, err := r.TakeUnread(ctx, 1, "someone")
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestMessageRepositoryOldestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := NewMessageRepository()
	for i, body := range []string{"one", "two", "three"} {
		msg := domain.NewMessage(1, "alice", domain.Direct(2), "", body, false, epoch.Add(time.Duration(i)*time.Second))
		require.NoError(t, r.Create(ctx, msg))
	}

	unread, err := r.TakeUnread(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, unread, 3)
	assert.Equal(t, "one", unread[0].Body)
	assert.Equal(t, "two", unread[1].Body)
	assert.Equal(t, "three", unread[2].Body)
}

func TestMessageRepositoryKeepsPendingMailForOfflineUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := NewMessageRepository()
	require.NoError(t, r.Create(ctx, domain.NewMessage(1, "alice", domain.Direct(0), "u-bob", "see you at 8", false, epoch)))
	for i := 0; i < 20000; i++ {
		at := epoch.Add(time.Duration(i+1) * time.Millisecond)
		require.NoError(t, r.Create(ctx, domain.NewMessage(1, "alice", domain.Broadcast(), "", "b", false, at)))
	}

	// Bob comes back on node 3 after the log has grown well past any fixed window.
	unread, err := r.TakeUnread(ctx, 3, "u-bob")
	require.NoError(t, err)
	require.Len(t, unread, 20001)
	assert.Equal(t, "see you at 8", unread[0].Body)
	assert.Equal(t, "u-bob", unread[0].ToUser)
}

func TestMessageRepositoryStoresCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := NewMessageRepository()
	msg := domain.NewMessage(1, "alice", domain.Direct(2), "", "original", false, epoch)
	require.NoError(t, r.Create(ctx, msg))
	msg.Body = "mutated"

	unread, err := r.TakeUnread(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "original", unread[0].Body)
}

func TestMessageRepositoryRejectsBadInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := NewMessageRepository()
	assert.ErrorIs(t, r.Create(ctx, nil), domain.ErrInvalidInput)

	_, err := r.TakeUnread(ctx, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

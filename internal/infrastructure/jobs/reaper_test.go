package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReaper struct {
	sweeps  atomic.Int32
	timeout atomic.Int64
	err     error
}

func (r *countingReaper) Sweep(_ context.Context, timeout time.Duration) (int, error) {
	r.sweeps.Add(1)
	r.timeout.Store(int64(timeout))
	return 1, r.err
}

func runJob(ctx context.Context, t *testing.T, job *ReaperJob) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()
	return done
}

func TestReaperJobSweepsUntilStopped(t *testing.T) {
	t.Parallel()

	r := &countingReaper{}
	job := NewReaperJob(r, logging.NewNop(), 5*time.Millisecond, 15*time.Minute)
	done := runJob(context.Background(), t, job)

	require.Eventually(t, func() bool { return r.sweeps.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(15*time.Minute), r.timeout.Load())

	job.Stop()
	job.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop")
	}
}

func TestReaperJobStopsWithContext(t *testing.T) {
	t.Parallel()

	r := &countingReaper{err: errors.New("node 3: registry unavailable")}
	ctx, cancel := context.WithCancel(context.Background())
	job := NewReaperJob(r, logging.NewNop(), 5*time.Millisecond, time.Minute)
	done := runJob(ctx, t, job)

	require.Eventually(t, func() bool { return r.sweeps.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job ignored context cancellation")
	}
}

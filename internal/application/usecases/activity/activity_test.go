package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/metrics"
	"github.com/hilthontt/nodeline/internal/infrastructure/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	events []domain.ActivityEvent
	err    error
}

func (p *recordingPublisher) PublishActivity(_ context.Context, event domain.ActivityEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type brokenRepo struct {
	domain.ActivityRepository
}

func (brokenRepo) Append(context.Context, *domain.ActivityEvent) error {
	return errors.New("write timeout")
}

func TestLogRecordsAndPublishes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := repository.NewActivityRepository()
	publisher := &recordingPublisher{}
	uc := NewUseCase(repo, publisher, nil, logging.NewNop(), fixedClock{now: epoch})

	res := uc.Log(ctx, Entry{Node: 3, UserID: "alice", Action: domain.ActionLogin, Description: "logged in", Origin: "10.0.0.1"})
	require.True(t, res.Recorded())

	events, err := uc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, res.EventID, events[0].ID)
	assert.Equal(t, epoch, events[0].CreatedAt)
	assert.Equal(t, "10.0.0.1", events[0].Origin)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, res.EventID, publisher.events[0].ID)
}

func TestLogPublishFailureStillRecorded(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{err: errors.New("channel closed")}
	uc := NewUseCase(repository.NewActivityRepository(), publisher, nil, logging.NewNop(), fixedClock{now: epoch})

	res := uc.Log(context.Background(), Entry{Node: 1, UserID: "alice", Action: domain.ActionLogout})
	assert.True(t, res.Recorded())
}

func TestLogAppendFailureIsReported(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	publisher := &recordingPublisher{}
	uc := NewUseCase(brokenRepo{}, publisher, m, logging.NewNop(), fixedClock{now: epoch})

	res := uc.Log(context.Background(), Entry{Node: 2, UserID: "alice", Action: domain.ActionTimeout})
	assert.False(t, res.Recorded())
	assert.ErrorIs(t, res.Err, domain.ErrAuditWrite)
	assert.Contains(t, res.Err.Error(), "write timeout")
	assert.Empty(t, publisher.events, "unrecorded events are not published")

	families, err := reg.Gather()
	require.NoError(t, err)
	var failures float64
	for _, mf := range families {
		if mf.GetName() == "nodeline_audit_failures_total" {
			failures = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), failures)
}

func TestQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	uc := NewUseCase(repository.NewActivityRepository(), nil, nil, logging.NewNop(), fixedClock{now: epoch})
	uc.Log(ctx, Entry{Node: 1, UserID: "alice", Action: domain.ActionLogin})
	uc.Log(ctx, Entry{Node: 2, UserID: "bob", Action: domain.ActionLogin})
	uc.Log(ctx, Entry{Node: 1, UserID: "alice", Action: domain.ActionTimeout})

	byUser, err := uc.ByUser(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byAction, err := uc.ByAction(ctx, domain.Action("login"), 1)
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, "bob", byAction[0].UserID)

	_, err = uc.ByAction(ctx, domain.Action("REBOOT"), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.ByUser(ctx, "", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-4))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(MaxLimit+1))
}

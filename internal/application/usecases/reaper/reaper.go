package reaper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/nodeline/internal/application/usecases/session"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/metrics"
)

const DefaultTimeout = 15 * time.Minute

const descTimeout = "idle timeout"

// Releaser is the part of the allocator the reaper needs.
type Releaser interface {
	ReleaseNode(ctx context.Context, req session.ReleaseRequest) (session.ReleaseResult, error)
}

type UseCase interface {
	Sweep(ctx context.Context, timeout time.Duration) (int, error)
}

type reaperUseCase struct {
	registry domain.NodeRegistry
	releaser Releaser
	metrics  *metrics.Metrics
	logger   logging.Logger
	clock    domain.Clock
}

func NewUseCase(
	registry domain.NodeRegistry,
	releaser Releaser,
	metrics *metrics.Metrics,
	logger logging.Logger,
	clock domain.Clock,
) UseCase {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &reaperUseCase{
		registry: registry,
		releaser: releaser,
		metrics:  metrics,
		logger:   logger,
		clock:    clock,
	}
}

// IsTimedOut reports whether an occupied node has been idle for at least timeout.
func IsTimedOut(node domain.Node, now time.Time, timeout time.Duration) bool {
	return node.IsOccupied() && now.Sub(node.LastActivity) >= timeout
}

// Sweep releases every timed-out node in a snapshot of the registry. A node whose
// occupant changed or became active again before the release is left alone.
// Per-node failures are joined and do not stop the sweep.
func (uc *reaperUseCase) Sweep(ctx context.Context, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	started := time.Now()

	nodes, err := uc.registry.List(ctx)
	if err != nil {
		return 0, err
	}

	var (
		reclaimed int
		errs      []error
	)
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !IsTimedOut(node, uc.clock.Now(), timeout) {
			continue
		}

		res, err := uc.releaser.ReleaseNode(ctx, session.ReleaseRequest{
			Node:        node.Ordinal,
			UserID:      node.Occupant,
			Action:      domain.ActionTimeout,
			Description: descTimeout,
			Match: func(current domain.Node) bool {
				return IsTimedOut(current, uc.clock.Now(), timeout)
			},
		})
		if err != nil {
			uc.logger.Warn(logging.Pool, logging.Sweep, "failed to reclaim node", map[logging.ExtraKey]any{
				logging.NodeOrdinal:  node.Ordinal,
				logging.UserID:       node.Occupant,
				logging.ErrorMessage: err.Error(),
			})
			errs = append(errs, fmt.Errorf("node %d: %w", node.Ordinal, err))
			continue
		}
		if res.Lease.Released {
			reclaimed++
		}
	}

	uc.metrics.Swept(reclaimed, time.Since(started).Seconds())
	if reclaimed > 0 {
		uc.logger.Info(logging.Pool, logging.Sweep, "idle nodes reclaimed", map[logging.ExtraKey]any{
			logging.Count: reclaimed,
		})
	}

	return reclaimed, errors.Join(errs...)
}

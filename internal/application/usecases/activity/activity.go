package activity

import (
	"context"
	"fmt"

	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/metrics"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

type Entry struct {
	Node        int
	UserID      string
	Action      domain.Action
	Description string
	Origin      string
}

// Result reports the audit outcome of a lifecycle operation. A non-nil Err never
// means the lifecycle mutation itself failed.
type Result struct {
	EventID string
	Err     error
}

func (r Result) Recorded() bool {
	return r.Err == nil && r.EventID != ""
}

// EventPublisher fans recorded events out to other processes.
type EventPublisher interface {
	PublishActivity(ctx context.Context, event domain.ActivityEvent) error
}

type UseCase interface {
	Log(ctx context.Context, entry Entry) Result
	Recent(ctx context.Context, limit int) ([]domain.ActivityEvent, error)
	ByUser(ctx context.Context, userID string, limit int) ([]domain.ActivityEvent, error)
	ByAction(ctx context.Context, action domain.Action, limit int) ([]domain.ActivityEvent, error)
}

type activityUseCase struct {
	repository domain.ActivityRepository
	publisher  EventPublisher
	metrics    *metrics.Metrics
	logger     logging.Logger
	clock      domain.Clock
}

func NewUseCase(
	repository domain.ActivityRepository,
	publisher EventPublisher,
	metrics *metrics.Metrics,
	logger logging.Logger,
	clock domain.Clock,
) UseCase {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &activityUseCase{
		repository: repository,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
		clock:      clock,
	}
}

func (uc *activityUseCase) Log(ctx context.Context, entry Entry) Result {
	event := domain.NewActivityEvent(entry.Node, entry.UserID, entry.Action, entry.Description, entry.Origin, uc.clock.Now())

	if err := uc.repository.Append(ctx, event); err != nil {
		uc.metrics.AuditFailed()
		uc.logger.Warn(logging.Audit, logging.Append, "failed to record activity", map[logging.ExtraKey]any{
			logging.NodeOrdinal:  entry.Node,
			logging.UserID:       entry.UserID,
			logging.Action:       string(entry.Action),
			logging.ErrorMessage: err.Error(),
		})
		return Result{Err: fmt.Errorf("%s on node %d: %w: %v", entry.Action, entry.Node, domain.ErrAuditWrite, err)}
	}

	if uc.publisher != nil {
		if err := uc.publisher.PublishActivity(ctx, *event); err != nil {
			uc.logger.Warn(logging.Audit, logging.Publish, "failed to publish activity", map[logging.ExtraKey]any{
				logging.NodeOrdinal:  entry.Node,
				logging.Action:       string(entry.Action),
				logging.ErrorMessage: err.Error(),
			})
		}
	}

	return Result{EventID: event.ID}
}

func (uc *activityUseCase) Recent(ctx context.Context, limit int) ([]domain.ActivityEvent, error) {
	return uc.repository.Recent(ctx, ClampLimit(limit))
}

func (uc *activityUseCase) ByUser(ctx context.Context, userID string, limit int) ([]domain.ActivityEvent, error) {
	if userID == "" {
		return nil, domain.NewValidationError("userId", "this field is required")
	}
	return uc.repository.ByUser(ctx, userID, ClampLimit(limit))
}

func (uc *activityUseCase) ByAction(ctx context.Context, action domain.Action, limit int) ([]domain.ActivityEvent, error) {
	parsed, err := domain.ParseAction(string(action))
	if err != nil {
		return nil, err
	}
	return uc.repository.ByAction(ctx, parsed, ClampLimit(limit))
}

// ClampLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

package repository

import (
	"context"
	"sync"

	"github.com/hilthontt/nodeline/internal/domain"
)

// activityRepository is an append-only log; events are never removed.
type activityRepository struct {
	events []domain.ActivityEvent // append order
	mu     *sync.RWMutex
}

func NewActivityRepository() domain.ActivityRepository {
	return &activityRepository{
		events: make([]domain.ActivityEvent, 0, 256),
		mu:     &sync.RWMutex{},
	}
}

func (r *activityRepository) Append(ctx context.Context, event *domain.ActivityEvent) error {
	if event == nil || event.ID == "" || event.Action == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, *event)
	return nil
}

func (r *activityRepository) Recent(ctx context.Context, limit int) ([]domain.ActivityEvent, error) {
	return r.newest(limit, func(domain.ActivityEvent) bool { return true }), nil
}

func (r *activityRepository) ByUser(ctx context.Context, userID string, limit int) ([]domain.ActivityEvent, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	return r.newest(limit, func(e domain.ActivityEvent) bool { return e.UserID == userID }), nil
}

func (r *activityRepository) ByAction(ctx context.Context, action domain.Action, limit int) ([]domain.ActivityEvent, error) {
	return r.newest(limit, func(e domain.ActivityEvent) bool { return e.Action == action }), nil
}

func (r *activityRepository) newest(limit int, keep func(domain.ActivityEvent) bool) []domain.ActivityEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ActivityEvent, 0)
	for i := len(r.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if keep(r.events[i]) {
			out = append(out, r.events[i])
		}
	}
	return out
}

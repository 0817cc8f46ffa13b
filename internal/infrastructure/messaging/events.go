package messaging

import (
	"time"

	"github.com/hilthontt/nodeline/internal/domain"
)

const (
	AuditQueue      = "activity_audit"
	DeadLetterQueue = "dead_letter_queue"
)

type ActivityEventData struct {
	ID          string    `json:"id"`
	Node        int       `json:"node"`
	UserID      string    `json:"userId"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Origin      string    `json:"origin,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewActivityEventData(e domain.ActivityEvent) ActivityEventData {
	return ActivityEventData{
		ID:          e.ID,
		Node:        e.Node,
		UserID:      e.UserID,
		Action:      string(e.Action),
		Description: e.Description,
		Origin:      e.Origin,
		CreatedAt:   e.CreatedAt,
	}
}

func (d ActivityEventData) ToDomain() (domain.ActivityEvent, error) {
	action, err := domain.ParseAction(d.Action)
	if err != nil {
		return domain.ActivityEvent{}, err
	}
	return domain.ActivityEvent{
		ID:          d.ID,
		Node:        d.Node,
		UserID:      d.UserID,
		Action:      action,
		Description: d.Description,
		Origin:      d.Origin,
		CreatedAt:   d.CreatedAt,
	}, nil
}

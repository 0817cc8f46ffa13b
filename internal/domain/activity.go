package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hilthontt/nodeline/internal/infrastructure/validate"
)

type Action string

const (
	ActionLogin      Action = "LOGIN"
	ActionLogout     Action = "LOGOUT"
	ActionActivity   Action = "ACTIVITY"
	ActionTimeout    Action = "TIMEOUT"
	ActionDisconnect Action = "DISCONNECT"
)

var validateAction = validate.OneOf(
	string(ActionLogin),
	string(ActionLogout),
	string(ActionActivity),
	string(ActionTimeout),
	string(ActionDisconnect),
)

func ParseAction(raw string) (Action, error) {
	action := strings.ToUpper(strings.TrimSpace(raw))
	if err := validateAction(action); err != nil {
		return "", NewValidationError("action", err.Error())
	}
	return Action(action), nil
}

// ActivityEvent is an immutable audit record of a node lifecycle change.
type ActivityEvent struct {
	ID          string
	Node        int
	UserID      string
	Action      Action
	Description string
	Origin      string
	CreatedAt   time.Time
}

func NewActivityEvent(node int, userID string, action Action, description, origin string, at time.Time) *ActivityEvent {
	return &ActivityEvent{
		ID:          uuid.NewString(),
		Node:        node,
		UserID:      userID,
		Action:      action,
		Description: description,
		Origin:      origin,
		CreatedAt:   at,
	}
}

// ActivityRepository lookups return newest events first.
type ActivityRepository interface {
	Append(ctx context.Context, event *ActivityEvent) error
	Recent(ctx context.Context, limit int) ([]ActivityEvent, error)
	ByUser(ctx context.Context, userID string, limit int) ([]ActivityEvent, error)
	ByAction(ctx context.Context, action Action, limit int) ([]ActivityEvent, error)
}

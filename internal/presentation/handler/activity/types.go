package activity

import (
	"time"

	"github.com/hilthontt/nodeline/internal/domain"
)

type eventResponse struct {
	ID          string    `json:"id"`
	Node        int       `json:"node"`
	UserID      string    `json:"userId"`
	Action      string    `json:"action"`
	Description string    `json:"description,omitempty"`
	Origin      string    `json:"origin,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type eventsResponse struct {
	Events []eventResponse `json:"events"`
	Count  int             `json:"count"`
}

func newEventsResponse(events []domain.ActivityEvent) eventsResponse {
	resp := eventsResponse{
		Events: make([]eventResponse, 0, len(events)),
		Count:  len(events),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, eventResponse{
			ID:          e.ID,
			Node:        e.Node,
			UserID:      e.UserID,
			Action:      string(e.Action),
			Description: e.Description,
			Origin:      e.Origin,
			CreatedAt:   e.CreatedAt,
		})
	}
	return resp
}

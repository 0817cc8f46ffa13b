package nodes

import (
	"time"

	"github.com/hilthontt/nodeline/internal/domain"
)

// NodeResponse is shared by the session and message handlers.
type NodeResponse struct {
	Ordinal       int        `json:"ordinal"`
	Status        string     `json:"status"`
	Occupant      string     `json:"occupant,omitempty"`
	Activity      string     `json:"activity,omitempty"`
	OccupiedSince *time.Time `json:"occupiedSince,omitempty"`
	LastActivity  *time.Time `json:"lastActivity,omitempty"`
}

func NewNodeResponse(n domain.Node) NodeResponse {
	resp := NodeResponse{
		Ordinal:  n.Ordinal,
		Status:   string(n.Status),
		Occupant: n.Occupant,
		Activity: n.Activity,
	}
	if !n.OccupiedSince.IsZero() {
		t := n.OccupiedSince
		resp.OccupiedSince = &t
	}
	if !n.LastActivity.IsZero() {
		t := n.LastActivity
		resp.LastActivity = &t
	}
	return resp
}

type listNodesResponse struct {
	Nodes    []NodeResponse `json:"nodes"`
	Total    int            `json:"total"`
	Occupied int            `json:"occupied"`
}

type setStatusRequest struct {
	Status string `json:"status"` // ONLINE, OFFLINE or MAINTENANCE
}

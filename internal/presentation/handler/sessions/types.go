package sessions

import (
	"github.com/hilthontt/nodeline/internal/application/usecases/activity"
	"github.com/hilthontt/nodeline/internal/application/usecases/session"
	"github.com/hilthontt/nodeline/internal/presentation/handler/nodes"
)

type auditResponse struct {
	Recorded bool   `json:"recorded"`
	EventID  string `json:"eventId,omitempty"`
	Error    string `json:"error,omitempty"`
}

func newAuditResponse(r activity.Result) auditResponse {
	resp := auditResponse{Recorded: r.Recorded(), EventID: r.EventID}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

type acquireResponse struct {
	Node      nodes.NodeResponse `json:"node"`
	Displaced *releaseResponse   `json:"displaced,omitempty"`
	Audit     auditResponse      `json:"audit"`
}

type releaseResponse struct {
	Node          int           `json:"node"`
	UserID        string        `json:"userId,omitempty"`
	Released      bool          `json:"released"`
	OnlineSeconds int64         `json:"onlineSeconds"`
	Audit         auditResponse `json:"audit"`
}

func newReleaseResponse(r session.ReleaseResult) releaseResponse {
	return releaseResponse{
		Node:          r.Lease.Node,
		UserID:        r.Lease.UserID,
		Released:      r.Lease.Released,
		OnlineSeconds: int64(r.Credited.Seconds()),
		Audit:         newAuditResponse(r.Audit),
	}
}

type touchRequest struct {
	Label string `json:"label"` // area the user moved to
}

type touchResponse struct {
	Node  nodes.NodeResponse `json:"node"`
	Audit auditResponse      `json:"audit"`
}

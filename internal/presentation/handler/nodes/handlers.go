package nodes

import (
	"net/http"

	"github.com/hilthontt/nodeline/internal/application/usecases/session"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/json"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/presentation/utils"
)

type Handler struct {
	sessions session.UseCase
	logger   logging.Logger
}

func NewHandler(sessions session.UseCase, logger logging.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		logger:   logger,
	}
}

func (h *Handler) ListNodesHandler(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.sessions.Who(r.Context())
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	resp := listNodesResponse{
		Nodes: make([]NodeResponse, 0, len(nodes)),
		Total: len(nodes),
	}
	for _, n := range nodes {
		if n.IsOccupied() {
			resp.Occupied++
		}
		resp.Nodes = append(resp.Nodes, NewNodeResponse(n))
	}

	json.Write(w, http.StatusOK, resp)
}

func (h *Handler) GetNodeHandler(w http.ResponseWriter, r *http.Request) {
	ordinal, err := utils.OrdinalParam(r)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	node, err := h.sessions.Node(r.Context(), ordinal)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusOK, NewNodeResponse(node))
}

func (h *Handler) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.IdentityFromRequest(r)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	ordinal, err := utils.OrdinalParam(r)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	var req setStatusRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	status, err := domain.ParseNodeStatus(req.Status)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	var node domain.Node
	switch status {
	case domain.NodeMaintenance:
		node, err = h.sessions.SetMaintenance(r.Context(), actor, ordinal)
	case domain.NodeOffline:
		node, err = h.sessions.SetOffline(r.Context(), actor, ordinal)
	default:
		node, err = h.sessions.SetOnline(r.Context(), actor, ordinal)
	}
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusOK, NewNodeResponse(node))
}

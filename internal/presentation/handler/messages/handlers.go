package messages

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/hilthontt/nodeline/internal/application/usecases/messaging"
	"github.com/hilthontt/nodeline/internal/application/usecases/session"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/json"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/ws"
	"github.com/hilthontt/nodeline/internal/presentation/utils"
)

type Handler struct {
	messaging messaging.UseCase
	sessions  session.UseCase
	core      *ws.Core
	logger    logging.Logger
}

func NewHandler(messaging messaging.UseCase, sessions session.UseCase, core *ws.Core, logger logging.Logger) *Handler {
	return &Handler{
		messaging: messaging,
		sessions:  sessions,
		core:      core,
		logger:    logger,
	}
}

func (h *Handler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if _, ok := h.authorizeNode(w, r, req.FromNode); !ok {
		return
	}

	delivery, err := h.messaging.Send(r.Context(), messaging.SendRequest{
		FromNode: req.FromNode,
		ToNode:   req.ToNode,
		ToUser:   req.ToUser,
		Body:     req.Body,
	})
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusCreated, newDeliveryResponse(delivery))
}

func (h *Handler) BroadcastHandler(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if _, ok := h.authorizeNode(w, r, req.FromNode); !ok {
		return
	}

	delivery, err := h.messaging.Broadcast(r.Context(), req.FromNode, req.Body)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusCreated, newDeliveryResponse(delivery))
}

func (h *Handler) PageHandler(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	node, ok := h.authorizeNode(w, r, req.FromNode)
	if !ok {
		return
	}

	delivery, err := h.messaging.Page(r.Context(), req.FromNode, node.Occupant, req.ToUser, req.Body)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusCreated, newDeliveryResponse(delivery))
}

func (h *Handler) UnreadHandler(w http.ResponseWriter, r *http.Request) {
	ordinal, err := utils.OrdinalParam(r)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if _, ok := h.authorizeNode(w, r, ordinal); !ok {
		return
	}

	messages, err := h.messaging.UnreadFor(r.Context(), ordinal)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	resp := unreadResponse{
		Node:     ordinal,
		Messages: make([]messageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, newMessageResponse(m))
	}

	json.Write(w, http.StatusOK, resp)
}

// LiveHandler upgrades to a websocket that receives messages addressed to the node.
func (h *Handler) LiveHandler(w http.ResponseWriter, r *http.Request) {
	ordinal, err := utils.OrdinalParam(r)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}
	node, ok := h.authorizeNode(w, r, ordinal)
	if !ok {
		return
	}

	conn, err := h.core.Upgrade(w, r)
	if err != nil {
		h.logger.Warn(logging.IO, logging.Delivery, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.NodeOrdinal:  ordinal,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	client := ws.NewClient(conn, uuid.NewString(), ordinal, node.Occupant)
	h.core.Subscribe(client)

	go client.WriteMessage(h.core)
	go client.ReadMessage(h.core)
}

// authorizeNode requires the caller to occupy the node, unless they are staff.
func (h *Handler) authorizeNode(w http.ResponseWriter, r *http.Request, ordinal int) (domain.Node, bool) {
	identity, err := utils.IdentityFromRequest(r)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return domain.Node{}, false
	}

	node, err := h.nodeFor(r.Context(), ordinal)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return domain.Node{}, false
	}
	if node.Occupant != identity.ID && !identity.Staff {
		utils.WriteDomainError(w, r, h.logger, domain.ErrForbidden)
		return domain.Node{}, false
	}
	return node, true
}

func (h *Handler) nodeFor(ctx context.Context, ordinal int) (domain.Node, error) {
	if ordinal < 1 {
		return domain.Node{}, domain.NewValidationError("fromNode", "must be a positive node ordinal")
	}
	return h.sessions.Node(ctx, ordinal)
}

func newDeliveryResponse(d messaging.Delivery) deliveryResponse {
	return deliveryResponse{
		Message:   newMessageResponse(d.Message),
		AutoReply: d.AutoReply,
	}
}

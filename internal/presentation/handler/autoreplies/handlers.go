package autoreplies

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/nodeline/internal/application/usecases/autoreply"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/json"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/presentation/utils"
)

type Handler struct {
	autoReplies autoreply.UseCase
	logger      logging.Logger
}

func NewHandler(autoReplies autoreply.UseCase, logger logging.Logger) *Handler {
	return &Handler{
		autoReplies: autoReplies,
		logger:      logger,
	}
}

func (h *Handler) GetAutoReplyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	cfg, err := h.autoReplies.Config(r.Context(), userID)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusOK, newAutoReplyResponse(cfg))
}

func (h *Handler) SetAutoReplyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req setAutoReplyRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	cfg, err := h.autoReplies.Set(r.Context(), userID, req.Enabled, req.Message)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusOK, newAutoReplyResponse(cfg))
}

func (h *Handler) DeleteAutoReplyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.autoReplies.Remove(r.Context(), userID); err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, err := utils.IdentityFromRequest(r)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return "", false
	}

	userID := chi.URLParam(r, "userId")
	if userID != identity.ID && !identity.Staff {
		utils.WriteDomainError(w, r, h.logger, domain.ErrForbidden)
		return "", false
	}
	return userID, true
}

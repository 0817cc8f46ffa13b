package sessions

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/nodeline/internal/application/usecases/session"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/json"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/infrastructure/validate"
	"github.com/hilthontt/nodeline/internal/presentation/handler/nodes"
	"github.com/hilthontt/nodeline/internal/presentation/utils"
)

var validateLabel = validate.Compose(validate.Required(), validate.MaxRunes(64))

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

func (h *Handler) AcquireHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := utils.IdentityFromRequest(r)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	res, err := h.sessions.Acquire(r.Context(), identity, utils.Origin(r))
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	resp := acquireResponse{
		Node:  nodes.NewNodeResponse(res.Node),
		Audit: newAuditResponse(res.Audit),
	}
	if res.Displaced != nil {
		displaced := newReleaseResponse(*res.Displaced)
		resp.Displaced = &displaced
	}

	json.Write(w, http.StatusCreated, resp)
}

func (h *Handler) ReleaseHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	res, err := h.sessions.Release(r.Context(), userID, utils.Origin(r))
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusOK, newReleaseResponse(res))
}

func (h *Handler) TouchHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req touchRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	label := strings.TrimSpace(req.Label)
	if err := validateLabel(label); err != nil {
		utils.WriteDomainError(w, r, h.logger, domain.NewValidationError("label", err.Error()))
		return
	}

	res, err := h.sessions.Touch(r.Context(), userID, label)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusOK, touchResponse{
		Node:  nodes.NewNodeResponse(res.Node),
		Audit: newAuditResponse(res.Audit),
	})
}

// authorize lets users act on their own session and staff on any.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
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

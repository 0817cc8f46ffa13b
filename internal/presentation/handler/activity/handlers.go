package activity

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	activityUseCase "github.com/hilthontt/nodeline/internal/application/usecases/activity"
	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/json"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
	"github.com/hilthontt/nodeline/internal/presentation/utils"
)

type Handler struct {
	activity activityUseCase.UseCase
	logger   logging.Logger
}

func NewHandler(activity activityUseCase.UseCase, logger logging.Logger) *Handler {
	return &Handler{
		activity: activity,
		logger:   logger,
	}
}

func (h *Handler) RecentHandler(w http.ResponseWriter, r *http.Request) {
	if !h.staffOnly(w, r) {
		return
	}

	events, err := h.activity.Recent(r.Context(), utils.LimitParam(r))
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusOK, newEventsResponse(events))
}

func (h *Handler) ByUserHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := utils.IdentityFromRequest(r)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	userID := chi.URLParam(r, "userId")
	if userID != identity.ID && !identity.Staff {
		utils.WriteDomainError(w, r, h.logger, domain.ErrForbidden)
		return
	}

	events, err := h.activity.ByUser(r.Context(), userID, utils.LimitParam(r))
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusOK, newEventsResponse(events))
}

func (h *Handler) ByActionHandler(w http.ResponseWriter, r *http.Request) {
	if !h.staffOnly(w, r) {
		return
	}

	action := domain.Action(chi.URLParam(r, "action"))
	events, err := h.activity.ByAction(r.Context(), action, utils.LimitParam(r))
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return
	}

	json.Write(w, http.StatusOK, newEventsResponse(events))
}

func (h *Handler) staffOnly(w http.ResponseWriter, r *http.Request) bool {
	identity, err := utils.IdentityFromRequest(r)
	if err != nil {
		utils.WriteDomainError(w, r, h.logger, err)
		return false
	}
	if !identity.Staff {
		utils.WriteDomainError(w, r, h.logger, domain.ErrForbidden)
		return false
	}
	return true
}

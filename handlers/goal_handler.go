package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	middleware "goally/middlewares"
	"goally/models"
	service "goally/services"
	"goally/suggest"
	"goally/utils"
)

const requestTimeout = 10 * time.Second

type GoalHandler struct {
	sessions  *service.SessionManager
	suggester suggest.Suggester
	logger    *slog.Logger
}

// NewGoalHandler wires the HTTP surface. suggester may be nil, in which case
// the suggestion endpoint echoes the raw title.
func NewGoalHandler(sessions *service.SessionManager, suggester suggest.Suggester, logger *slog.Logger) *GoalHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GoalHandler{
		sessions:  sessions,
		suggester: suggester,
		logger:    logger,
	}
}

// session resolves the caller's session. When its snapshot cannot be loaded
// the error response is written and ok is false; an unloaded session must not
// be shown as an empty hierarchy.
func (h *GoalHandler) session(w http.ResponseWriter, r *http.Request) (service.GoalService, context.Context, context.CancelFunc, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	principal := middleware.GetPrincipalFromContext(r.Context())
	svc, err := h.sessions.Session(ctx, principal)
	if err != nil {
		cancel()
		h.logger.Error("session unavailable", "principal", principal, "error", err)
		utils.HandleMessageResponse(w, "Stored goals could not be loaded, try again later", http.StatusServiceUnavailable)
		return nil, nil, nil, false
	}
	return svc, ctx, cancel, true
}

// writeError maps service errors to responses. data, when non-nil, is the
// result of a mutation that was applied in memory but not persisted.
func (h *GoalHandler) writeError(w http.ResponseWriter, err error, data any) {
	switch {
	case errors.Is(err, service.ErrValidation):
		utils.HandleMessageResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrParentNotFound):
		utils.HandleMessageResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrLoadIntegrity):
		utils.HandleMessageResponse(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, service.ErrPersistence):
		utils.HandleDataResponse(w, "Change applied but could not be saved", data, http.StatusAccepted)
	default:
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *GoalHandler) writeChange(w http.ResponseWriter, id string, changed bool, err error, message string) {
	result := models.ChangeResult{ID: id, Changed: changed}
	if err != nil {
		h.writeError(w, err, result)
		return
	}
	if !changed {
		utils.HandleDataResponse(w, "Nothing to change", result, http.StatusOK)
		return
	}
	utils.HandleDataResponse(w, message, result, http.StatusOK)
}

func (h *GoalHandler) GetGoals(w http.ResponseWriter, r *http.Request) {
	svc, _, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	utils.HandleDataResponse(w, "Goals retrieved successfully", svc.Tree(), http.StatusOK)
}

func (h *GoalHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	svc, _, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	utils.HandleDataResponse(w, "Snapshot retrieved successfully", svc.Snapshot(), http.StatusOK)
}

func (h *GoalHandler) GetTierStats(w http.ResponseWriter, r *http.Request) {
	svc, _, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	utils.HandleDataResponse(w, "Goal tier statistics retrieved successfully", svc.TierStats(), http.StatusOK)
}

func (h *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req models.GoalRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}
	svc, ctx, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	goal, err := svc.CreateGoal(ctx, req.Title)
	if err != nil {
		h.writeError(w, err, goal)
		return
	}
	utils.HandleDataResponse(w, "Goal created successfully", goal, http.StatusCreated)
}

func (h *GoalHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	svc, _, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	tree, found := svc.GoalTree(r.PathValue("id"))
	if !found {
		utils.HandleMessageResponse(w, "Goal not found", http.StatusNotFound)
		return
	}
	utils.HandleDataResponse(w, "Goal retrieved successfully", tree, http.StatusOK)
}

func (h *GoalHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req models.GoalRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}
	svc, ctx, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	id := r.PathValue("id")
	changed, err := svc.UpdateGoal(ctx, id, req.Title)
	h.writeChange(w, id, changed, err, "Goal updated successfully")
}

func (h *GoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	svc, ctx, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	id := r.PathValue("id")
	changed, err := svc.DeleteGoal(ctx, id)
	h.writeChange(w, id, changed, err, "Goal deleted successfully")
}

func (h *GoalHandler) CreateKr(w http.ResponseWriter, r *http.Request) {
	var req models.KeyResultRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}
	svc, ctx, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	kr, err := svc.CreateKr(ctx, r.PathValue("id"), req.Description, req.Weight)
	if err != nil {
		h.writeError(w, err, kr)
		return
	}
	utils.HandleDataResponse(w, "Key result created successfully", kr, http.StatusCreated)
}

func (h *GoalHandler) GetKr(w http.ResponseWriter, r *http.Request) {
	svc, _, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	tree, found := svc.KrTree(r.PathValue("id"))
	if !found {
		utils.HandleMessageResponse(w, "Key result not found", http.StatusNotFound)
		return
	}
	utils.HandleDataResponse(w, "Key result retrieved successfully", tree, http.StatusOK)
}

func (h *GoalHandler) UpdateKr(w http.ResponseWriter, r *http.Request) {
	var req models.KeyResultRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}
	svc, ctx, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	id := r.PathValue("id")
	changed, err := svc.UpdateKr(ctx, id, req.Description, req.Weight)
	h.writeChange(w, id, changed, err, "Key result updated successfully")
}

func (h *GoalHandler) DeleteKr(w http.ResponseWriter, r *http.Request) {
	svc, ctx, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	id := r.PathValue("id")
	changed, err := svc.DeleteKr(ctx, id)
	h.writeChange(w, id, changed, err, "Key result deleted successfully")
}

func (h *GoalHandler) CreateInitiative(w http.ResponseWriter, r *http.Request) {
	var req models.InitiativeRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}
	svc, ctx, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	in, err := svc.CreateInitiative(ctx, r.PathValue("id"), req.Description, req.WeightLevel, req.Status)
	if err != nil {
		h.writeError(w, err, in)
		return
	}
	utils.HandleDataResponse(w, "Initiative created successfully", in, http.StatusCreated)
}

func (h *GoalHandler) GetInitiative(w http.ResponseWriter, r *http.Request) {
	svc, _, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	in, found := svc.FindInitiative(r.PathValue("id"))
	if !found {
		utils.HandleMessageResponse(w, "Initiative not found", http.StatusNotFound)
		return
	}
	utils.HandleDataResponse(w, "Initiative retrieved successfully", in, http.StatusOK)
}

func (h *GoalHandler) UpdateInitiative(w http.ResponseWriter, r *http.Request) {
	var patch models.InitiativePatch
	if err := utils.DecodeAndValidate(w, r, &patch); err != nil {
		return
	}
	svc, ctx, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	id := r.PathValue("id")
	changed, err := svc.UpdateInitiative(ctx, id, patch)
	h.writeChange(w, id, changed, err, "Initiative updated successfully")
}

func (h *GoalHandler) SetInitiativeStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}
	svc, ctx, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	id := r.PathValue("id")
	changed, err := svc.SetInitiativeStatus(ctx, id, req.Status)
	h.writeChange(w, id, changed, err, "Initiative status updated successfully")
}

func (h *GoalHandler) DeleteInitiative(w http.ResponseWriter, r *http.Request) {
	svc, ctx, cancel, ok := h.session(w, r)
	if !ok {
		return
	}
	defer cancel()

	id := r.PathValue("id")
	changed, err := svc.DeleteInitiative(ctx, id)
	h.writeChange(w, id, changed, err, "Initiative deleted successfully")
}

// SuggestTitle refines a rough goal title. Any suggestion failure falls back
// to the trimmed raw title so goal creation is never blocked by it.
func (h *GoalHandler) SuggestTitle(w http.ResponseWriter, r *http.Request) {
	var req models.SuggestRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	response := struct {
		Title     string `json:"title"`
		Suggested bool   `json:"suggested"`
	}{Title: strings.TrimSpace(req.Title)}

	if h.suggester != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
		defer cancel()
		title, err := h.suggester.Suggest(ctx, req.Title)
		if err != nil {
			h.logger.Warn("title suggestion failed", "error", err)
		} else {
			response.Title = title
			response.Suggested = true
		}
	}

	utils.HandleDataResponse(w, "Title suggestion", response, http.StatusOK)
}

package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/Shivanand-hulikatti/interview-registration/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegistrationHandler holds the HTTP handlers for the registration lifecycle.
type RegistrationHandler struct {
	svc    *service.RegistrationService
	logger *zap.Logger
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc *service.RegistrationService, logger *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, logger: logger}
}

// Register handles POST /registrations
// Books the caller onto an interview, optionally into a slot.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.Register(r.Context(), a, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// Cancel handles PUT /registrations/{id}/cancel
func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	reg, err := h.svc.Cancel(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Registration cancelled successfully", Data: reg})
}

// ChangeStatus handles PUT /registrations/{id}/status
// Reports whether the status was actually changed.
func (h *RegistrationHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.ChangeStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	change, reg, err := h.svc.ChangeStatus(r.Context(), a, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	msg := "Registration status updated successfully"
	if change == service.StatusUnchanged {
		msg = "Registration status unchanged"
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: msg, Data: reg})
}

// Score handles PUT /registrations/{id}/score
func (h *RegistrationHandler) Score(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.ScoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.Score(r.Context(), a, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Score submitted successfully", Data: reg})
}

// Announce handles POST /registrations/{id}/announce
func (h *RegistrationHandler) Announce(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	reg, err := h.svc.AnnounceResult(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Result announced successfully", Data: reg})
}

// Get handles GET /registrations/{id}
func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	detail, err := h.svc.Get(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ListMine handles GET /registrations/my?status=
func (h *RegistrationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	status := model.RegistrationStatus(r.URL.Query().Get("status"))
	regs, err := h.svc.ListMine(r.Context(), a, status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// ListByStatus handles GET /registrations/status/{status}
func (h *RegistrationHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	regs, err := h.svc.ListByStatus(r.Context(), a, model.RegistrationStatus(chi.URLParam(r, "status")))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// ListForInterview handles GET /interviews/{id}/registrations?status=
func (h *RegistrationHandler) ListForInterview(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	status := model.RegistrationStatus(r.URL.Query().Get("status"))
	regs, err := h.svc.ListForInterview(r.Context(), a, chi.URLParam(r, "id"), status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// List handles GET /registrations?interview_id=&status=&page=&page_size=
func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	size, err := queryInt(r, "page_size")
	if err != nil {
		writeError(w, http.StatusBadRequest, "page_size must be an integer")
		return
	}

	q := r.URL.Query()
	result, err := h.svc.List(r.Context(), a, model.RegistrationFilter{
		InterviewID: q.Get("interview_id"),
		Status:      model.RegistrationStatus(q.Get("status")),
		Page:        page,
		PageSize:    size,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

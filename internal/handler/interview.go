package handler

import (
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/Shivanand-hulikatti/interview-registration/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// InterviewHandler holds the HTTP handlers for interview and slot administration.
type InterviewHandler struct {
	svc    *service.InterviewService
	logger *zap.Logger
}

// NewInterviewHandler constructs an InterviewHandler.
func NewInterviewHandler(svc *service.InterviewService, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{svc: svc, logger: logger}
}

// CreateInterview handles POST /interviews
func (h *InterviewHandler) CreateInterview(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.CreateInterviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	iv, err := h.svc.CreateInterview(r.Context(), a, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, iv)
}

// ListInterviews handles GET /interviews?status=
func (h *InterviewHandler) ListInterviews(w http.ResponseWriter, r *http.Request) {
	ivs, err := h.svc.ListInterviews(r.Context(), model.InterviewStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if ivs == nil {
		ivs = []model.Interview{}
	}
	writeJSON(w, http.StatusOK, ivs)
}

// GetInterview handles GET /interviews/{id}
func (h *InterviewHandler) GetInterview(w http.ResponseWriter, r *http.Request) {
	iv, err := h.svc.GetInterview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// UpdateInterviewStatus handles PUT /interviews/{id}/status
func (h *InterviewHandler) UpdateInterviewStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.UpdateInterviewStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	iv, err := h.svc.UpdateInterviewStatus(r.Context(), a, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// CreateSlot handles POST /interviews/{id}/slots
func (h *InterviewHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.CreateSlotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	slot, err := h.svc.CreateSlot(r.Context(), a, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

// ListSlots handles GET /interviews/{id}/slots?available=true
func (h *InterviewHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	available := false
	if v := r.URL.Query().Get("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "available must be a boolean")
			return
		}
		available = b
	}

	slots, err := h.svc.ListSlots(r.Context(), chi.URLParam(r, "id"), available)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if slots == nil {
		slots = []model.InterviewSlot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

// GetSlot handles GET /slots/{id}
func (h *InterviewHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := h.svc.GetSlot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// UpdateSlotCapacity handles PUT /slots/{id}/capacity
func (h *InterviewHandler) UpdateSlotCapacity(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.UpdateSlotCapacityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	slot, err := h.svc.UpdateSlotCapacity(r.Context(), a, chi.URLParam(r, "id"), req.Capacity)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// DeleteSlot handles DELETE /slots/{id}
func (h *InterviewHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSlot(r.Context(), a, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Slot deleted successfully"})
}

package influencer

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

// Handler exposes HTTP endpoints for influencer onboarding and approval.
type Handler struct {
	Svc *Service
}

type dto struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	TiktokHandle   string `json:"tiktokHandle,omitempty"`
	CommissionRate int32  `json:"commissionRate"`
	Status         string `json:"status"`
}

func toDTO(inf store.Influencer) dto {
	return dto{
		ID:             inf.ID.String(),
		Email:          inf.Email,
		TiktokHandle:   inf.TiktokHandle,
		CommissionRate: inf.CommissionRate,
		Status:         string(inf.Status),
	}
}

// Apply handles the public onboarding form submission.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "influencer service not configured", nil)
		return
	}
	var in ApplyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	inf, err := h.Svc.Apply(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toDTO(inf)})
}

// Approve promotes a pending profile to active (admin only).
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, store.InfluencerStatusActive)
}

// Deactivate disables a profile (admin only).
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, store.InfluencerStatusInactive)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status store.InfluencerStatus) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "influencer service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid influencer identifier", nil)
		return
	}
	var inf store.Influencer
	switch status {
	case store.InfluencerStatusActive:
		inf, err = h.Svc.Approve(r.Context(), id)
	default:
		inf, err = h.Svc.Deactivate(r.Context(), id)
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toDTO(inf)})
}

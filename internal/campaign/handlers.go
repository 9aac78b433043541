package campaign

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

// Handler exposes HTTP endpoints for campaigns.
type Handler struct {
	Svc *Service
}

type dto struct {
	ID                 string   `json:"id"`
	InfluencerID       string   `json:"influencerId"`
	Product            string   `json:"product"`
	PricePerUnit       int64    `json:"pricePerUnit"`
	DiscountThreshold1 int64    `json:"discountThreshold1"`
	DiscountThreshold2 int64    `json:"discountThreshold2"`
	Deadline           string   `json:"deadline"`
	Status             string   `json:"status"`
	Progress           Progress `json:"progress"`
}

func toDTO(c store.Campaign) dto {
	return dto{
		ID:                 c.ID.String(),
		InfluencerID:       c.InfluencerID.String(),
		Product:            c.Product,
		PricePerUnit:       c.PricePerUnit,
		DiscountThreshold1: c.DiscountThreshold1,
		DiscountThreshold2: c.DiscountThreshold2,
		Deadline:           c.Deadline.Format(time.RFC3339),
		Status:             string(c.Status),
		Progress:           ProgressFor(c),
	}
}

// Create launches a campaign for the authenticated influencer.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "campaign service not configured", nil)
		return
	}
	email, ok := common.Identity(r.Context())
	if !ok || email == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c, err := h.Svc.Create(r.Context(), email, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toDTO(c)})
}

// Get returns one campaign with its live progress.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "campaign service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid campaign identifier", nil)
		return
	}
	c, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toDTO(c)})
}

// List returns active campaigns for the storefront index.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "campaign service not configured", nil)
		return
	}
	limit, offset := common.ParsePagination(r, 20, 100)
	campaigns, err := h.Svc.ListActive(r.Context(), limit, offset)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]dto, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, toDTO(c))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// ListMine returns the authenticated influencer's campaigns.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "campaign service not configured", nil)
		return
	}
	email, ok := common.Identity(r.Context())
	if !ok || email == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	campaigns, err := h.Svc.ListMine(r.Context(), email)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]dto, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, toDTO(c))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

package order

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

// Handler exposes HTTP endpoints for orders.
type Handler struct {
	Svc *Service
}

type dto struct {
	ID            string `json:"id"`
	CampaignID    string `json:"campaignId"`
	CustomerEmail string `json:"customerEmail"`
	Quantity      int64  `json:"quantity"`
	Amount        int64  `json:"amount"`
	PaymentStatus string `json:"paymentStatus"`
	SharedStatus  bool   `json:"sharedStatus"`
	Provider      string `json:"provider"`
	CreatedAt     string `json:"createdAt"`
}

func toDTO(o store.Order) dto {
	return dto{
		ID:            o.ID.String(),
		CampaignID:    o.CampaignID.String(),
		CustomerEmail: o.CustomerEmail,
		Quantity:      o.Quantity,
		Amount:        o.Amount,
		PaymentStatus: string(o.PaymentStatus),
		SharedStatus:  o.SharedStatus,
		Provider:      o.Provider,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
}

func parseID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid identifier", nil)
		return uuid.Nil, false
	}
	return id, true
}

// Get returns one order.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toDTO(o)})
}

// MarkShared flags the order as shared by the buyer.
func (h *Handler) MarkShared(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.Svc.MarkShared(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toDTO(o)})
}

// ListByCampaign returns settled orders for one campaign, restricted to the
// influencer who owns it.
func (h *Handler) ListByCampaign(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	email, ok := common.Identity(r.Context())
	if !ok || email == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	limit, offset := common.ParsePagination(r, 20, 100)
	orders, err := h.Svc.ListByCampaign(r.Context(), email, id, limit, offset)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]dto, 0, len(orders))
	for _, o := range orders {
		out = append(out, toDTO(o))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

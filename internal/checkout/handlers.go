package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/noah-isme/backend-gomflow/internal/common"
)

// Handler exposes the checkout initiation endpoint.
type Handler struct {
	Svc *Service
}

// Checkout opens a hosted payment session and returns the redirect handle.
// Buyers do not need an account; a bearer token only pins the customer email.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	email, _ := common.Identity(r.Context())
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	session, err := h.Svc.Initiate(r.Context(), email, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": session})
}

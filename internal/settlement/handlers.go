package settlement

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/payment"
)

// Handler receives payment provider webhooks and routes them to settlement.
type Handler struct {
	Svc       *Service
	Providers map[string]payment.Provider
	Redis     *redis.Client
	ReplayTTL time.Duration
}

// Webhook verifies the notification signature, guards against replays and
// applies the settlement. Providers retry on non-2xx, so validation failures
// that will never succeed return 4xx while transient errors return 5xx. The
// replay key is only kept once the settlement is applied; a retry after a
// failed attempt must reach the database again.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settlement service not configured", nil)
		return
	}
	name := chi.URLParam(r, "provider")
	provider, ok := h.Providers[name]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "UNKNOWN_PROVIDER", "unknown payment provider", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read webhook body", nil)
		return
	}

	res, err := provider.VerifyWebhook(r, body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed webhook payload", nil)
		return
	}
	if !res.Valid {
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "webhook signature verification failed", nil)
		return
	}

	var replayKey string
	if h.Redis != nil {
		replayKey = "wh:" + name + ":" + common.Sha256Hex(string(body))
		ttl := h.ReplayTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		fresh, err := h.Redis.SetNX(r.Context(), replayKey, "1", ttl).Result()
		if err == nil && !fresh {
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	releaseReplayKey := func() {
		if h.Redis != nil && replayKey != "" {
			_ = h.Redis.Del(context.Background(), replayKey).Err()
		}
	}

	switch res.Status {
	case payment.StatusPaid:
		if _, err := h.Svc.SettlePaid(r.Context(), name, res); err != nil {
			releaseReplayKey()
			common.WriteError(w, err)
			return
		}
	case payment.StatusFailed, payment.StatusExpired:
		if _, err := h.Svc.SettleFailed(r.Context(), name, res); err != nil {
			releaseReplayKey()
			common.WriteError(w, err)
			return
		}
	case payment.StatusPending:
		// acknowledged but nothing to record yet
	default:
		common.JSONError(w, http.StatusBadRequest, "UNKNOWN_STATUS", "unrecognised webhook status", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

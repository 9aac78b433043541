package settlement

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gomflow/internal/checkout"
	"github.com/noah-isme/backend-gomflow/internal/payment"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

type stubProvider struct {
	result payment.WebhookResult
	err    error
}

func (p *stubProvider) CreateSession(context.Context, payment.SessionRequest) (payment.SessionResponse, error) {
	return payment.SessionResponse{Provider: "stub"}, nil
}

func (p *stubProvider) VerifyWebhook(*http.Request, []byte) (payment.WebhookResult, error) {
	return p.result, p.err
}

func newWebhookServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/v1/payments/webhook/{provider}", h.Webhook)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postWebhook(t *testing.T, url, provider, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/v1/payments/webhook/"+provider, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestWebhookUnknownProvider(t *testing.T) {
	h := &Handler{
		Svc:       &Service{Q: newFakeQuerier(0, 100, 100000, 25, 50), Log: zerolog.Nop()},
		Providers: map[string]payment.Provider{},
	}
	srv := newWebhookServer(t, h)

	resp := postWebhook(t, srv.URL, "nonexistent", `{}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhookInvalidSignature(t *testing.T) {
	h := &Handler{
		Svc:       &Service{Q: newFakeQuerier(0, 100, 100000, 25, 50), Log: zerolog.Nop()},
		Providers: map[string]payment.Provider{"midtrans": &stubProvider{result: payment.WebhookResult{Valid: false}}},
	}
	srv := newWebhookServer(t, h)

	resp := postWebhook(t, srv.URL, "midtrans", `{"forged":true}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookPaidSettles(t *testing.T) {
	q := newFakeQuerier(10, 100, 100000, 25, 50)
	ref := uuid.NewString()
	provider := &stubProvider{result: payment.WebhookResult{
		Valid:     true,
		Reference: ref,
		Amount:    200000,
		Status:    payment.StatusPaid,
		Metadata: map[string]string{
			checkout.MetaCampaignID:    q.campaignID.String(),
			checkout.MetaQuantity:      strconv.Itoa(2),
			checkout.MetaCustomerEmail: "buyer@example.com",
		},
	}}
	h := &Handler{
		Svc:       &Service{Q: q, Log: zerolog.Nop()},
		Providers: map[string]payment.Provider{"midtrans": provider},
	}
	srv := newWebhookServer(t, h)

	resp := postWebhook(t, srv.URL, "midtrans", `{"transaction_status":"settlement"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Contains(t, q.orders, ref)
	require.Equal(t, int64(12), q.row.CurrentQuantity)
}

func TestWebhookMissingMetadata(t *testing.T) {
	q := newFakeQuerier(10, 100, 100000, 25, 50)
	provider := &stubProvider{result: payment.WebhookResult{
		Valid:     true,
		Reference: uuid.NewString(),
		Status:    payment.StatusPaid,
	}}
	h := &Handler{
		Svc:       &Service{Q: q, Log: zerolog.Nop()},
		Providers: map[string]payment.Provider{"midtrans": provider},
	}
	srv := newWebhookServer(t, h)

	resp := postWebhook(t, srv.URL, "midtrans", `{"transaction_status":"settlement"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, 0, q.addCalls)
}

func TestWebhookReplayGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := newFakeQuerier(10, 100, 100000, 25, 50)
	provider := &stubProvider{result: payment.WebhookResult{
		Valid:     true,
		Reference: uuid.NewString(),
		Amount:    200000,
		Status:    payment.StatusPaid,
		Metadata: map[string]string{
			checkout.MetaCampaignID:    q.campaignID.String(),
			checkout.MetaQuantity:      "2",
			checkout.MetaCustomerEmail: "buyer@example.com",
		},
	}}
	h := &Handler{
		Svc:       &Service{Q: q, Log: zerolog.Nop()},
		Providers: map[string]payment.Provider{"midtrans": provider},
		Redis:     rdb,
		ReplayTTL: time.Hour,
	}
	srv := newWebhookServer(t, h)

	body := `{"transaction_status":"settlement","order_id":"abc"}`
	first := postWebhook(t, srv.URL, "midtrans", body)
	require.Equal(t, http.StatusNoContent, first.StatusCode)

	second := postWebhook(t, srv.URL, "midtrans", body)
	require.Equal(t, http.StatusOK, second.StatusCode)
	require.Equal(t, 1, q.addCalls)
}

// flakyQuerier fails the first quantity increment to simulate a transient
// database error during settlement.
type flakyQuerier struct {
	*fakeQuerier
	failures int
}

func (f *flakyQuerier) AddCampaignQuantity(ctx context.Context, id uuid.UUID, qty int64) (store.CampaignQuantityRow, error) {
	if f.failures > 0 {
		f.failures--
		return store.CampaignQuantityRow{}, errors.New("connection reset by peer")
	}
	return f.fakeQuerier.AddCampaignQuantity(ctx, id, qty)
}

func TestWebhookRetryAfterTransientFailureSettles(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := newFakeQuerier(10, 100, 100000, 25, 50)
	flaky := &flakyQuerier{fakeQuerier: q, failures: 1}
	ref := uuid.NewString()
	provider := &stubProvider{result: payment.WebhookResult{
		Valid:     true,
		Reference: ref,
		Amount:    200000,
		Status:    payment.StatusPaid,
		Metadata: map[string]string{
			checkout.MetaCampaignID:    q.campaignID.String(),
			checkout.MetaQuantity:      "2",
			checkout.MetaCustomerEmail: "buyer@example.com",
		},
	}}
	h := &Handler{
		Svc:       &Service{Q: flaky, Log: zerolog.Nop()},
		Providers: map[string]payment.Provider{"midtrans": provider},
		Redis:     rdb,
		ReplayTTL: time.Hour,
	}
	srv := newWebhookServer(t, h)

	body := `{"transaction_status":"settlement","order_id":"abc"}`
	first := postWebhook(t, srv.URL, "midtrans", body)
	require.Equal(t, http.StatusInternalServerError, first.StatusCode)
	require.Empty(t, q.orders)

	// the provider retries the identical body; it must reach the database
	second := postWebhook(t, srv.URL, "midtrans", body)
	require.Equal(t, http.StatusNoContent, second.StatusCode)
	require.Contains(t, q.orders, ref)
	require.Equal(t, int64(12), q.row.CurrentQuantity)
}

func TestWebhookForgedSignatureDoesNotBurnReplayKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := newFakeQuerier(10, 100, 100000, 25, 50)
	ref := uuid.NewString()
	provider := &stubProvider{result: payment.WebhookResult{Valid: false}}
	h := &Handler{
		Svc:       &Service{Q: q, Log: zerolog.Nop()},
		Providers: map[string]payment.Provider{"midtrans": provider},
		Redis:     rdb,
		ReplayTTL: time.Hour,
	}
	srv := newWebhookServer(t, h)

	body := `{"transaction_status":"settlement","order_id":"abc"}`
	forged := postWebhook(t, srv.URL, "midtrans", body)
	require.Equal(t, http.StatusUnauthorized, forged.StatusCode)

	// the same body with a valid signature still settles
	provider.result = payment.WebhookResult{
		Valid:     true,
		Reference: ref,
		Amount:    200000,
		Status:    payment.StatusPaid,
		Metadata: map[string]string{
			checkout.MetaCampaignID:    q.campaignID.String(),
			checkout.MetaQuantity:      "2",
			checkout.MetaCustomerEmail: "buyer@example.com",
		},
	}
	genuine := postWebhook(t, srv.URL, "midtrans", body)
	require.Equal(t, http.StatusNoContent, genuine.StatusCode)
	require.Contains(t, q.orders, ref)
}

func TestWebhookPendingIsAcknowledged(t *testing.T) {
	q := newFakeQuerier(10, 100, 100000, 25, 50)
	provider := &stubProvider{result: payment.WebhookResult{
		Valid:     true,
		Reference: uuid.NewString(),
		Status:    payment.StatusPending,
	}}
	h := &Handler{
		Svc:       &Service{Q: q, Log: zerolog.Nop()},
		Providers: map[string]payment.Provider{"xendit": provider},
	}
	srv := newWebhookServer(t, h)

	resp := postWebhook(t, srv.URL, "xendit", `{"status":"PENDING"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, 0, q.addCalls)
}

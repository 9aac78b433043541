package checkout

import (
	"context"
	"net/http"
	"testing"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/payment"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

type fakeQuerier struct {
	campaign store.Campaign
}

func (f *fakeQuerier) GetCampaignByID(_ context.Context, id uuid.UUID) (store.Campaign, error) {
	if id != f.campaign.ID {
		return store.Campaign{}, pgx.ErrNoRows
	}
	return f.campaign, nil
}

type captureProvider struct {
	req payment.SessionRequest
	err error
}

func (p *captureProvider) CreateSession(_ context.Context, req payment.SessionRequest) (payment.SessionResponse, error) {
	p.req = req
	if p.err != nil {
		return payment.SessionResponse{}, p.err
	}
	return payment.SessionResponse{
		Provider:    "midtrans",
		Token:       "SNAP-" + req.Reference,
		RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/SNAP-" + req.Reference,
		ExpiresAt:   time.Now().Add(time.Duration(req.ExpirySec) * time.Second).Unix(),
	}, nil
}

func (p *captureProvider) VerifyWebhook(*http.Request, []byte) (payment.WebhookResult, error) {
	return payment.WebhookResult{}, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func activeCampaign() store.Campaign {
	return store.Campaign{
		ID:                 uuid.New(),
		InfluencerID:       uuid.New(),
		Product:            "Serum Vitamin C 30ml",
		TargetQuantity:     100,
		CurrentQuantity:    23,
		PricePerUnit:       100000,
		DiscountThreshold1: 25,
		DiscountThreshold2: 50,
		Deadline:           fixedNow().Add(7 * 24 * time.Hour),
		Status:             store.CampaignStatusActive,
	}
}

func newService(c store.Campaign, p payment.Provider) *Service {
	return &Service{
		Q:             &fakeQuerier{campaign: c},
		Provider:      p,
		Validate:      validator.New(),
		SessionTTL:    30 * time.Minute,
		PublicBaseURL: "https://shop.example.com",
		Now:           fixedNow,
	}
}

func TestInitiateQuotesPostOrderTotal(t *testing.T) {
	c := activeCampaign()
	p := &captureProvider{}
	svc := newService(c, p)

	// 23 + 2 = 25 crosses the first threshold, so the quote is discounted
	session, err := svc.Initiate(context.Background(), "buyer@example.com", Input{
		CampaignID: c.ID.String(),
		Quantity:   2,
	})
	require.NoError(t, err)
	require.Equal(t, int64(200000), session.Quote.Base)
	require.Equal(t, int64(180000), session.Quote.Final)
	require.Equal(t, 10, session.Quote.TierPercent)
	require.NotEmpty(t, session.Reference)
	require.Equal(t, "midtrans", session.Provider)

	require.Equal(t, session.Quote.Final, p.req.Amount)
	require.Equal(t, c.ID.String(), p.req.Metadata[MetaCampaignID])
	require.Equal(t, "2", p.req.Metadata[MetaQuantity])
	require.Equal(t, "buyer@example.com", p.req.Metadata[MetaCustomerEmail])
	require.Equal(t, 1800, p.req.ExpirySec)
	require.Contains(t, p.req.SuccessURL, "https://shop.example.com/campaigns/"+c.ID.String())
	require.Contains(t, p.req.CancelURL, "canceled=true")
}

func TestInitiateAnonymousBuyerUsesPayloadEmail(t *testing.T) {
	c := activeCampaign()
	p := &captureProvider{}
	svc := newService(c, p)

	_, err := svc.Initiate(context.Background(), "", Input{
		CampaignID:    c.ID.String(),
		Quantity:      1,
		CustomerEmail: "Guest@Example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "guest@example.com", p.req.CustomerEmail)
	require.Equal(t, "guest@example.com", p.req.Metadata[MetaCustomerEmail])
}

func TestInitiateAuthenticatedIdentityWinsOverPayload(t *testing.T) {
	c := activeCampaign()
	p := &captureProvider{}
	svc := newService(c, p)

	_, err := svc.Initiate(context.Background(), "buyer@example.com", Input{
		CampaignID:    c.ID.String(),
		Quantity:      1,
		CustomerEmail: "someone-else@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "buyer@example.com", p.req.Metadata[MetaCustomerEmail])
}

func TestInitiateRejectsInactiveCampaign(t *testing.T) {
	c := activeCampaign()
	c.Status = store.CampaignStatusCompleted
	svc := newService(c, &captureProvider{})

	_, err := svc.Initiate(context.Background(), "buyer@example.com", Input{CampaignID: c.ID.String(), Quantity: 1})
	requireAppError(t, err, "CAMPAIGN_NOT_ACTIVE", http.StatusConflict)
}

func TestInitiateRejectsPastDeadline(t *testing.T) {
	c := activeCampaign()
	c.Deadline = fixedNow().Add(-time.Hour)
	svc := newService(c, &captureProvider{})

	_, err := svc.Initiate(context.Background(), "buyer@example.com", Input{CampaignID: c.ID.String(), Quantity: 1})
	requireAppError(t, err, "CAMPAIGN_EXPIRED", http.StatusConflict)
}

func TestInitiateUnknownCampaign(t *testing.T) {
	svc := newService(activeCampaign(), &captureProvider{})

	_, err := svc.Initiate(context.Background(), "buyer@example.com", Input{CampaignID: uuid.NewString(), Quantity: 1})
	requireAppError(t, err, "CAMPAIGN_NOT_FOUND", http.StatusNotFound)
}

func TestInitiateRejectsNonPositiveQuantity(t *testing.T) {
	c := activeCampaign()
	svc := newService(c, &captureProvider{})

	_, err := svc.Initiate(context.Background(), "buyer@example.com", Input{CampaignID: c.ID.String(), Quantity: 0})
	requireAppError(t, err, "VALIDATION_FAILED", http.StatusBadRequest)
}

func TestInitiateProviderFailure(t *testing.T) {
	c := activeCampaign()
	svc := newService(c, &captureProvider{err: context.DeadlineExceeded})

	_, err := svc.Initiate(context.Background(), "buyer@example.com", Input{CampaignID: c.ID.String(), Quantity: 1})
	requireAppError(t, err, "PAYMENT_UNAVAILABLE", http.StatusServiceUnavailable)
}

func requireAppError(t *testing.T, err error, code string, status int) {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
	require.Equal(t, status, appErr.HTTPStatus)
}

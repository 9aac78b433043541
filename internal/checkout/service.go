package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/obs"
	"github.com/noah-isme/backend-gomflow/internal/payment"
	"github.com/noah-isme/backend-gomflow/internal/pricing"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

// Metadata keys attached to the hosted session and echoed back on settlement.
const (
	MetaCampaignID    = "campaign_id"
	MetaQuantity      = "quantity"
	MetaBaseAmount    = "base_amount"
	MetaTierPercent   = "tier_percent"
	MetaCustomerEmail = "customer_email"
)

// Querier lists the store operations checkout depends on.
type Querier interface {
	GetCampaignByID(ctx context.Context, id uuid.UUID) (store.Campaign, error)
}

// Service opens hosted payment sessions for campaign purchases.
type Service struct {
	Q             Querier
	Provider      payment.Provider
	Validate      *validator.Validate
	SessionTTL    time.Duration
	PublicBaseURL string
	Now           func() time.Time
}

// Input is the checkout request payload. CustomerEmail covers anonymous
// buyers; an authenticated identity takes precedence over it.
type Input struct {
	CampaignID    string `json:"campaignId" validate:"required,uuid"`
	Quantity      int64  `json:"quantity" validate:"required,gt=0"`
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
}

// Session is returned to the caller for redirecting to the hosted checkout.
// The quote is provisional: other buyers may move the cumulative total before
// this session settles, and settlement recomputes the charge server-side.
type Session struct {
	Reference   string        `json:"reference"`
	Provider    string        `json:"provider"`
	Token       string        `json:"token"`
	RedirectURL string        `json:"redirectUrl"`
	ExpiresAt   int64         `json:"expiresAt"`
	Quote       pricing.Quote `json:"quote"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Initiate validates the campaign, quotes a provisional price and opens a
// hosted payment session carrying the pricing inputs as opaque metadata.
func (s *Service) Initiate(ctx context.Context, customerEmail string, in Input) (Session, error) {
	var zero Session
	if s == nil || s.Q == nil || s.Provider == nil {
		return zero, errors.New("checkout service not configured")
	}
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "CheckoutService.Initiate")
	defer span.End()

	providerName := "unknown"
	result := "error"
	defer func() {
		if obs.CheckoutSessionTotal != nil {
			obs.CheckoutSessionTotal.WithLabelValues(providerName, result).Inc()
		}
	}()

	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			result = "invalid"
			return zero, common.NewAppError("VALIDATION_FAILED", err.Error(), 400, err)
		}
	}
	if customerEmail == "" {
		customerEmail = strings.ToLower(strings.TrimSpace(in.CustomerEmail))
	}
	campaignID, err := uuid.Parse(in.CampaignID)
	if err != nil {
		result = "invalid"
		return zero, common.ErrInvalid("INVALID_ID", "invalid campaign identifier")
	}
	span.SetAttributes(attribute.String("campaign.id", in.CampaignID), attribute.Int64("order.quantity", in.Quantity))

	c, err := s.Q.GetCampaignByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			result = "not_found"
			return zero, common.ErrNotFound("CAMPAIGN_NOT_FOUND", "campaign not found or inactive")
		}
		return zero, err
	}
	if c.Status != store.CampaignStatusActive {
		result = "not_active"
		return zero, common.ErrConflict("CAMPAIGN_NOT_ACTIVE", "campaign is not accepting orders")
	}
	if !c.Deadline.After(s.now()) {
		result = "expired"
		return zero, common.ErrConflict("CAMPAIGN_EXPIRED", "campaign deadline has passed")
	}

	quote := pricing.ForOrder(c.PricePerUnit, in.Quantity,
		c.CurrentQuantity+in.Quantity, c.DiscountThreshold1, c.DiscountThreshold2)

	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	reference := uuid.NewString()
	req := payment.SessionRequest{
		Reference:     reference,
		Amount:        quote.Final,
		CustomerEmail: customerEmail,
		Description:   fmt.Sprintf("%s - group buying campaign (qty %d)", c.Product, in.Quantity),
		Metadata: map[string]string{
			MetaCampaignID:    c.ID.String(),
			MetaQuantity:      strconv.FormatInt(in.Quantity, 10),
			MetaBaseAmount:    strconv.FormatInt(quote.Base, 10),
			MetaTierPercent:   strconv.Itoa(quote.TierPercent),
			MetaCustomerEmail: customerEmail,
		},
		ExpirySec:  int(ttl.Seconds()),
		SuccessURL: fmt.Sprintf("%s/campaigns/%s/success?reference=%s", s.PublicBaseURL, c.ID, reference),
		CancelURL:  fmt.Sprintf("%s/campaigns/%s?canceled=true", s.PublicBaseURL, c.ID),
	}
	resp, err := s.Provider.CreateSession(ctx, req)
	if err != nil {
		span.RecordError(err)
		return zero, common.ErrUnavailable("PAYMENT_UNAVAILABLE", "payment provider unavailable", err)
	}
	providerName = resp.Provider
	result = "success"
	span.SetAttributes(attribute.String("payment.provider", resp.Provider), attribute.Int("pricing.tier", quote.TierPercent))

	return Session{
		Reference:   reference,
		Provider:    resp.Provider,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		ExpiresAt:   resp.ExpiresAt,
		Quote:       quote,
	}, nil
}

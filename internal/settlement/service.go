package settlement

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-gomflow/internal/checkout"
	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/events"
	"github.com/noah-isme/backend-gomflow/internal/obs"
	"github.com/noah-isme/backend-gomflow/internal/payment"
	"github.com/noah-isme/backend-gomflow/internal/pricing"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

// Querier lists the store operations settlement depends on.
type Querier interface {
	GetOrderByProviderRef(ctx context.Context, ref string) (store.Order, error)
	AddCampaignQuantity(ctx context.Context, id uuid.UUID, qty int64) (store.CampaignQuantityRow, error)
	CreateOrder(ctx context.Context, arg store.CreateOrderParams) (store.Order, error)
	CompleteCampaign(ctx context.Context, id uuid.UUID) (bool, error)
	MarkOrderFailedByProviderRef(ctx context.Context, ref string) (bool, error)
}

// errDuplicateRef signals that another settlement inserted the same provider
// reference first. Returning it from the transaction body rolls back the
// quantity increment, leaving the first settlement as the only effect.
var errDuplicateRef = errors.New("settlement: duplicate provider reference")

// Service applies payment webhook notifications to campaign and order state.
// When Tx is set every paid settlement runs inside one database transaction;
// tests inject a fake Querier and leave Tx nil.
type Service struct {
	Q   Querier
	Tx  *store.TxRunner
	Bus *events.Bus
	Log zerolog.Logger
}

// Outcome describes what a settlement did.
type Outcome struct {
	Order             store.Order
	Quote             pricing.Quote
	AlreadySettled    bool
	CampaignCompleted bool
	AmountMismatch    bool
}

type paidInput struct {
	campaignID    uuid.UUID
	quantity      int64
	customerEmail string
}

func parseMetadata(md map[string]string) (paidInput, error) {
	var in paidInput
	rawID, ok := md[checkout.MetaCampaignID]
	if !ok || rawID == "" {
		return in, common.ErrInvalid("METADATA_MISSING", "webhook metadata lacks the campaign reference")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return in, common.ErrInvalid("METADATA_MISSING", "webhook metadata carries an invalid campaign reference")
	}
	qty, err := strconv.ParseInt(md[checkout.MetaQuantity], 10, 64)
	if err != nil || qty <= 0 {
		return in, common.ErrInvalid("METADATA_MISSING", "webhook metadata lacks a positive quantity")
	}
	in.campaignID = id
	in.quantity = qty
	in.customerEmail = md[checkout.MetaCustomerEmail]
	return in, nil
}

// SettlePaid records a successful payment: it increments the campaign's
// cumulative quantity, recomputes the price from the post-increment total and
// inserts the completed order. Replays keyed by the provider reference are
// no-ops.
func (s *Service) SettlePaid(ctx context.Context, provider string, res payment.WebhookResult) (Outcome, error) {
	var out Outcome
	if s == nil || (s.Q == nil && s.Tx == nil) {
		return out, errors.New("settlement service not configured")
	}
	ctx, span := otel.Tracer("settlement.Service").Start(ctx, "SettlementService.SettlePaid")
	defer span.End()
	span.SetAttributes(attribute.String("payment.provider", provider), attribute.String("payment.reference", res.Reference))

	in, err := parseMetadata(res.Metadata)
	if err != nil {
		s.count(provider, "metadata_missing")
		return out, err
	}

	if s.Tx != nil {
		err = s.Tx.InTx(ctx, func(q *store.Queries) error {
			out, err = s.settlePaid(ctx, q, provider, res, in)
			return err
		})
	} else {
		out, err = s.settlePaid(ctx, s.Q, provider, res, in)
	}
	if errors.Is(err, errDuplicateRef) {
		out = Outcome{AlreadySettled: true}
		err = nil
	}
	if err != nil {
		s.count(provider, "error")
		return Outcome{}, err
	}
	if out.AlreadySettled {
		s.count(provider, "replay")
		return out, nil
	}

	s.count(provider, "settled")
	if obs.DiscountTierTotal != nil {
		obs.DiscountTierTotal.WithLabelValues(strconv.Itoa(out.Quote.TierPercent)).Inc()
	}
	if out.AmountMismatch {
		if obs.SettlementAmountMismatch != nil {
			obs.SettlementAmountMismatch.Inc()
		}
		s.Log.Warn().
			Str("provider", provider).
			Str("reference", res.Reference).
			Int64("provider_amount", res.Amount).
			Int64("recomputed_amount", out.Quote.Final).
			Msg("settlement amount diverged from recomputation")
	}
	if out.CampaignCompleted && obs.CampaignCompletedTotal != nil {
		obs.CampaignCompletedTotal.Inc()
	}
	s.emitPaid(ctx, out, in)
	return out, nil
}

func (s *Service) settlePaid(ctx context.Context, q Querier, provider string, res payment.WebhookResult, in paidInput) (Outcome, error) {
	var out Outcome
	existing, err := q.GetOrderByProviderRef(ctx, res.Reference)
	if err == nil {
		out.Order = existing
		out.AlreadySettled = true
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return out, err
	}

	row, err := q.AddCampaignQuantity(ctx, in.campaignID, in.quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, common.ErrNotFound("CAMPAIGN_NOT_FOUND", "campaign referenced by webhook does not exist")
		}
		return out, err
	}

	out.Quote = pricing.ForOrder(row.PricePerUnit, in.quantity, row.CurrentQuantity,
		row.DiscountThreshold1, row.DiscountThreshold2)
	out.AmountMismatch = res.Amount > 0 && res.Amount != out.Quote.Final

	order, err := q.CreateOrder(ctx, store.CreateOrderParams{
		CampaignID:    in.campaignID,
		CustomerEmail: in.customerEmail,
		Quantity:      in.quantity,
		Amount:        out.Quote.Final,
		PaymentStatus: store.PaymentStatusCompleted,
		Provider:      provider,
		ProviderRef:   res.Reference,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, errDuplicateRef
		}
		return out, err
	}
	out.Order = order

	if row.CurrentQuantity >= row.TargetQuantity {
		promoted, err := q.CompleteCampaign(ctx, in.campaignID)
		if err != nil {
			return out, err
		}
		out.CampaignCompleted = promoted
	}
	return out, nil
}

// SettleFailed marks an order failed by its provider reference. Failure
// notifications for references that never settled leave no trace besides the
// event log; the quantity counter only moves on successful settlements.
func (s *Service) SettleFailed(ctx context.Context, provider string, res payment.WebhookResult) (bool, error) {
	if s == nil || s.Q == nil {
		return false, errors.New("settlement service not configured")
	}
	marked, err := s.Q.MarkOrderFailedByProviderRef(ctx, res.Reference)
	if err != nil {
		s.count(provider, "error")
		return false, err
	}
	outcome := "failed_ignored"
	if marked {
		outcome = "failed"
	}
	s.count(provider, outcome)

	topic := events.TopicPaymentFailed
	if res.Status == payment.StatusExpired {
		topic = events.TopicPaymentExpired
	}
	if s.Bus != nil {
		aggregate := uuid.Nil
		if md, err := parseMetadata(res.Metadata); err == nil {
			aggregate = md.campaignID
		}
		if aggregate != uuid.Nil {
			if _, err := s.Bus.Emit(ctx, topic, aggregate, map[string]any{
				"provider":  provider,
				"reference": res.Reference,
				"status":    res.Status,
			}); err != nil {
				s.Log.Error().Err(err).Str("topic", topic).Msg("emit payment failure event")
			}
		}
	}
	return marked, nil
}

func (s *Service) emitPaid(ctx context.Context, out Outcome, in paidInput) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, events.TopicOrderSettled, out.Order.ID, map[string]any{
		"campaignId":  in.campaignID.String(),
		"quantity":    in.quantity,
		"amount":      out.Quote.Final,
		"tierPercent": out.Quote.TierPercent,
	}); err != nil {
		s.Log.Error().Err(err).Msg("emit order settled event")
	}
	if out.CampaignCompleted {
		if _, err := s.Bus.Emit(ctx, events.TopicCampaignCompleted, in.campaignID, map[string]any{
			"campaignId": in.campaignID.String(),
		}); err != nil {
			s.Log.Error().Err(err).Msg("emit campaign completed event")
		}
	}
}

func (s *Service) count(provider, outcome string) {
	if obs.SettlementTotal != nil {
		obs.SettlementTotal.WithLabelValues(provider, outcome).Inc()
	}
}

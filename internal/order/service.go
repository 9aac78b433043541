package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/events"
	"github.com/noah-isme/backend-gomflow/internal/influencer"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

// Querier lists the store operations the order service depends on.
type Querier interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (store.Order, error)
	MarkOrderShared(ctx context.Context, id uuid.UUID) (bool, error)
	ListOrdersByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int32) ([]store.Order, error)
	GetCampaignByID(ctx context.Context, id uuid.UUID) (store.Campaign, error)
}

// Service exposes order reads and the share-to-unlock step.
type Service struct {
	Q           Querier
	Influencers *influencer.Service
	Bus         *events.Bus
}

// Get loads a single order.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (store.Order, error) {
	if s == nil || s.Q == nil {
		return store.Order{}, errors.New("order service not configured")
	}
	o, err := s.Q.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Order{}, common.ErrNotFound("ORDER_NOT_FOUND", "order not found")
		}
		return store.Order{}, err
	}
	return o, nil
}

// MarkShared records that the buyer completed the social share step. The flag
// only moves from false to true; repeated calls after the first are no-ops.
func (s *Service) MarkShared(ctx context.Context, id uuid.UUID) (store.Order, error) {
	if s == nil || s.Q == nil {
		return store.Order{}, errors.New("order service not configured")
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return store.Order{}, err
	}
	if o.PaymentStatus != store.PaymentStatusCompleted {
		return store.Order{}, common.ErrConflict("ORDER_NOT_SETTLED", "only settled orders can be shared")
	}
	flipped, err := s.Q.MarkOrderShared(ctx, id)
	if err != nil {
		return store.Order{}, err
	}
	o.SharedStatus = true
	if flipped && s.Bus != nil {
		_, _ = s.Bus.Emit(ctx, events.TopicOrderShared, o.ID, map[string]any{
			"campaignId": o.CampaignID.String(),
		})
	}
	return o, nil
}

// ListByCampaign returns settled orders for a campaign. Buyer emails and
// amounts are only visible to the influencer who owns the campaign.
func (s *Service) ListByCampaign(ctx context.Context, ownerEmail string, campaignID uuid.UUID, limit, offset int32) ([]store.Order, error) {
	if s == nil || s.Q == nil || s.Influencers == nil {
		return nil, errors.New("order service not configured")
	}
	c, err := s.Q.GetCampaignByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound("CAMPAIGN_NOT_FOUND", "campaign not found")
		}
		return nil, err
	}
	inf, err := s.Influencers.Lookup(ctx, ownerEmail)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.Code == "PROFILE_NOT_FOUND" {
			return nil, common.ErrForbidden("NOT_CAMPAIGN_OWNER", "campaign belongs to another influencer")
		}
		return nil, err
	}
	if c.InfluencerID != inf.ID {
		return nil, common.ErrForbidden("NOT_CAMPAIGN_OWNER", "campaign belongs to another influencer")
	}
	return s.Q.ListOrdersByCampaign(ctx, campaignID, limit, offset)
}

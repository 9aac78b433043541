package campaign

import (
	"context"
	"errors"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/influencer"
	"github.com/noah-isme/backend-gomflow/internal/pricing"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

// Minimum group size allowed by policy.
const minTargetQuantity = 10

// Querier lists the store operations the campaign service depends on.
type Querier interface {
	CreateCampaign(ctx context.Context, arg store.CreateCampaignParams) (store.Campaign, error)
	GetCampaignByID(ctx context.Context, id uuid.UUID) (store.Campaign, error)
	ListActiveCampaigns(ctx context.Context, limit, offset int32) ([]store.Campaign, error)
	ListCampaignsByInfluencer(ctx context.Context, influencerID uuid.UUID) ([]store.Campaign, error)
}

// Service manages campaign authoring and reads.
type Service struct {
	Q           Querier
	Influencers *influencer.Service
	Validate    *validator.Validate
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateInput is the campaign authoring payload. Thresholds and target are in
// units; the price is whole rupiah per unit.
type CreateInput struct {
	Product            string `json:"product" validate:"required,min=3,max=200"`
	TargetQuantity     int64  `json:"targetQuantity" validate:"required,gt=0"`
	PricePerUnit       int64  `json:"pricePerUnit" validate:"required,gt=0"`
	DiscountThreshold1 int64  `json:"discountThreshold1" validate:"required,gt=0"`
	DiscountThreshold2 int64  `json:"discountThreshold2" validate:"required,gt=0"`
	DeadlineDays       int    `json:"deadlineDays" validate:"required,gt=0,lte=90"`
}

// Create launches a campaign for an approved influencer. The campaign goes
// live immediately; the draft state exists only for imports.
func (s *Service) Create(ctx context.Context, ownerEmail string, in CreateInput) (store.Campaign, error) {
	if s == nil || s.Q == nil || s.Influencers == nil {
		return store.Campaign{}, errors.New("campaign service not configured")
	}
	in.Product = strings.TrimSpace(in.Product)
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return store.Campaign{}, common.NewAppError("VALIDATION_FAILED", err.Error(), 400, err)
		}
	}
	if in.TargetQuantity < minTargetQuantity {
		return store.Campaign{}, common.ErrInvalid("TARGET_TOO_SMALL", "target quantity must be at least 10")
	}
	if in.DiscountThreshold1 >= in.DiscountThreshold2 {
		return store.Campaign{}, common.ErrInvalid("THRESHOLDS_OUT_OF_ORDER", "first discount threshold must be below the second")
	}
	if in.DiscountThreshold2 > in.TargetQuantity {
		return store.Campaign{}, common.ErrInvalid("THRESHOLD_ABOVE_TARGET", "second discount threshold cannot exceed the target quantity")
	}

	owner, err := s.Influencers.RequireActive(ctx, ownerEmail)
	if err != nil {
		return store.Campaign{}, err
	}

	deadline := s.now().AddDate(0, 0, in.DeadlineDays)
	return s.Q.CreateCampaign(ctx, store.CreateCampaignParams{
		InfluencerID:       owner.ID,
		Product:            in.Product,
		TargetQuantity:     in.TargetQuantity,
		PricePerUnit:       in.PricePerUnit,
		DiscountThreshold1: in.DiscountThreshold1,
		DiscountThreshold2: in.DiscountThreshold2,
		Deadline:           deadline,
		Status:             store.CampaignStatusActive,
	})
}

// Progress summarises how far along a campaign is and which discount tier the
// group has unlocked so far.
type Progress struct {
	CurrentQuantity int64 `json:"currentQuantity"`
	TargetQuantity  int64 `json:"targetQuantity"`
	PercentToTarget int   `json:"percentToTarget"`
	UnlockedTier    int   `json:"unlockedTierPercent"`
	NextThreshold   int64 `json:"nextThreshold,omitempty"`
}

// ProgressFor derives display progress from campaign state. The tier shown is
// the one already unlocked by settled orders, not a provisional one.
func ProgressFor(c store.Campaign) Progress {
	p := Progress{
		CurrentQuantity: c.CurrentQuantity,
		TargetQuantity:  c.TargetQuantity,
		UnlockedTier:    pricing.Tier(c.CurrentQuantity, c.DiscountThreshold1, c.DiscountThreshold2),
	}
	if c.TargetQuantity > 0 {
		p.PercentToTarget = int(c.CurrentQuantity * 100 / c.TargetQuantity)
		if p.PercentToTarget > 100 {
			p.PercentToTarget = 100
		}
	}
	switch {
	case c.CurrentQuantity < c.DiscountThreshold1:
		p.NextThreshold = c.DiscountThreshold1
	case c.CurrentQuantity < c.DiscountThreshold2:
		p.NextThreshold = c.DiscountThreshold2
	}
	return p
}

// Get loads a single campaign.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (store.Campaign, error) {
	if s == nil || s.Q == nil {
		return store.Campaign{}, errors.New("campaign service not configured")
	}
	c, err := s.Q.GetCampaignByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Campaign{}, common.ErrNotFound("CAMPAIGN_NOT_FOUND", "campaign not found")
		}
		return store.Campaign{}, err
	}
	return c, nil
}

// ListActive returns running campaigns for the storefront index.
func (s *Service) ListActive(ctx context.Context, limit, offset int32) ([]store.Campaign, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("campaign service not configured")
	}
	return s.Q.ListActiveCampaigns(ctx, limit, offset)
}

// ListMine returns the caller's campaigns for the dashboard.
func (s *Service) ListMine(ctx context.Context, ownerEmail string) ([]store.Campaign, error) {
	if s == nil || s.Q == nil || s.Influencers == nil {
		return nil, errors.New("campaign service not configured")
	}
	owner, err := s.Influencers.Lookup(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	return s.Q.ListCampaignsByInfluencer(ctx, owner.ID)
}

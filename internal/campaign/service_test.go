package campaign

import (
	"context"
	"testing"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/influencer"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

type fakeQuerier struct {
	campaigns map[uuid.UUID]store.Campaign
}

func (f *fakeQuerier) CreateCampaign(_ context.Context, arg store.CreateCampaignParams) (store.Campaign, error) {
	c := store.Campaign{
		ID:                 uuid.New(),
		InfluencerID:       arg.InfluencerID,
		Product:            arg.Product,
		TargetQuantity:     arg.TargetQuantity,
		PricePerUnit:       arg.PricePerUnit,
		DiscountThreshold1: arg.DiscountThreshold1,
		DiscountThreshold2: arg.DiscountThreshold2,
		Deadline:           arg.Deadline,
		Status:             arg.Status,
	}
	f.campaigns[c.ID] = c
	return c, nil
}

func (f *fakeQuerier) GetCampaignByID(_ context.Context, id uuid.UUID) (store.Campaign, error) {
	if c, ok := f.campaigns[id]; ok {
		return c, nil
	}
	return store.Campaign{}, pgx.ErrNoRows
}

func (f *fakeQuerier) ListActiveCampaigns(_ context.Context, _, _ int32) ([]store.Campaign, error) {
	var out []store.Campaign
	for _, c := range f.campaigns {
		if c.Status == store.CampaignStatusActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeQuerier) ListCampaignsByInfluencer(_ context.Context, influencerID uuid.UUID) ([]store.Campaign, error) {
	var out []store.Campaign
	for _, c := range f.campaigns {
		if c.InfluencerID == influencerID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeInfluencerQuerier struct {
	owner store.Influencer
}

func (f *fakeInfluencerQuerier) CreateInfluencer(context.Context, store.CreateInfluencerParams) (store.Influencer, error) {
	return f.owner, nil
}

func (f *fakeInfluencerQuerier) GetInfluencerByID(_ context.Context, id uuid.UUID) (store.Influencer, error) {
	if id != f.owner.ID {
		return store.Influencer{}, pgx.ErrNoRows
	}
	return f.owner, nil
}

func (f *fakeInfluencerQuerier) GetInfluencerByEmail(_ context.Context, email string) (store.Influencer, error) {
	if email != f.owner.Email {
		return store.Influencer{}, pgx.ErrNoRows
	}
	return f.owner, nil
}

func (f *fakeInfluencerQuerier) UpdateInfluencerStatus(_ context.Context, _ uuid.UUID, status store.InfluencerStatus) (store.Influencer, error) {
	f.owner.Status = status
	return f.owner, nil
}

func newService(ownerStatus store.InfluencerStatus) (*Service, *fakeQuerier, store.Influencer) {
	owner := store.Influencer{ID: uuid.New(), Email: "rina@example.com", Status: ownerStatus}
	q := &fakeQuerier{campaigns: map[uuid.UUID]store.Campaign{}}
	svc := &Service{
		Q:           q,
		Influencers: &influencer.Service{Q: &fakeInfluencerQuerier{owner: owner}},
		Validate:    validator.New(),
		Now:         func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	}
	return svc, q, owner
}

func validInput() CreateInput {
	return CreateInput{
		Product:            "Serum Vitamin C 30ml",
		TargetQuantity:     50,
		PricePerUnit:       150000,
		DiscountThreshold1: 25,
		DiscountThreshold2: 50,
		DeadlineDays:       14,
	}
}

func TestCreateLaunchesActiveCampaign(t *testing.T) {
	svc, _, owner := newService(store.InfluencerStatusActive)

	c, err := svc.Create(context.Background(), owner.Email, validInput())
	require.NoError(t, err)
	require.Equal(t, owner.ID, c.InfluencerID)
	require.Equal(t, store.CampaignStatusActive, c.Status)
	require.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), c.Deadline)
	require.Zero(t, c.CurrentQuantity)
}

func TestCreateRequiresApprovedOwner(t *testing.T) {
	svc, _, owner := newService(store.InfluencerStatusPending)

	_, err := svc.Create(context.Background(), owner.Email, validInput())
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "PROFILE_NOT_APPROVED", appErr.Code)
}

func TestCreateValidatesThresholdOrdering(t *testing.T) {
	svc, _, owner := newService(store.InfluencerStatusActive)

	in := validInput()
	in.DiscountThreshold1 = 50
	in.DiscountThreshold2 = 25
	_, err := svc.Create(context.Background(), owner.Email, in)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "THRESHOLDS_OUT_OF_ORDER", appErr.Code)
}

func TestCreateRejectsThresholdAboveTarget(t *testing.T) {
	svc, _, owner := newService(store.InfluencerStatusActive)

	in := validInput()
	in.DiscountThreshold2 = 60
	_, err := svc.Create(context.Background(), owner.Email, in)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "THRESHOLD_ABOVE_TARGET", appErr.Code)
}

func TestCreateRejectsTinyTarget(t *testing.T) {
	svc, _, owner := newService(store.InfluencerStatusActive)

	in := validInput()
	in.TargetQuantity = 5
	in.DiscountThreshold1 = 2
	in.DiscountThreshold2 = 5
	_, err := svc.Create(context.Background(), owner.Email, in)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "TARGET_TOO_SMALL", appErr.Code)
}

func TestProgressFor(t *testing.T) {
	c := store.Campaign{
		CurrentQuantity:    30,
		TargetQuantity:     100,
		DiscountThreshold1: 25,
		DiscountThreshold2: 50,
	}
	p := ProgressFor(c)
	require.Equal(t, 30, p.PercentToTarget)
	require.Equal(t, 10, p.UnlockedTier)
	require.Equal(t, int64(50), p.NextThreshold)

	c.CurrentQuantity = 120
	p = ProgressFor(c)
	require.Equal(t, 100, p.PercentToTarget)
	require.Equal(t, 20, p.UnlockedTier)
	require.Zero(t, p.NextThreshold)
}

func TestGetUnknownCampaign(t *testing.T) {
	svc, _, _ := newService(store.InfluencerStatusActive)

	_, err := svc.Get(context.Background(), uuid.New())
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CAMPAIGN_NOT_FOUND", appErr.Code)
}

func TestListMineUsesOwnerProfile(t *testing.T) {
	svc, _, owner := newService(store.InfluencerStatusActive)

	_, err := svc.Create(context.Background(), owner.Email, validInput())
	require.NoError(t, err)

	mine, err := svc.ListMine(context.Background(), owner.Email)
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

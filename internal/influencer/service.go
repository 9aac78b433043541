package influencer

import (
	"context"
	"errors"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

// Querier lists the store operations the influencer service depends on.
type Querier interface {
	CreateInfluencer(ctx context.Context, arg store.CreateInfluencerParams) (store.Influencer, error)
	GetInfluencerByID(ctx context.Context, id uuid.UUID) (store.Influencer, error)
	GetInfluencerByEmail(ctx context.Context, email string) (store.Influencer, error)
	UpdateInfluencerStatus(ctx context.Context, id uuid.UUID, status store.InfluencerStatus) (store.Influencer, error)
}

// Service manages influencer onboarding and approval.
type Service struct {
	Q                    Querier
	Validate             *validator.Validate
	DefaultCommissionPct int32
}

// ApplyInput is the onboarding request payload.
type ApplyInput struct {
	Email        string `json:"email" validate:"required,email"`
	TiktokHandle string `json:"tiktokHandle" validate:"omitempty,min=2,max=64"`
}

// Apply registers a pending influencer profile. Approval happens out of band.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (store.Influencer, error) {
	if s == nil || s.Q == nil {
		return store.Influencer{}, errors.New("influencer service not configured")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.TiktokHandle = strings.TrimSpace(in.TiktokHandle)
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return store.Influencer{}, common.NewAppError("VALIDATION_FAILED", err.Error(), 400, err)
		}
	}
	commission := s.DefaultCommissionPct
	if commission <= 0 {
		commission = 15
	}
	inf, err := s.Q.CreateInfluencer(ctx, store.CreateInfluencerParams{
		Email:          in.Email,
		TiktokHandle:   in.TiktokHandle,
		CommissionRate: commission,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.Influencer{}, common.ErrConflict("PROFILE_EXISTS", "a profile already exists for this email")
		}
		return store.Influencer{}, err
	}
	return inf, nil
}

// Approve promotes a pending profile to active, unlocking campaign creation.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (store.Influencer, error) {
	return s.setStatus(ctx, id, store.InfluencerStatusActive)
}

// Deactivate disables a profile.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (store.Influencer, error) {
	return s.setStatus(ctx, id, store.InfluencerStatusInactive)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status store.InfluencerStatus) (store.Influencer, error) {
	if s == nil || s.Q == nil {
		return store.Influencer{}, errors.New("influencer service not configured")
	}
	inf, err := s.Q.UpdateInfluencerStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Influencer{}, common.ErrNotFound("PROFILE_NOT_FOUND", "influencer not found")
		}
		return store.Influencer{}, err
	}
	return inf, nil
}

// Lookup loads the profile owning the provided email.
func (s *Service) Lookup(ctx context.Context, email string) (store.Influencer, error) {
	if s == nil || s.Q == nil {
		return store.Influencer{}, errors.New("influencer service not configured")
	}
	inf, err := s.Q.GetInfluencerByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Influencer{}, common.ErrNotFound("PROFILE_NOT_FOUND", "influencer profile not found")
		}
		return store.Influencer{}, err
	}
	return inf, nil
}

// RequireActive loads the profile owning the provided email and verifies it
// has been approved.
func (s *Service) RequireActive(ctx context.Context, email string) (store.Influencer, error) {
	inf, err := s.Lookup(ctx, email)
	if err != nil {
		return store.Influencer{}, err
	}
	if inf.Status != store.InfluencerStatusActive {
		return store.Influencer{}, common.ErrForbidden("PROFILE_NOT_APPROVED", "influencer profile must be approved first")
	}
	return inf, nil
}

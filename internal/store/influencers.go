package store

import (
	"context"

	"github.com/google/uuid"
)

const influencerColumns = `id, email, tiktok_handle, commission_rate, status, created_at, updated_at`

func scanInfluencer(row interface{ Scan(dest ...any) error }) (Influencer, error) {
	var inf Influencer
	var handle *string
	err := row.Scan(&inf.ID, &inf.Email, &handle, &inf.CommissionRate, &inf.Status, &inf.CreatedAt, &inf.UpdatedAt)
	if handle != nil {
		inf.TiktokHandle = *handle
	}
	return inf, err
}

// CreateInfluencerParams captures the fields required to register a profile.
type CreateInfluencerParams struct {
	Email          string
	TiktokHandle   string
	CommissionRate int32
}

// CreateInfluencer inserts a pending influencer profile.
func (q *Queries) CreateInfluencer(ctx context.Context, arg CreateInfluencerParams) (Influencer, error) {
	var handle *string
	if arg.TiktokHandle != "" {
		handle = &arg.TiktokHandle
	}
	row := q.db.QueryRow(ctx, `
		INSERT INTO influencers (email, tiktok_handle, commission_rate, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING `+influencerColumns,
		arg.Email, handle, arg.CommissionRate)
	return scanInfluencer(row)
}

// GetInfluencerByID fetches a profile by identifier.
func (q *Queries) GetInfluencerByID(ctx context.Context, id uuid.UUID) (Influencer, error) {
	row := q.db.QueryRow(ctx, `SELECT `+influencerColumns+` FROM influencers WHERE id = $1`, id)
	return scanInfluencer(row)
}

// GetInfluencerByEmail fetches a profile by its unique email.
func (q *Queries) GetInfluencerByEmail(ctx context.Context, email string) (Influencer, error) {
	row := q.db.QueryRow(ctx, `SELECT `+influencerColumns+` FROM influencers WHERE email = $1`, email)
	return scanInfluencer(row)
}

// UpdateInfluencerStatus flips the approval status of a profile.
func (q *Queries) UpdateInfluencerStatus(ctx context.Context, id uuid.UUID, status InfluencerStatus) (Influencer, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE influencers SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+influencerColumns,
		id, status)
	return scanInfluencer(row)
}

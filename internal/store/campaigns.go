package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const campaignColumns = `id, influencer_id, product, target_quantity, current_quantity, price_per_unit,
	discount_threshold_1, discount_threshold_2, deadline, status, created_at, updated_at`

func scanCampaign(row interface{ Scan(dest ...any) error }) (Campaign, error) {
	var c Campaign
	err := row.Scan(&c.ID, &c.InfluencerID, &c.Product, &c.TargetQuantity, &c.CurrentQuantity,
		&c.PricePerUnit, &c.DiscountThreshold1, &c.DiscountThreshold2, &c.Deadline, &c.Status,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCampaignParams captures the fields required to launch a campaign.
type CreateCampaignParams struct {
	InfluencerID       uuid.UUID
	Product            string
	TargetQuantity     int64
	PricePerUnit       int64
	DiscountThreshold1 int64
	DiscountThreshold2 int64
	Deadline           time.Time
	Status             CampaignStatus
}

// CreateCampaign inserts a campaign with zero accumulated quantity.
func (q *Queries) CreateCampaign(ctx context.Context, arg CreateCampaignParams) (Campaign, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO campaigns (influencer_id, product, target_quantity, price_per_unit,
			discount_threshold_1, discount_threshold_2, deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+campaignColumns,
		arg.InfluencerID, arg.Product, arg.TargetQuantity, arg.PricePerUnit,
		arg.DiscountThreshold1, arg.DiscountThreshold2, arg.Deadline, arg.Status)
	return scanCampaign(row)
}

// GetCampaignByID fetches a campaign by identifier.
func (q *Queries) GetCampaignByID(ctx context.Context, id uuid.UUID) (Campaign, error) {
	row := q.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	return scanCampaign(row)
}

// ListActiveCampaigns returns active campaigns ordered by closest deadline.
func (q *Queries) ListActiveCampaigns(ctx context.Context, limit, offset int32) ([]Campaign, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE status = 'active'
		ORDER BY deadline ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCampaignsByInfluencer returns all campaigns owned by the influencer,
// newest first.
func (q *Queries) ListCampaignsByInfluencer(ctx context.Context, influencerID uuid.UUID) ([]Campaign, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE influencer_id = $1
		ORDER BY created_at DESC`, influencerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CampaignQuantityRow is the post-increment snapshot returned by
// AddCampaignQuantity. CurrentQuantity already includes the added amount.
type CampaignQuantityRow struct {
	CurrentQuantity    int64
	TargetQuantity     int64
	PricePerUnit       int64
	DiscountThreshold1 int64
	DiscountThreshold2 int64
}

// AddCampaignQuantity increments the cumulative ordered quantity in a single
// statement and returns the post-increment value. The increment is atomic at
// the row level, so concurrent settlements never lose updates; callers must
// evaluate the completion threshold against the returned value.
func (q *Queries) AddCampaignQuantity(ctx context.Context, id uuid.UUID, qty int64) (CampaignQuantityRow, error) {
	var row CampaignQuantityRow
	err := q.db.QueryRow(ctx, `
		UPDATE campaigns
		SET current_quantity = current_quantity + $2, updated_at = now()
		WHERE id = $1
		RETURNING current_quantity, target_quantity, price_per_unit,
			discount_threshold_1, discount_threshold_2`,
		id, qty).Scan(&row.CurrentQuantity, &row.TargetQuantity, &row.PricePerUnit,
		&row.DiscountThreshold1, &row.DiscountThreshold2)
	return row, err
}

// CompleteCampaign promotes an active campaign to completed. Returns false
// when the campaign was not active (already completed or cancelled).
func (q *Queries) CompleteCampaign(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE campaigns SET status = 'completed', updated_at = now()
		WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

package store

import (
	"context"

	"github.com/google/uuid"
)

const orderColumns = `id, campaign_id, customer_email, quantity, amount, payment_status,
	shared_status, provider, provider_ref, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CampaignID, &o.CustomerEmail, &o.Quantity, &o.Amount,
		&o.PaymentStatus, &o.SharedStatus, &o.Provider, &o.ProviderRef, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// CreateOrderParams captures a settled purchase keyed by the provider's
// transaction reference.
type CreateOrderParams struct {
	CampaignID    uuid.UUID
	CustomerEmail string
	Quantity      int64
	Amount        int64
	PaymentStatus PaymentStatus
	Provider      string
	ProviderRef   string
}

// CreateOrder inserts an order. The provider_ref unique constraint is the
// settlement idempotency key: inserting a duplicate reference returns
// pgx.ErrNoRows via ON CONFLICT DO NOTHING, which callers treat as
// already-settled.
func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (campaign_id, customer_email, quantity, amount, payment_status, provider, provider_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider_ref) DO NOTHING
		RETURNING `+orderColumns,
		arg.CampaignID, arg.CustomerEmail, arg.Quantity, arg.Amount, arg.PaymentStatus,
		arg.Provider, arg.ProviderRef)
	return scanOrder(row)
}

// GetOrderByID fetches an order by identifier.
func (q *Queries) GetOrderByID(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderByProviderRef fetches an order by the payment provider reference.
func (q *Queries) GetOrderByProviderRef(ctx context.Context, ref string) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE provider_ref = $1`, ref)
	return scanOrder(row)
}

// MarkOrderFailedByProviderRef flips an existing order to failed. Returns
// false when no order carries the reference (nothing to fail).
func (q *Queries) MarkOrderFailedByProviderRef(ctx context.Context, ref string) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE orders SET payment_status = 'failed', updated_at = now()
		WHERE provider_ref = $1`, ref)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkOrderShared records that the buyer completed the share-to-unlock step.
func (q *Queries) MarkOrderShared(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE orders SET shared_status = true, updated_at = now()
		WHERE id = $1 AND shared_status = false`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListOrdersByCampaign returns settled orders for a campaign, newest first.
func (q *Queries) ListOrdersByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE campaign_id = $1 AND payment_status = 'completed'
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, campaignID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

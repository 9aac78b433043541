package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

// WorkerQuerier lists the store operations the notification worker needs.
type WorkerQuerier interface {
	GetCampaignByID(ctx context.Context, id uuid.UUID) (store.Campaign, error)
	GetInfluencerByID(ctx context.Context, id uuid.UUID) (store.Influencer, error)
}

// Worker processes notification tasks.
type Worker struct {
	Q    WorkerQuerier
	Mail common.EmailSender
	Log  zerolog.Logger
}

// Register attaches task handlers to the mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCampaignCompleted, w.HandleCampaignCompleted)
}

// HandleCampaignCompleted emails the campaign owner when the target is hit.
func (w *Worker) HandleCampaignCompleted(ctx context.Context, t *asynq.Task) error {
	var payload CampaignCompletedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("notify: decode %s payload: %w", TypeCampaignCompleted, err)
	}
	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		return fmt.Errorf("notify: invalid campaign id %q: %w", payload.CampaignID, err)
	}
	c, err := w.Q.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("notify: load campaign: %w", err)
	}
	owner, err := w.Q.GetInfluencerByID(ctx, c.InfluencerID)
	if err != nil {
		return fmt.Errorf("notify: load influencer: %w", err)
	}
	if w.Mail == nil {
		return nil
	}
	subject := fmt.Sprintf("Kampanye %q mencapai target", c.Product)
	body := fmt.Sprintf("Kampanye %s telah mencapai target %d unit. Total pesanan saat ini: %d unit.",
		c.Product, c.TargetQuantity, c.CurrentQuantity)
	if err := w.Mail.Send(owner.Email, subject, body); err != nil {
		return fmt.Errorf("notify: send email: %w", err)
	}
	w.Log.Info().Str("campaign_id", c.ID.String()).Str("to", owner.Email).Msg("campaign completed notification sent")
	return nil
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-gomflow/internal/events"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

// Task types processed by the worker.
const (
	TypeCampaignCompleted = "campaign:completed"
)

// CampaignCompletedPayload is the task payload for target-reached notifications.
type CampaignCompletedPayload struct {
	CampaignID string `json:"campaignId"`
}

// NewCampaignCompletedTask builds the asynq task for a completed campaign.
func NewCampaignCompletedTask(campaignID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CampaignCompletedPayload{CampaignID: campaignID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCampaignCompleted, payload, asynq.MaxRetry(5)), nil
}

// Enqueuer forwards campaign completion events to the task queue. It
// implements events.Notifier so the bus can fan out without knowing about
// asynq.
type Enqueuer struct {
	Client *asynq.Client
}

// Notify implements events.Notifier.
func (e Enqueuer) Notify(ctx context.Context, event store.DomainEvent) error {
	if e.Client == nil || event.Topic != events.TopicCampaignCompleted {
		return nil
	}
	task, err := NewCampaignCompletedTask(event.AggregateID.String())
	if err != nil {
		return fmt.Errorf("notify: build task: %w", err)
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("notify: enqueue %s: %w", TypeCampaignCompleted, err)
	}
	return nil
}

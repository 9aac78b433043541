package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gomflow/internal/common"
	"github.com/noah-isme/backend-gomflow/internal/events"
	"github.com/noah-isme/backend-gomflow/internal/store"
)

type fakeWorkerQuerier struct {
	campaign   store.Campaign
	influencer store.Influencer
}

func (f *fakeWorkerQuerier) GetCampaignByID(_ context.Context, id uuid.UUID) (store.Campaign, error) {
	if id != f.campaign.ID {
		return store.Campaign{}, pgx.ErrNoRows
	}
	return f.campaign, nil
}

func (f *fakeWorkerQuerier) GetInfluencerByID(_ context.Context, id uuid.UUID) (store.Influencer, error) {
	if id != f.influencer.ID {
		return store.Influencer{}, pgx.ErrNoRows
	}
	return f.influencer, nil
}

func TestHandleCampaignCompletedSendsEmail(t *testing.T) {
	inf := store.Influencer{ID: uuid.New(), Email: "creator@example.com"}
	c := store.Campaign{
		ID:              uuid.New(),
		InfluencerID:    inf.ID,
		Product:         "Tumbler Edisi Terbatas",
		TargetQuantity:  50,
		CurrentQuantity: 51,
	}
	mail := &common.InMemoryEmail{}
	w := &Worker{Q: &fakeWorkerQuerier{campaign: c, influencer: inf}, Mail: mail, Log: zerolog.Nop()}

	task, err := NewCampaignCompletedTask(c.ID.String())
	require.NoError(t, err)
	require.NoError(t, w.HandleCampaignCompleted(context.Background(), task))
	require.Len(t, mail.Outbox, 1)
	require.Equal(t, "creator@example.com", mail.Outbox[0].To)
	require.Contains(t, mail.Outbox[0].Subject, "mencapai target")
}

func TestHandleCampaignCompletedBadPayload(t *testing.T) {
	w := &Worker{Q: &fakeWorkerQuerier{}, Mail: common.NopEmailSender{}, Log: zerolog.Nop()}
	err := w.HandleCampaignCompleted(context.Background(), asynq.NewTask(TypeCampaignCompleted, []byte("{bad")))
	require.Error(t, err)
}

func TestEmailNotifierRoutesByRecipient(t *testing.T) {
	mail := &common.InMemoryEmail{}
	n := EmailNotifier{Mail: mail, Enabled: true}

	payload, _ := json.Marshal(map[string]any{"customerEmail": "buyer@example.com", "amount": 200000})
	err := n.Notify(context.Background(), store.DomainEvent{
		Topic:      events.TopicOrderSettled,
		Payload:    payload,
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, mail.Outbox, 1)
	require.Equal(t, "buyer@example.com", mail.Outbox[0].To)
}

func TestEmailNotifierSkipsWithoutRecipient(t *testing.T) {
	mail := &common.InMemoryEmail{}
	n := EmailNotifier{Mail: mail, Enabled: true}

	err := n.Notify(context.Background(), store.DomainEvent{
		Topic:      events.TopicCampaignCompleted,
		Payload:    []byte(`{"campaignId":"x"}`),
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	require.Empty(t, mail.Outbox)
}

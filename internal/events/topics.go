package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderSettled      = "order.settled"
	TopicOrderShared       = "order.shared"
	TopicPaymentFailed     = "payment.failed"
	TopicPaymentExpired    = "payment.expired"
	TopicCampaignCompleted = "campaign.completed"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicOrderSettled,
		TopicOrderShared,
		TopicPaymentFailed,
		TopicPaymentExpired,
		TopicCampaignCompleted,
	}
}

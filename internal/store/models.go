package store

import (
	"time"

	"github.com/google/uuid"
)

// InfluencerStatus enumerates the lifecycle of an influencer profile.
type InfluencerStatus string

const (
	InfluencerStatusPending  InfluencerStatus = "pending"
	InfluencerStatusActive   InfluencerStatus = "active"
	InfluencerStatusInactive InfluencerStatus = "inactive"
)

// CampaignStatus enumerates the lifecycle of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

// PaymentStatus enumerates the settlement state of an order.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Influencer is a campaign creator profile.
type Influencer struct {
	ID             uuid.UUID
	Email          string
	TiktokHandle   string
	CommissionRate int32
	Status         InfluencerStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Campaign is a time-boxed group-buying run for a single product.
type Campaign struct {
	ID                 uuid.UUID
	InfluencerID       uuid.UUID
	Product            string
	TargetQuantity     int64
	CurrentQuantity    int64
	PricePerUnit       int64
	DiscountThreshold1 int64
	DiscountThreshold2 int64
	Deadline           time.Time
	Status             CampaignStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Order records a settled (or failed) purchase against a campaign.
type Order struct {
	ID            uuid.UUID
	CampaignID    uuid.UUID
	CustomerEmail string
	Quantity      int64
	Amount        int64
	PaymentStatus PaymentStatus
	SharedStatus  bool
	Provider      string
	ProviderRef   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DomainEvent is a persisted record of something that happened in the domain.
type DomainEvent struct {
	ID          int64
	Topic       string
	AggregateID uuid.UUID
	Payload     []byte
	OccurredAt  time.Time
}

package obs

import "github.com/prometheus/client_golang/prometheus"

// Domain collectors shared across modules. Registered once at startup via
// MustRegisterDomainMetrics.
var (
	// CheckoutSessionTotal counts hosted payment sessions opened, by provider and result.
	CheckoutSessionTotal *prometheus.CounterVec
	// SettlementTotal counts webhook settlements processed, by provider and outcome.
	SettlementTotal *prometheus.CounterVec
	// DiscountTierTotal counts settled orders per unlocked discount tier.
	DiscountTierTotal *prometheus.CounterVec
	// SettlementAmountMismatch counts settlements whose provider amount diverged
	// from the server-side recomputation.
	SettlementAmountMismatch prometheus.Counter
	// CampaignCompletedTotal counts campaigns promoted to completed.
	CampaignCompletedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers the domain collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	CheckoutSessionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_sessions_total",
		Help:      "Hosted payment sessions opened, labelled by provider and result.",
	}, []string{"provider", "result"})
	SettlementTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlements_total",
		Help:      "Payment webhook settlements processed, labelled by provider and outcome.",
	}, []string{"provider", "outcome"})
	DiscountTierTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "discount_tier_total",
		Help:      "Settled orders per unlocked discount tier.",
	}, []string{"tier"})
	SettlementAmountMismatch = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_amount_mismatch_total",
		Help:      "Settlements where the provider-reported amount diverged from the recomputed price.",
	})
	CampaignCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "campaigns_completed_total",
		Help:      "Campaigns promoted to completed after reaching their target quantity.",
	})
	reg.MustRegister(CheckoutSessionTotal, SettlementTotal, DiscountTierTotal,
		SettlementAmountMismatch, CampaignCompletedTotal)
}

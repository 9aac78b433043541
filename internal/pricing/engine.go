package pricing

// Money represents a monetary value in whole rupiah.
type Money = int64

// Tier percentages unlocked as the campaign's cumulative quantity crosses its
// two discount thresholds.
const (
	TierNone   = 0
	TierFirst  = 10
	TierSecond = 20
)

// Quote is the priced outcome of a single order.
type Quote struct {
	Base        Money
	Final       Money
	TierPercent int
}

// Tier maps a cumulative quantity onto the discount percentage it unlocks.
// Every caller that displays or charges a tier goes through this function so
// the threshold comparison exists in exactly one place.
func Tier(total, threshold1, threshold2 int64) int {
	switch {
	case total >= threshold2:
		return TierSecond
	case total >= threshold1:
		return TierFirst
	default:
		return TierNone
	}
}

// ForOrder prices an order of qty units. postOrderTotal is the campaign's
// cumulative quantity including this order: the buyer whose order crosses a
// threshold receives the unlocked discount, as does everyone after.
// The discount is applied with integer arithmetic and rounds down at the
// monetary boundary; intermediate values keep full precision.
func ForOrder(unitPrice Money, qty int64, postOrderTotal, threshold1, threshold2 int64) Quote {
	base := unitPrice * qty
	tier := Tier(postOrderTotal, threshold1, threshold2)
	final := base * Money(100-tier) / 100
	return Quote{Base: base, Final: final, TierPercent: tier}
}

package types

// SubscriptionPlan is the billing tier of a customer
type SubscriptionPlan string

const (
	PlanFree     SubscriptionPlan = "FREE"
	PlanPro      SubscriptionPlan = "PRO"
	PlanBusiness SubscriptionPlan = "BUSINESS"
)

// IsValid checks if the plan is one of the known tiers
func (p SubscriptionPlan) IsValid() bool {
	switch p {
	case PlanFree, PlanPro, PlanBusiness:
		return true
	default:
		return false
	}
}

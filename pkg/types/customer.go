package types

import "time"

// Customer links an authenticated user to their billing state
type Customer struct {
	ID                     int64            `db:"id" json:"id"`
	AuthUserID             string           `db:"auth_user_id" json:"authUserId"`
	Name                   *string          `db:"name" json:"name"`
	Plan                   SubscriptionPlan `db:"plan" json:"plan"`
	StripeCustomerID       *string          `db:"stripe_customer_id" json:"stripeCustomerId"`
	StripeSubscriptionID   *string          `db:"stripe_subscription_id" json:"stripeSubscriptionId"`
	StripePriceID          *string          `db:"stripe_price_id" json:"stripePriceId"`
	StripeCurrentPeriodEnd *time.Time       `db:"stripe_current_period_end" json:"stripeCurrentPeriodEnd"`
	CreatedAt              time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time        `db:"updated_at" json:"updatedAt"`
}

// HasActiveSubscription reports whether the customer is on a paid plan
// whose billing period has not ended at the given time
func (c *Customer) HasActiveSubscription(now time.Time) bool {
	if c.Plan == PlanFree || !c.Plan.IsValid() {
		return false
	}
	if c.StripeCurrentPeriodEnd == nil {
		return false
	}
	return c.StripeCurrentPeriodEnd.After(now)
}

// EffectivePlan returns the plan the customer is entitled to at the given
// time. Lapsed subscriptions fall back to the free plan.
func (c *Customer) EffectivePlan(now time.Time) SubscriptionPlan {
	if !c.HasActiveSubscription(now) {
		return PlanFree
	}
	return c.Plan
}

// SubscriptionInfo is the caller's view of their plan
type SubscriptionInfo struct {
	Plan                   SubscriptionPlan `json:"plan"`
	Title                  string           `json:"title"`
	IsPaid                 bool             `json:"isPaid"`
	StripeCustomerID       *string          `json:"stripeCustomerId"`
	StripeCurrentPeriodEnd *time.Time       `json:"endsAt"`
	MaxClusters            int              `json:"maxClusters"`
	ActiveClusters         int              `json:"activeClusters"`
}

// SessionResponse carries the redirect URL of a billing session
type SessionResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

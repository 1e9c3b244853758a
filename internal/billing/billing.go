// Package billing describes the payment provider used to sell plans.
package billing

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// CheckoutRequest describes a subscription purchase
type CheckoutRequest struct {
	PriceID          string
	UserID           string
	Email            string
	StripeCustomerID *string // Reused when the user has bought before
	SuccessURL       string
	CancelURL        string
}

// Checkout creates hosted billing sessions and returns their redirect URL
type Checkout interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, stripeCustomerID, returnURL string) (string, error)
}

// Paths on the web app that billing sessions return to
const (
	BillingPath = "/dashboard/billing"
	PricingPath = "/pricing"
)

// ReturnURLs holds absolute URLs built from the app's public base URL
type ReturnURLs struct {
	Billing string
	Pricing string
}

// NewReturnURLs resolves the billing return paths against appURL
func NewReturnURLs(appURL string) (ReturnURLs, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(appURL), "/"))
	if err != nil {
		return ReturnURLs{}, fmt.Errorf("parse app url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return ReturnURLs{}, fmt.Errorf("app url %q must be absolute", appURL)
	}

	return ReturnURLs{
		Billing: base.String() + BillingPath,
		Pricing: base.String() + PricingPath,
	}, nil
}

package plan

import "github.com/cpa03/basefly-sub001/pkg/types"

// Catalog is the plans file
type Catalog struct {
	Plans []*Plan `yaml:"plans" validate:"required,min=1,dive"`
}

// Plan describes what a subscription tier grants
type Plan struct {
	Tier        types.SubscriptionPlan `yaml:"tier" json:"tier" validate:"required,oneof=FREE PRO BUSINESS"`
	Title       string                 `yaml:"title" json:"title" validate:"required"`
	Description string                 `yaml:"description" json:"description"`
	MaxClusters int                    `yaml:"maxClusters" json:"maxClusters" validate:"min=0"`
	Stripe      StripePrices           `yaml:"stripe" json:"stripe"`
	Features    []string               `yaml:"features" json:"features"`
}

// StripePrices holds the Stripe price IDs that sell a plan
type StripePrices struct {
	MonthlyPriceID string `yaml:"monthlyPriceId" json:"monthlyPriceId" validate:"omitempty,startswith=price_"`
	YearlyPriceID  string `yaml:"yearlyPriceId" json:"yearlyPriceId" validate:"omitempty,startswith=price_"`
}

// PriceIDs returns the configured price IDs
func (p StripePrices) PriceIDs() []string {
	ids := []string{}
	if p.MonthlyPriceID != "" {
		ids = append(ids, p.MonthlyPriceID)
	}
	if p.YearlyPriceID != "" {
		ids = append(ids, p.YearlyPriceID)
	}
	return ids
}

// IsPaid reports whether the plan is sold through Stripe
func (p *Plan) IsPaid() bool {
	return p.Tier != types.PlanFree
}

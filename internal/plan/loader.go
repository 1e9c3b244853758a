package plan

import (
	"fmt"
	"os"

	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader loads the plan catalogue from a YAML file
type Loader struct {
	path     string
	validate *validator.Validate
}

// NewLoader creates a new plan loader
func NewLoader(path string) *Loader {
	return &Loader{
		path:     path,
		validate: validator.New(),
	}
}

// Load reads, parses and validates the plans file
func (l *Loader) Load() (*Catalog, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read plans file %s: %w", l.path, err)
	}

	catalog, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("plans file %s: %w", l.path, err)
	}

	return catalog, nil
}

// Parse parses and validates plan YAML
func (l *Loader) Parse(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse plans YAML: %w", err)
	}

	if err := l.Validate(&catalog); err != nil {
		return nil, err
	}

	return &catalog, nil
}

// Validate validates a catalogue against the schema
func (l *Loader) Validate(catalog *Catalog) error {
	if err := l.validate.Struct(catalog); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tiers := make(map[types.SubscriptionPlan]bool)
	prices := make(map[string]types.SubscriptionPlan)

	for _, p := range catalog.Plans {
		// 1. Each tier appears once
		if tiers[p.Tier] {
			return fmt.Errorf("duplicate plan tier %s", p.Tier)
		}
		tiers[p.Tier] = true

		// 2. Paid tiers must be purchasable, the free tier must not be
		ids := p.Stripe.PriceIDs()
		if p.IsPaid() && len(ids) == 0 {
			return fmt.Errorf("plan %s has no stripe price IDs", p.Tier)
		}
		if !p.IsPaid() && len(ids) > 0 {
			return fmt.Errorf("plan %s is free but has stripe price IDs", p.Tier)
		}

		// 3. A price sells exactly one plan
		for _, id := range ids {
			if other, exists := prices[id]; exists {
				return fmt.Errorf("price %s used by both %s and %s", id, other, p.Tier)
			}
			prices[id] = p.Tier
		}
	}

	// 4. The free tier is the fallback for unknown plans
	if !tiers[types.PlanFree] {
		return fmt.Errorf("catalogue must define the %s plan", types.PlanFree)
	}

	return nil
}

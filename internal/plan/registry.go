package plan

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cpa03/basefly-sub001/pkg/types"
)

// tierOrder ranks tiers from cheapest to most expensive
var tierOrder = map[types.SubscriptionPlan]int{
	types.PlanFree:     0,
	types.PlanPro:      1,
	types.PlanBusiness: 2,
}

// Registry provides in-memory access to the plan catalogue
type Registry struct {
	mu      sync.RWMutex
	plans   map[types.SubscriptionPlan]*Plan
	byPrice map[string]*Plan
	loader  *Loader
}

// NewRegistry creates a new plan registry and loads the catalogue
func NewRegistry(loader *Loader) (*Registry, error) {
	r := &Registry{loader: loader}

	if err := r.Reload(); err != nil {
		return nil, fmt.Errorf("initial plan load: %w", err)
	}

	return r, nil
}

// NewRegistryFromCatalog builds a registry from an already-validated catalogue
func NewRegistryFromCatalog(catalog *Catalog) *Registry {
	r := &Registry{}
	r.set(catalog)
	return r
}

// Info returns the plan for tier. Unknown or empty tiers resolve to the
// free plan, so callers always get a usable capability set.
func (r *Registry) Info(tier types.SubscriptionPlan) *Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.plans[tier]; ok {
		return p
	}
	return r.plans[types.PlanFree]
}

// ByPriceID resolves a Stripe price to the plan it sells
func (r *Registry) ByPriceID(priceID string) (*Plan, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byPrice[priceID]
	return p, ok
}

// List returns all plans ordered from cheapest to most expensive
func (r *Registry) List() []*Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plans := make([]*Plan, 0, len(r.plans))
	for _, p := range r.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool {
		return tierOrder[plans[i].Tier] < tierOrder[plans[j].Tier]
	})

	return plans
}

// Count returns the number of plans
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.plans)
}

// Reload reloads the catalogue from disk
func (r *Registry) Reload() error {
	if r.loader == nil {
		return fmt.Errorf("registry has no loader")
	}

	catalog, err := r.loader.Load()
	if err != nil {
		return fmt.Errorf("load plans: %w", err)
	}

	r.set(catalog)
	return nil
}

func (r *Registry) set(catalog *Catalog) {
	plans := make(map[types.SubscriptionPlan]*Plan, len(catalog.Plans))
	byPrice := make(map[string]*Plan)

	for _, p := range catalog.Plans {
		plans[p.Tier] = p
		for _, id := range p.Stripe.PriceIDs() {
			byPrice[id] = p
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.plans = plans
	r.byPrice = byPrice
}

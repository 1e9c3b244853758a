package plan_test

import (
	"testing"

	"github.com/cpa03/basefly-sub001/internal/plan"
	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRegistry(t *testing.T) *plan.Registry {
	t.Helper()

	registry, err := plan.NewRegistry(plan.NewLoader("definitions/plans.yaml"))
	require.NoError(t, err)
	return registry
}

func TestRegistry_Info(t *testing.T) {
	registry := setupRegistry(t)

	t.Run("resolves known tiers", func(t *testing.T) {
		assert.Equal(t, types.PlanPro, registry.Info(types.PlanPro).Tier)
		assert.Equal(t, 3, registry.Info(types.PlanPro).MaxClusters)
		assert.Equal(t, types.PlanBusiness, registry.Info(types.PlanBusiness).Tier)
	})

	t.Run("falls back to free for unknown tiers", func(t *testing.T) {
		for _, tier := range []types.SubscriptionPlan{"", "GOLD", "pro"} {
			p := registry.Info(tier)
			require.NotNil(t, p)
			assert.Equal(t, types.PlanFree, p.Tier, "tier %q", tier)
		}
	})
}

func TestRegistry_ByPriceID(t *testing.T) {
	registry := setupRegistry(t)

	for _, p := range registry.List() {
		for _, id := range p.Stripe.PriceIDs() {
			got, ok := registry.ByPriceID(id)
			require.True(t, ok, "price %s", id)
			assert.Equal(t, p.Tier, got.Tier)
		}
	}

	_, ok := registry.ByPriceID("price_unknown")
	assert.False(t, ok)
}

func TestRegistry_List(t *testing.T) {
	registry := setupRegistry(t)

	assert.Equal(t, 3, registry.Count())

	tiers := []types.SubscriptionPlan{}
	for _, p := range registry.List() {
		tiers = append(tiers, p.Tier)
	}
	assert.Equal(t, []types.SubscriptionPlan{types.PlanFree, types.PlanPro, types.PlanBusiness}, tiers)
}

func TestRegistry_Reload(t *testing.T) {
	registry := setupRegistry(t)
	require.NoError(t, registry.Reload())
	assert.Equal(t, 3, registry.Count())

	static := plan.NewRegistryFromCatalog(&plan.Catalog{Plans: []*plan.Plan{{Tier: types.PlanFree, Title: "Starter"}}})
	assert.Error(t, static.Reload())
	assert.Equal(t, 1, static.Count())
}

package policy

import (
	"fmt"

	"github.com/cpa03/basefly-sub001/internal/plan"
	"github.com/cpa03/basefly-sub001/pkg/types"
)

// Engine checks account actions against the limits of the caller's plan
type Engine struct {
	registry *plan.Registry
}

// NewEngine creates a new policy engine
func NewEngine(registry *plan.Registry) *Engine {
	return &Engine{
		registry: registry,
	}
}

// CheckClusterQuota validates that an account on tier may create one more
// cluster while it already owns activeClusters.
func (e *Engine) CheckClusterQuota(tier types.SubscriptionPlan, activeClusters int) *ValidationResult {
	info := e.registry.Info(tier)

	result := &ValidationResult{
		Valid:  true,
		Errors: []ValidationError{},
		Plan:   info.Tier,
		Limit:  info.MaxClusters,
		Used:   activeClusters,
	}

	if activeClusters >= info.MaxClusters {
		result.AddError("plan", fmt.Sprintf("%s plan allows %d cluster(s); upgrade to create more", info.Title, info.MaxClusters))
	}

	return result
}

// MaxClusters returns the cluster limit for tier
func (e *Engine) MaxClusters(tier types.SubscriptionPlan) int {
	return e.registry.Info(tier).MaxClusters
}

// Plan resolves tier to the plan it is billed as. Unknown tiers are free.
func (e *Engine) Plan(tier types.SubscriptionPlan) types.SubscriptionPlan {
	return e.registry.Info(tier).Tier
}

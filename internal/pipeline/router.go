package pipeline

import (
	"context"
	"sync"
	"time"
)

// Tier is one rung of the router's complexity ladder: requests whose
// classified complexity is <= MaxComplexity are routed to Provider/Model,
// falling through to the next tier (by ascending MaxComplexity) if the
// provider is unavailable or unhealthy.
type Tier struct {
	Name          string
	MaxComplexity float64
	Provider      string
	Model         string
}

// Availability reports whether a provider is currently configured and
// reachable. Implementations typically wrap a provider registry.
type Availability interface {
	Available(provider string) bool
}

// AvailabilityFunc adapts a plain function to Availability.
type AvailabilityFunc func(provider string) bool

// Available implements Availability.
func (f AvailabilityFunc) Available(provider string) bool { return f(provider) }

// TieredRouter routes by complexity tier with tiered fallback, grounded on
// the teacher's internal/agent/routing.Router candidate/fallback/health
// cooldown scheme but driven by Classification.Complexity instead of tag
// rules.
type TieredRouter struct {
	tiers        []Tier
	fallback     Tier
	availability Availability

	failureCooldown time.Duration
	healthMu        sync.Mutex
	unhealthy       map[string]time.Time
}

// Config configures a TieredRouter. Tiers should be supplied in ascending
// MaxComplexity order (e.g. low → fast/cheap, high → strong); Fallback is
// tried after every tier is exhausted.
type Config struct {
	Tiers           []Tier
	Fallback        Tier
	Availability    Availability
	FailureCooldown time.Duration
}

// NewTieredRouter creates a TieredRouter. A nil Availability treats every
// provider as available.
func NewTieredRouter(cfg Config) *TieredRouter {
	availability := cfg.Availability
	if availability == nil {
		availability = AvailabilityFunc(func(string) bool { return true })
	}
	return &TieredRouter{
		tiers:           cfg.Tiers,
		fallback:        cfg.Fallback,
		availability:    availability,
		failureCooldown: cfg.FailureCooldown,
		unhealthy:       make(map[string]time.Time),
	}
}

// Route implements Router. The explicit model override on req, if set,
// wins over a tier's model but the tier's provider is still chosen by
// complexity and availability — mirroring the teacher's candidate
// selection, where an explicit request model is preserved rather than
// replaced while the provider is still picked by routing policy.
func (r *TieredRouter) Route(ctx context.Context, req *ChatRequest, class Classification) (RoutingDecision, error) {
	for _, tier := range r.matchingTiers(class.Complexity) {
		if !r.isHealthy(tier.Provider) || !r.availability.Available(tier.Provider) {
			continue
		}
		model := tier.Model
		if req != nil && req.Model != "" {
			model = req.Model
		}
		return RoutingDecision{Provider: tier.Provider, Model: model, Reason: tier.Name}, nil
	}

	if r.fallback.Provider != "" && r.isHealthy(r.fallback.Provider) && r.availability.Available(r.fallback.Provider) {
		model := r.fallback.Model
		if req != nil && req.Model != "" {
			model = req.Model
		}
		return RoutingDecision{Provider: r.fallback.Provider, Model: model, Reason: "fallback"}, nil
	}

	return RoutingDecision{}, ErrNoProviderConfigured
}

// MarkUnhealthy records a provider failure so Route skips it until the
// failure cooldown elapses.
func (r *TieredRouter) MarkUnhealthy(provider string) {
	if r.failureCooldown <= 0 || provider == "" {
		return
	}
	r.healthMu.Lock()
	r.unhealthy[provider] = time.Now().Add(r.failureCooldown)
	r.healthMu.Unlock()
}

func (r *TieredRouter) isHealthy(provider string) bool {
	if r.failureCooldown <= 0 || provider == "" {
		return true
	}
	r.healthMu.Lock()
	defer r.healthMu.Unlock()
	until, ok := r.unhealthy[provider]
	if !ok {
		return true
	}
	if time.Now().After(until) {
		delete(r.unhealthy, provider)
		return true
	}
	return false
}

// matchingTiers returns tiers whose MaxComplexity covers complexity, in
// ascending MaxComplexity order, so the cheapest tier that fits is tried
// first and progressively stronger tiers follow.
func (r *TieredRouter) matchingTiers(complexity float64) []Tier {
	var matched []Tier
	for _, tier := range r.tiers {
		if complexity <= tier.MaxComplexity {
			matched = append(matched, tier)
		}
	}
	if len(matched) == 0 {
		return r.tiers
	}
	return matched
}

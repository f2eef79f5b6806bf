package application

import (
	"fmt"
	"sort"
	"sync"

	"github.com/andreesc15/tabbycat/infrastructure/draw"
	"github.com/andreesc15/tabbycat/internal/ports"
)

// PolicyRegistry is a factory for pairing policies, keyed by policy name.
// It supports dynamic registration so deployments can add custom policies
// without touching the engine.
type PolicyRegistry struct {
	// factories maps policy names to their factory functions.
	factories map[string]ports.PolicyFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
}

// NewPolicyRegistry creates a registry with the built-in pairing policies
// pre-registered: random, power_paired and elimination.
func NewPolicyRegistry() *PolicyRegistry {
	registry := &PolicyRegistry{factories: make(map[string]ports.PolicyFactory)}
	registry.factories[draw.PolicyRandom] = draw.NewRandomFromConfig
	registry.factories[draw.PolicyPowerPaired] = draw.NewPowerPairFromConfig
	registry.factories[draw.PolicyElimination] = draw.NewEliminationFromConfig
	return registry
}

// Register adds or replaces a policy factory under the given name.
func (r *PolicyRegistry) Register(name string, factory ports.PolicyFactory) error {
	if name == "" {
		return fmt.Errorf("policy name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("policy factory cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	return nil
}

// Create instantiates the named policy from untyped configuration
// parameters, typically the yaml block for that policy.
func (r *PolicyRegistry) Create(name string, params map[string]any) (ports.DrawPolicy, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported pairing policy: %s", name)
	}
	if params == nil {
		params = make(map[string]any)
	}

	policy, err := factory(name, params)
	if err != nil {
		return nil, fmt.Errorf("create policy %s: %w", name, err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("policy %s failed validation: %w", name, err)
	}
	return policy, nil
}

// SupportedPolicies returns the registered policy names in sorted order.
func (r *PolicyRegistry) SupportedPolicies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

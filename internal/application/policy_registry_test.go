package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

type stubPolicy struct{ name string }

func (p *stubPolicy) Name() string { return p.name }
func (p *stubPolicy) Generate(context.Context, ports.DrawInput) ([]domain.Debate, error) {
	return nil, nil
}
func (p *stubPolicy) Validate() error { return nil }

func TestPolicyRegistryBuiltins(t *testing.T) {
	registry := NewPolicyRegistry()

	assert.Equal(t, []string{"elimination", "power_paired", "random"}, registry.SupportedPolicies())

	for _, name := range registry.SupportedPolicies() {
		policy, err := registry.Create(name, nil)
		require.NoError(t, err, "built-in policy %s", name)
		assert.Equal(t, name, policy.Name())
	}
}

func TestPolicyRegistryUnknownPolicy(t *testing.T) {
	registry := NewPolicyRegistry()

	_, err := registry.Create("swiss", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported pairing policy")
}

func TestPolicyRegistryRejectsBadParams(t *testing.T) {
	registry := NewPolicyRegistry()

	// The power-paired adapter only understands its own parameter block.
	_, err := registry.Create("power_paired", map[string]any{"method": "zigzag"})
	assert.Error(t, err)
}

func TestPolicyRegistryRegister(t *testing.T) {
	registry := NewPolicyRegistry()

	err := registry.Register("swiss", func(name string, _ map[string]any) (ports.DrawPolicy, error) {
		return &stubPolicy{name: name}, nil
	})
	require.NoError(t, err)

	policy, err := registry.Create("swiss", nil)
	require.NoError(t, err)
	assert.Equal(t, "swiss", policy.Name())

	assert.Contains(t, registry.SupportedPolicies(), "swiss")
}

func TestPolicyRegistryRegisterValidation(t *testing.T) {
	registry := NewPolicyRegistry()

	assert.Error(t, registry.Register("", func(string, map[string]any) (ports.DrawPolicy, error) {
		return nil, nil
	}))
	assert.Error(t, registry.Register("nilfactory", nil))
}

package draw

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

var _ ports.DrawPolicy = (*RandomPolicy)(nil)

// PolicyRandom is the registry name of the random pairing policy.
const PolicyRandom = "random"

// RandomPolicy shuffles the eligible teams with the round's seed and pairs
// them greedily, then runs the bounded conflict-swap search. Because all
// randomness derives from the round seed, regenerating after a reset with
// identical inputs reproduces the draw.
type RandomPolicy struct {
	name   string
	config RandomConfig
}

// RandomConfig defines the configuration parameters for the RandomPolicy.
type RandomConfig struct {
	// MaxSwapAttempts bounds the conflict-avoidance local search. When the
	// budget is exhausted the policy fails with an UnresolvableDrawError
	// rather than recursing further.
	MaxSwapAttempts int `yaml:"max_swap_attempts" json:"max_swap_attempts" validate:"min=1,max=100000"`
}

// DefaultRandomConfig returns a RandomConfig with production defaults.
func DefaultRandomConfig() RandomConfig {
	return RandomConfig{MaxSwapAttempts: defaultMaxSwapAttempts}
}

// NewRandomPolicy creates a RandomPolicy with the given configuration.
func NewRandomPolicy(name string, config RandomConfig) (*RandomPolicy, error) {
	if name == "" {
		return nil, ErrEmptyPolicyName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &RandomPolicy{name: name, config: config}, nil
}

// Name returns the policy identifier.
func (p *RandomPolicy) Name() string { return p.name }

// Validate checks that the policy is properly configured.
func (p *RandomPolicy) Validate() error {
	if err := validate.Struct(p.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Generate produces a conflict-free random draw for the round.
func (p *RandomPolicy) Generate(ctx context.Context, in ports.DrawInput) ([]domain.Debate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sides := in.Format.SidesPerDebate()
	if sides == 0 {
		return nil, &domain.ConfigurationError{Reason: "format declares no side labels"}
	}
	if len(in.Teams) == 0 {
		return nil, ErrNoTeams
	}
	if len(in.Teams)%sides != 0 {
		return nil, &domain.OddTeamCountError{TeamCount: len(in.Teams), SidesPerDebate: sides}
	}

	// Sort first so the shuffle depends only on the seed, not on the order
	// the availability collaborator happened to return teams in.
	teams := make([]domain.Team, len(in.Teams))
	copy(teams, in.Teams)
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })

	rng := rand.New(rand.NewSource(in.Round.Seed)) // #nosec G404 -- reproducibility, not security
	rng.Shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })

	groups := chunkGroups(teams, sides)
	if err := resolveConflicts(groups, in.Conflicts, p.config.MaxSwapAttempts); err != nil {
		return nil, err
	}

	return buildDebates(in.Round, groups, pointsImportance(in.Standings)), nil
}

// NewRandomFromConfig creates a RandomPolicy from a configuration map.
// This is the boundary adapter for yaml configuration.
func NewRandomFromConfig(name string, params map[string]any) (ports.DrawPolicy, error) {
	data, err := yaml.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	cfg := DefaultRandomConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return NewRandomPolicy(name, cfg)
}

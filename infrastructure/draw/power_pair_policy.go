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

var _ ports.DrawPolicy = (*PowerPairPolicy)(nil)

// PolicyPowerPaired is the registry name of the power-pairing policy.
const PolicyPowerPaired = "power_paired"

// Pairing methods supported by the power-pairing policy.
const (
	// MethodHighHigh pairs adjacent teams in the ranking: 1v2, 3v4, ...
	MethodHighHigh = "high_high"

	// MethodFold pairs the top of the ranking against the bottom half:
	// with two sides, seed i meets seed i+n/2.
	MethodFold = "fold"
)

// PowerPairPolicy ranks teams by cumulative points (ties broken by
// cumulative speaker score, then a stable random order fixed by the round
// seed) and pairs teams of similar standing. Side allocation goes to the
// team that has held each side least often, minimizing side-imbalance
// variance across the tournament.
type PowerPairPolicy struct {
	name   string
	config PowerPairConfig
}

// PowerPairConfig defines the configuration parameters for PowerPairPolicy.
type PowerPairConfig struct {
	// Method selects how ranked teams are grouped into debates.
	Method string `yaml:"method" json:"method" validate:"required,oneof=high_high fold"`

	// MaxSwapAttempts bounds the conflict-avoidance local search.
	MaxSwapAttempts int `yaml:"max_swap_attempts" json:"max_swap_attempts" validate:"min=1,max=100000"`
}

// DefaultPowerPairConfig returns a PowerPairConfig with production defaults.
func DefaultPowerPairConfig() PowerPairConfig {
	return PowerPairConfig{
		Method:          MethodHighHigh,
		MaxSwapAttempts: defaultMaxSwapAttempts,
	}
}

// NewPowerPairPolicy creates a PowerPairPolicy with the given configuration.
func NewPowerPairPolicy(name string, config PowerPairConfig) (*PowerPairPolicy, error) {
	if name == "" {
		return nil, ErrEmptyPolicyName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &PowerPairPolicy{name: name, config: config}, nil
}

// Name returns the policy identifier.
func (p *PowerPairPolicy) Name() string { return p.name }

// Validate checks that the policy is properly configured.
func (p *PowerPairPolicy) Validate() error {
	if err := validate.Struct(p.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Generate produces a power-paired draw: teams ranked by standing, grouped
// by the configured method, conflict-resolved with bounded swaps, and
// side-balanced within each debate.
func (p *PowerPairPolicy) Generate(ctx context.Context, in ports.DrawInput) ([]domain.Debate, error) {
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

	ranked := p.rankTeams(in)

	var groups [][]domain.Team
	switch p.config.Method {
	case MethodFold:
		groups = foldGroups(ranked, sides)
	default:
		groups = chunkGroups(ranked, sides)
	}

	if err := resolveConflicts(groups, in.Conflicts, p.config.MaxSwapAttempts); err != nil {
		return nil, err
	}

	for i, group := range groups {
		groups[i] = orderBySideBalance(group, in.Standings, sides)
	}

	return buildDebates(in.Round, groups, pointsImportance(in.Standings)), nil
}

// rankTeams orders teams by cumulative points descending, then cumulative
// speaker score descending, then a random order fixed by the round seed so
// that equal teams are ranked identically on regeneration.
func (p *PowerPairPolicy) rankTeams(in ports.DrawInput) []domain.Team {
	teams := make([]domain.Team, len(in.Teams))
	copy(teams, in.Teams)
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })

	tiebreak := make(map[domain.TeamID]int, len(teams))
	rng := rand.New(rand.NewSource(in.Round.Seed)) // #nosec G404 -- reproducibility, not security
	for i, idx := range rng.Perm(len(teams)) {
		tiebreak[teams[idx].ID] = i
	}

	sort.SliceStable(teams, func(i, j int) bool {
		si, sj := in.Standings[teams[i].ID], in.Standings[teams[j].ID]
		if si.Points != sj.Points {
			return si.Points > sj.Points
		}
		if si.SpeakerScore != sj.SpeakerScore {
			return si.SpeakerScore > sj.SpeakerScore
		}
		return tiebreak[teams[i].ID] < tiebreak[teams[j].ID]
	})
	return teams
}

// foldGroups splits the ranking into equal segments and pairs across them:
// the i-th debate takes the i-th team of every segment, so the top of the
// field meets the bottom half rather than its neighbor.
func foldGroups(ranked []domain.Team, sides int) [][]domain.Team {
	per := len(ranked) / sides
	groups := make([][]domain.Team, per)
	for i := 0; i < per; i++ {
		group := make([]domain.Team, 0, sides)
		for s := 0; s < sides; s++ {
			group = append(group, ranked[s*per+i])
		}
		groups[i] = group
	}
	return groups
}

// NewPowerPairFromConfig creates a PowerPairPolicy from a configuration map.
// This is the boundary adapter for yaml configuration.
func NewPowerPairFromConfig(name string, params map[string]any) (ports.DrawPolicy, error) {
	data, err := yaml.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	cfg := DefaultPowerPairConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return NewPowerPairPolicy(name, cfg)
}

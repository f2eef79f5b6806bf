package draw

import (
	"context"
	"fmt"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

var _ ports.DrawPolicy = (*EliminationPolicy)(nil)

// PolicyElimination is the registry name of the elimination-bracket policy.
const PolicyElimination = "elimination"

// EliminationPolicy pairs teams by their fixed bracket position: the
// availability collaborator supplies advancing teams in bracket order and
// consecutive teams meet. Team pairings are not subject to conflict swaps —
// the bracket fixes them — so conflict avoidance degrades gracefully to the
// adjudicator and venue allocation stages.
type EliminationPolicy struct {
	name string
}

// NewEliminationPolicy creates an EliminationPolicy.
func NewEliminationPolicy(name string) (*EliminationPolicy, error) {
	if name == "" {
		return nil, ErrEmptyPolicyName
	}
	return &EliminationPolicy{name: name}, nil
}

// Name returns the policy identifier.
func (p *EliminationPolicy) Name() string { return p.name }

// Validate checks that the policy is properly configured. The elimination
// policy carries no tunable parameters.
func (p *EliminationPolicy) Validate() error { return nil }

// Generate produces the bracket draw. Earlier bracket positions yield
// higher-importance debates so the final receives the strongest panel.
func (p *EliminationPolicy) Generate(ctx context.Context, in ports.DrawInput) ([]domain.Debate, error) {
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

	groups := chunkGroups(in.Teams, sides)
	numGroups := len(groups)
	debates := buildDebates(in.Round, groups, func(i int, _ []domain.Team) float64 {
		return float64(numGroups - i)
	})
	return debates, nil
}

// NewEliminationFromConfig creates an EliminationPolicy from a configuration
// map. The policy accepts no parameters; any supplied are rejected so a
// misplaced configuration block fails loudly.
func NewEliminationFromConfig(name string, params map[string]any) (ports.DrawPolicy, error) {
	if len(params) > 0 {
		return nil, fmt.Errorf("elimination policy accepts no parameters, got %d", len(params))
	}
	return NewEliminationPolicy(name)
}

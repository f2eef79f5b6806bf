// Package alloc provides the adjudicator and venue allocators for a round's
// generated debates.
package alloc

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

var _ ports.AdjudicatorAllocator = (*AdjudicatorAllocator)(nil)

// AdjudicatorAllocator greedily assigns panels to debates: debates in
// importance order each take the highest-ranked conflict-free adjudicator
// still available as chair, then panellists until the panel size is met.
// A debate that cannot get a chair is reported as unfilled; the remaining
// debates are still allocated.
type AdjudicatorAllocator struct {
	config AdjudicatorConfig
}

// AdjudicatorConfig defines the panel-size policy for allocation.
type AdjudicatorConfig struct {
	// PanelSize is the target number of voting adjudicators per debate,
	// chair included. The minimum viable panel is the chair alone.
	PanelSize int `yaml:"panel_size" json:"panel_size" validate:"min=1,max=9"`

	// IncludeTrainees appends one non-voting trainee per debate when a
	// conflict-free trainee remains in the pool.
	IncludeTrainees bool `yaml:"include_trainees" json:"include_trainees"`
}

// DefaultAdjudicatorConfig returns an AdjudicatorConfig with production
// defaults: single-chair panels, no trainees.
func DefaultAdjudicatorConfig() AdjudicatorConfig {
	return AdjudicatorConfig{PanelSize: 1}
}

// NewAdjudicatorAllocator creates an allocator with the given configuration.
func NewAdjudicatorAllocator(config AdjudicatorConfig) (*AdjudicatorAllocator, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &AdjudicatorAllocator{config: config}, nil
}

// NewAdjudicatorAllocatorFromConfig creates an allocator from a
// configuration map. This is the boundary adapter for yaml configuration.
func NewAdjudicatorAllocatorFromConfig(params map[string]any) (*AdjudicatorAllocator, error) {
	data, err := yaml.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	cfg := DefaultAdjudicatorConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return NewAdjudicatorAllocator(cfg)
}

// Allocate runs one full greedy pass. It ignores any panels already present
// on the debates: re-allocation is idempotent because the caller clears
// existing DebateAdjudicator entries and this pass repeats from scratch.
func (a *AdjudicatorAllocator) Allocate(
	ctx context.Context,
	debates []domain.Debate,
	adjudicators []domain.Adjudicator,
	conflicts *domain.ConflictSet,
) (*ports.AdjudicatorAllocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Rank adjudicators by feedback score descending, base score as the
	// stable tie-break, then ID order so equal adjudicators rank the same
	// on every run.
	pool := make([]domain.Adjudicator, len(adjudicators))
	copy(pool, adjudicators)
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].FeedbackScore != pool[j].FeedbackScore {
			return pool[i].FeedbackScore > pool[j].FeedbackScore
		}
		if pool[i].BaseScore != pool[j].BaseScore {
			return pool[i].BaseScore > pool[j].BaseScore
		}
		return pool[i].ID < pool[j].ID
	})

	// Strongest panels go to the most important debates.
	ordered := make([]domain.Debate, len(debates))
	copy(ordered, debates)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Importance != ordered[j].Importance {
			return ordered[i].Importance > ordered[j].Importance
		}
		return ordered[i].ID < ordered[j].ID
	})

	used := make(map[domain.AdjudicatorID]bool, len(pool))
	result := &ports.AdjudicatorAllocation{
		Panels: make(map[domain.DebateID][]domain.DebateAdjudicator, len(ordered)),
	}

	for i := range ordered {
		debate := ordered[i]
		debate.Panel = nil

		panel := a.fillPanel(&debate, pool, used, conflicts)
		if len(panel) == 0 {
			result.Unfilled = append(result.Unfilled, debate.ID)
			continue
		}
		result.Panels[debate.ID] = panel
	}

	sort.Slice(result.Unfilled, func(i, j int) bool { return result.Unfilled[i] < result.Unfilled[j] })
	return result, nil
}

// fillPanel assigns the chair, panellists, and optionally a trainee for one
// debate, marking consumed adjudicators in used. It returns nil when no
// conflict-free chair exists.
func (a *AdjudicatorAllocator) fillPanel(
	debate *domain.Debate,
	pool []domain.Adjudicator,
	used map[domain.AdjudicatorID]bool,
	conflicts *domain.ConflictSet,
) []domain.DebateAdjudicator {
	take := func(role domain.AdjudicatorRole, eligible func(domain.Adjudicator) bool) bool {
		for _, adj := range pool {
			if used[adj.ID] || !eligible(adj) {
				continue
			}
			if conflicts.AdjConflictedWithDebate(adj.ID, debate) {
				continue
			}
			used[adj.ID] = true
			debate.Panel = append(debate.Panel, domain.DebateAdjudicator{AdjudicatorID: adj.ID, Role: role})
			return true
		}
		return false
	}

	if !take(domain.RoleChair, domain.Adjudicator.CanChair) {
		return nil
	}
	for len(votingMembers(debate.Panel)) < a.config.PanelSize {
		if !take(domain.RolePanellist, func(adj domain.Adjudicator) bool { return adj.Rank != domain.RankTrainee }) {
			break // pool exhausted; the chair keeps the debate viable
		}
	}
	if a.config.IncludeTrainees {
		take(domain.RoleTrainee, func(adj domain.Adjudicator) bool { return adj.Rank == domain.RankTrainee })
	}
	return debate.Panel
}

func votingMembers(panel []domain.DebateAdjudicator) []domain.DebateAdjudicator {
	voting := panel[:0:0]
	for _, da := range panel {
		if da.Role.Voting() {
			voting = append(voting, da)
		}
	}
	return voting
}

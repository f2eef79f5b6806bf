// Package draw provides the pairing policies that generate a round's
// debates, implementing the ports.DrawPolicy interface.
package draw

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/andreesc15/tabbycat/internal/domain"
)

// Common errors returned by draw policies.
var (
	// ErrEmptyPolicyName is returned when creating a policy with an empty name.
	ErrEmptyPolicyName = errors.New("policy name cannot be empty")

	// ErrNoTeams is returned when the eligible team set is empty.
	ErrNoTeams = errors.New("no eligible teams")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// defaultMaxSwapAttempts bounds the local-search conflict resolution when a
// policy's configuration leaves it unset.
const defaultMaxSwapAttempts = 200

// groupConflict returns the first conflicted team pair within a pairing
// group, if any.
func groupConflict(group []domain.Team, conflicts *domain.ConflictSet) ([2]domain.TeamID, bool) {
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			if conflicts.TeamsConflicted(group[i].ID, group[j].ID) {
				return [2]domain.TeamID{group[i].ID, group[j].ID}, true
			}
		}
	}
	return [2]domain.TeamID{}, false
}

// resolveConflicts runs a bounded local search over the pairing groups,
// swapping members between groups until every group is conflict-free or the
// attempt budget is exhausted. Each evaluated swap counts against the
// budget. On exhaustion it returns an UnresolvableDrawError naming the
// pairings still in conflict; the groups are left in their best-effort state
// but the caller must not use them.
func resolveConflicts(groups [][]domain.Team, conflicts *domain.ConflictSet, budget int) error {
	if budget <= 0 {
		budget = defaultMaxSwapAttempts
	}

	attempts := 0
	// One clean pass over all groups terminates the search; each pass can
	// only fix groups, never break resolved ones, because a swap is kept
	// only when both touched groups end up conflict-free.
	for pass := 0; pass <= len(groups); pass++ {
		clean := true
		for i := range groups {
			if _, conflicted := groupConflict(groups[i], conflicts); !conflicted {
				continue
			}
			clean = false
			if !trySwap(groups, i, conflicts, &attempts, budget) && attempts >= budget {
				return exhausted(groups, conflicts, attempts)
			}
		}
		if clean {
			return nil
		}
	}
	return exhausted(groups, conflicts, attempts)
}

// trySwap attempts to fix group i by exchanging one of its members with a
// member of another group such that both groups become conflict-free.
func trySwap(groups [][]domain.Team, i int, conflicts *domain.ConflictSet, attempts *int, budget int) bool {
	for j := range groups {
		if j == i {
			continue
		}
		for a := range groups[i] {
			for b := range groups[j] {
				if *attempts >= budget {
					return false
				}
				*attempts++
				groups[i][a], groups[j][b] = groups[j][b], groups[i][a]
				_, ci := groupConflict(groups[i], conflicts)
				_, cj := groupConflict(groups[j], conflicts)
				if !ci && !cj {
					return true
				}
				groups[i][a], groups[j][b] = groups[j][b], groups[i][a]
			}
		}
	}
	return false
}

func exhausted(groups [][]domain.Team, conflicts *domain.ConflictSet, attempts int) error {
	var remaining [][2]domain.TeamID
	for _, group := range groups {
		if pair, conflicted := groupConflict(group, conflicts); conflicted {
			remaining = append(remaining, pair)
		}
	}
	return &domain.UnresolvableDrawError{Attempts: attempts, ConflictedPairs: remaining}
}

// chunkGroups splits an ordered team slice into consecutive groups of size
// sides. The caller guarantees divisibility.
func chunkGroups(teams []domain.Team, sides int) [][]domain.Team {
	groups := make([][]domain.Team, 0, len(teams)/sides)
	for i := 0; i < len(teams); i += sides {
		group := make([]domain.Team, sides)
		copy(group, teams[i:i+sides])
		groups = append(groups, group)
	}
	return groups
}

// orderBySideBalance orders a pairing group so that each side goes to the
// member who has held it least often, minimizing side-imbalance variance
// across the tournament. Ties break by team ID for determinism.
func orderBySideBalance(group []domain.Team, standings map[domain.TeamID]domain.TeamStanding, sides int) []domain.Team {
	remaining := make([]domain.Team, len(group))
	copy(remaining, group)
	ordered := make([]domain.Team, 0, len(group))

	sideCount := func(t domain.Team, side int) int {
		st, ok := standings[t.ID]
		if !ok || side >= len(st.SideCounts) {
			return 0
		}
		return st.SideCounts[side]
	}

	for side := 0; side < sides && len(remaining) > 0; side++ {
		best := 0
		for i := 1; i < len(remaining); i++ {
			ci, cb := sideCount(remaining[i], side), sideCount(remaining[best], side)
			if ci < cb || (ci == cb && remaining[i].ID < remaining[best].ID) {
				best = i
			}
		}
		ordered = append(ordered, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return ordered
}

// buildDebates materializes pairing groups into debates for the round, with
// one team per side in group order. Debate IDs are assigned by the engine.
func buildDebates(round *domain.Round, groups [][]domain.Team, importance func(i int, group []domain.Team) float64) []domain.Debate {
	debates := make([]domain.Debate, 0, len(groups))
	for i, group := range groups {
		d := domain.Debate{
			RoundID:      round.ID,
			Importance:   importance(i, group),
			BallotStatus: domain.BallotNone,
		}
		for side, team := range group {
			d.Teams = append(d.Teams, domain.DebateTeam{TeamID: team.ID, Side: side})
		}
		debates = append(debates, d)
	}
	return debates
}

// pointsImportance ranks a debate by the cumulative points of its teams, so
// higher-standing debates receive stronger panels and better venues.
func pointsImportance(standings map[domain.TeamID]domain.TeamStanding) func(int, []domain.Team) float64 {
	return func(_ int, group []domain.Team) float64 {
		var total float64
		for _, t := range group {
			total += standings[t.ID].Points
		}
		return total
	}
}

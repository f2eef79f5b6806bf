// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the engine testable.
package ports

import (
	"context"

	"github.com/andreesc15/tabbycat/internal/domain"
)

// DrawInput carries everything a pairing policy needs to generate a round's
// debates. Policies must treat every field as read-only.
type DrawInput struct {
	// Round is the round being drawn; policies read its seed and stage.
	Round *domain.Round

	// Format is the tournament format fixing sides per debate.
	Format domain.Format

	// Teams is the eligible team set, supplied by the availability
	// collaborator. For elimination rounds the slice is in bracket order.
	Teams []domain.Team

	// Conflicts is the round's conflict set, declared plus history-derived.
	Conflicts *domain.ConflictSet

	// Standings maps each team to its cumulative standing through the
	// previous round; power-pairing ranks and side-balances from it.
	Standings map[domain.TeamID]domain.TeamStanding
}

// DrawPolicy generates a round's debates from eligible teams under the
// round's conflict set. Implementations must be stateless and safe for
// concurrent use, and must be deterministic given the same input (the
// random policy derives all randomness from the round seed).
type DrawPolicy interface {
	// Name returns the policy identifier used in round configuration.
	Name() string

	// Generate produces the round's debates with team-to-side assignments
	// populated. Debates carry no adjudicators or venues yet. Generate
	// returns an UnresolvableDrawError when the bounded conflict-avoidance
	// search is exhausted; partial pairings are never returned.
	Generate(ctx context.Context, in DrawInput) ([]domain.Debate, error)

	// Validate checks that the policy is properly configured.
	Validate() error
}

// PolicyFactory constructs a draw policy from untyped configuration
// parameters, typically decoded from yaml.
type PolicyFactory func(name string, params map[string]any) (DrawPolicy, error)

// AdjudicatorAllocation is the outcome of one adjudicator allocation pass.
// Panels for unfilled debates are absent; the rest are committed by the
// caller regardless of whether Unfilled is empty.
type AdjudicatorAllocation struct {
	// Panels maps each filled debate to its assigned panel, chair first.
	Panels map[domain.DebateID][]domain.DebateAdjudicator

	// Unfilled lists debates that could not reach the minimum panel size.
	Unfilled []domain.DebateID
}

// AdjudicatorAllocator assigns panels to a round's debates honoring the
// conflict set and adjudicator strength ranking.
type AdjudicatorAllocator interface {
	Allocate(
		ctx context.Context,
		debates []domain.Debate,
		adjudicators []domain.Adjudicator,
		conflicts *domain.ConflictSet,
	) (*AdjudicatorAllocation, error)
}

// VenueAllocation is the outcome of one venue allocation pass. Unassigned
// debates are reported, not fatal.
type VenueAllocation struct {
	Assignments map[domain.DebateID]domain.VenueID
	Unassigned  []domain.DebateID
}

// VenueAllocator assigns venues to debates in importance order, honoring
// category constraints.
type VenueAllocator interface {
	Allocate(
		ctx context.Context,
		debates []domain.Debate,
		venues []domain.Venue,
	) (*VenueAllocation, error)
}

// BallotAggregator validates a ballot set and computes the confirmed result
// for a debate. Implementations are pure: the same inputs always produce the
// same result, and no state outside the returned value is touched.
type BallotAggregator interface {
	Aggregate(
		format domain.Format,
		debate *domain.Debate,
		teams map[domain.TeamID]domain.Team,
		ballots domain.BallotSet,
	) (*domain.DebateResult, error)
}

// StandingsCalculator computes cumulative team standings through a round.
// Rounds with any unconfirmed debate are excluded entirely.
type StandingsCalculator interface {
	// Compute returns the ordered standings table with the configured
	// tie-break metrics populated.
	Compute(ctx context.Context, tournamentID domain.TournamentID, throughSeq int) ([]domain.StandingsRow, error)

	// TeamStandings returns the per-team cumulative standing used as draw
	// input, including side counts for side balancing.
	TeamStandings(ctx context.Context, tournamentID domain.TournamentID, throughSeq int) (map[domain.TeamID]domain.TeamStanding, error)
}

package ports

import (
	"context"

	"github.com/andreesc15/tabbycat/internal/domain"
)

// Availability supplies the per-round eligible sets. Eligibility is decided
// by an external collaborator (check-in, registration); the engine never
// computes it.
type Availability interface {
	// EligibleTeams returns the teams active for the round. For elimination
	// rounds the slice is in bracket order.
	EligibleTeams(ctx context.Context, id domain.RoundID) ([]domain.Team, error)

	// EligibleAdjudicators returns the adjudicators available for the round.
	EligibleAdjudicators(ctx context.Context, id domain.RoundID) ([]domain.Adjudicator, error)

	// EligibleVenues returns the venues available for the round.
	EligibleVenues(ctx context.Context, id domain.RoundID) ([]domain.Venue, error)
}

// FeedbackProvider supplies current adjudicator feedback scores. The engine
// only reads them; scores overlay the stored Adjudicator.FeedbackScore when
// present.
type FeedbackProvider interface {
	Scores(ctx context.Context, id domain.TournamentID) (map[domain.AdjudicatorID]float64, error)
}

// AuditLog consumes the immutable audit record emitted for every state
// transition. Implementations must deduplicate on TransitionID so that a
// retried operation still yields exactly one record.
type AuditLog interface {
	Record(ctx context.Context, record domain.AuditRecord) error
}

// Notifier receives "what changed" summaries after draw release, allocation
// and ballot confirmation. Delivery (email, push) is the collaborator's
// concern; a failed notification never fails the engine operation.
type Notifier interface {
	Notify(ctx context.Context, summary domain.ChangeSummary) error
}

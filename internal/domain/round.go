package domain

// DrawStatus is the state machine governing a round's draw lifecycle.
//
// The normal flow is NONE → DRAFT → CONFIRMED → RELEASED. RESET returns any
// non-NONE state to NONE, discarding the round's debates, allocations and
// results. Unrelease (RELEASED → CONFIRMED) is an administrative escape
// hatch, not part of the normal flow.
type DrawStatus string

const (
	// DrawNone means no draw exists for the round.
	DrawNone DrawStatus = "none"

	// DrawDraft means a draw has been generated but not confirmed.
	DrawDraft DrawStatus = "draft"

	// DrawConfirmed means the draw has been confirmed and allocation may run.
	DrawConfirmed DrawStatus = "confirmed"

	// DrawReleased means the draw is public. Terminal except for an explicit
	// administrative unrelease.
	DrawReleased DrawStatus = "released"
)

// CanTransitionTo reports whether the state machine permits moving from s
// to next. RESET (any non-NONE state back to NONE) is always permitted.
func (s DrawStatus) CanTransitionTo(next DrawStatus) bool {
	if next == DrawNone {
		return s != DrawNone
	}
	switch s {
	case DrawNone:
		return next == DrawDraft
	case DrawDraft:
		return next == DrawConfirmed
	case DrawConfirmed:
		return next == DrawReleased
	case DrawReleased:
		// Administrative unrelease only.
		return next == DrawConfirmed
	}
	return false
}

// RoundStage distinguishes preliminary rounds from elimination rounds.
// Elimination rounds fix pairings by bracket position, which changes both
// draw generation and conflict avoidance.
type RoundStage string

const (
	// StagePreliminary is a normal in-round; all active teams participate.
	StagePreliminary RoundStage = "preliminary"

	// StageElimination is a knockout round; only advancing teams participate
	// and pairings follow the bracket.
	StageElimination RoundStage = "elimination"
)

// Round belongs to a tournament and owns the debates of one round of
// competition. Seq is strictly increasing and unique per tournament.
type Round struct {
	ID           RoundID      `json:"id"`
	TournamentID TournamentID `json:"tournament_id"`
	Seq          int          `json:"seq"`
	Name         string       `json:"name"`
	Stage        RoundStage   `json:"stage"`

	// Policy names the pairing policy used to generate this round's draw
	// ("random", "power_paired", "elimination").
	Policy string `json:"policy"`

	// Seed fixes the random source for this round so that regeneration with
	// identical inputs reproduces the draw.
	Seed int64 `json:"seed"`

	DrawStatus DrawStatus `json:"draw_status"`

	// Version is incremented on every committed mutation and backs the
	// optimistic concurrency check in the stores.
	Version int64 `json:"version"`
}

// Transition moves the round to next, or returns an InvalidRoundStateError
// naming the refused operation. The caller persists the updated round.
func (r *Round) Transition(next DrawStatus, operation string) error {
	if !r.DrawStatus.CanTransitionTo(next) {
		return &InvalidRoundStateError{
			RoundID:   r.ID,
			Current:   r.DrawStatus,
			Required:  next,
			Operation: operation,
		}
	}
	r.DrawStatus = next
	return nil
}

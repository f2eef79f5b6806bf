package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. Structured error types
// below wrap these so callers can branch with errors.Is while still reading
// the details through errors.As.
var (
	// ErrConfiguration indicates invalid tournament setup. Fatal to the
	// operation; nothing is mutated.
	ErrConfiguration = errors.New("invalid tournament configuration")

	// ErrOddTeamCount indicates the eligible team count does not divide by
	// the sides per debate. The caller resolves it by adding a bye team.
	ErrOddTeamCount = errors.New("team count not divisible by sides per debate")

	// ErrUnresolvableDraw indicates no conflict-free pairing was found
	// within the swap budget. Recoverable: widen the pool or relax a
	// constraint and retry.
	ErrUnresolvableDraw = errors.New("no conflict-free draw found")

	// ErrPartialAllocation indicates some debates could not reach the
	// minimum panel size. Recoverable: the filled panels are committed.
	ErrPartialAllocation = errors.New("allocation left debates unfilled")

	// ErrInvalidBallot indicates a structurally inconsistent scoresheet.
	// Nothing is mutated; the submission is preserved for re-edit.
	ErrInvalidBallot = errors.New("invalid ballot")

	// ErrSplitDecision indicates an even panel split on a two-team ballot,
	// which requires administrative resolution.
	ErrSplitDecision = errors.New("split adjudicator decision")

	// ErrInvalidRoundState indicates a precondition violation on the round's
	// draw status. The operation is refused without mutation.
	ErrInvalidRoundState = errors.New("invalid round state")

	// ErrConcurrentModification indicates the round (or debate) was locked
	// or changed by a concurrent operation. Retryable after re-reading state.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// ConfigurationError reports invalid tournament setup.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// Unwrap supports errors.Is matching against ErrConfiguration.
func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// OddTeamCountError reports an eligible-team count that cannot fill whole
// debates. Resolution (adding a bye team) is the caller's decision.
type OddTeamCountError struct {
	TeamCount      int
	SidesPerDebate int
}

func (e *OddTeamCountError) Error() string {
	return fmt.Sprintf("%d eligible teams not divisible into debates of %d sides",
		e.TeamCount, e.SidesPerDebate)
}

func (e *OddTeamCountError) Unwrap() error { return ErrOddTeamCount }

// UnresolvableDrawError reports exhaustion of the bounded conflict-swap
// search. ConflictedPairs names the pairings still in conflict when the
// budget ran out.
type UnresolvableDrawError struct {
	Attempts        int
	ConflictedPairs [][2]TeamID
}

func (e *UnresolvableDrawError) Error() string {
	return fmt.Sprintf("no conflict-free draw after %d swap attempts (%d conflicted pairings remain)",
		e.Attempts, len(e.ConflictedPairs))
}

func (e *UnresolvableDrawError) Unwrap() error { return ErrUnresolvableDraw }

// PartialAllocationError names the debates that could not reach the minimum
// panel size. The remaining debates' panels are committed, not rolled back.
type PartialAllocationError struct {
	Unfilled []DebateID
}

func (e *PartialAllocationError) Error() string {
	return fmt.Sprintf("allocation left %d debate(s) without a chair: %v", len(e.Unfilled), e.Unfilled)
}

func (e *PartialAllocationError) Unwrap() error { return ErrPartialAllocation }

// InvalidBallotError reports a structurally inconsistent scoresheet
// submission. The original submission is preserved for re-edit.
type InvalidBallotError struct {
	DebateID DebateID
	Reason   string
}

func (e *InvalidBallotError) Error() string {
	return fmt.Sprintf("invalid ballot for debate %s: %s", e.DebateID, e.Reason)
}

func (e *InvalidBallotError) Unwrap() error { return ErrInvalidBallot }

// SplitDecisionError reports an even win-call split on a two-team panel.
// The resolution policy is an administrative decision, not the engine's.
type SplitDecisionError struct {
	DebateID DebateID

	// Votes maps side index to the number of voting adjudicators who called
	// that side the winner.
	Votes map[int]int
}

func (e *SplitDecisionError) Error() string {
	return fmt.Sprintf("split decision on debate %s: votes %v", e.DebateID, e.Votes)
}

func (e *SplitDecisionError) Unwrap() error { return ErrSplitDecision }

// InvalidRoundStateError reports a refused operation, naming the transition
// the round would need first.
type InvalidRoundStateError struct {
	RoundID   RoundID
	Current   DrawStatus
	Required  DrawStatus
	Operation string
}

func (e *InvalidRoundStateError) Error() string {
	return fmt.Sprintf("round %s: cannot %s in state %q (requires %q)",
		e.RoundID, e.Operation, e.Current, e.Required)
}

func (e *InvalidRoundStateError) Unwrap() error { return ErrInvalidRoundState }

// ConcurrentModificationError reports lost lock acquisition or a failed
// optimistic version check. The caller retries by re-reading state.
type ConcurrentModificationError struct {
	RoundID   RoundID
	DebateID  DebateID
	Operation string
}

func (e *ConcurrentModificationError) Error() string {
	if e.DebateID != "" {
		return fmt.Sprintf("debate %s: %s lost to a concurrent operation", e.DebateID, e.Operation)
	}
	return fmt.Sprintf("round %s: %s lost to a concurrent operation", e.RoundID, e.Operation)
}

func (e *ConcurrentModificationError) Unwrap() error { return ErrConcurrentModification }

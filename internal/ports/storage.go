package ports

import (
	"context"

	"github.com/andreesc15/tabbycat/internal/domain"
)

// TournamentStore reads tournament-scoped reference data.
type TournamentStore interface {
	// Tournament returns the tournament, or ErrNotFound.
	Tournament(ctx context.Context, id domain.TournamentID) (*domain.Tournament, error)

	// Teams returns every registered team of the tournament.
	Teams(ctx context.Context, id domain.TournamentID) ([]domain.Team, error)

	// Adjudicators returns every registered adjudicator of the tournament.
	Adjudicators(ctx context.Context, id domain.TournamentID) ([]domain.Adjudicator, error)

	// Venues returns every registered venue of the tournament.
	Venues(ctx context.Context, id domain.TournamentID) ([]domain.Venue, error)

	// Conflicts returns the declared (persistent) conflicts of the tournament.
	Conflicts(ctx context.Context, id domain.TournamentID) ([]domain.Conflict, error)
}

// RoundStore reads and writes rounds with optimistic concurrency control.
type RoundStore interface {
	// Round returns the round, or ErrNotFound.
	Round(ctx context.Context, id domain.RoundID) (*domain.Round, error)

	// RoundsThrough returns the tournament's rounds with Seq <= throughSeq,
	// ordered by Seq ascending. A negative throughSeq returns all rounds.
	RoundsThrough(ctx context.Context, id domain.TournamentID, throughSeq int) ([]domain.Round, error)

	// UpdateRound persists the round if its stored version matches
	// round.Version, then increments the version. A mismatch returns a
	// ConcurrentModificationError without mutating anything.
	UpdateRound(ctx context.Context, round *domain.Round) error
}

// DebateStore reads and writes the debates owned by rounds.
type DebateStore interface {
	// Debate returns the debate, or ErrNotFound.
	Debate(ctx context.Context, id domain.DebateID) (*domain.Debate, error)

	// DebatesForRound returns the round's debates in a stable order.
	DebatesForRound(ctx context.Context, id domain.RoundID) ([]domain.Debate, error)

	// DebatesBySeq returns debates of every round of the tournament with
	// Seq <= throughSeq, keyed by round sequence number.
	DebatesBySeq(ctx context.Context, id domain.TournamentID, throughSeq int) (map[int][]domain.Debate, error)

	// ReplaceDebates atomically replaces the round's debates.
	ReplaceDebates(ctx context.Context, id domain.RoundID, debates []domain.Debate) error

	// UpdateDebate persists panel, venue and ballot-status changes.
	UpdateDebate(ctx context.Context, debate *domain.Debate) error

	// DeleteDebates removes all debates of the round (draw reset).
	DeleteDebates(ctx context.Context, id domain.RoundID) error
}

// ResultStore reads and writes confirmed debate results.
type ResultStore interface {
	// Result returns the debate's confirmed result, or ErrNotFound.
	Result(ctx context.Context, id domain.DebateID) (*domain.DebateResult, error)

	// ResultsForRound returns the confirmed results of the round's debates.
	ResultsForRound(ctx context.Context, id domain.RoundID) ([]domain.DebateResult, error)

	// PutResult stores or replaces the debate's confirmed result.
	PutResult(ctx context.Context, result *domain.DebateResult) error

	// DeleteResultsForRound removes the round's results (draw reset).
	DeleteResultsForRound(ctx context.Context, id domain.RoundID) error
}

// Locker grants exclusive possession of a round or debate record for the
// duration of one engine operation. Acquisition is bounded: when the lock
// cannot be obtained before the context deadline (or the store's configured
// wait), implementations return a ConcurrentModificationError rather than
// blocking indefinitely.
type Locker interface {
	// AcquireRound obtains the round's exclusive lock and returns its
	// release function.
	AcquireRound(ctx context.Context, id domain.RoundID) (release func(), err error)

	// AcquireDebate obtains the debate's exclusive lock and returns its
	// release function. Debate locks are independent of each other, so
	// ballot confirmations on different debates proceed concurrently.
	AcquireDebate(ctx context.Context, id domain.DebateID) (release func(), err error)
}

// Store aggregates the persistence contracts the engine requires.
type Store interface {
	TournamentStore
	RoundStore
	DebateStore
	ResultStore
	Locker
}

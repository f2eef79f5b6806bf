package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/andreesc15/tabbycat/infrastructure/alloc"
	"github.com/andreesc15/tabbycat/infrastructure/ballot"
	"github.com/andreesc15/tabbycat/infrastructure/standings"
	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

// auditNamespace is the fixed UUID namespace under which deterministic
// transition identifiers are derived. Retrying a failed operation reproduces
// the same identifier, so the audit log deduplicates to exactly one record.
var auditNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tabbycat/audit"))

// Dependencies carries the collaborators an Engine is wired with. Store and
// Availability are required; the rest default to no-ops when nil.
type Dependencies struct {
	// Store is the persistence and locking backend.
	Store ports.Store

	// Availability supplies the per-round eligible sets.
	Availability ports.Availability

	// Feedback supplies current adjudicator feedback scores. Optional.
	Feedback ports.FeedbackProvider

	// Audit consumes the transition audit records. Optional.
	Audit ports.AuditLog

	// Notifier receives change summaries after releases, allocations and
	// ballot confirmations. Optional.
	Notifier ports.Notifier

	// Metrics collects operational metrics. Optional.
	Metrics ports.MetricsCollector
}

// Engine implements the draw and allocation operations of one tournament.
// Every mutating operation takes exclusive possession of the round (or
// debate) it touches, so operations on the same round serialize while
// different rounds proceed concurrently.
type Engine struct {
	cfg      *Config
	store    ports.Store
	avail    ports.Availability
	feedback ports.FeedbackProvider
	audit    ports.AuditLog
	notifier ports.Notifier
	metrics  ports.MetricsCollector

	registry   *PolicyRegistry
	adjAlloc   *alloc.AdjudicatorAllocator
	venueAlloc *alloc.VenueAllocator
	twoTeam    ports.BallotAggregator
	ranked     ports.BallotAggregator
	standings  ports.StandingsCalculator
}

// NewEngine wires an Engine from configuration and collaborators. The
// allocators, aggregators and standings calculator are constructed here so
// that one Config fully determines the engine's behavior.
func NewEngine(cfg *Config, deps Dependencies) (*Engine, error) {
	if cfg == nil {
		return nil, &domain.ConfigurationError{Reason: "engine configuration is nil"}
	}
	if deps.Store == nil {
		return nil, &domain.ConfigurationError{Reason: "engine requires a store"}
	}
	if deps.Availability == nil {
		return nil, &domain.ConfigurationError{Reason: "engine requires an availability collaborator"}
	}

	adjAlloc, err := alloc.NewAdjudicatorAllocator(alloc.AdjudicatorConfig{
		PanelSize:       cfg.Allocation.PanelSize,
		IncludeTrainees: cfg.Allocation.IncludeTrainees,
	})
	if err != nil {
		return nil, fmt.Errorf("create adjudicator allocator: %w", err)
	}
	calc, err := standings.NewCalculator(deps.Store, deps.Store, deps.Store, deps.Store, cfg.Standings)
	if err != nil {
		return nil, fmt.Errorf("create standings calculator: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		store:      deps.Store,
		avail:      deps.Availability,
		feedback:   deps.Feedback,
		audit:      deps.Audit,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		registry:   NewPolicyRegistry(),
		adjAlloc:   adjAlloc,
		venueAlloc: alloc.NewVenueAllocator(),
		twoTeam:    ballot.NewTwoTeamAggregator(),
		ranked:     ballot.NewRankedAggregator(),
		standings:  calc,
	}
	if e.audit == nil {
		e.audit = noopAudit{}
	}
	if e.notifier == nil {
		e.notifier = noopNotifier{}
	}
	if e.metrics == nil {
		e.metrics = noopMetrics{}
	}
	return e, nil
}

// Registry exposes the policy registry for custom policy registration.
func (e *Engine) Registry() *PolicyRegistry { return e.registry }

// DrawSummary reports the outcome of a draw generation.
type DrawSummary struct {
	RoundID domain.RoundID  `json:"round_id"`
	Debates []domain.Debate `json:"debates"`
}

// AllocationSummary reports the outcome of an adjudicator allocation pass.
type AllocationSummary struct {
	RoundID  domain.RoundID                                 `json:"round_id"`
	Panels   map[domain.DebateID][]domain.DebateAdjudicator `json:"panels"`
	Unfilled []domain.DebateID                              `json:"unfilled,omitempty"`
}

// VenueSummary reports the outcome of a venue allocation pass.
type VenueSummary struct {
	RoundID     domain.RoundID                     `json:"round_id"`
	Assignments map[domain.DebateID]domain.VenueID `json:"assignments"`
	Unassigned  []domain.DebateID                  `json:"unassigned,omitempty"`
}

// GenerateDraw generates the round's draw with its configured pairing policy
// and moves the round to the draft state. The round must have no existing
// draw; regeneration requires an explicit reset first.
func (e *Engine) GenerateDraw(ctx context.Context, roundID domain.RoundID, actor string) (summary *DrawSummary, err error) {
	defer e.observe("generate_draw", time.Now(), &err)

	release, err := e.store.AcquireRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	defer release()

	round, tournament, err := e.loadRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.DrawStatus != domain.DrawNone {
		return nil, &domain.InvalidRoundStateError{
			RoundID:   round.ID,
			Current:   round.DrawStatus,
			Required:  domain.DrawNone,
			Operation: "generate draw",
		}
	}

	format := tournament.Format
	teams, err := e.avail.EligibleTeams(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load eligible teams: %w", err)
	}
	sides := format.SidesPerDebate()
	if sides == 0 {
		return nil, &domain.ConfigurationError{Reason: "tournament format declares no side labels"}
	}
	if len(teams)%sides != 0 {
		return nil, &domain.OddTeamCountError{TeamCount: len(teams), SidesPerDebate: sides}
	}

	conflicts, err := e.conflictSet(ctx, tournament, round)
	if err != nil {
		return nil, err
	}
	teamStandings, err := e.standings.TeamStandings(ctx, tournament.ID, round.Seq-1)
	if err != nil {
		return nil, fmt.Errorf("load standings for draw: %w", err)
	}
	policy, err := e.registry.Create(round.Policy, e.cfg.Draw.Policies[round.Policy])
	if err != nil {
		return nil, err
	}

	debates, err := policy.Generate(ctx, ports.DrawInput{
		Round:     round,
		Format:    format,
		Teams:     teams,
		Conflicts: conflicts,
		Standings: teamStandings,
	})
	if err != nil {
		return nil, err
	}
	for i := range debates {
		debates[i].ID = domain.DebateID(uuid.NewString())
		if err := debates[i].ValidateTeams(format); err != nil {
			return nil, &domain.ConfigurationError{Reason: err.Error()}
		}
	}

	if err := round.Transition(domain.DrawDraft, "generate draw"); err != nil {
		return nil, err
	}
	if err := e.store.ReplaceDebates(ctx, round.ID, debates); err != nil {
		return nil, fmt.Errorf("store debates: %w", err)
	}
	if err := e.store.UpdateRound(ctx, round); err != nil {
		return nil, err
	}

	e.emitRoundAudit(ctx, tournament.ID, round, "draw_generated", actor)
	e.metrics.RecordCounter("draws_generated", 1, map[string]string{"policy": round.Policy})
	return &DrawSummary{RoundID: round.ID, Debates: debates}, nil
}

// ConfirmDraw moves a draft draw to the confirmed state, freezing pairings
// for allocation.
func (e *Engine) ConfirmDraw(ctx context.Context, roundID domain.RoundID, actor string) (*domain.Round, error) {
	return e.transitionDraw(ctx, roundID, domain.DrawConfirmed, "confirm draw", "draw_confirmed", actor)
}

// ReleaseDraw makes a confirmed draw public and notifies the change
// dispatcher with the released pairings.
func (e *Engine) ReleaseDraw(ctx context.Context, roundID domain.RoundID, actor string) (round *domain.Round, err error) {
	round, err = e.transitionDraw(ctx, roundID, domain.DrawReleased, "release draw", "draw_released", actor)
	if err != nil {
		return nil, err
	}

	// The release itself has committed; a failure loading the pairings only
	// costs the notification, counted like any other delivery failure.
	debates, err := e.store.DebatesForRound(ctx, roundID)
	if err != nil {
		e.metrics.RecordCounter("notify_failures", 1, map[string]string{"kind": "draw_released"})
		return round, nil
	}
	summary := domain.ChangeSummary{Kind: "draw_released", RoundID: roundID}
	for _, d := range debates {
		entry := domain.ChangeEntry{DebateID: d.ID, VenueID: d.VenueID}
		for _, da := range d.Panel {
			entry.AdjudicatorIDs = append(entry.AdjudicatorIDs, da.AdjudicatorID)
		}
		summary.Entries = append(summary.Entries, entry)
	}
	e.notify(ctx, summary)
	return round, nil
}

// UnreleaseDraw withdraws a released draw back to the confirmed state. This
// is the administrative escape hatch for fixing a mistaken release.
func (e *Engine) UnreleaseDraw(ctx context.Context, roundID domain.RoundID, actor string) (*domain.Round, error) {
	return e.transitionDraw(ctx, roundID, domain.DrawConfirmed, "unrelease draw", "draw_unreleased", actor)
}

// ResetDraw discards the round's debates, allocations and results and
// returns the round to the no-draw state. Permitted from any state with a
// draw.
func (e *Engine) ResetDraw(ctx context.Context, roundID domain.RoundID, actor string) (round *domain.Round, err error) {
	defer e.observe("reset_draw", time.Now(), &err)

	release, err := e.store.AcquireRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	defer release()

	round, tournament, err := e.loadRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := round.Transition(domain.DrawNone, "reset draw"); err != nil {
		return nil, err
	}
	if err := e.store.DeleteResultsForRound(ctx, roundID); err != nil {
		return nil, fmt.Errorf("delete results: %w", err)
	}
	if err := e.store.DeleteDebates(ctx, roundID); err != nil {
		return nil, fmt.Errorf("delete debates: %w", err)
	}
	if err := e.store.UpdateRound(ctx, round); err != nil {
		return nil, err
	}

	e.emitRoundAudit(ctx, tournament.ID, round, "draw_reset", actor)
	e.metrics.RecordCounter("draws_reset", 1, nil)
	return round, nil
}

// AllocateAdjudicators assigns panels to the round's debates in importance
// order. The round must hold a draft or confirmed draw. Filled panels are
// committed even when some debates cannot be filled; the unfilled remainder
// is reported through a PartialAllocationError alongside the summary.
func (e *Engine) AllocateAdjudicators(ctx context.Context, roundID domain.RoundID, actor string) (summary *AllocationSummary, err error) {
	defer e.observe("allocate_adjudicators", time.Now(), &err)

	release, err := e.store.AcquireRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	defer release()

	round, tournament, err := e.loadRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := e.requireDraw(round, "allocate adjudicators"); err != nil {
		return nil, err
	}

	debates, err := e.store.DebatesForRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load debates: %w", err)
	}
	adjudicators, err := e.avail.EligibleAdjudicators(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load eligible adjudicators: %w", err)
	}
	e.overlayFeedback(ctx, tournament.ID, adjudicators)

	conflicts, err := e.conflictSet(ctx, tournament, round)
	if err != nil {
		return nil, err
	}

	// Reallocation starts from a clean slate so stale panels never linger.
	for i := range debates {
		debates[i].Panel = nil
	}
	allocation, err := e.adjAlloc.Allocate(ctx, debates, adjudicators, conflicts)
	if err != nil {
		return nil, err
	}

	notification := domain.ChangeSummary{Kind: "adjudicators_allocated", RoundID: roundID}
	for i := range debates {
		debates[i].Panel = allocation.Panels[debates[i].ID]
		if err := e.store.UpdateDebate(ctx, &debates[i]); err != nil {
			return nil, fmt.Errorf("store panel for debate %s: %w", debates[i].ID, err)
		}
		entry := domain.ChangeEntry{DebateID: debates[i].ID}
		for _, da := range debates[i].Panel {
			entry.AdjudicatorIDs = append(entry.AdjudicatorIDs, da.AdjudicatorID)
		}
		notification.Entries = append(notification.Entries, entry)
	}
	if err := e.store.UpdateRound(ctx, round); err != nil {
		return nil, err
	}

	e.emitRoundAudit(ctx, tournament.ID, round, "adjudicators_allocated", actor)
	e.notify(ctx, notification)
	e.metrics.RecordGauge("unfilled_panels", float64(len(allocation.Unfilled)), map[string]string{"round": string(roundID)})

	summary = &AllocationSummary{RoundID: roundID, Panels: allocation.Panels, Unfilled: allocation.Unfilled}
	if len(allocation.Unfilled) > 0 {
		return summary, &domain.PartialAllocationError{Unfilled: allocation.Unfilled}
	}
	return summary, nil
}

// AllocateVenues assigns venues to the round's debates in importance order,
// honoring required venue categories. The draw must be confirmed: a draft
// draw can still change pairings and a released draw has published rooms.
// Unassigned debates are reported in the summary, not fatal.
func (e *Engine) AllocateVenues(ctx context.Context, roundID domain.RoundID, actor string) (summary *VenueSummary, err error) {
	defer e.observe("allocate_venues", time.Now(), &err)

	release, err := e.store.AcquireRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	defer release()

	round, tournament, err := e.loadRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.DrawStatus != domain.DrawConfirmed {
		return nil, &domain.InvalidRoundStateError{
			RoundID:   round.ID,
			Current:   round.DrawStatus,
			Required:  domain.DrawConfirmed,
			Operation: "allocate venues",
		}
	}

	debates, err := e.store.DebatesForRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load debates: %w", err)
	}
	venues, err := e.avail.EligibleVenues(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load eligible venues: %w", err)
	}

	allocation, err := e.venueAlloc.Allocate(ctx, debates, venues)
	if err != nil {
		return nil, err
	}

	notification := domain.ChangeSummary{Kind: "venues_allocated", RoundID: roundID}
	for i := range debates {
		debates[i].VenueID = allocation.Assignments[debates[i].ID]
		if err := e.store.UpdateDebate(ctx, &debates[i]); err != nil {
			return nil, fmt.Errorf("store venue for debate %s: %w", debates[i].ID, err)
		}
		notification.Entries = append(notification.Entries, domain.ChangeEntry{
			DebateID: debates[i].ID,
			VenueID:  debates[i].VenueID,
		})
	}
	if err := e.store.UpdateRound(ctx, round); err != nil {
		return nil, err
	}

	e.emitRoundAudit(ctx, tournament.ID, round, "venues_allocated", actor)
	e.notify(ctx, notification)
	e.metrics.RecordGauge("unassigned_venues", float64(len(allocation.Unassigned)), map[string]string{"round": string(roundID)})

	return &VenueSummary{
		RoundID:     roundID,
		Assignments: allocation.Assignments,
		Unassigned:  allocation.Unassigned,
	}, nil
}

// SubmitBallot marks the debate as having a draft submission. Resubmission
// while in the draft state is permitted and not audited again.
func (e *Engine) SubmitBallot(ctx context.Context, debateID domain.DebateID, actor string) (err error) {
	defer e.observe("submit_ballot", time.Now(), &err)

	release, err := e.store.AcquireDebate(ctx, debateID)
	if err != nil {
		return err
	}
	defer release()

	debate, err := e.store.Debate(ctx, debateID)
	if err != nil {
		return fmt.Errorf("load debate: %w", err)
	}
	if debate.BallotStatus == domain.BallotDraft {
		return nil
	}
	if !debate.BallotStatus.CanTransitionTo(domain.BallotDraft, false) {
		return &domain.InvalidBallotError{
			DebateID: debateID,
			Reason:   fmt.Sprintf("cannot submit in ballot state %q", debate.BallotStatus),
		}
	}
	debate.BallotStatus = domain.BallotDraft
	if err := e.store.UpdateDebate(ctx, debate); err != nil {
		return fmt.Errorf("store ballot status: %w", err)
	}

	round, err := e.store.Round(ctx, debate.RoundID)
	if err == nil {
		e.emitDebateAudit(ctx, round.TournamentID, debate.RoundID, debateID, "ballot_submitted", actor, 0)
	}
	return nil
}

// ConfirmBallot aggregates the submitted ballot set into the debate's
// confirmed result. The ballot must not already be confirmed; replacing a
// confirmed result requires OverrideBallot.
func (e *Engine) ConfirmBallot(
	ctx context.Context,
	debateID domain.DebateID,
	ballots domain.BallotSet,
	actor string,
) (result *domain.DebateResult, err error) {
	defer e.observe("confirm_ballot", time.Now(), &err)

	release, err := e.store.AcquireDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}
	defer release()

	debate, err := e.store.Debate(ctx, debateID)
	if err != nil {
		return nil, fmt.Errorf("load debate: %w", err)
	}
	if debate.BallotStatus == domain.BallotConfirmed {
		return nil, &domain.InvalidBallotError{
			DebateID: debateID,
			Reason:   "result already confirmed; administrative override required",
		}
	}

	// Confirming a debate that was never marked draft carries an inline
	// submission: the ballot set itself is the draft, so the debate passes
	// through the draft state rather than skipping it.
	submitted := debate.BallotStatus == domain.BallotDraft
	if !submitted {
		if !debate.BallotStatus.CanTransitionTo(domain.BallotDraft, false) {
			return nil, &domain.InvalidBallotError{
				DebateID: debateID,
				Reason:   fmt.Sprintf("cannot submit in ballot state %q", debate.BallotStatus),
			}
		}
		debate.BallotStatus = domain.BallotDraft
	}
	if !debate.BallotStatus.CanTransitionTo(domain.BallotConfirmed, false) {
		return nil, &domain.InvalidBallotError{
			DebateID: debateID,
			Reason:   fmt.Sprintf("cannot confirm in ballot state %q", debate.BallotStatus),
		}
	}

	result, round, err := e.aggregate(ctx, debate, ballots)
	if err != nil {
		return nil, err
	}
	if err := e.store.PutResult(ctx, result); err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}
	debate.BallotStatus = domain.BallotConfirmed
	if err := e.store.UpdateDebate(ctx, debate); err != nil {
		return nil, fmt.Errorf("store ballot status: %w", err)
	}

	if !submitted {
		e.emitDebateAudit(ctx, round.TournamentID, debate.RoundID, debateID, "ballot_submitted", actor, 0)
	}
	e.emitDebateAudit(ctx, round.TournamentID, debate.RoundID, debateID, "ballot_confirmed", actor, len(result.Superseded))
	e.notify(ctx, domain.ChangeSummary{
		Kind:    "ballot_confirmed",
		RoundID: debate.RoundID,
		Entries: []domain.ChangeEntry{{DebateID: debateID}},
	})
	e.metrics.RecordCounter("ballots_confirmed", 1, nil)
	return result, nil
}

// OverrideBallot replaces a confirmed result through administrative
// override. The superseded scoresheet is retained on the new result's audit
// trail, never deleted.
func (e *Engine) OverrideBallot(
	ctx context.Context,
	debateID domain.DebateID,
	ballots domain.BallotSet,
	actor string,
) (result *domain.DebateResult, err error) {
	defer e.observe("override_ballot", time.Now(), &err)

	release, err := e.store.AcquireDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}
	defer release()

	debate, err := e.store.Debate(ctx, debateID)
	if err != nil {
		return nil, fmt.Errorf("load debate: %w", err)
	}
	if debate.BallotStatus != domain.BallotConfirmed {
		return nil, &domain.InvalidBallotError{
			DebateID: debateID,
			Reason:   "no confirmed result to override",
		}
	}
	previous, err := e.store.Result(ctx, debateID)
	if err != nil {
		return nil, fmt.Errorf("load confirmed result: %w", err)
	}

	result, round, err := e.aggregate(ctx, debate, ballots)
	if err != nil {
		return nil, err
	}
	result.Superseded = append(append([]*domain.Scoresheet{}, previous.Superseded...), previous.Confirmed)
	if err := e.store.PutResult(ctx, result); err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}

	e.emitDebateAudit(ctx, round.TournamentID, debate.RoundID, debateID, "ballot_overridden", actor, len(result.Superseded))
	e.notify(ctx, domain.ChangeSummary{
		Kind:    "ballot_overridden",
		RoundID: debate.RoundID,
		Entries: []domain.ChangeEntry{{DebateID: debateID}},
	})
	e.metrics.RecordCounter("ballots_overridden", 1, nil)
	return result, nil
}

// Standings computes the tournament standings through the given round
// sequence. A negative throughSeq covers all rounds.
func (e *Engine) Standings(ctx context.Context, tournamentID domain.TournamentID, throughSeq int) (rows []domain.StandingsRow, err error) {
	defer e.observe("compute_standings", time.Now(), &err)
	return e.standings.Compute(ctx, tournamentID, throughSeq)
}

// transitionDraw is the shared body of the plain state-transition
// operations: lock, load, transition, persist, audit.
func (e *Engine) transitionDraw(
	ctx context.Context,
	roundID domain.RoundID,
	next domain.DrawStatus,
	operation, transition, actor string,
) (round *domain.Round, err error) {
	defer e.observe(transition, time.Now(), &err)

	release, err := e.store.AcquireRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	defer release()

	round, tournament, err := e.loadRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := round.Transition(next, operation); err != nil {
		return nil, err
	}
	if err := e.store.UpdateRound(ctx, round); err != nil {
		return nil, err
	}
	e.emitRoundAudit(ctx, tournament.ID, round, transition, actor)
	return round, nil
}

// requireDraw refuses adjudicator allocation unless the round holds a draft
// or confirmed draw.
func (e *Engine) requireDraw(round *domain.Round, operation string) error {
	if round.DrawStatus == domain.DrawDraft || round.DrawStatus == domain.DrawConfirmed {
		return nil
	}
	return &domain.InvalidRoundStateError{
		RoundID:   round.ID,
		Current:   round.DrawStatus,
		Required:  domain.DrawConfirmed,
		Operation: operation,
	}
}

func (e *Engine) loadRound(ctx context.Context, roundID domain.RoundID) (*domain.Round, *domain.Tournament, error) {
	round, err := e.store.Round(ctx, roundID)
	if err != nil {
		return nil, nil, fmt.Errorf("load round: %w", err)
	}
	tournament, err := e.store.Tournament(ctx, round.TournamentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load tournament: %w", err)
	}
	return round, tournament, nil
}

// conflictSet builds the round's conflict set from the declared conflicts
// and the prior rounds' debates.
func (e *Engine) conflictSet(ctx context.Context, t *domain.Tournament, round *domain.Round) (*domain.ConflictSet, error) {
	teams, err := e.store.Teams(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	adjudicators, err := e.store.Adjudicators(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("load adjudicators: %w", err)
	}
	declared, err := e.store.Conflicts(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("load conflicts: %w", err)
	}
	bySeq, err := e.store.DebatesBySeq(ctx, t.ID, round.Seq-1)
	if err != nil {
		return nil, fmt.Errorf("load prior debates: %w", err)
	}
	return domain.BuildConflictSet(t, teams, adjudicators, declared, domain.ConflictHistory{
		DebatesBySeq:      bySeq,
		ThroughSeq:        round.Seq - 1,
		AdjudicatorWindow: e.cfg.Allocation.HistoryWindow,
	})
}

// aggregate picks the format's aggregator and runs it over the ballot set.
func (e *Engine) aggregate(
	ctx context.Context,
	debate *domain.Debate,
	ballots domain.BallotSet,
) (*domain.DebateResult, *domain.Round, error) {
	round, err := e.store.Round(ctx, debate.RoundID)
	if err != nil {
		return nil, nil, fmt.Errorf("load round: %w", err)
	}
	tournament, err := e.store.Tournament(ctx, round.TournamentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load tournament: %w", err)
	}
	teams, err := e.store.Teams(ctx, tournament.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load teams: %w", err)
	}
	teamsByID := make(map[domain.TeamID]domain.Team, len(teams))
	for _, team := range teams {
		teamsByID[team.ID] = team
	}

	aggregator := e.twoTeam
	if tournament.Format.Ranked() {
		aggregator = e.ranked
	}
	result, err := aggregator.Aggregate(tournament.Format, debate, teamsByID, ballots)
	if err != nil {
		return nil, nil, err
	}
	return result, round, nil
}

// overlayFeedback replaces stored feedback scores with the collaborator's
// current values when a provider is configured. A provider failure falls
// back to the stored scores.
func (e *Engine) overlayFeedback(ctx context.Context, tournamentID domain.TournamentID, adjudicators []domain.Adjudicator) {
	if e.feedback == nil {
		return
	}
	scores, err := e.feedback.Scores(ctx, tournamentID)
	if err != nil {
		e.metrics.RecordCounter("feedback_fetch_failures", 1, nil)
		return
	}
	for i := range adjudicators {
		if score, ok := scores[adjudicators[i].ID]; ok {
			adjudicators[i].FeedbackScore = score
		}
	}
}

// emitRoundAudit emits the audit record for a round transition. The
// transition identifier derives from the round, transition name and the
// round version at commit time, so a retried emission deduplicates.
func (e *Engine) emitRoundAudit(ctx context.Context, tournamentID domain.TournamentID, round *domain.Round, transition, actor string) {
	key := fmt.Sprintf("%s|%s|%d", round.ID, transition, round.Version)
	e.record(ctx, domain.AuditRecord{
		TransitionID: uuid.NewSHA1(auditNamespace, []byte(key)).String(),
		Actor:        actor,
		Timestamp:    time.Now().UTC(),
		TournamentID: tournamentID,
		RoundID:      round.ID,
		Transition:   transition,
	})
}

// emitDebateAudit emits the audit record for a ballot transition. The
// supersession count disambiguates repeated confirmations of the same
// debate across overrides.
func (e *Engine) emitDebateAudit(
	ctx context.Context,
	tournamentID domain.TournamentID,
	roundID domain.RoundID,
	debateID domain.DebateID,
	transition, actor string,
	generation int,
) {
	key := fmt.Sprintf("%s|%s|%d", debateID, transition, generation)
	e.record(ctx, domain.AuditRecord{
		TransitionID: uuid.NewSHA1(auditNamespace, []byte(key)).String(),
		Actor:        actor,
		Timestamp:    time.Now().UTC(),
		TournamentID: tournamentID,
		RoundID:      roundID,
		DebateID:     debateID,
		Transition:   transition,
	})
}

// record delivers an audit record. The state mutation has already committed
// when this runs, so a failed delivery is counted but never fails the
// operation; the deterministic transition identifier lets a later
// re-emission deduplicate.
func (e *Engine) record(ctx context.Context, rec domain.AuditRecord) {
	if err := e.audit.Record(ctx, rec); err != nil {
		e.metrics.RecordCounter("audit_emit_failures", 1, map[string]string{"transition": rec.Transition})
	}
}

// notify delivers a change summary. Delivery failure never fails the
// operation.
func (e *Engine) notify(ctx context.Context, summary domain.ChangeSummary) {
	sort.Slice(summary.Entries, func(i, j int) bool {
		return summary.Entries[i].DebateID < summary.Entries[j].DebateID
	})
	if err := e.notifier.Notify(ctx, summary); err != nil {
		e.metrics.RecordCounter("notify_failures", 1, map[string]string{"kind": summary.Kind})
	}
}

// observe records the operation's latency and outcome.
func (e *Engine) observe(operation string, start time.Time, err *error) {
	status := "ok"
	if *err != nil {
		status = "error"
		if errors.Is(*err, domain.ErrConcurrentModification) {
			e.metrics.RecordCounter("lock_contention_losses", 1, map[string]string{"operation": operation})
		}
	}
	e.metrics.RecordLatency(operation, time.Since(start), map[string]string{"status": status})
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, domain.AuditRecord) error { return nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.ChangeSummary) error { return nil }

type noopMetrics struct{}

func (noopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (noopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (noopMetrics) RecordGauge(string, float64, map[string]string)         {}

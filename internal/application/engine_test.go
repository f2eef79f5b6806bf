package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreesc15/tabbycat/infrastructure/storage/memstore"
	"github.com/andreesc15/tabbycat/internal/domain"
)

// captureAudit records every audit emission for inspection.
type captureAudit struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

func (c *captureAudit) Record(_ context.Context, rec domain.AuditRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

func (c *captureAudit) byTransition(name string) []domain.AuditRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.AuditRecord
	for _, rec := range c.records {
		if rec.Transition == name {
			out = append(out, rec)
		}
	}
	return out
}

// captureMetrics counts recorded counters by name.
type captureMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{counters: make(map[string]float64)}
}

func (m *captureMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (m *captureMetrics) RecordGauge(string, float64, map[string]string)         {}

func (m *captureMetrics) RecordCounter(name string, value float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
}

func (m *captureMetrics) counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// flakyDebateStore fails debate listing on demand while delegating everything
// else to the embedded store.
type flakyDebateStore struct {
	*memstore.Store
	fail bool
}

func (s *flakyDebateStore) DebatesForRound(ctx context.Context, id domain.RoundID) ([]domain.Debate, error) {
	if s.fail {
		return nil, errors.New("storage offline")
	}
	return s.Store.DebatesForRound(ctx, id)
}

type failingAudit struct{}

func (failingAudit) Record(context.Context, domain.AuditRecord) error {
	return errors.New("audit backend unavailable")
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, domain.ChangeSummary) error {
	return errors.New("dispatch unavailable")
}

func fixtureTeams(n int) []domain.Team {
	teams := make([]domain.Team, 0, n)
	for i := 1; i <= n; i++ {
		id := domain.TeamID(fmt.Sprintf("team-%02d", i))
		teams = append(teams, domain.Team{
			ID:          id,
			Institution: domain.InstitutionID(fmt.Sprintf("inst-%02d", i)),
			Speakers: []domain.Speaker{
				{ID: domain.SpeakerID(string(id) + "-1")},
				{ID: domain.SpeakerID(string(id) + "-2")},
			},
		})
	}
	return teams
}

// fixtureStore seeds a four-team, two-adjudicator, two-venue tournament with
// one random-paired round awaiting its draw.
func fixtureStore(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	cfg := testConfig()
	store.PutTournament(domain.Tournament{ID: "t1", Name: cfg.Tournament.Name, Format: cfg.Format()})
	store.PutTeams("t1", fixtureTeams(4))
	store.PutAdjudicators("t1", []domain.Adjudicator{
		{ID: "j1", Rank: domain.RankCore, FeedbackScore: 90},
		{ID: "j2", Rank: domain.RankIndependent, FeedbackScore: 70},
	})
	store.PutVenues("t1", []domain.Venue{
		{ID: "v1", Priority: 10},
		{ID: "v2", Priority: 5},
	})
	store.PutRound(domain.Round{ID: "r1", TournamentID: "t1", Seq: 1, Policy: "random", Seed: 7, DrawStatus: domain.DrawNone})
	return store
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tournament.Name = "Engine Open"
	cfg.Rounds = []RoundSettings{{Seq: 1, Policy: "random", Seed: 7}}
	return cfg
}

func newTestEngine(t *testing.T, store *memstore.Store, audit *captureAudit) *Engine {
	t.Helper()
	deps := Dependencies{Store: store, Availability: store}
	if audit != nil {
		deps.Audit = audit
	}
	engine, err := NewEngine(testConfig(), deps)
	require.NoError(t, err)
	return engine
}

// consensusBallot builds a structurally valid consensus scoresheet for the
// debate with the given side as winner.
func consensusBallot(debate domain.Debate, teams map[domain.TeamID]domain.Team, winner int) domain.BallotSet {
	sheet := &domain.Scoresheet{ID: string(debate.ID) + "-ballot", DebateID: debate.ID}
	for _, dt := range debate.Teams {
		base := 73.0
		if dt.Side == winner {
			base = 76.0
		}
		entry := domain.SideSheet{Side: dt.Side, Win: dt.Side == winner}
		for pos, sp := range teams[dt.TeamID].Speakers {
			entry.Scores = append(entry.Scores, domain.SpeakerScore{
				Position:  pos,
				SpeakerID: sp.ID,
				Score:     base + float64(pos),
			})
		}
		sheet.Sides = append(sheet.Sides, entry)
	}
	return domain.BallotSet{Consensus: sheet}
}

func teamsByID(t *testing.T, store *memstore.Store) map[domain.TeamID]domain.Team {
	t.Helper()
	teams, err := store.Teams(context.Background(), "t1")
	require.NoError(t, err)
	byID := make(map[domain.TeamID]domain.Team, len(teams))
	for _, team := range teams {
		byID[team.ID] = team
	}
	return byID
}

func TestEngineFullRoundLifecycle(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	audit := &captureAudit{}
	engine := newTestEngine(t, store, audit)

	drawSummary, err := engine.GenerateDraw(ctx, "r1", "tabdirector")
	require.NoError(t, err)
	require.Len(t, drawSummary.Debates, 2)

	round, err := store.Round(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.DrawDraft, round.DrawStatus)

	// Regeneration requires an explicit reset first.
	_, err = engine.GenerateDraw(ctx, "r1", "tabdirector")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidRoundState))

	_, err = engine.ConfirmDraw(ctx, "r1", "tabdirector")
	require.NoError(t, err)

	allocation, err := engine.AllocateAdjudicators(ctx, "r1", "tabdirector")
	require.NoError(t, err)
	assert.Empty(t, allocation.Unfilled)
	assert.Len(t, allocation.Panels, 2)
	for _, panel := range allocation.Panels {
		require.NotEmpty(t, panel)
		assert.Equal(t, domain.RoleChair, panel[0].Role)
	}

	venues, err := engine.AllocateVenues(ctx, "r1", "tabdirector")
	require.NoError(t, err)
	assert.Empty(t, venues.Unassigned)
	assert.Len(t, venues.Assignments, 2)

	released, err := engine.ReleaseDraw(ctx, "r1", "tabdirector")
	require.NoError(t, err)
	assert.Equal(t, domain.DrawReleased, released.DrawStatus)

	roster := teamsByID(t, store)
	debates, err := store.DebatesForRound(ctx, "r1")
	require.NoError(t, err)
	for _, debate := range debates {
		require.NoError(t, engine.SubmitBallot(ctx, debate.ID, "runner"))
		_, err := engine.ConfirmBallot(ctx, debate.ID, consensusBallot(debate, roster, 0), "tabdirector")
		require.NoError(t, err)
	}

	rows, err := engine.Standings(ctx, "t1", -1)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, 1.0, rows[0].Points)
	assert.Equal(t, 1.0, rows[1].Points)
	assert.Equal(t, 0.0, rows[2].Points)
	assert.Equal(t, 0.0, rows[3].Points)

	// Every transition was audited exactly once with a unique identifier.
	assert.Len(t, audit.byTransition("draw_generated"), 1)
	assert.Len(t, audit.byTransition("draw_confirmed"), 1)
	assert.Len(t, audit.byTransition("draw_released"), 1)
	assert.Len(t, audit.byTransition("ballot_confirmed"), 2)
	seen := make(map[string]bool)
	for _, rec := range audit.records {
		assert.False(t, seen[rec.TransitionID], "transition id %s emitted twice", rec.TransitionID)
		seen[rec.TransitionID] = true
	}
}

func TestEngineResetDiscardsDrawAndResults(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	engine := newTestEngine(t, store, nil)

	_, err := engine.GenerateDraw(ctx, "r1", "td")
	require.NoError(t, err)
	_, err = engine.ConfirmDraw(ctx, "r1", "td")
	require.NoError(t, err)

	roster := teamsByID(t, store)
	debates, err := store.DebatesForRound(ctx, "r1")
	require.NoError(t, err)
	require.NoError(t, engine.SubmitBallot(ctx, debates[0].ID, "runner"))
	_, err = engine.ConfirmBallot(ctx, debates[0].ID, consensusBallot(debates[0], roster, 0), "td")
	require.NoError(t, err)

	round, err := engine.ResetDraw(ctx, "r1", "td")
	require.NoError(t, err)
	assert.Equal(t, domain.DrawNone, round.DrawStatus)

	remaining, err := store.DebatesForRound(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
	results, err := store.ResultsForRound(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, results)

	// The round is back at the start of the lifecycle.
	_, err = engine.GenerateDraw(ctx, "r1", "td")
	assert.NoError(t, err)
}

func TestEngineUnreleaseReturnsToConfirmed(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	engine := newTestEngine(t, store, nil)

	_, err := engine.GenerateDraw(ctx, "r1", "td")
	require.NoError(t, err)
	_, err = engine.ConfirmDraw(ctx, "r1", "td")
	require.NoError(t, err)
	_, err = engine.ReleaseDraw(ctx, "r1", "td")
	require.NoError(t, err)

	round, err := engine.UnreleaseDraw(ctx, "r1", "td")
	require.NoError(t, err)
	assert.Equal(t, domain.DrawConfirmed, round.DrawStatus)

	// A second unrelease has nothing to withdraw.
	_, err = engine.UnreleaseDraw(ctx, "r1", "td")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidRoundState))
}

func TestEngineConfirmBallotRefusesReconfirmation(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	engine := newTestEngine(t, store, nil)

	_, err := engine.GenerateDraw(ctx, "r1", "td")
	require.NoError(t, err)

	roster := teamsByID(t, store)
	debates, err := store.DebatesForRound(ctx, "r1")
	require.NoError(t, err)
	debate := debates[0]

	_, err = engine.ConfirmBallot(ctx, debate.ID, consensusBallot(debate, roster, 0), "td")
	require.NoError(t, err)

	_, err = engine.ConfirmBallot(ctx, debate.ID, consensusBallot(debate, roster, 1), "td")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidBallot))
}

func TestEngineConfirmBallotPassesThroughDraft(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	audit := &captureAudit{}
	engine := newTestEngine(t, store, audit)

	_, err := engine.GenerateDraw(ctx, "r1", "td")
	require.NoError(t, err)

	roster := teamsByID(t, store)
	debates, err := store.DebatesForRound(ctx, "r1")
	require.NoError(t, err)

	// Confirming a never-submitted debate carries the submission inline, so
	// the debate moves through the draft state and both transitions are
	// audited.
	_, err = engine.ConfirmBallot(ctx, debates[0].ID, consensusBallot(debates[0], roster, 0), "td")
	require.NoError(t, err)

	stored, err := store.Debate(ctx, debates[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BallotConfirmed, stored.BallotStatus)
	assert.Len(t, audit.byTransition("ballot_submitted"), 1)
	assert.Len(t, audit.byTransition("ballot_confirmed"), 1)

	// An explicit prior submission is not audited again by the confirmation.
	require.NoError(t, engine.SubmitBallot(ctx, debates[1].ID, "runner"))
	_, err = engine.ConfirmBallot(ctx, debates[1].ID, consensusBallot(debates[1], roster, 0), "td")
	require.NoError(t, err)
	assert.Len(t, audit.byTransition("ballot_submitted"), 2)
	assert.Len(t, audit.byTransition("ballot_confirmed"), 2)
}

func TestEngineReleaseCountsSkippedNotification(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	flaky := &flakyDebateStore{Store: store}
	metrics := newCaptureMetrics()
	engine, err := NewEngine(testConfig(), Dependencies{
		Store:        flaky,
		Availability: store,
		Metrics:      metrics,
	})
	require.NoError(t, err)

	_, err = engine.GenerateDraw(ctx, "r1", "td")
	require.NoError(t, err)
	_, err = engine.ConfirmDraw(ctx, "r1", "td")
	require.NoError(t, err)

	// The release commits even when the pairings cannot be loaded for the
	// notification; the skipped delivery is counted.
	flaky.fail = true
	round, err := engine.ReleaseDraw(ctx, "r1", "td")
	require.NoError(t, err)
	assert.Equal(t, domain.DrawReleased, round.DrawStatus)
	assert.Equal(t, 1.0, metrics.counter("notify_failures"))
}

func TestEngineOverrideBallotRetainsSuperseded(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	audit := &captureAudit{}
	engine := newTestEngine(t, store, audit)

	_, err := engine.GenerateDraw(ctx, "r1", "td")
	require.NoError(t, err)

	roster := teamsByID(t, store)
	debates, err := store.DebatesForRound(ctx, "r1")
	require.NoError(t, err)
	debate := debates[0]

	first, err := engine.ConfirmBallot(ctx, debate.ID, consensusBallot(debate, roster, 0), "td")
	require.NoError(t, err)

	// Override cannot run without a confirmed result; the other debate has none.
	_, err = engine.OverrideBallot(ctx, debates[1].ID, consensusBallot(debates[1], roster, 0), "td")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidBallot))

	overridden, err := engine.OverrideBallot(ctx, debate.ID, consensusBallot(debate, roster, 1), "td")
	require.NoError(t, err)
	require.Len(t, overridden.Superseded, 1)
	assert.Equal(t, first.Confirmed, overridden.Superseded[0])

	winner, ok := debate.TeamOnSide(1)
	require.True(t, ok)
	score, ok := overridden.ScoreForTeam(winner)
	require.True(t, ok)
	assert.True(t, score.Win)

	// Confirm and override audits carry distinct deterministic identifiers.
	confirmed := audit.byTransition("ballot_confirmed")
	overrides := audit.byTransition("ballot_overridden")
	require.Len(t, confirmed, 1)
	require.Len(t, overrides, 1)
	assert.NotEqual(t, confirmed[0].TransitionID, overrides[0].TransitionID)
}

func TestEngineOddTeamCount(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	store.PutTeams("t1", fixtureTeams(5))
	engine := newTestEngine(t, store, nil)

	_, err := engine.GenerateDraw(ctx, "r1", "td")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOddTeamCount))

	var oddErr *domain.OddTeamCountError
	require.True(t, errors.As(err, &oddErr))
	assert.Equal(t, 5, oddErr.TeamCount)
	assert.Equal(t, 2, oddErr.SidesPerDebate)
}

func TestEnginePartialAllocationCommitsFilledPanels(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	store.PutAdjudicators("t1", []domain.Adjudicator{
		{ID: "j1", Rank: domain.RankCore, FeedbackScore: 90},
	})
	engine := newTestEngine(t, store, nil)

	_, err := engine.GenerateDraw(ctx, "r1", "td")
	require.NoError(t, err)

	summary, err := engine.AllocateAdjudicators(ctx, "r1", "td")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPartialAllocation))
	require.NotNil(t, summary)
	assert.Len(t, summary.Panels, 1)
	assert.Len(t, summary.Unfilled, 1)
}

func TestEngineAllocationRequiresDraw(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	engine := newTestEngine(t, store, nil)

	_, err := engine.AllocateAdjudicators(ctx, "r1", "td")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidRoundState))

	_, err = engine.AllocateVenues(ctx, "r1", "td")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidRoundState))

	// Adjudicators may be allocated against a draft draw; venues only once
	// the pairings are confirmed.
	_, err = engine.GenerateDraw(ctx, "r1", "td")
	require.NoError(t, err)
	_, err = engine.AllocateAdjudicators(ctx, "r1", "td")
	require.NoError(t, err)
	_, err = engine.AllocateVenues(ctx, "r1", "td")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidRoundState))
}

func TestEngineCollaboratorFailuresNeverFailOperations(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	engine, err := NewEngine(testConfig(), Dependencies{
		Store:        store,
		Availability: store,
		Audit:        failingAudit{},
		Notifier:     failingNotifier{},
	})
	require.NoError(t, err)

	_, err = engine.GenerateDraw(ctx, "r1", "td")
	require.NoError(t, err)
	_, err = engine.ConfirmDraw(ctx, "r1", "td")
	require.NoError(t, err)
	_, err = engine.ReleaseDraw(ctx, "r1", "td")
	require.NoError(t, err)
}

func TestEngineDeterministicAuditIdentifiers(t *testing.T) {
	ctx := context.Background()

	transitionID := func() string {
		store := fixtureStore(t)
		audit := &captureAudit{}
		engine := newTestEngine(t, store, audit)
		_, err := engine.GenerateDraw(ctx, "r1", "td")
		require.NoError(t, err)
		records := audit.byTransition("draw_generated")
		require.Len(t, records, 1)
		return records[0].TransitionID
	}

	assert.Equal(t, transitionID(), transitionID(),
		"identical transitions derive identical identifiers")
}

func TestEngineRefusesWhileRoundLocked(t *testing.T) {
	ctx := context.Background()
	store := fixtureStore(t)
	store.SetLockWait(10 * time.Millisecond)
	engine := newTestEngine(t, store, nil)

	release, err := store.AcquireRound(ctx, "r1")
	require.NoError(t, err)
	defer release()

	_, err = engine.GenerateDraw(ctx, "r1", "td")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConcurrentModification))
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	store := fixtureStore(t)

	_, err := NewEngine(nil, Dependencies{Store: store, Availability: store})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = NewEngine(testConfig(), Dependencies{Availability: store})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = NewEngine(testConfig(), Dependencies{Store: store})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

package alloc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreesc15/tabbycat/internal/domain"
)

func testConflicts(t *testing.T, teams []domain.Team, adjudicators []domain.Adjudicator, declared []domain.Conflict) *domain.ConflictSet {
	t.Helper()
	cs, err := domain.BuildConflictSet(
		&domain.Tournament{ID: "t1", Format: domain.Format{Sides: []string{"prop", "opp"}, SpeakersPerSide: 2}},
		teams, adjudicators, declared, domain.ConflictHistory{},
	)
	require.NoError(t, err)
	return cs
}

func TestAdjudicatorAllocatorStrongestChairsMostImportant(t *testing.T) {
	allocator, err := NewAdjudicatorAllocator(AdjudicatorConfig{PanelSize: 1})
	require.NoError(t, err)

	debates := []domain.Debate{
		{ID: "d-low", Importance: 1, Teams: []domain.DebateTeam{{TeamID: "a", Side: 0}, {TeamID: "b", Side: 1}}},
		{ID: "d-high", Importance: 5, Teams: []domain.DebateTeam{{TeamID: "c", Side: 0}, {TeamID: "d", Side: 1}}},
	}
	adjudicators := []domain.Adjudicator{
		{ID: "j-weak", Rank: domain.RankIndependent, FeedbackScore: 60},
		{ID: "j-strong", Rank: domain.RankCore, FeedbackScore: 90},
	}

	allocation, err := allocator.Allocate(context.Background(), debates, adjudicators,
		testConflicts(t, nil, nil, nil))
	require.NoError(t, err)
	require.Empty(t, allocation.Unfilled)

	require.Len(t, allocation.Panels["d-high"], 1)
	assert.Equal(t, domain.AdjudicatorID("j-strong"), allocation.Panels["d-high"][0].AdjudicatorID)
	assert.Equal(t, domain.RoleChair, allocation.Panels["d-high"][0].Role)
	assert.Equal(t, domain.AdjudicatorID("j-weak"), allocation.Panels["d-low"][0].AdjudicatorID)
}

func TestAdjudicatorAllocatorHonorsConflicts(t *testing.T) {
	allocator, err := NewAdjudicatorAllocator(AdjudicatorConfig{PanelSize: 1})
	require.NoError(t, err)

	debates := []domain.Debate{
		{ID: "d1", Importance: 1, Teams: []domain.DebateTeam{{TeamID: "a", Side: 0}, {TeamID: "b", Side: 1}}},
	}
	adjudicators := []domain.Adjudicator{
		{ID: "j-conflicted", Rank: domain.RankCore, FeedbackScore: 95},
		{ID: "j-clean", Rank: domain.RankIndependent, FeedbackScore: 50},
	}
	declared := []domain.Conflict{{Type: domain.ConflictAdjTeam, A: "j-conflicted", B: "a"}}

	allocation, err := allocator.Allocate(context.Background(), debates, adjudicators,
		testConflicts(t, nil, adjudicators, declared))
	require.NoError(t, err)

	require.Len(t, allocation.Panels["d1"], 1)
	assert.Equal(t, domain.AdjudicatorID("j-clean"), allocation.Panels["d1"][0].AdjudicatorID)
}

func TestAdjudicatorAllocatorPanelComposition(t *testing.T) {
	allocator, err := NewAdjudicatorAllocator(AdjudicatorConfig{PanelSize: 3, IncludeTrainees: true})
	require.NoError(t, err)

	debates := []domain.Debate{
		{ID: "d1", Importance: 1, Teams: []domain.DebateTeam{{TeamID: "a", Side: 0}, {TeamID: "b", Side: 1}}},
	}
	adjudicators := []domain.Adjudicator{
		{ID: "j1", Rank: domain.RankCore, FeedbackScore: 90},
		{ID: "j2", Rank: domain.RankIndependent, FeedbackScore: 80},
		{ID: "j3", Rank: domain.RankIndependent, FeedbackScore: 70},
		{ID: "j4", Rank: domain.RankTrainee, FeedbackScore: 95},
	}

	allocation, err := allocator.Allocate(context.Background(), debates, adjudicators,
		testConflicts(t, nil, nil, nil))
	require.NoError(t, err)

	panel := allocation.Panels["d1"]
	require.Len(t, panel, 4)
	assert.Equal(t, domain.RoleChair, panel[0].Role)
	assert.Equal(t, domain.AdjudicatorID("j1"), panel[0].AdjudicatorID)
	assert.Equal(t, domain.RolePanellist, panel[1].Role)
	assert.Equal(t, domain.RolePanellist, panel[2].Role)
	assert.Equal(t, domain.RoleTrainee, panel[3].Role)
	assert.Equal(t, domain.AdjudicatorID("j4"), panel[3].AdjudicatorID)
}

func TestAdjudicatorAllocatorTraineeNeverChairs(t *testing.T) {
	allocator, err := NewAdjudicatorAllocator(AdjudicatorConfig{PanelSize: 1})
	require.NoError(t, err)

	debates := []domain.Debate{
		{ID: "d1", Importance: 1, Teams: []domain.DebateTeam{{TeamID: "a", Side: 0}, {TeamID: "b", Side: 1}}},
	}
	adjudicators := []domain.Adjudicator{
		{ID: "j-trainee", Rank: domain.RankTrainee, FeedbackScore: 99},
	}

	allocation, err := allocator.Allocate(context.Background(), debates, adjudicators,
		testConflicts(t, nil, nil, nil))
	require.NoError(t, err)

	assert.Empty(t, allocation.Panels)
	assert.Equal(t, []domain.DebateID{"d1"}, allocation.Unfilled)
}

func TestAdjudicatorAllocatorPartialPoolStillFillsRest(t *testing.T) {
	allocator, err := NewAdjudicatorAllocator(AdjudicatorConfig{PanelSize: 1})
	require.NoError(t, err)

	debates := []domain.Debate{
		{ID: "d1", Importance: 2, Teams: []domain.DebateTeam{{TeamID: "a", Side: 0}, {TeamID: "b", Side: 1}}},
		{ID: "d2", Importance: 1, Teams: []domain.DebateTeam{{TeamID: "c", Side: 0}, {TeamID: "d", Side: 1}}},
	}
	adjudicators := []domain.Adjudicator{
		{ID: "j1", Rank: domain.RankIndependent, FeedbackScore: 70},
	}

	allocation, err := allocator.Allocate(context.Background(), debates, adjudicators,
		testConflicts(t, nil, nil, nil))
	require.NoError(t, err)

	// The important debate takes the only chair; the other is reported.
	require.Len(t, allocation.Panels["d1"], 1)
	assert.Equal(t, []domain.DebateID{"d2"}, allocation.Unfilled)
}

package ballot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreesc15/tabbycat/internal/domain"
)

func twoTeamFormat(permitDraws bool) domain.Format {
	return domain.Format{Sides: []string{"prop", "opp"}, SpeakersPerSide: 2, PermitDraws: permitDraws}
}

func twoTeamDebate() *domain.Debate {
	return &domain.Debate{
		ID:      "d1",
		RoundID: "r1",
		Teams:   []domain.DebateTeam{{TeamID: "a", Side: 0}, {TeamID: "b", Side: 1}},
	}
}

func twoTeamRoster() map[domain.TeamID]domain.Team {
	return map[domain.TeamID]domain.Team{
		"a": {ID: "a", Speakers: []domain.Speaker{{ID: "a-1"}, {ID: "a-2"}}},
		"b": {ID: "b", Speakers: []domain.Speaker{{ID: "b-1"}, {ID: "b-2"}}},
	}
}

// sheet builds a structurally valid two-team scoresheet with the given side
// totals split evenly across positions and the winner marked.
func sheet(id string, by domain.AdjudicatorID, propTotal, oppTotal float64, winner int) *domain.Scoresheet {
	s := &domain.Scoresheet{ID: id, DebateID: "d1", SubmittedBy: by}
	for side, total := range []float64{propTotal, oppTotal} {
		team := "a"
		if side == 1 {
			team = "b"
		}
		entry := domain.SideSheet{Side: side, Win: side == winner}
		for pos := 0; pos < 2; pos++ {
			entry.Scores = append(entry.Scores, domain.SpeakerScore{
				Position:  pos,
				SpeakerID: domain.SpeakerID(team + "-" + string(rune('1'+pos))),
				Score:     total / 2,
			})
		}
		s.Sides = append(s.Sides, entry)
	}
	return s
}

func TestTwoTeamConsensusBallot(t *testing.T) {
	agg := NewTwoTeamAggregator()

	ballots := domain.BallotSet{Consensus: sheet("s1", "", 150, 148, 0)}
	result, err := agg.Aggregate(twoTeamFormat(false), twoTeamDebate(), twoTeamRoster(), ballots)
	require.NoError(t, err)

	propScore, ok := result.ScoreForTeam("a")
	require.True(t, ok)
	assert.True(t, propScore.Win)
	assert.Equal(t, 1.0, propScore.Points)
	assert.InDelta(t, 150, propScore.SpeakerTotal, 1e-9)
	assert.InDelta(t, 2, propScore.Margin, 1e-9)

	oppScore, ok := result.ScoreForTeam("b")
	require.True(t, ok)
	assert.False(t, oppScore.Win)
	assert.Equal(t, 0.0, oppScore.Points)
	assert.InDelta(t, -2, oppScore.Margin, 1e-9)

	assert.NotNil(t, result.Confirmed)
	assert.False(t, result.ConfirmedAt.IsZero())
}

func TestTwoTeamMajorityOverridesMargin(t *testing.T) {
	agg := NewTwoTeamAggregator()

	// Two adjudicators call opp despite a huge prop margin on the third
	// sheet; majority of calls decides, never the numbers.
	ballots := domain.BallotSet{PerAdjudicator: map[domain.AdjudicatorID]*domain.Scoresheet{
		"j1": sheet("s1", "j1", 140, 145, 1),
		"j2": sheet("s2", "j2", 142, 143, 1),
		"j3": sheet("s3", "j3", 170, 130, 0),
	}}
	result, err := agg.Aggregate(twoTeamFormat(false), twoTeamDebate(), twoTeamRoster(), ballots)
	require.NoError(t, err)

	oppScore, ok := result.ScoreForTeam("b")
	require.True(t, ok)
	assert.True(t, oppScore.Win)

	// Consensus speaker scores are the panel mean.
	propScore, _ := result.ScoreForTeam("a")
	assert.InDelta(t, (140.0+142+170)/3, propScore.SpeakerTotal, 1e-9)
	assert.Len(t, result.Submitted, 3)
}

func TestTwoTeamSplitDecision(t *testing.T) {
	agg := NewTwoTeamAggregator()

	ballots := domain.BallotSet{PerAdjudicator: map[domain.AdjudicatorID]*domain.Scoresheet{
		"j1": sheet("s1", "j1", 150, 148, 0),
		"j2": sheet("s2", "j2", 148, 150, 1),
	}}
	_, err := agg.Aggregate(twoTeamFormat(false), twoTeamDebate(), twoTeamRoster(), ballots)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSplitDecision))

	var splitErr *domain.SplitDecisionError
	require.True(t, errors.As(err, &splitErr))
	assert.Equal(t, domain.DebateID("d1"), splitErr.DebateID)
	assert.Equal(t, map[int]int{0: 1, 1: 1}, splitErr.Votes)
}

func TestTwoTeamDrawPermitted(t *testing.T) {
	agg := NewTwoTeamAggregator()

	noWinner := sheet("s1", "", 149, 149, -1)
	result, err := agg.Aggregate(twoTeamFormat(true), twoTeamDebate(), twoTeamRoster(),
		domain.BallotSet{Consensus: noWinner})
	require.NoError(t, err)

	propScore, _ := result.ScoreForTeam("a")
	oppScore, _ := result.ScoreForTeam("b")
	assert.Equal(t, 0.5, propScore.Points)
	assert.Equal(t, 0.5, oppScore.Points)
	assert.False(t, propScore.Win)
	assert.False(t, oppScore.Win)
}

func TestTwoTeamDrawRefusedWhenNotPermitted(t *testing.T) {
	agg := NewTwoTeamAggregator()

	noWinner := sheet("s1", "", 149, 149, -1)
	_, err := agg.Aggregate(twoTeamFormat(false), twoTeamDebate(), twoTeamRoster(),
		domain.BallotSet{Consensus: noWinner})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidBallot))
}

func TestTwoTeamDrawRefusedOnPerAdjudicatorSheet(t *testing.T) {
	agg := NewTwoTeamAggregator()

	ballots := domain.BallotSet{PerAdjudicator: map[domain.AdjudicatorID]*domain.Scoresheet{
		"j1": sheet("s1", "j1", 150, 148, 0),
		"j2": sheet("s2", "j2", 149, 149, -1),
		"j3": sheet("s3", "j3", 150, 148, 0),
	}}
	_, err := agg.Aggregate(twoTeamFormat(true), twoTeamDebate(), twoTeamRoster(), ballots)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidBallot))
}

func TestTwoTeamRejectsIncompleteSheet(t *testing.T) {
	agg := NewTwoTeamAggregator()

	incomplete := sheet("s1", "", 150, 148, 0)
	incomplete.Sides[0].Scores = incomplete.Sides[0].Scores[:1]

	_, err := agg.Aggregate(twoTeamFormat(false), twoTeamDebate(), twoTeamRoster(),
		domain.BallotSet{Consensus: incomplete})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidBallot))
}

func TestTwoTeamRejectsUnknownSpeaker(t *testing.T) {
	agg := NewTwoTeamAggregator()

	wrong := sheet("s1", "", 150, 148, 0)
	wrong.Sides[1].Scores[0].SpeakerID = "stranger"

	_, err := agg.Aggregate(twoTeamFormat(false), twoTeamDebate(), twoTeamRoster(),
		domain.BallotSet{Consensus: wrong})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidBallot))
}

func TestTwoTeamTopSpeaker(t *testing.T) {
	agg := NewTwoTeamAggregator()

	s := sheet("s1", "", 150, 148, 0)
	s.Sides[1].Scores[1].Score = 90 // b-2 outscores everyone

	result, err := agg.Aggregate(twoTeamFormat(false), twoTeamDebate(), twoTeamRoster(),
		domain.BallotSet{Consensus: s})
	require.NoError(t, err)
	assert.Equal(t, domain.SpeakerID("b-2"), result.TopSpeaker)
}

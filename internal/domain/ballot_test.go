package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBallotStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     BallotStatus
		to       BallotStatus
		override bool
		want     bool
	}{
		{"none to draft", BallotNone, BallotDraft, false, true},
		{"draft to confirmed", BallotDraft, BallotConfirmed, false, true},
		{"draft discarded", BallotDraft, BallotNone, false, true},
		{"none to confirmed skips draft", BallotNone, BallotConfirmed, false, false},
		{"confirmed to draft without override", BallotConfirmed, BallotDraft, false, false},
		{"confirmed to draft with override", BallotConfirmed, BallotDraft, true, true},
		{"confirmed to none even with override", BallotConfirmed, BallotNone, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to, tt.override))
		})
	}
}

func TestBallotSetValidate(t *testing.T) {
	sheet := &Scoresheet{ID: "s1"}

	assert.Error(t, BallotSet{}.Validate(), "empty set")
	assert.Error(t, BallotSet{
		Consensus:      sheet,
		PerAdjudicator: map[AdjudicatorID]*Scoresheet{"j1": sheet},
	}.Validate(), "both variants")

	assert.NoError(t, BallotSet{Consensus: sheet}.Validate())
	assert.NoError(t, BallotSet{PerAdjudicator: map[AdjudicatorID]*Scoresheet{"j1": sheet}}.Validate())
}

func TestBallotSetSheetsDeterministicOrder(t *testing.T) {
	s1 := &Scoresheet{ID: "s1", SubmittedBy: "j1"}
	s2 := &Scoresheet{ID: "s2", SubmittedBy: "j2"}
	s3 := &Scoresheet{ID: "s3", SubmittedBy: "j3"}
	set := BallotSet{PerAdjudicator: map[AdjudicatorID]*Scoresheet{
		"j3": s3, "j1": s1, "j2": s2,
	}}

	sheets := set.Sheets()
	require.Len(t, sheets, 3)
	assert.Equal(t, []*Scoresheet{s1, s2, s3}, sheets)

	consensus := &Scoresheet{ID: "c"}
	assert.Equal(t, []*Scoresheet{consensus}, BallotSet{Consensus: consensus}.Sheets())
}

func TestSideSheetTotal(t *testing.T) {
	sheet := SideSheet{Scores: []SpeakerScore{
		{Position: 0, Score: 75.5},
		{Position: 1, Score: 72},
	}}
	assert.InDelta(t, 147.5, sheet.Total(), 1e-9)
}

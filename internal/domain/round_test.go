package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from DrawStatus
		to   DrawStatus
		want bool
	}{
		{"none to draft", DrawNone, DrawDraft, true},
		{"draft to confirmed", DrawDraft, DrawConfirmed, true},
		{"confirmed to released", DrawConfirmed, DrawReleased, true},
		{"released to confirmed is unrelease", DrawReleased, DrawConfirmed, true},
		{"draft reset", DrawDraft, DrawNone, true},
		{"confirmed reset", DrawConfirmed, DrawNone, true},
		{"released reset", DrawReleased, DrawNone, true},
		{"none to none refused", DrawNone, DrawNone, false},
		{"none to confirmed skips draft", DrawNone, DrawConfirmed, false},
		{"none to released skips flow", DrawNone, DrawReleased, false},
		{"draft to released skips confirm", DrawDraft, DrawReleased, false},
		{"confirmed back to draft refused", DrawConfirmed, DrawDraft, false},
		{"released to draft refused", DrawReleased, DrawDraft, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRoundTransition(t *testing.T) {
	round := &Round{ID: "r1", DrawStatus: DrawNone}

	require.NoError(t, round.Transition(DrawDraft, "generate draw"))
	assert.Equal(t, DrawDraft, round.DrawStatus)

	require.NoError(t, round.Transition(DrawConfirmed, "confirm draw"))
	require.NoError(t, round.Transition(DrawReleased, "release draw"))
	assert.Equal(t, DrawReleased, round.DrawStatus)
}

func TestRoundTransitionRefused(t *testing.T) {
	round := &Round{ID: "r1", DrawStatus: DrawNone}

	err := round.Transition(DrawReleased, "release draw")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRoundState))

	var stateErr *InvalidRoundStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, RoundID("r1"), stateErr.RoundID)
	assert.Equal(t, DrawNone, stateErr.Current)
	assert.Equal(t, "release draw", stateErr.Operation)

	// Refused transitions must not mutate the round.
	assert.Equal(t, DrawNone, round.DrawStatus)
}

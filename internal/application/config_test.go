package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreesc15/tabbycat/internal/domain"
)

func TestParseConfigAppliesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
tournament:
  name: Autumn Open
rounds:
  - seq: 1
    policy: random
    seed: 42
  - seq: 2
    policy: power_paired
`))
	require.NoError(t, err)

	assert.Equal(t, "Autumn Open", cfg.Tournament.Name)
	assert.Equal(t, []string{"proposition", "opposition"}, cfg.Tournament.Sides)
	assert.Equal(t, 2, cfg.Tournament.SpeakersPerSide)
	assert.Equal(t, 1, cfg.Allocation.PanelSize)
	assert.Equal(t, 1, cfg.Allocation.HistoryWindow)
	assert.Equal(t, []string{"speaker_score", "margin"}, cfg.Standings.TieBreaks)

	require.Len(t, cfg.Rounds, 2)
	assert.Equal(t, domain.StagePreliminary, cfg.Rounds[0].Stage, "omitted stage defaults to preliminary")
	assert.Equal(t, int64(42), cfg.Rounds[0].Seed)
}

func TestParseConfigFourSideFormat(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
tournament:
  name: BP Open
  sides: [OG, OO, CG, CO]
  speakers_per_side: 2
rounds:
  - seq: 1
    policy: random
`))
	require.NoError(t, err)
	assert.True(t, cfg.Format().Ranked())
	assert.Equal(t, 4, cfg.Format().SidesPerDebate())
}

func TestParseConfigRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "no rounds",
			yaml: `
tournament:
  name: Empty Open
rounds: []
`,
		},
		{
			name: "unknown policy",
			yaml: `
tournament:
  name: Bad Policy Open
rounds:
  - seq: 1
    policy: swiss
`,
		},
		{
			name: "unknown stage",
			yaml: `
tournament:
  name: Bad Stage Open
rounds:
  - seq: 1
    policy: random
    stage: quarterfinal
`,
		},
		{
			name: "too many sides",
			yaml: `
tournament:
  name: Five Side Open
  sides: [a, b, c, d, e]
rounds:
  - seq: 1
    policy: random
`,
		},
		{
			name: "panel size out of range",
			yaml: `
tournament:
  name: Big Panel Open
allocation:
  panel_size: 15
rounds:
  - seq: 1
    policy: random
`,
		},
		{
			name: "not yaml",
			yaml: `{{{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestNewTournamentMaterializesRounds(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
tournament:
  name: Materialize Open
rounds:
  - seq: 1
    name: Round 1
    policy: random
    seed: 7
  - seq: 2
    policy: power_paired
  - seq: 3
    policy: elimination
    stage: elimination
`))
	require.NoError(t, err)

	tournament, rounds := cfg.NewTournament()
	assert.NotEmpty(t, tournament.ID)
	assert.Equal(t, "Materialize Open", tournament.Name)
	require.Len(t, rounds, 3)

	for i, round := range rounds {
		assert.Equal(t, tournament.ID, round.TournamentID)
		assert.Equal(t, cfg.Rounds[i].Seq, round.Seq)
		assert.Equal(t, domain.DrawNone, round.DrawStatus)
		assert.NotEmpty(t, round.ID)
	}
	assert.Equal(t, "power_paired", rounds[1].Policy)
	assert.Equal(t, domain.StageElimination, rounds[2].Stage)
}

// Package standings computes cumulative team standings from confirmed
// debate results.
package standings

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// Tie-break metric names accepted in the tournament-declared order.
const (
	// MetricSpeakerScore is cumulative team speaker score.
	MetricSpeakerScore = "speaker_score"

	// MetricMargin is cumulative speaker-score margin over opponents.
	MetricMargin = "margin"

	// MetricOppositionStrength is the summed cumulative points of every
	// opponent the team has met, a who-beat-whom strength measure.
	MetricOppositionStrength = "opposition_strength"
)

var _ ports.StandingsCalculator = (*Calculator)(nil)

// Config declares the tie-break metrics applied after cumulative points, in
// tournament-declared order.
type Config struct {
	TieBreaks []string `yaml:"tie_breaks" json:"tie_breaks" validate:"max=3,dive,oneof=speaker_score margin opposition_strength"`
}

// DefaultConfig returns a Config with the conventional tie-break order.
func DefaultConfig() Config {
	return Config{TieBreaks: []string{MetricSpeakerScore, MetricMargin}}
}

// Calculator aggregates confirmed results from round 1 through a requested
// round into totally ordered team standings. Rounds missing any confirmed
// result are excluded entirely, so teams are never compared across different
// numbers of completed debates.
type Calculator struct {
	tournaments ports.TournamentStore
	rounds      ports.RoundStore
	debates     ports.DebateStore
	results     ports.ResultStore
	config      Config
}

// NewCalculator creates a Calculator over the given stores.
func NewCalculator(
	tournaments ports.TournamentStore,
	rounds ports.RoundStore,
	debates ports.DebateStore,
	results ports.ResultStore,
	config Config,
) (*Calculator, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &Calculator{
		tournaments: tournaments,
		rounds:      rounds,
		debates:     debates,
		results:     results,
		config:      config,
	}, nil
}

// tally accumulates one team's aggregates over the included rounds.
type tally struct {
	points       float64
	speakerScore float64
	margin       float64
	sideCounts   []int
	opponents    []domain.TeamID
}

// Compute returns the standings through the given round sequence. The
// output is a pure function of the confirmed-result set: identical inputs
// yield byte-identical ordered output.
func (c *Calculator) Compute(
	ctx context.Context,
	tournamentID domain.TournamentID,
	throughSeq int,
) ([]domain.StandingsRow, error) {
	tallies, err := c.collect(ctx, tournamentID, throughSeq)
	if err != nil {
		return nil, err
	}
	return c.rank(tallies), nil
}

// TeamStandings returns the per-team cumulative standing used as draw input.
// The same completeness rule as Compute applies, so side counts only reflect
// rounds whose results actually count.
func (c *Calculator) TeamStandings(
	ctx context.Context,
	tournamentID domain.TournamentID,
	throughSeq int,
) (map[domain.TeamID]domain.TeamStanding, error) {
	tallies, err := c.collect(ctx, tournamentID, throughSeq)
	if err != nil {
		return nil, err
	}
	standings := make(map[domain.TeamID]domain.TeamStanding, len(tallies))
	for id, t := range tallies {
		standings[id] = domain.TeamStanding{
			TeamID:       id,
			Points:       t.points,
			SpeakerScore: t.speakerScore,
			SideCounts:   t.sideCounts,
		}
	}
	return standings, nil
}

// collect walks the tournament's rounds through throughSeq and accumulates
// per-team tallies from the complete ones.
func (c *Calculator) collect(
	ctx context.Context,
	tournamentID domain.TournamentID,
	throughSeq int,
) (map[domain.TeamID]*tally, error) {
	tournament, err := c.tournaments.Tournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("load tournament: %w", err)
	}
	teams, err := c.tournaments.Teams(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	rounds, err := c.rounds.RoundsThrough(ctx, tournamentID, throughSeq)
	if err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}

	sides := tournament.Format.SidesPerDebate()
	tallies := make(map[domain.TeamID]*tally, len(teams))
	for _, team := range teams {
		tallies[team.ID] = &tally{sideCounts: make([]int, sides)}
	}

	for _, round := range rounds {
		debates, err := c.debates.DebatesForRound(ctx, round.ID)
		if err != nil {
			return nil, fmt.Errorf("load debates for round %s: %w", round.ID, err)
		}
		if len(debates) == 0 {
			continue
		}
		results, err := c.results.ResultsForRound(ctx, round.ID)
		if err != nil {
			return nil, fmt.Errorf("load results for round %s: %w", round.ID, err)
		}
		// All-or-nothing completeness: a round with any unconfirmed debate
		// contributes nothing for any team.
		if !roundComplete(debates, results) {
			continue
		}
		for i := range results {
			c.accumulate(tallies, &results[i], sides)
		}
	}
	return tallies, nil
}

func roundComplete(debates []domain.Debate, results []domain.DebateResult) bool {
	confirmed := make(map[domain.DebateID]bool, len(results))
	for _, r := range results {
		confirmed[r.DebateID] = true
	}
	for _, d := range debates {
		if !confirmed[d.ID] {
			return false
		}
	}
	return true
}

func (c *Calculator) accumulate(tallies map[domain.TeamID]*tally, result *domain.DebateResult, sides int) {
	for _, ts := range result.TeamScores {
		t, ok := tallies[ts.TeamID]
		if !ok {
			t = &tally{sideCounts: make([]int, sides)}
			tallies[ts.TeamID] = t
		}
		t.points += ts.Points
		t.speakerScore += ts.SpeakerTotal
		t.margin += ts.Margin
		if ts.Side >= 0 && ts.Side < len(t.sideCounts) {
			t.sideCounts[ts.Side]++
		}
		for _, other := range result.TeamScores {
			if other.TeamID != ts.TeamID {
				t.opponents = append(t.opponents, other.TeamID)
			}
		}
	}
}

// metricValue computes one configured tie-break metric. Opposition strength
// is a second pass over the finished tallies, so it reflects opponents'
// full cumulative points.
func metricValue(name string, t *tally, all map[domain.TeamID]*tally) float64 {
	switch name {
	case MetricSpeakerScore:
		return t.speakerScore
	case MetricMargin:
		return t.margin
	case MetricOppositionStrength:
		var total float64
		for _, opp := range t.opponents {
			if o, ok := all[opp]; ok {
				total += o.points
			}
		}
		return total
	}
	return 0
}

func (c *Calculator) rank(tallies map[domain.TeamID]*tally) []domain.StandingsRow {
	rows := make([]domain.StandingsRow, 0, len(tallies))
	for id, t := range tallies {
		row := domain.StandingsRow{TeamID: id, Points: t.points}
		for _, name := range c.config.TieBreaks {
			row.Metrics = append(row.Metrics, domain.MetricValue{
				Name:  name,
				Value: metricValue(name, t, tallies),
			})
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		for m := range rows[i].Metrics {
			if rows[i].Metrics[m].Value != rows[j].Metrics[m].Value {
				return rows[i].Metrics[m].Value > rows[j].Metrics[m].Value
			}
		}
		// Stable deterministic key so the ordering is always total.
		return rows[i].TeamID < rows[j].TeamID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

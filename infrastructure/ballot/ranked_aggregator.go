package ballot

import (
	"fmt"
	"sort"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

var _ ports.BallotAggregator = (*RankedAggregator)(nil)

// RankedAggregator confirms ballots for multi-team ranked formats. Each
// submitted ranking must be a permutation of all sides with no ties; panels
// with multiple scoresheets average each side's rank and re-rank by that
// average, breaking average-rank ties by total speaker score and finally by
// side order so the consensus ranking is always total.
type RankedAggregator struct{}

// NewRankedAggregator creates a RankedAggregator.
func NewRankedAggregator() *RankedAggregator { return &RankedAggregator{} }

// Aggregate validates the ballot set and computes the confirmed result.
// Points are derived as sides−rank, so first of four earns three.
func (a *RankedAggregator) Aggregate(
	format domain.Format,
	debate *domain.Debate,
	teams map[domain.TeamID]domain.Team,
	ballots domain.BallotSet,
) (*domain.DebateResult, error) {
	if !format.Ranked() {
		return nil, &domain.ConfigurationError{Reason: "ranked aggregator used with a two-team format"}
	}
	if err := ballots.Validate(); err != nil {
		return nil, &domain.InvalidBallotError{DebateID: debate.ID, Reason: err.Error()}
	}

	sides := format.SidesPerDebate()
	sheets := ballots.Sheets()
	for _, sheet := range sheets {
		if err := validateSheet(sheet, format, debate, teams); err != nil {
			return nil, err
		}
		if err := validateRanking(sheet, sides, debate.ID); err != nil {
			return nil, err
		}
	}

	consensus := sheets[0]
	if len(sheets) > 1 {
		consensus = synthesizeConsensus(debate, format, sheets)
	}

	// Average each side's rank across the panel, then re-rank.
	type sideAgg struct {
		side    int
		avgRank float64
		total   float64
	}
	aggs := make([]sideAgg, sides)
	for side := 0; side < sides; side++ {
		var rankSum float64
		for _, sheet := range sheets {
			entry, _ := sheet.SideEntry(side)
			rankSum += float64(entry.Rank)
		}
		entry, _ := consensus.SideEntry(side)
		aggs[side] = sideAgg{
			side:    side,
			avgRank: rankSum / float64(len(sheets)),
			total:   entry.Total(),
		}
	}
	sort.SliceStable(aggs, func(i, j int) bool {
		if aggs[i].avgRank != aggs[j].avgRank {
			return aggs[i].avgRank < aggs[j].avgRank
		}
		// Declared tie-break metric: total speaker score, higher is better.
		if aggs[i].total != aggs[j].total {
			return aggs[i].total > aggs[j].total
		}
		return aggs[i].side < aggs[j].side
	})

	consensusRank := make(map[int]int, sides)
	for pos, agg := range aggs {
		consensusRank[agg.side] = pos + 1
	}
	for i := range consensus.Sides {
		consensus.Sides[i].Rank = consensusRank[consensus.Sides[i].Side]
		consensus.Sides[i].Win = false
	}

	result := newResult(debate, consensus, sheets)
	for side := 0; side < sides; side++ {
		teamID, _ := debate.TeamOnSide(side)
		entry, _ := consensus.SideEntry(side)
		rank := consensusRank[side]
		result.TeamScores = append(result.TeamScores, domain.TeamScore{
			TeamID:       teamID,
			Side:         side,
			Rank:         rank,
			Points:       float64(sides - rank),
			SpeakerTotal: entry.Total(),
		})
	}
	return result, nil
}

// validateRanking checks that a sheet's ranks form a permutation of 1..sides
// with no ties.
func validateRanking(sheet *domain.Scoresheet, sides int, debateID domain.DebateID) error {
	seen := make(map[int]bool, sides)
	for _, ss := range sheet.Sides {
		if ss.Rank < 1 || ss.Rank > sides {
			return &domain.InvalidBallotError{
				DebateID: debateID,
				Reason:   fmt.Sprintf("side %d rank %d out of range 1..%d", ss.Side, ss.Rank, sides),
			}
		}
		if seen[ss.Rank] {
			return &domain.InvalidBallotError{
				DebateID: debateID,
				Reason:   fmt.Sprintf("rank %d assigned twice", ss.Rank),
			}
		}
		seen[ss.Rank] = true
	}
	return nil
}

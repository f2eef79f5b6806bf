package ballot

import (
	"fmt"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

var _ ports.BallotAggregator = (*TwoTeamAggregator)(nil)

// TwoTeamAggregator confirms ballots for two-team win/loss formats. Panels
// with multiple scoresheets combine by majority of win calls; the numeric
// margin is advisory, never decisive. An even split is surfaced as a
// SplitDecisionError for administrative resolution rather than resolved by
// a guessed policy.
type TwoTeamAggregator struct{}

// NewTwoTeamAggregator creates a TwoTeamAggregator.
func NewTwoTeamAggregator() *TwoTeamAggregator { return &TwoTeamAggregator{} }

// Aggregate validates the ballot set and computes the confirmed result.
// It is a pure function of its inputs: no state outside the returned result
// is touched, so the outcome is recomputable at any time.
func (a *TwoTeamAggregator) Aggregate(
	format domain.Format,
	debate *domain.Debate,
	teams map[domain.TeamID]domain.Team,
	ballots domain.BallotSet,
) (*domain.DebateResult, error) {
	if format.Ranked() {
		return nil, &domain.ConfigurationError{Reason: "two-team aggregator used with a ranked format"}
	}
	if err := ballots.Validate(); err != nil {
		return nil, &domain.InvalidBallotError{DebateID: debate.ID, Reason: err.Error()}
	}

	sheets := ballots.Sheets()
	votes := map[int]int{}
	draws := 0
	for _, sheet := range sheets {
		if err := validateSheet(sheet, format, debate, teams); err != nil {
			return nil, err
		}
		winner, isDraw, err := recordedWinner(sheet, format, debate)
		if err != nil {
			return nil, err
		}
		if isDraw {
			draws++
			continue
		}
		votes[winner]++
	}

	// A recorded draw is only meaningful as the panel's joint decision; a
	// per-adjudicator sheet in a multi-sheet set must call a winner.
	if draws > 0 && len(sheets) > 1 {
		return nil, &domain.InvalidBallotError{
			DebateID: debate.ID,
			Reason:   "draw recorded on a per-adjudicator scoresheet; draws require a consensus ballot",
		}
	}

	consensus := sheets[0]
	if len(sheets) > 1 {
		consensus = synthesizeConsensus(debate, format, sheets)
	}

	isDraw := draws == 1
	winnerSide := -1
	if !isDraw {
		switch {
		case votes[0] > votes[1]:
			winnerSide = 0
		case votes[1] > votes[0]:
			winnerSide = 1
		default:
			return nil, &domain.SplitDecisionError{DebateID: debate.ID, Votes: votes}
		}
	}

	// Stamp the consensus outcome onto the confirmed sheet.
	for i := range consensus.Sides {
		consensus.Sides[i].Win = consensus.Sides[i].Side == winnerSide
	}

	result := newResult(debate, consensus, sheets)
	totals := [2]float64{}
	for side := 0; side < 2; side++ {
		entry, _ := consensus.SideEntry(side)
		totals[side] = entry.Total()
	}
	for side := 0; side < 2; side++ {
		teamID, _ := debate.TeamOnSide(side)
		ts := domain.TeamScore{
			TeamID:       teamID,
			Side:         side,
			Win:          side == winnerSide,
			SpeakerTotal: totals[side],
			Margin:       totals[side] - totals[1-side],
		}
		switch {
		case isDraw:
			ts.Points = 0.5
		case side == winnerSide:
			ts.Points = 1
		}
		result.TeamScores = append(result.TeamScores, ts)
	}
	return result, nil
}

// recordedWinner extracts one sheet's win call: exactly one winning side, or
// a draw when the format permits it and no side is marked.
func recordedWinner(sheet *domain.Scoresheet, format domain.Format, debate *domain.Debate) (side int, isDraw bool, err error) {
	winners := 0
	winner := -1
	for _, ss := range sheet.Sides {
		if ss.Win {
			winners++
			winner = ss.Side
		}
	}
	switch winners {
	case 1:
		return winner, false, nil
	case 0:
		if format.PermitDraws {
			return -1, true, nil
		}
		return -1, false, &domain.InvalidBallotError{
			DebateID: debate.ID,
			Reason:   "no side recorded as winner and the format does not permit draws",
		}
	default:
		return -1, false, &domain.InvalidBallotError{
			DebateID: debate.ID,
			Reason:   fmt.Sprintf("%d sides recorded as winner", winners),
		}
	}
}

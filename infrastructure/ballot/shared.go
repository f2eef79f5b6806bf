// Package ballot provides the scoresheet aggregators that turn submitted
// ballots into confirmed debate results.
package ballot

import (
	"fmt"
	"math"
	"time"

	"github.com/andreesc15/tabbycat/internal/domain"
)

// validateSheet checks one scoresheet's structural completeness against the
// format and the debate's team assignments: every side present exactly once,
// every required speaker position scored, and every named speaker on the
// side's roster. Outcome fields (winner, ranks) are format-specific and
// checked by the aggregators.
func validateSheet(
	sheet *domain.Scoresheet,
	format domain.Format,
	debate *domain.Debate,
	teams map[domain.TeamID]domain.Team,
) error {
	invalid := func(reason string, args ...any) error {
		return &domain.InvalidBallotError{DebateID: debate.ID, Reason: fmt.Sprintf(reason, args...)}
	}

	if len(sheet.Sides) != format.SidesPerDebate() {
		return invalid("scoresheet covers %d sides, format has %d", len(sheet.Sides), format.SidesPerDebate())
	}

	seen := make(map[int]bool, len(sheet.Sides))
	for _, ss := range sheet.Sides {
		if ss.Side < 0 || ss.Side >= format.SidesPerDebate() {
			return invalid("side %d out of range", ss.Side)
		}
		if seen[ss.Side] {
			return invalid("side %d scored twice", ss.Side)
		}
		seen[ss.Side] = true

		teamID, ok := debate.TeamOnSide(ss.Side)
		if !ok {
			return invalid("no team on side %d", ss.Side)
		}
		team, ok := teams[teamID]
		if !ok {
			return invalid("unknown team %s on side %d", teamID, ss.Side)
		}

		if len(ss.Scores) != format.SpeakersPerSide {
			return invalid("side %d has %d speaker scores, format requires %d",
				ss.Side, len(ss.Scores), format.SpeakersPerSide)
		}
		positions := make(map[int]bool, len(ss.Scores))
		for _, sc := range ss.Scores {
			if sc.Position < 0 || sc.Position >= format.SpeakersPerSide {
				return invalid("side %d speaker position %d out of range", ss.Side, sc.Position)
			}
			if positions[sc.Position] {
				return invalid("side %d speaker position %d scored twice", ss.Side, sc.Position)
			}
			positions[sc.Position] = true
			if math.IsNaN(sc.Score) || math.IsInf(sc.Score, 0) {
				return invalid("side %d position %d has non-finite score", ss.Side, sc.Position)
			}
			if !rosterContains(team, sc.SpeakerID) {
				return invalid("speaker %s is not on team %s", sc.SpeakerID, team.ID)
			}
		}
	}
	return nil
}

func rosterContains(team domain.Team, id domain.SpeakerID) bool {
	for _, sp := range team.Speakers {
		if sp.ID == id {
			return true
		}
	}
	return false
}

// synthesizeConsensus builds the consensus scoresheet from one or more
// validated sheets: speaker scores are averaged per side and position, with
// speaker identities taken from the first sheet. Outcome fields are left for
// the aggregator to fill.
func synthesizeConsensus(debate *domain.Debate, format domain.Format, sheets []*domain.Scoresheet) *domain.Scoresheet {
	consensus := &domain.Scoresheet{
		ID:       fmt.Sprintf("%s_consensus", debate.ID),
		DebateID: debate.ID,
	}
	for side := 0; side < format.SidesPerDebate(); side++ {
		entry := domain.SideSheet{Side: side}
		for pos := 0; pos < format.SpeakersPerSide; pos++ {
			var total float64
			var speaker domain.SpeakerID
			for i, sheet := range sheets {
				ss, _ := sheet.SideEntry(side)
				for _, sc := range ss.Scores {
					if sc.Position == pos {
						total += sc.Score
						if i == 0 {
							speaker = sc.SpeakerID
						}
					}
				}
			}
			entry.Scores = append(entry.Scores, domain.SpeakerScore{
				Position:  pos,
				SpeakerID: speaker,
				Score:     total / float64(len(sheets)),
			})
		}
		consensus.Sides = append(consensus.Sides, entry)
	}
	return consensus
}

// topSpeaker returns the highest-scoring speaker on the consensus sheet,
// breaking ties by side then position so the flag is deterministic.
func topSpeaker(consensus *domain.Scoresheet) domain.SpeakerID {
	var best domain.SpeakerID
	bestScore := math.Inf(-1)
	for _, ss := range consensus.Sides {
		for _, sc := range ss.Scores {
			if sc.Score > bestScore {
				bestScore = sc.Score
				best = sc.SpeakerID
			}
		}
	}
	return best
}

// newResult assembles the common parts of a confirmed result.
func newResult(debate *domain.Debate, consensus *domain.Scoresheet, submitted []*domain.Scoresheet) *domain.DebateResult {
	return &domain.DebateResult{
		DebateID:    debate.ID,
		RoundID:     debate.RoundID,
		Confirmed:   consensus,
		Submitted:   submitted,
		TopSpeaker:  topSpeaker(consensus),
		ConfirmedAt: time.Now().UTC(),
	}
}

package domain

import (
	"fmt"
	"sort"
)

// BallotStatus is the state machine governing a debate's result lifecycle.
//
// NO_BALLOT → DRAFT_SUBMITTED → CONFIRMED, with CONFIRMED → DRAFT_SUBMITTED
// permitted only through an explicit administrative override that keeps the
// superseded scoresheet on record.
type BallotStatus string

const (
	// BallotNone means no scoresheet has been submitted for the debate.
	BallotNone BallotStatus = "no_ballot"

	// BallotDraft means at least one scoresheet is submitted but the result
	// is not confirmed.
	BallotDraft BallotStatus = "draft_submitted"

	// BallotConfirmed means exactly one authoritative result exists.
	BallotConfirmed BallotStatus = "confirmed"
)

// CanTransitionTo reports whether the ballot state machine permits moving
// from s to next. The override argument permits the CONFIRMED → DRAFT
// administrative transition.
func (s BallotStatus) CanTransitionTo(next BallotStatus, override bool) bool {
	switch s {
	case BallotNone:
		return next == BallotDraft
	case BallotDraft:
		return next == BallotConfirmed || next == BallotNone
	case BallotConfirmed:
		return override && next == BallotDraft
	}
	return false
}

// SpeakerScore is one speaker position's score on one side of a scoresheet.
type SpeakerScore struct {
	// Position is the zero-based speaker position within the side's roster.
	Position int `json:"position"`

	SpeakerID SpeakerID `json:"speaker_id"`
	Score     float64   `json:"score"`
}

// SideSheet records one side's entry on a scoresheet: per-speaker scores,
// plus either a win marker (two-team formats) or a rank (ranked formats).
type SideSheet struct {
	// Side indexes into the tournament format's side labels.
	Side int `json:"side"`

	// Scores holds one entry per required speaker position.
	Scores []SpeakerScore `json:"scores"`

	// Win marks this side as the recorded winner in two-team formats.
	Win bool `json:"win,omitempty"`

	// Rank is the 1-based rank in ranked formats; zero when not applicable.
	Rank int `json:"rank,omitempty"`
}

// Total returns the sum of the side's speaker scores.
func (s SideSheet) Total() float64 {
	var total float64
	for _, sc := range s.Scores {
		total += sc.Score
	}
	return total
}

// Scoresheet is one adjudicator's (or the consensus) recorded scores for a
// debate. SubmittedBy is empty for a consensus or synthesized sheet.
type Scoresheet struct {
	ID          string        `json:"id"`
	DebateID    DebateID      `json:"debate_id"`
	SubmittedBy AdjudicatorID `json:"submitted_by,omitempty"`
	Sides       []SideSheet   `json:"sides"`
}

// SideEntry returns the sheet entry for the given side.
func (s *Scoresheet) SideEntry(side int) (SideSheet, bool) {
	for _, ss := range s.Sides {
		if ss.Side == side {
			return ss, true
		}
	}
	return SideSheet{}, false
}

// BallotSet is the tagged variant carrying either per-adjudicator
// scoresheets awaiting consensus aggregation, or a single consensus
// scoresheet agreed by the panel. Exactly one variant is populated.
type BallotSet struct {
	// Consensus is the single agreed scoresheet, when the panel submitted one.
	Consensus *Scoresheet

	// PerAdjudicator maps each submitting adjudicator to their scoresheet.
	PerAdjudicator map[AdjudicatorID]*Scoresheet
}

// Sheets returns the scoresheets in a deterministic order: the consensus
// sheet alone, or the per-adjudicator sheets sorted by adjudicator ID.
func (b BallotSet) Sheets() []*Scoresheet {
	if b.Consensus != nil {
		return []*Scoresheet{b.Consensus}
	}
	ids := make([]AdjudicatorID, 0, len(b.PerAdjudicator))
	for id := range b.PerAdjudicator {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	sheets := make([]*Scoresheet, 0, len(ids))
	for _, id := range ids {
		sheets = append(sheets, b.PerAdjudicator[id])
	}
	return sheets
}

// Validate checks that exactly one variant is populated and at least one
// scoresheet is present.
func (b BallotSet) Validate() error {
	if b.Consensus != nil && len(b.PerAdjudicator) > 0 {
		return fmt.Errorf("ballot set has both consensus and per-adjudicator sheets")
	}
	if b.Consensus == nil && len(b.PerAdjudicator) == 0 {
		return fmt.Errorf("ballot set is empty")
	}
	return nil
}

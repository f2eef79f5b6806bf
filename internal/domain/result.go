package domain

import "time"

// TeamScore is one side's derived outcome from a confirmed scoresheet.
// All fields are pure functions of the confirmed sheet and recomputable.
type TeamScore struct {
	TeamID TeamID `json:"team_id"`
	Side   int    `json:"side"`

	// Points is the per-debate standings contribution: win=1/loss=0 for
	// two-team formats (0.5 each for a permitted draw), sides−rank for
	// ranked formats.
	Points float64 `json:"points"`

	// Win marks the winning side in two-team formats.
	Win bool `json:"win,omitempty"`

	// Rank is the consensus rank in ranked formats; zero otherwise.
	Rank int `json:"rank,omitempty"`

	// SpeakerTotal is the side's total speaker score on the confirmed sheet.
	SpeakerTotal float64 `json:"speaker_total"`

	// Margin is the side's speaker-score margin over the opposing side in
	// two-team formats (negative for the loser); zero for ranked formats.
	Margin float64 `json:"margin,omitempty"`
}

// DebateResult is the confirmed, auditable result of one debate. The
// confirmed scoresheet may be a submitted sheet or a synthesized consensus;
// superseded sheets are retained, never deleted.
type DebateResult struct {
	DebateID DebateID `json:"debate_id"`
	RoundID  RoundID  `json:"round_id"`

	// Confirmed is the authoritative scoresheet backing this result.
	Confirmed *Scoresheet `json:"confirmed"`

	// Submitted retains the raw scoresheets the result was aggregated from.
	Submitted []*Scoresheet `json:"submitted,omitempty"`

	// Superseded retains previously confirmed scoresheets replaced through
	// administrative override, oldest first.
	Superseded []*Scoresheet `json:"superseded,omitempty"`

	// TeamScores holds one derived outcome per side, ordered by side.
	TeamScores []TeamScore `json:"team_scores"`

	// TopSpeaker is the highest-scoring speaker of the debate, feeding
	// best-speaker eligibility.
	TopSpeaker SpeakerID `json:"top_speaker,omitempty"`

	ConfirmedAt time.Time `json:"confirmed_at"`
}

// ScoreForTeam returns the derived outcome for the given team.
func (r *DebateResult) ScoreForTeam(id TeamID) (TeamScore, bool) {
	for _, ts := range r.TeamScores {
		if ts.TeamID == id {
			return ts, true
		}
	}
	return TeamScore{}, false
}

// AuditRecord is the immutable record emitted for every state transition.
// TransitionID is deterministic for a given transition so that retried
// emissions deduplicate to exactly one record.
type AuditRecord struct {
	TransitionID string       `json:"transition_id"`
	Actor        string       `json:"actor"`
	Timestamp    time.Time    `json:"timestamp"`
	TournamentID TournamentID `json:"tournament_id"`
	RoundID      RoundID      `json:"round_id,omitempty"`
	DebateID     DebateID     `json:"debate_id,omitempty"`

	// Transition names the state change, e.g. "draw_generated",
	// "ballot_confirmed".
	Transition string `json:"transition"`
}

// ChangeEntry describes one debate's change within a ChangeSummary.
type ChangeEntry struct {
	DebateID       DebateID        `json:"debate_id"`
	AdjudicatorIDs []AdjudicatorID `json:"adjudicator_ids,omitempty"`
	VenueID        VenueID         `json:"venue_id,omitempty"`
	Detail         string          `json:"detail,omitempty"`
}

// ChangeSummary exposes "what changed" from an engine operation for the
// notification collaborator. The engine never performs delivery.
type ChangeSummary struct {
	Kind    string        `json:"kind"`
	RoundID RoundID       `json:"round_id"`
	Entries []ChangeEntry `json:"entries,omitempty"`
}

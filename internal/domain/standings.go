package domain

// TeamStanding is the cumulative position of one team feeding draw
// generation: power-pairing ranks teams by these values.
type TeamStanding struct {
	TeamID TeamID `json:"team_id"`

	// Points is the cumulative points over all complete rounds.
	Points float64 `json:"points"`

	// SpeakerScore is the cumulative team speaker score, the first
	// power-pairing tie-break.
	SpeakerScore float64 `json:"speaker_score"`

	// SideCounts tracks how often the team has held each side, indexed by
	// side; used to balance side allocation across the tournament.
	SideCounts []int `json:"side_counts,omitempty"`
}

// MetricValue is one computed tie-break metric on a standings row. Values
// appear in the tournament-declared metric order so row comparison is
// positional.
type MetricValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// StandingsRow is one team's line in the computed standings. Rows are
// totally ordered: points first, then each configured metric in order, with
// team ID as the final deterministic tie-break.
type StandingsRow struct {
	Rank   int     `json:"rank"`
	TeamID TeamID  `json:"team_id"`
	Points float64 `json:"points"`

	// Metrics holds the configured tie-break metrics in declared order.
	Metrics []MetricValue `json:"metrics,omitempty"`
}

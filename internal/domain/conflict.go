package domain

// ConflictType enumerates the supported conflict relations. Institutional
// conflicts are expanded to concrete entity pairs when the set is built.
type ConflictType string

const (
	// ConflictTeamTeam forbids two teams from meeting.
	ConflictTeamTeam ConflictType = "team_team"

	// ConflictTeamInstitution forbids a team from meeting any team of an
	// institution.
	ConflictTeamInstitution ConflictType = "team_institution"

	// ConflictAdjTeam forbids an adjudicator from judging a team.
	ConflictAdjTeam ConflictType = "adj_team"

	// ConflictAdjAdj forbids two adjudicators from sharing a panel.
	ConflictAdjAdj ConflictType = "adj_adj"

	// ConflictAdjInstitution forbids an adjudicator from judging any team
	// of an institution.
	ConflictAdjInstitution ConflictType = "adj_institution"
)

// Conflict is a declared incompatibility between two entities, scoped to a
// tournament and persistent across rounds. A and B hold the raw identifiers;
// their interpretation depends on Type. Symmetric relations (team-team,
// adj-adj) are stored once in either order.
type Conflict struct {
	Type ConflictType `json:"type"`
	A    string       `json:"a"`
	B    string       `json:"b"`
}

type idPair struct{ a, b string }

func symmetricKey(a, b string) idPair {
	if b < a {
		a, b = b, a
	}
	return idPair{a, b}
}

// ConflictSet answers conflict queries for one round. It unions declared
// conflicts (including institutional ones, expanded against the current
// rosters) with history conflicts derived from prior debates. It is built
// fresh per round as a pure projection and never persisted, so it cannot go
// stale.
type ConflictSet struct {
	teamTeam map[idPair]bool
	adjTeam  map[idPair]bool
	adjAdj   map[idPair]bool
}

// TeamsConflicted reports whether two teams may not meet.
func (cs *ConflictSet) TeamsConflicted(a, b TeamID) bool {
	return cs.teamTeam[symmetricKey(string(a), string(b))]
}

// AdjTeamConflicted reports whether the adjudicator may not judge the team.
func (cs *ConflictSet) AdjTeamConflicted(adj AdjudicatorID, team TeamID) bool {
	return cs.adjTeam[idPair{string(adj), string(team)}]
}

// AdjsConflicted reports whether two adjudicators may not share a panel.
func (cs *ConflictSet) AdjsConflicted(a, b AdjudicatorID) bool {
	return cs.adjAdj[symmetricKey(string(a), string(b))]
}

// AdjConflictedWithDebate reports whether the adjudicator conflicts with any
// team in the debate or any adjudicator already on its panel.
func (cs *ConflictSet) AdjConflictedWithDebate(adj AdjudicatorID, debate *Debate) bool {
	for _, dt := range debate.Teams {
		if cs.AdjTeamConflicted(adj, dt.TeamID) {
			return true
		}
	}
	for _, da := range debate.Panel {
		if cs.AdjsConflicted(adj, da.AdjudicatorID) {
			return true
		}
	}
	return false
}

// ConflictHistory carries the prior-round material from which history
// conflicts are derived: debates keyed by round sequence number, all strictly
// earlier than the round being drawn.
type ConflictHistory struct {
	// DebatesBySeq maps round sequence number to that round's debates.
	DebatesBySeq map[int][]Debate

	// ThroughSeq is the highest sequence number to consider; typically the
	// sequence of the round being drawn minus one.
	ThroughSeq int

	// AdjudicatorWindow is how many immediately preceding rounds count for
	// "adjudicator already judged this team" conflicts. Zero disables them.
	AdjudicatorWindow int
}

// BuildConflictSet constructs the conflict set for a round. Declared
// institutional conflicts are expanded against the supplied rosters, and
// history conflicts are derived from the prior debates. It is a pure
// function with no side effects.
//
// Returns a ConfigurationError if the tournament format declares no sides,
// since no pairing question is meaningful without side labels.
func BuildConflictSet(
	t *Tournament,
	teams []Team,
	adjudicators []Adjudicator,
	declared []Conflict,
	history ConflictHistory,
) (*ConflictSet, error) {
	if t.Format.SidesPerDebate() == 0 {
		return nil, &ConfigurationError{Reason: "tournament format declares no side labels"}
	}

	cs := &ConflictSet{
		teamTeam: make(map[idPair]bool),
		adjTeam:  make(map[idPair]bool),
		adjAdj:   make(map[idPair]bool),
	}

	teamsByInstitution := make(map[InstitutionID][]TeamID)
	for _, team := range teams {
		if team.Institution != "" {
			teamsByInstitution[team.Institution] = append(teamsByInstitution[team.Institution], team.ID)
		}
	}

	for _, c := range declared {
		switch c.Type {
		case ConflictTeamTeam:
			cs.teamTeam[symmetricKey(c.A, c.B)] = true
		case ConflictAdjTeam:
			cs.adjTeam[idPair{c.A, c.B}] = true
		case ConflictAdjAdj:
			cs.adjAdj[symmetricKey(c.A, c.B)] = true
		case ConflictTeamInstitution:
			for _, other := range teamsByInstitution[InstitutionID(c.B)] {
				cs.teamTeam[symmetricKey(c.A, string(other))] = true
			}
		case ConflictAdjInstitution:
			for _, team := range teamsByInstitution[InstitutionID(c.B)] {
				cs.adjTeam[idPair{c.A, string(team)}] = true
			}
		}
	}

	// Teams sharing an institution are implicitly conflicted, matching the
	// standard institutional-clash rule.
	for _, ids := range teamsByInstitution {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				cs.teamTeam[symmetricKey(string(ids[i]), string(ids[j]))] = true
			}
		}
	}
	for _, adj := range adjudicators {
		if adj.Institution == "" {
			continue
		}
		for _, team := range teamsByInstitution[adj.Institution] {
			cs.adjTeam[idPair{string(adj.ID), string(team)}] = true
		}
	}

	// History: teams that already met in any earlier round may not meet again.
	for seq, debates := range history.DebatesBySeq {
		if seq > history.ThroughSeq {
			continue
		}
		for _, debate := range debates {
			for i := 0; i < len(debate.Teams); i++ {
				for j := i + 1; j < len(debate.Teams); j++ {
					cs.teamTeam[symmetricKey(string(debate.Teams[i].TeamID), string(debate.Teams[j].TeamID))] = true
				}
			}
		}
	}

	// History: adjudicators who judged a team within the window may not judge
	// it again.
	if history.AdjudicatorWindow > 0 {
		from := history.ThroughSeq - history.AdjudicatorWindow + 1
		for seq, debates := range history.DebatesBySeq {
			if seq < from || seq > history.ThroughSeq {
				continue
			}
			for _, debate := range debates {
				for _, da := range debate.Panel {
					for _, dt := range debate.Teams {
						cs.adjTeam[idPair{string(da.AdjudicatorID), string(dt.TeamID)}] = true
					}
				}
			}
		}
	}

	return cs, nil
}

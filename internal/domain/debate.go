package domain

import "fmt"

// AdjudicatorRole is the role an adjudicator holds on a debate's panel.
type AdjudicatorRole string

const (
	// RoleChair designates the panel chair. Every filled panel has exactly one.
	RoleChair AdjudicatorRole = "chair"

	// RolePanellist designates a voting panel member.
	RolePanellist AdjudicatorRole = "panellist"

	// RoleTrainee designates a non-voting trainee observer.
	RoleTrainee AdjudicatorRole = "trainee"
)

// Voting reports whether the role participates in majority decisions.
func (r AdjudicatorRole) Voting() bool { return r != RoleTrainee }

// DebateTeam assigns a team to a side of a debate. Side indexes into the
// tournament format's side labels.
type DebateTeam struct {
	TeamID TeamID `json:"team_id"`
	Side   int    `json:"side"`
}

// DebateAdjudicator assigns an adjudicator to a debate's panel with a role.
type DebateAdjudicator struct {
	AdjudicatorID AdjudicatorID   `json:"adjudicator_id"`
	Role          AdjudicatorRole `json:"role"`
}

// Debate is one pairing of teams within a round, with an optional panel and
// venue attached by allocation.
type Debate struct {
	ID      DebateID `json:"id"`
	RoundID RoundID  `json:"round_id"`

	// Importance ranks debates for allocation; higher-importance debates
	// receive the strongest panels and best venues first.
	Importance float64 `json:"importance"`

	// Teams holds exactly one entry per side once the draw is generated.
	Teams []DebateTeam `json:"teams"`

	// Panel holds the allocated adjudicators. Empty until allocation runs.
	Panel []DebateAdjudicator `json:"panel,omitempty"`

	// VenueID is the allocated venue, or empty if none was assigned.
	VenueID VenueID `json:"venue_id,omitempty"`

	// RequiredVenueCategories constrains venue allocation, e.g. for
	// accessibility needs of a participating team.
	RequiredVenueCategories []string `json:"required_venue_categories,omitempty"`

	BallotStatus BallotStatus `json:"ballot_status"`
}

// TeamOnSide returns the team assigned to the given side.
func (d *Debate) TeamOnSide(side int) (TeamID, bool) {
	for _, dt := range d.Teams {
		if dt.Side == side {
			return dt.TeamID, true
		}
	}
	return "", false
}

// HasTeam reports whether the team participates in this debate.
func (d *Debate) HasTeam(id TeamID) bool {
	for _, dt := range d.Teams {
		if dt.TeamID == id {
			return true
		}
	}
	return false
}

// Chair returns the designated chair, if the panel has one.
func (d *Debate) Chair() (AdjudicatorID, bool) {
	for _, da := range d.Panel {
		if da.Role == RoleChair {
			return da.AdjudicatorID, true
		}
	}
	return "", false
}

// ValidateTeams checks the structural invariants of a generated pairing:
// every side of the format is filled exactly once and no team appears twice.
func (d *Debate) ValidateTeams(format Format) error {
	if len(d.Teams) != format.SidesPerDebate() {
		return fmt.Errorf("debate %s: %d teams for %d sides", d.ID, len(d.Teams), format.SidesPerDebate())
	}
	sides := make(map[int]bool, len(d.Teams))
	teams := make(map[TeamID]bool, len(d.Teams))
	for _, dt := range d.Teams {
		if dt.Side < 0 || dt.Side >= format.SidesPerDebate() {
			return fmt.Errorf("debate %s: side %d out of range", d.ID, dt.Side)
		}
		if sides[dt.Side] {
			return fmt.Errorf("debate %s: side %d filled twice", d.ID, dt.Side)
		}
		if teams[dt.TeamID] {
			return fmt.Errorf("debate %s: team %s appears twice", d.ID, dt.TeamID)
		}
		sides[dt.Side] = true
		teams[dt.TeamID] = true
	}
	return nil
}

// Package domain contains pure, dependency-free domain models and types
// for the draw and allocation engine.
package domain

// Identifier types for the persisted entities. Keeping them distinct makes
// cross-entity mixups a compile error rather than a runtime surprise.
type (
	// TournamentID uniquely identifies a tournament.
	TournamentID string

	// RoundID uniquely identifies a round within a tournament.
	RoundID string

	// TeamID uniquely identifies a team within a tournament.
	TeamID string

	// SpeakerID uniquely identifies a speaker on a team roster.
	SpeakerID string

	// AdjudicatorID uniquely identifies an adjudicator.
	AdjudicatorID string

	// VenueID uniquely identifies a venue.
	VenueID string

	// DebateID uniquely identifies a debate within a round.
	DebateID string

	// InstitutionID identifies the institution a team or adjudicator
	// is affiliated with. Institutional conflicts key off this value.
	InstitutionID string
)

// Format captures the per-tournament parameters that shape every draw and
// every ballot: how many sides meet in a debate, how many speakers each side
// fields, and whether a two-team debate may end in a draw.
//
// Format is immutable once any round of the tournament has a confirmed draw;
// the engine never mutates it.
type Format struct {
	// Sides lists the side labels in their canonical order, e.g.
	// ["proposition", "opposition"] or ["OG", "OO", "CG", "CO"].
	Sides []string `json:"sides"`

	// SpeakersPerSide is the number of scored speaker positions per side.
	SpeakersPerSide int `json:"speakers_per_side"`

	// PermitDraws allows a two-team debate to end with no winner.
	// It has no effect on ranked formats, which always produce a total order.
	PermitDraws bool `json:"permit_draws"`
}

// SidesPerDebate returns the number of sides that meet in one debate.
func (f Format) SidesPerDebate() int { return len(f.Sides) }

// Ranked reports whether the format produces a rank ordering rather than a
// win/loss outcome. Any format with more than two sides is ranked.
func (f Format) Ranked() bool { return len(f.Sides) > 2 }

// Tournament is the configuration root. It owns rounds, teams, adjudicators,
// venues and conflicts through the stores; the struct itself carries only the
// identity and format parameters the engine needs.
type Tournament struct {
	ID     TournamentID `json:"id"`
	Name   string       `json:"name"`
	Format Format       `json:"format"`
}

// Speaker is one member of a team's ordered roster.
type Speaker struct {
	ID   SpeakerID `json:"id"`
	Name string    `json:"name"`
}

// Team is a set of speakers with an institutional affiliation.
type Team struct {
	ID          TeamID        `json:"id"`
	Name        string        `json:"name"`
	Institution InstitutionID `json:"institution"`

	// Speakers is the ordered roster; index corresponds to speaker position.
	Speakers []Speaker `json:"speakers"`
}

// AdjudicatorRank classifies an adjudicator's eligibility for panel roles.
type AdjudicatorRank string

const (
	// RankTrainee marks adjudicators who may only fill trainee slots and
	// never chair a debate.
	RankTrainee AdjudicatorRank = "trainee"

	// RankIndependent marks adjudicators eligible to chair or panel.
	RankIndependent AdjudicatorRank = "independent"

	// RankCore marks members of the core adjudication team, eligible for
	// any role.
	RankCore AdjudicatorRank = "core"
)

// Adjudicator is a person who judges debates. The feedback score is supplied
// by the external feedback collaborator and only ever read by the engine.
type Adjudicator struct {
	ID          AdjudicatorID   `json:"id"`
	Name        string          `json:"name"`
	Institution InstitutionID   `json:"institution"`
	Rank        AdjudicatorRank `json:"rank"`

	// BaseScore is the pre-tournament ranking score, used as the stable
	// tie-break when feedback scores are equal.
	BaseScore float64 `json:"base_score"`

	// FeedbackScore is the running score maintained by the feedback system.
	FeedbackScore float64 `json:"feedback_score"`
}

// CanChair reports whether this adjudicator may be designated chair.
func (a Adjudicator) CanChair() bool { return a.Rank != RankTrainee }

// Venue is a debating room with a quality ranking and category tags.
// Categories express constraints such as accessibility: a debate requiring a
// category may only be assigned a venue carrying it.
type Venue struct {
	ID   VenueID `json:"id"`
	Name string  `json:"name"`

	// Priority ranks venues for allocation; higher is better.
	Priority int `json:"priority"`

	// Categories lists the tags this venue satisfies.
	Categories []string `json:"categories,omitempty"`
}

// HasCategories reports whether the venue carries every required category.
func (v Venue) HasCategories(required []string) bool {
	for _, want := range required {
		found := false
		for _, have := range v.Categories {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Package bundb provides the PostgreSQL implementation of the engine's
// persistence and locking contracts, built on the bun ORM.
package bundb

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/andreesc15/tabbycat/internal/domain"
)

type tournamentRow struct {
	bun.BaseModel `bun:"table:tournaments,alias:t"`

	ID     string        `bun:"id,pk"`
	Name   string        `bun:"name,notnull"`
	Format domain.Format `bun:"format,type:jsonb,notnull"`
}

type teamRow struct {
	bun.BaseModel `bun:"table:teams,alias:tm"`

	ID           string           `bun:"id,pk"`
	TournamentID string           `bun:"tournament_id,notnull"`
	Name         string           `bun:"name,notnull"`
	Institution  string           `bun:"institution"`
	Speakers     []domain.Speaker `bun:"speakers,type:jsonb"`
}

type adjudicatorRow struct {
	bun.BaseModel `bun:"table:adjudicators,alias:a"`

	ID            string  `bun:"id,pk"`
	TournamentID  string  `bun:"tournament_id,notnull"`
	Name          string  `bun:"name,notnull"`
	Institution   string  `bun:"institution"`
	Rank          string  `bun:"rank,notnull"`
	BaseScore     float64 `bun:"base_score,notnull,default:0"`
	FeedbackScore float64 `bun:"feedback_score,notnull,default:0"`
}

type venueRow struct {
	bun.BaseModel `bun:"table:venues,alias:v"`

	ID           string   `bun:"id,pk"`
	TournamentID string   `bun:"tournament_id,notnull"`
	Name         string   `bun:"name,notnull"`
	Priority     int      `bun:"priority,notnull,default:0"`
	Categories   []string `bun:"categories,type:jsonb"`
}

type conflictRow struct {
	bun.BaseModel `bun:"table:conflicts,alias:c"`

	ID           int64  `bun:"id,pk,autoincrement"`
	TournamentID string `bun:"tournament_id,notnull"`
	Type         string `bun:"type,notnull"`
	A            string `bun:"a,notnull"`
	B            string `bun:"b,notnull"`
}

type roundRow struct {
	bun.BaseModel `bun:"table:rounds,alias:r"`

	ID           string `bun:"id,pk"`
	TournamentID string `bun:"tournament_id,notnull"`
	Seq          int    `bun:"seq,notnull"`
	Name         string `bun:"name"`
	Stage        string `bun:"stage,notnull"`
	Policy       string `bun:"policy,notnull"`
	Seed         int64  `bun:"seed,notnull,default:0"`
	DrawStatus   string `bun:"draw_status,notnull"`
	Version      int64  `bun:"version,notnull,default:0"`
}

type debateRow struct {
	bun.BaseModel `bun:"table:debates,alias:d"`

	ID                      string                     `bun:"id,pk"`
	RoundID                 string                     `bun:"round_id,notnull"`
	Importance              float64                    `bun:"importance,notnull,default:0"`
	Teams                   []domain.DebateTeam        `bun:"teams,type:jsonb,notnull"`
	Panel                   []domain.DebateAdjudicator `bun:"panel,type:jsonb"`
	VenueID                 string                     `bun:"venue_id"`
	RequiredVenueCategories []string                   `bun:"required_venue_categories,type:jsonb"`
	BallotStatus            string                     `bun:"ballot_status,notnull"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:results,alias:res"`

	DebateID    string               `bun:"debate_id,pk"`
	RoundID     string               `bun:"round_id,notnull"`
	Payload     *domain.DebateResult `bun:"payload,type:jsonb,notnull"`
	ConfirmedAt time.Time            `bun:"confirmed_at,notnull"`
}

func (r *tournamentRow) toDomain() *domain.Tournament {
	return &domain.Tournament{ID: domain.TournamentID(r.ID), Name: r.Name, Format: r.Format}
}

func (r *teamRow) toDomain() domain.Team {
	return domain.Team{
		ID:          domain.TeamID(r.ID),
		Name:        r.Name,
		Institution: domain.InstitutionID(r.Institution),
		Speakers:    r.Speakers,
	}
}

func (r *adjudicatorRow) toDomain() domain.Adjudicator {
	return domain.Adjudicator{
		ID:            domain.AdjudicatorID(r.ID),
		Name:          r.Name,
		Institution:   domain.InstitutionID(r.Institution),
		Rank:          domain.AdjudicatorRank(r.Rank),
		BaseScore:     r.BaseScore,
		FeedbackScore: r.FeedbackScore,
	}
}

func (r *venueRow) toDomain() domain.Venue {
	return domain.Venue{
		ID:         domain.VenueID(r.ID),
		Name:       r.Name,
		Priority:   r.Priority,
		Categories: r.Categories,
	}
}

func (r *conflictRow) toDomain() domain.Conflict {
	return domain.Conflict{Type: domain.ConflictType(r.Type), A: r.A, B: r.B}
}

func (r *roundRow) toDomain() *domain.Round {
	return &domain.Round{
		ID:           domain.RoundID(r.ID),
		TournamentID: domain.TournamentID(r.TournamentID),
		Seq:          r.Seq,
		Name:         r.Name,
		Stage:        domain.RoundStage(r.Stage),
		Policy:       r.Policy,
		Seed:         r.Seed,
		DrawStatus:   domain.DrawStatus(r.DrawStatus),
		Version:      r.Version,
	}
}

func roundToRow(r *domain.Round) *roundRow {
	return &roundRow{
		ID:           string(r.ID),
		TournamentID: string(r.TournamentID),
		Seq:          r.Seq,
		Name:         r.Name,
		Stage:        string(r.Stage),
		Policy:       r.Policy,
		Seed:         r.Seed,
		DrawStatus:   string(r.DrawStatus),
		Version:      r.Version,
	}
}

func (r *debateRow) toDomain() domain.Debate {
	return domain.Debate{
		ID:                      domain.DebateID(r.ID),
		RoundID:                 domain.RoundID(r.RoundID),
		Importance:              r.Importance,
		Teams:                   r.Teams,
		Panel:                   r.Panel,
		VenueID:                 domain.VenueID(r.VenueID),
		RequiredVenueCategories: r.RequiredVenueCategories,
		BallotStatus:            domain.BallotStatus(r.BallotStatus),
	}
}

func debateToRow(d *domain.Debate) *debateRow {
	return &debateRow{
		ID:                      string(d.ID),
		RoundID:                 string(d.RoundID),
		Importance:              d.Importance,
		Teams:                   d.Teams,
		Panel:                   d.Panel,
		VenueID:                 string(d.VenueID),
		RequiredVenueCategories: d.RequiredVenueCategories,
		BallotStatus:            string(d.BallotStatus),
	}
}

// Package application orchestrates the draw and allocation engine: it wires
// pairing policies, allocators, aggregators and stores behind the Engine's
// top-level operations.
package application

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/andreesc15/tabbycat/infrastructure/standings"
	"github.com/andreesc15/tabbycat/internal/domain"
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// Config is the complete engine configuration for one tournament, typically
// decoded from yaml.
type Config struct {
	// Tournament declares the format parameters. Immutable once any round
	// has a confirmed draw.
	Tournament TournamentSettings `yaml:"tournament" validate:"required"`

	// Draw carries per-policy parameter blocks keyed by policy name.
	Draw DrawSettings `yaml:"draw"`

	// Allocation configures panel sizes and conflict history.
	Allocation AllocationSettings `yaml:"allocation"`

	// Standings declares the tie-break metric order.
	Standings standings.Config `yaml:"standings"`

	// Rounds declares the tournament's rounds in sequence order.
	Rounds []RoundSettings `yaml:"rounds" validate:"min=1,dive"`
}

// TournamentSettings declares the format parameters of the tournament.
type TournamentSettings struct {
	Name string `yaml:"name" validate:"required,min=1,max=255"`

	// Sides lists the side labels in canonical order; two for win/loss
	// formats, four for ranked formats like British Parliamentary.
	Sides []string `yaml:"sides" validate:"required,min=2,max=4,dive,min=1"`

	// SpeakersPerSide is the number of scored speaker positions per side.
	SpeakersPerSide int `yaml:"speakers_per_side" validate:"min=1,max=4"`

	// PermitDraws allows a two-team debate to end with no winner.
	PermitDraws bool `yaml:"permit_draws"`
}

// DrawSettings carries parameter blocks for the configured pairing
// policies, keyed by policy name and decoded by each policy's boundary
// adapter.
type DrawSettings struct {
	Policies map[string]map[string]any `yaml:"policies"`
}

// AllocationSettings configures the allocation engine.
type AllocationSettings struct {
	// PanelSize is the target number of voting adjudicators per debate.
	PanelSize int `yaml:"panel_size" validate:"min=1,max=9"`

	// IncludeTrainees appends a non-voting trainee to panels when possible.
	IncludeTrainees bool `yaml:"include_trainees"`

	// HistoryWindow is how many immediately preceding rounds count for
	// "adjudicator already judged this team" history conflicts.
	HistoryWindow int `yaml:"history_window" validate:"min=0,max=20"`
}

// RoundSettings declares one round of the tournament.
type RoundSettings struct {
	Seq   int               `yaml:"seq" validate:"min=1"`
	Name  string            `yaml:"name"`
	Stage domain.RoundStage `yaml:"stage" validate:"omitempty,oneof=preliminary elimination"`

	// Policy names the pairing policy for this round.
	Policy string `yaml:"policy" validate:"required,oneof=random power_paired elimination"`

	// Seed fixes the round's random source for reproducible regeneration.
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns a Config with production-ready defaults: a two-team
// format, single-chair panels, and the conventional tie-break order.
func DefaultConfig() *Config {
	return &Config{
		Tournament: TournamentSettings{
			Sides:           []string{"proposition", "opposition"},
			SpeakersPerSide: 2,
		},
		Allocation: AllocationSettings{PanelSize: 1, HistoryWindow: 1},
		Standings:  standings.DefaultConfig(),
	}
}

// ParseConfig decodes and validates a yaml configuration document, applying
// defaults for omitted sections.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	for i, r := range cfg.Rounds {
		if r.Stage == "" {
			cfg.Rounds[i].Stage = domain.StagePreliminary
		}
	}
	return cfg, nil
}

// LoadConfig reads and parses a yaml configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Format returns the domain format declared by the configuration.
func (c *Config) Format() domain.Format {
	return domain.Format{
		Sides:           c.Tournament.Sides,
		SpeakersPerSide: c.Tournament.SpeakersPerSide,
		PermitDraws:     c.Tournament.PermitDraws,
	}
}

// NewTournament materializes the configured tournament and its rounds with
// fresh identifiers, ready to be seeded into a store.
func (c *Config) NewTournament() (*domain.Tournament, []domain.Round) {
	t := &domain.Tournament{
		ID:     domain.TournamentID(uuid.NewString()),
		Name:   c.Tournament.Name,
		Format: c.Format(),
	}
	rounds := make([]domain.Round, 0, len(c.Rounds))
	for _, rs := range c.Rounds {
		rounds = append(rounds, domain.Round{
			ID:           domain.RoundID(uuid.NewString()),
			TournamentID: t.ID,
			Seq:          rs.Seq,
			Name:         rs.Name,
			Stage:        rs.Stage,
			Policy:       rs.Policy,
			Seed:         rs.Seed,
			DrawStatus:   domain.DrawNone,
		})
	}
	return t, rounds
}

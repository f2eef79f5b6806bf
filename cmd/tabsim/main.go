// Command tabsim runs a complete simulated tournament through the draw and
// allocation engine: it seeds a roster, generates and releases every round's
// draw, allocates panels and venues, confirms randomized ballots and prints
// the final standings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"sort"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/andreesc15/tabbycat/infrastructure/audit"
	"github.com/andreesc15/tabbycat/infrastructure/middleware"
	"github.com/andreesc15/tabbycat/infrastructure/notify"
	"github.com/andreesc15/tabbycat/infrastructure/storage/memstore"
	"github.com/andreesc15/tabbycat/internal/application"
	"github.com/andreesc15/tabbycat/internal/domain"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to a yaml tournament configuration (optional)")
		teams        = flag.Int("teams", 16, "Number of teams to seed")
		adjudicators = flag.Int("adjudicators", 12, "Number of adjudicators to seed")
		venues       = flag.Int("venues", 10, "Number of venues to seed")
		seed         = flag.Int64("seed", 42, "Random seed for roster generation and ballots")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store := memstore.New()
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	defer bus.Close()

	ctx := context.Background()
	go logAudit(ctx, bus, logger)

	engine, err := application.NewEngine(cfg, application.Dependencies{
		Store:        store,
		Availability: store,
		Audit:        audit.NewPublisher(bus, ""),
		Notifier:     notify.NewPublisher(bus, ""),
		Metrics:      middleware.NewPrometheusMetrics(),
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	tournament, rounds := cfg.NewTournament()
	rng := rand.New(rand.NewSource(*seed))
	seedRoster(store, tournament, rounds, *teams, *adjudicators, *venues, rng)

	for _, round := range rounds {
		if err := runRound(ctx, engine, store, cfg, round, rng); err != nil {
			log.Fatalf("Round %s failed: %v", round.Name, err)
		}
		logger.Info("round complete", "round", round.Name, "seq", round.Seq)
	}

	rows, err := engine.Standings(ctx, tournament.ID, -1)
	if err != nil {
		log.Fatalf("Failed to compute standings: %v", err)
	}
	printStandings(rows)
}

func loadConfig(path string) (*application.Config, error) {
	if path != "" {
		return application.LoadConfig(path)
	}
	cfg := application.DefaultConfig()
	cfg.Tournament.Name = "Simulated Open"
	cfg.Rounds = []application.RoundSettings{
		{Seq: 1, Name: "Round 1", Stage: domain.StagePreliminary, Policy: "random", Seed: 101},
		{Seq: 2, Name: "Round 2", Stage: domain.StagePreliminary, Policy: "power_paired", Seed: 102},
		{Seq: 3, Name: "Round 3", Stage: domain.StagePreliminary, Policy: "power_paired", Seed: 103},
	}
	return cfg, nil
}

func seedRoster(
	store *memstore.Store,
	tournament *domain.Tournament,
	rounds []domain.Round,
	teamCount, adjCount, venueCount int,
	rng *rand.Rand,
) {
	store.PutTournament(*tournament)
	for _, round := range rounds {
		store.PutRound(round)
	}

	institutions := []domain.InstitutionID{"alpha", "beta", "gamma", "delta", "epsilon"}

	teams := make([]domain.Team, 0, teamCount)
	for i := 0; i < teamCount; i++ {
		team := domain.Team{
			ID:          domain.TeamID(fmt.Sprintf("team-%02d", i+1)),
			Name:        fmt.Sprintf("Team %02d", i+1),
			Institution: institutions[i%len(institutions)],
		}
		for p := 0; p < tournament.Format.SpeakersPerSide; p++ {
			team.Speakers = append(team.Speakers, domain.Speaker{
				ID:   domain.SpeakerID(fmt.Sprintf("%s-sp%d", team.ID, p+1)),
				Name: fmt.Sprintf("%s Speaker %d", team.Name, p+1),
			})
		}
		teams = append(teams, team)
	}
	store.PutTeams(tournament.ID, teams)

	adjudicators := make([]domain.Adjudicator, 0, adjCount)
	for i := 0; i < adjCount; i++ {
		rank := domain.RankIndependent
		if i%5 == 4 {
			rank = domain.RankTrainee
		} else if i%3 == 0 {
			rank = domain.RankCore
		}
		adjudicators = append(adjudicators, domain.Adjudicator{
			ID:          domain.AdjudicatorID(fmt.Sprintf("adj-%02d", i+1)),
			Name:        fmt.Sprintf("Adjudicator %02d", i+1),
			Institution: institutions[rng.Intn(len(institutions))],
			Rank:        rank,
			BaseScore:   50 + rng.Float64()*50,
		})
	}
	store.PutAdjudicators(tournament.ID, adjudicators)

	venues := make([]domain.Venue, 0, venueCount)
	for i := 0; i < venueCount; i++ {
		venues = append(venues, domain.Venue{
			ID:       domain.VenueID(fmt.Sprintf("venue-%02d", i+1)),
			Name:     fmt.Sprintf("Room %02d", i+1),
			Priority: venueCount - i,
		})
	}
	store.PutVenues(tournament.ID, venues)
}

func runRound(
	ctx context.Context,
	engine *application.Engine,
	store *memstore.Store,
	cfg *application.Config,
	round domain.Round,
	rng *rand.Rand,
) error {
	const actor = "tabsim"

	summary, err := engine.GenerateDraw(ctx, round.ID, actor)
	if err != nil {
		return fmt.Errorf("generate draw: %w", err)
	}
	if _, err := engine.ConfirmDraw(ctx, round.ID, actor); err != nil {
		return fmt.Errorf("confirm draw: %w", err)
	}
	if _, err := engine.AllocateAdjudicators(ctx, round.ID, actor); err != nil &&
		!errors.Is(err, domain.ErrPartialAllocation) {
		return fmt.Errorf("allocate adjudicators: %w", err)
	}
	if _, err := engine.AllocateVenues(ctx, round.ID, actor); err != nil {
		return fmt.Errorf("allocate venues: %w", err)
	}
	if _, err := engine.ReleaseDraw(ctx, round.ID, actor); err != nil {
		return fmt.Errorf("release draw: %w", err)
	}

	format := cfg.Format()
	for _, debate := range summary.Debates {
		ballots := domain.BallotSet{Consensus: randomScoresheet(&debate, format, store, rng)}
		if err := engine.SubmitBallot(ctx, debate.ID, actor); err != nil {
			return fmt.Errorf("submit ballot: %w", err)
		}
		if _, err := engine.ConfirmBallot(ctx, debate.ID, ballots, actor); err != nil {
			return fmt.Errorf("confirm ballot for %s: %w", debate.ID, err)
		}
	}
	return nil
}

// randomScoresheet fabricates a plausible consensus scoresheet: speaker
// scores in the conventional 70-80 band, with the outcome derived from the
// side totals.
func randomScoresheet(debate *domain.Debate, format domain.Format, store *memstore.Store, rng *rand.Rand) *domain.Scoresheet {
	sheet := &domain.Scoresheet{
		ID:       fmt.Sprintf("sheet-%s", uuid.NewString()),
		DebateID: debate.ID,
	}
	teams, _ := store.Teams(context.Background(), debateTournament(store, debate))

	totals := make([]float64, format.SidesPerDebate())
	for side := 0; side < format.SidesPerDebate(); side++ {
		teamID, _ := debate.TeamOnSide(side)
		entry := domain.SideSheet{Side: side}
		for pos := 0; pos < format.SpeakersPerSide; pos++ {
			score := 70 + rng.Float64()*10
			entry.Scores = append(entry.Scores, domain.SpeakerScore{
				Position:  pos,
				SpeakerID: speakerAt(teams, teamID, pos),
				Score:     score,
			})
			totals[side] += score
		}
		sheet.Sides = append(sheet.Sides, entry)
	}

	if format.Ranked() {
		order := make([]int, len(totals))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(i, j int) bool { return totals[order[i]] > totals[order[j]] })
		for rank, side := range order {
			sheet.Sides[side].Rank = rank + 1
		}
	} else {
		winner := 0
		if totals[1] > totals[0] {
			winner = 1
		}
		sheet.Sides[winner].Win = true
	}
	return sheet
}

func debateTournament(store *memstore.Store, debate *domain.Debate) domain.TournamentID {
	round, err := store.Round(context.Background(), debate.RoundID)
	if err != nil {
		return ""
	}
	return round.TournamentID
}

func speakerAt(teams []domain.Team, id domain.TeamID, pos int) domain.SpeakerID {
	for _, team := range teams {
		if team.ID == id && pos < len(team.Speakers) {
			return team.Speakers[pos].ID
		}
	}
	return ""
}

func logAudit(ctx context.Context, bus *gochannel.GoChannel, logger *slog.Logger) {
	messages, err := bus.Subscribe(ctx, audit.DefaultTopic)
	if err != nil {
		logger.Error("audit subscription failed", "error", err)
		return
	}
	for msg := range messages {
		logger.Info("audit",
			"transition", msg.Metadata.Get("transition"),
			"actor", msg.Metadata.Get("actor"),
			"id", msg.UUID,
		)
		msg.Ack()
	}
}

func printStandings(rows []domain.StandingsRow) {
	fmt.Printf("Final standings:\n")
	for _, row := range rows {
		fmt.Printf("%3d. %-10s %5.1f pts", row.Rank, row.TeamID, row.Points)
		for _, metric := range row.Metrics {
			fmt.Printf("  %s=%.1f", metric.Name, metric.Value)
		}
		fmt.Println()
	}
}

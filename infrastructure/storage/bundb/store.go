package bundb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// defaultLockWait bounds advisory lock acquisition.
const defaultLockWait = 5 * time.Second

// lockPollInterval is the retry cadence for pg_try_advisory_lock.
const lockPollInterval = 50 * time.Millisecond

// Store is the PostgreSQL ports.Store. Round and debate possession is
// implemented with session-scoped advisory locks, so possession holds across
// engine processes sharing the database.
type Store struct {
	db       *bun.DB
	lockWait time.Duration
}

// New opens a PostgreSQL-backed store from a DSN.
func New(dsn string) *Store {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return NewFromDB(bun.NewDB(sqldb, pgdialect.New()))
}

// NewFromDB wraps an existing bun database handle.
func NewFromDB(db *bun.DB) *Store {
	return &Store{db: db, lockWait: defaultLockWait}
}

// DB exposes the underlying handle for migrations and instrumentation.
func (s *Store) DB() *bun.DB { return s.db }

// SetLockWait overrides the bounded advisory-lock wait.
func (s *Store) SetLockWait(d time.Duration) { s.lockWait = d }

// CreateTables creates the schema if it does not exist.
func (s *Store) CreateTables(ctx context.Context) error {
	models := []any{
		(*tournamentRow)(nil),
		(*teamRow)(nil),
		(*adjudicatorRow)(nil),
		(*venueRow)(nil),
		(*conflictRow)(nil),
		(*roundRow)(nil),
		(*debateRow)(nil),
		(*resultRow)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// TournamentStore

func (s *Store) Tournament(ctx context.Context, id domain.TournamentID) (*domain.Tournament, error) {
	row := new(tournamentRow)
	err := s.db.NewSelect().Model(row).Where("t.id = ?", string(id)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select tournament: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) Teams(ctx context.Context, id domain.TournamentID) ([]domain.Team, error) {
	var rows []teamRow
	err := s.db.NewSelect().Model(&rows).
		Where("tm.tournament_id = ?", string(id)).
		Order("tm.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select teams: %w", err)
	}
	teams := make([]domain.Team, 0, len(rows))
	for i := range rows {
		teams = append(teams, rows[i].toDomain())
	}
	return teams, nil
}

func (s *Store) Adjudicators(ctx context.Context, id domain.TournamentID) ([]domain.Adjudicator, error) {
	var rows []adjudicatorRow
	err := s.db.NewSelect().Model(&rows).
		Where("a.tournament_id = ?", string(id)).
		Order("a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select adjudicators: %w", err)
	}
	adjudicators := make([]domain.Adjudicator, 0, len(rows))
	for i := range rows {
		adjudicators = append(adjudicators, rows[i].toDomain())
	}
	return adjudicators, nil
}

func (s *Store) Venues(ctx context.Context, id domain.TournamentID) ([]domain.Venue, error) {
	var rows []venueRow
	err := s.db.NewSelect().Model(&rows).
		Where("v.tournament_id = ?", string(id)).
		Order("v.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select venues: %w", err)
	}
	venues := make([]domain.Venue, 0, len(rows))
	for i := range rows {
		venues = append(venues, rows[i].toDomain())
	}
	return venues, nil
}

func (s *Store) Conflicts(ctx context.Context, id domain.TournamentID) ([]domain.Conflict, error) {
	var rows []conflictRow
	err := s.db.NewSelect().Model(&rows).
		Where("c.tournament_id = ?", string(id)).
		Order("c.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select conflicts: %w", err)
	}
	conflicts := make([]domain.Conflict, 0, len(rows))
	for i := range rows {
		conflicts = append(conflicts, rows[i].toDomain())
	}
	return conflicts, nil
}

// RoundStore

func (s *Store) Round(ctx context.Context, id domain.RoundID) (*domain.Round, error) {
	row := new(roundRow)
	err := s.db.NewSelect().Model(row).Where("r.id = ?", string(id)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select round: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) RoundsThrough(ctx context.Context, id domain.TournamentID, throughSeq int) ([]domain.Round, error) {
	var rows []roundRow
	q := s.db.NewSelect().Model(&rows).
		Where("r.tournament_id = ?", string(id)).
		Order("r.seq ASC")
	if throughSeq >= 0 {
		q = q.Where("r.seq <= ?", throughSeq)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select rounds: %w", err)
	}
	rounds := make([]domain.Round, 0, len(rows))
	for i := range rows {
		rounds = append(rounds, *rows[i].toDomain())
	}
	return rounds, nil
}

func (s *Store) UpdateRound(ctx context.Context, round *domain.Round) error {
	row := roundToRow(round)
	row.Version = round.Version + 1
	res, err := s.db.NewUpdate().Model(row).
		WherePK().
		Where("r.version = ?", round.Version).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update round: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update round: %w", err)
	}
	if affected == 0 {
		return &domain.ConcurrentModificationError{RoundID: round.ID, Operation: "update round"}
	}
	round.Version = row.Version
	return nil
}

// InsertRound registers a new round.
func (s *Store) InsertRound(ctx context.Context, round *domain.Round) error {
	if _, err := s.db.NewInsert().Model(roundToRow(round)).Exec(ctx); err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

// DebateStore

func (s *Store) Debate(ctx context.Context, id domain.DebateID) (*domain.Debate, error) {
	row := new(debateRow)
	err := s.db.NewSelect().Model(row).Where("d.id = ?", string(id)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select debate: %w", err)
	}
	debate := row.toDomain()
	return &debate, nil
}

func (s *Store) DebatesForRound(ctx context.Context, id domain.RoundID) ([]domain.Debate, error) {
	var rows []debateRow
	err := s.db.NewSelect().Model(&rows).
		Where("d.round_id = ?", string(id)).
		Order("d.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select debates: %w", err)
	}
	debates := make([]domain.Debate, 0, len(rows))
	for i := range rows {
		debates = append(debates, rows[i].toDomain())
	}
	return debates, nil
}

func (s *Store) DebatesBySeq(ctx context.Context, id domain.TournamentID, throughSeq int) (map[int][]domain.Debate, error) {
	rounds, err := s.RoundsThrough(ctx, id, throughSeq)
	if err != nil {
		return nil, err
	}
	bySeq := make(map[int][]domain.Debate, len(rounds))
	for _, round := range rounds {
		debates, err := s.DebatesForRound(ctx, round.ID)
		if err != nil {
			return nil, err
		}
		if len(debates) > 0 {
			bySeq[round.Seq] = debates
		}
	}
	return bySeq, nil
}

func (s *Store) ReplaceDebates(ctx context.Context, id domain.RoundID, debates []domain.Debate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NewDelete().Model((*debateRow)(nil)).Where("round_id = ?", string(id)).Exec(ctx); err != nil {
		return fmt.Errorf("delete debates: %w", err)
	}
	for i := range debates {
		if _, err := tx.NewInsert().Model(debateToRow(&debates[i])).Exec(ctx); err != nil {
			return fmt.Errorf("insert debate %s: %w", debates[i].ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) UpdateDebate(ctx context.Context, debate *domain.Debate) error {
	res, err := s.db.NewUpdate().Model(debateToRow(debate)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update debate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update debate: %w", err)
	}
	if affected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteDebates(ctx context.Context, id domain.RoundID) error {
	if _, err := s.db.NewDelete().Model((*debateRow)(nil)).Where("round_id = ?", string(id)).Exec(ctx); err != nil {
		return fmt.Errorf("delete debates: %w", err)
	}
	return nil
}

// ResultStore

func (s *Store) Result(ctx context.Context, id domain.DebateID) (*domain.DebateResult, error) {
	row := new(resultRow)
	err := s.db.NewSelect().Model(row).Where("res.debate_id = ?", string(id)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select result: %w", err)
	}
	return row.Payload, nil
}

func (s *Store) ResultsForRound(ctx context.Context, id domain.RoundID) ([]domain.DebateResult, error) {
	var rows []resultRow
	err := s.db.NewSelect().Model(&rows).
		Where("res.round_id = ?", string(id)).
		Order("res.debate_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	results := make([]domain.DebateResult, 0, len(rows))
	for i := range rows {
		results = append(results, *rows[i].Payload)
	}
	return results, nil
}

func (s *Store) PutResult(ctx context.Context, result *domain.DebateResult) error {
	row := &resultRow{
		DebateID:    string(result.DebateID),
		RoundID:     string(result.RoundID),
		Payload:     result,
		ConfirmedAt: result.ConfirmedAt,
	}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (debate_id) DO UPDATE").
		Set("round_id = EXCLUDED.round_id").
		Set("payload = EXCLUDED.payload").
		Set("confirmed_at = EXCLUDED.confirmed_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

func (s *Store) DeleteResultsForRound(ctx context.Context, id domain.RoundID) error {
	if _, err := s.db.NewDelete().Model((*resultRow)(nil)).Where("round_id = ?", string(id)).Exec(ctx); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	return nil
}

// Locker. Advisory lock keys are derived from the record kind and identifier
// so round and debate locks never collide.

func (s *Store) AcquireRound(ctx context.Context, id domain.RoundID) (func(), error) {
	release, err := s.acquireAdvisory(ctx, lockKey("round", string(id)))
	if err != nil {
		return nil, &domain.ConcurrentModificationError{RoundID: id, Operation: "acquire round lock"}
	}
	return release, nil
}

func (s *Store) AcquireDebate(ctx context.Context, id domain.DebateID) (func(), error) {
	release, err := s.acquireAdvisory(ctx, lockKey("debate", string(id)))
	if err != nil {
		return nil, &domain.ConcurrentModificationError{DebateID: id, Operation: "acquire debate lock"}
	}
	return release, nil
}

func lockKey(kind, id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(id))
	return int64(h.Sum64())
}

// acquireAdvisory polls pg_try_advisory_lock on a dedicated connection until
// it succeeds or the bounded wait expires. Advisory locks are session
// scoped, so the connection is pinned until release.
func (s *Store) acquireAdvisory(ctx context.Context, key int64) (func(), error) {
	if s.lockWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockWait)
		defer cancel()
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("open lock connection: %w", err)
	}

	for {
		var locked bool
		if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock(?)", key).Scan(&locked); err != nil {
			conn.Close()
			return nil, fmt.Errorf("try advisory lock: %w", err)
		}
		if locked {
			return func() {
				// Unlock on a fresh context: the operation's context may
				// already be done.
				unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_, _ = conn.ExecContext(unlockCtx, "SELECT pg_advisory_unlock(?)", key)
				conn.Close()
			}, nil
		}
		select {
		case <-ctx.Done():
			conn.Close()
			return nil, ports.ErrLockTimeout
		case <-time.After(lockPollInterval):
		}
	}
}

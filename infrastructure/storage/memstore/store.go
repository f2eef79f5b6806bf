// Package memstore provides an in-memory implementation of the engine's
// persistence and locking contracts, used in tests and single-process
// deployments.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/andreesc15/tabbycat/internal/domain"
	"github.com/andreesc15/tabbycat/internal/ports"
)

var (
	_ ports.Store        = (*Store)(nil)
	_ ports.Availability = (*Store)(nil)
)

// defaultLockWait bounds lock acquisition when the caller's context carries
// no deadline of its own.
const defaultLockWait = 5 * time.Second

// Store is an in-memory ports.Store. All methods are safe for concurrent
// use. Round and debate locks are independent weighted semaphores, so
// operations on different rounds (or different debates) proceed in parallel
// while operations on the same record serialize with a bounded wait.
type Store struct {
	mu sync.RWMutex

	tournaments  map[domain.TournamentID]domain.Tournament
	teams        map[domain.TournamentID][]domain.Team
	adjudicators map[domain.TournamentID][]domain.Adjudicator
	venues       map[domain.TournamentID][]domain.Venue
	conflicts    map[domain.TournamentID][]domain.Conflict

	rounds  map[domain.RoundID]domain.Round
	debates map[domain.DebateID]domain.Debate
	results map[domain.DebateID]domain.DebateResult

	lockMu      sync.Mutex
	roundLocks  map[domain.RoundID]*semaphore.Weighted
	debateLocks map[domain.DebateID]*semaphore.Weighted
	lockWait    time.Duration
}

// New creates an empty Store with the default bounded lock wait.
func New() *Store {
	return &Store{
		tournaments:  make(map[domain.TournamentID]domain.Tournament),
		teams:        make(map[domain.TournamentID][]domain.Team),
		adjudicators: make(map[domain.TournamentID][]domain.Adjudicator),
		venues:       make(map[domain.TournamentID][]domain.Venue),
		conflicts:    make(map[domain.TournamentID][]domain.Conflict),
		rounds:       make(map[domain.RoundID]domain.Round),
		debates:      make(map[domain.DebateID]domain.Debate),
		results:      make(map[domain.DebateID]domain.DebateResult),
		roundLocks:   make(map[domain.RoundID]*semaphore.Weighted),
		debateLocks:  make(map[domain.DebateID]*semaphore.Weighted),
		lockWait:     defaultLockWait,
	}
}

// SetLockWait overrides the bounded lock wait; zero disables the bound and
// defers entirely to the caller's context.
func (s *Store) SetLockWait(d time.Duration) { s.lockWait = d }

// Seeding

// PutTournament registers or replaces a tournament.
func (s *Store) PutTournament(t domain.Tournament) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments[t.ID] = t
}

// PutTeams replaces the tournament's team roster.
func (s *Store) PutTeams(id domain.TournamentID, teams []domain.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[id] = append([]domain.Team(nil), teams...)
}

// PutAdjudicators replaces the tournament's adjudicator pool.
func (s *Store) PutAdjudicators(id domain.TournamentID, adjudicators []domain.Adjudicator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adjudicators[id] = append([]domain.Adjudicator(nil), adjudicators...)
}

// PutVenues replaces the tournament's venue list.
func (s *Store) PutVenues(id domain.TournamentID, venues []domain.Venue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.venues[id] = append([]domain.Venue(nil), venues...)
}

// PutConflicts replaces the tournament's declared conflicts.
func (s *Store) PutConflicts(id domain.TournamentID, conflicts []domain.Conflict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts[id] = append([]domain.Conflict(nil), conflicts...)
}

// PutRound registers or replaces a round.
func (s *Store) PutRound(r domain.Round) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[r.ID] = r
}

// TournamentStore

func (s *Store) Tournament(_ context.Context, id domain.TournamentID) (*domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &t, nil
}

func (s *Store) Teams(_ context.Context, id domain.TournamentID) ([]domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Team(nil), s.teams[id]...), nil
}

func (s *Store) Adjudicators(_ context.Context, id domain.TournamentID) ([]domain.Adjudicator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Adjudicator(nil), s.adjudicators[id]...), nil
}

func (s *Store) Venues(_ context.Context, id domain.TournamentID) ([]domain.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Venue(nil), s.venues[id]...), nil
}

func (s *Store) Conflicts(_ context.Context, id domain.TournamentID) ([]domain.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Conflict(nil), s.conflicts[id]...), nil
}

// RoundStore

func (s *Store) Round(_ context.Context, id domain.RoundID) (*domain.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rounds[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &r, nil
}

func (s *Store) RoundsThrough(_ context.Context, id domain.TournamentID, throughSeq int) ([]domain.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rounds []domain.Round
	for _, r := range s.rounds {
		if r.TournamentID != id {
			continue
		}
		if throughSeq >= 0 && r.Seq > throughSeq {
			continue
		}
		rounds = append(rounds, r)
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Seq < rounds[j].Seq })
	return rounds, nil
}

func (s *Store) UpdateRound(_ context.Context, round *domain.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rounds[round.ID]
	if !ok {
		return ports.ErrNotFound
	}
	if stored.Version != round.Version {
		return &domain.ConcurrentModificationError{RoundID: round.ID, Operation: "update round"}
	}
	round.Version++
	s.rounds[round.ID] = *round
	return nil
}

// DebateStore

func (s *Store) Debate(_ context.Context, id domain.DebateID) (*domain.Debate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.debates[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &d, nil
}

func (s *Store) DebatesForRound(_ context.Context, id domain.RoundID) ([]domain.Debate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var debates []domain.Debate
	for _, d := range s.debates {
		if d.RoundID == id {
			debates = append(debates, d)
		}
	}
	sort.Slice(debates, func(i, j int) bool { return debates[i].ID < debates[j].ID })
	return debates, nil
}

func (s *Store) DebatesBySeq(_ context.Context, id domain.TournamentID, throughSeq int) (map[int][]domain.Debate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seqByRound := make(map[domain.RoundID]int)
	for _, r := range s.rounds {
		if r.TournamentID == id && (throughSeq < 0 || r.Seq <= throughSeq) {
			seqByRound[r.ID] = r.Seq
		}
	}
	bySeq := make(map[int][]domain.Debate)
	for _, d := range s.debates {
		if seq, ok := seqByRound[d.RoundID]; ok {
			bySeq[seq] = append(bySeq[seq], d)
		}
	}
	return bySeq, nil
}

func (s *Store) ReplaceDebates(_ context.Context, id domain.RoundID, debates []domain.Debate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for debateID, d := range s.debates {
		if d.RoundID == id {
			delete(s.debates, debateID)
		}
	}
	for _, d := range debates {
		s.debates[d.ID] = d
	}
	return nil
}

func (s *Store) UpdateDebate(_ context.Context, debate *domain.Debate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.debates[debate.ID]; !ok {
		return ports.ErrNotFound
	}
	s.debates[debate.ID] = *debate
	return nil
}

func (s *Store) DeleteDebates(_ context.Context, id domain.RoundID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for debateID, d := range s.debates {
		if d.RoundID == id {
			delete(s.debates, debateID)
		}
	}
	return nil
}

// ResultStore

func (s *Store) Result(_ context.Context, id domain.DebateID) (*domain.DebateResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &r, nil
}

func (s *Store) ResultsForRound(_ context.Context, id domain.RoundID) ([]domain.DebateResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []domain.DebateResult
	for _, r := range s.results {
		if r.RoundID == id {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].DebateID < results[j].DebateID })
	return results, nil
}

func (s *Store) PutResult(_ context.Context, result *domain.DebateResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.DebateID] = *result
	return nil
}

func (s *Store) DeleteResultsForRound(_ context.Context, id domain.RoundID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for debateID, r := range s.results {
		if r.RoundID == id {
			delete(s.results, debateID)
		}
	}
	return nil
}

// Locker

func (s *Store) AcquireRound(ctx context.Context, id domain.RoundID) (func(), error) {
	s.lockMu.Lock()
	sem, ok := s.roundLocks[id]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.roundLocks[id] = sem
	}
	s.lockMu.Unlock()

	if err := s.acquire(ctx, sem); err != nil {
		return nil, &domain.ConcurrentModificationError{RoundID: id, Operation: "acquire round lock"}
	}
	return func() { sem.Release(1) }, nil
}

func (s *Store) AcquireDebate(ctx context.Context, id domain.DebateID) (func(), error) {
	s.lockMu.Lock()
	sem, ok := s.debateLocks[id]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.debateLocks[id] = sem
	}
	s.lockMu.Unlock()

	if err := s.acquire(ctx, sem); err != nil {
		return nil, &domain.ConcurrentModificationError{DebateID: id, Operation: "acquire debate lock"}
	}
	return func() { sem.Release(1) }, nil
}

// acquire waits for the semaphore within the bounded lock wait.
func (s *Store) acquire(ctx context.Context, sem *semaphore.Weighted) error {
	if s.lockWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockWait)
		defer cancel()
	}
	return sem.Acquire(ctx, 1)
}

// Availability: with no external check-in collaborator wired, every
// registered entity is eligible for every round. Elimination brackets are
// supplied by re-seeding the team roster in bracket order.

func (s *Store) EligibleTeams(ctx context.Context, id domain.RoundID) ([]domain.Team, error) {
	t, err := s.tournamentForRound(id)
	if err != nil {
		return nil, err
	}
	return s.Teams(ctx, t)
}

func (s *Store) EligibleAdjudicators(ctx context.Context, id domain.RoundID) ([]domain.Adjudicator, error) {
	t, err := s.tournamentForRound(id)
	if err != nil {
		return nil, err
	}
	return s.Adjudicators(ctx, t)
}

func (s *Store) EligibleVenues(ctx context.Context, id domain.RoundID) ([]domain.Venue, error) {
	t, err := s.tournamentForRound(id)
	if err != nil {
		return nil, err
	}
	return s.Venues(ctx, t)
}

func (s *Store) tournamentForRound(id domain.RoundID) (domain.TournamentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rounds[id]
	if !ok {
		return "", ports.ErrNotFound
	}
	return r.TournamentID, nil
}

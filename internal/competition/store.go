// Package competition owns the in-memory competition state. Every mutation
// goes through a named action on Store, which persists the result and
// notifies subscribers.
package competition

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"agility-scorer/internal/constants"
	"agility-scorer/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

// Change describes one committed action. Shared is set when competitors,
// course times or rounds were touched.
type Change struct {
	Action string
	Shared bool
	Origin Origin
}

type Listener func(Change)

type Persister interface {
	// Load returns nil, nil when nothing has been stored yet.
	Load(ctx context.Context) (*domain.PersistedState, error)
	Save(ctx context.Context, state domain.PersistedState) error
	Clear(ctx context.Context) error
}

type Option func(*Store)

func WithRand(src interface{ IntN(int) int }) Option {
	return func(s *Store) { s.rng = src }
}

func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) { s.newID = gen }
}

type Store struct {
	commitMu sync.Mutex
	mu       sync.RWMutex
	state    domain.State

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextLID    int

	persister Persister
	rng       interface{ IntN(int) int }
	newID     func() (string, error)
	logger    zerolog.Logger
}

// New builds a store and restores the persisted subset when a persister is given.
func New(persister Persister, logger zerolog.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		state:     domain.State{CourseTimes: map[string]domain.CourseTime{}},
		listeners: make(map[int]Listener),
		persister: persister,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		newID:     func() (string, error) { return gonanoid.Generate(constants.IDAlphabet, constants.IDLength) },
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if persister != nil {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
		defer cancel()
		if err := s.load(ctx); err != nil {
			return nil, err
		}
		s.Subscribe(s.persist)
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	ps, err := s.persister.Load(ctx)
	if errors.Is(err, domain.ErrIncompatibleState) {
		s.logger.Warn().Err(err).Msg("discarding persisted competition state")
		if err := s.persister.Clear(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to clear persisted state")
			return err
		}
		return nil
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load persisted state")
		return err
	}
	if ps == nil {
		s.logger.Debug().Msg("no persisted state, starting empty")
		return nil
	}

	st := fromPersisted(*ps)
	st.CurrentRoundID = reconcileCurrentRound(st)
	s.state = st

	s.logger.Info().
		Int("rounds", len(st.Rounds)).
		Int("competitors", len(st.Competitors)).
		Str("current_round", st.CurrentRoundID).
		Msg("competition state restored")
	return nil
}

func (s *Store) persist(Change) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()
	if err := s.persister.Save(ctx, s.Persisted()); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist competition state")
	}
}

// Subscribe registers l for every committed change. Listeners run in commit
// order and must not call mutating actions.
func (s *Store) Subscribe(l Listener) func() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	id := s.nextLID
	s.nextLID++
	s.listeners[id] = l
	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(c Change) {
	s.listenerMu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	// registration order
	for id := 0; id < s.nextLID; id++ {
		if l, ok := s.listeners[id]; ok {
			ls = append(ls, l)
		}
	}
	s.listenerMu.Unlock()

	for _, l := range ls {
		l(c)
	}
}

// commit applies fn to a copy of the state; on error nothing changes.
func (s *Store) commit(action string, shared bool, origin Origin, fn func(st *domain.State) error) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	next := s.state.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		s.logger.Warn().Err(err).Str("action", action).Msg("action rejected")
		return err
	}
	s.state = next
	s.mu.Unlock()

	s.logger.Debug().Str("action", action).Bool("shared", shared).Msg("action committed")
	s.notify(Change{Action: action, Shared: shared, Origin: origin})
	return nil
}

func fromPersisted(ps domain.PersistedState) domain.State {
	st := domain.State{
		Rounds:      append([]domain.Round(nil), ps.Rounds...),
		CourseTimes: make(map[string]domain.CourseTime, len(ps.CourseTimes)),
		Competitors: domain.CloneCompetitors(ps.Competitors),
		LiveRoundID: ps.LiveRoundID,
	}
	for k, v := range ps.CourseTimes {
		st.CourseTimes[k] = v
	}
	sortRounds(st.Rounds)
	if _, ok := st.Round(st.LiveRoundID); !ok {
		st.LiveRoundID = ""
	}
	return st
}

// reconcileCurrentRound prefers the live round while it still has runs to
// go, then the first round that has any competitor.
func reconcileCurrentRound(st domain.State) string {
	if st.LiveRoundID != "" {
		for _, c := range st.Competitors {
			if c.RoundID == st.LiveRoundID && c.Pending() {
				return st.LiveRoundID
			}
		}
	}
	for _, r := range st.Rounds {
		for _, c := range st.Competitors {
			if c.RoundID == r.ID {
				return r.ID
			}
		}
	}
	return ""
}

package competition

import (
	"agility-scorer/internal/domain"
	"agility-scorer/internal/ranking"
	"agility-scorer/internal/runorder"
)

func (s *Store) Snapshot() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Store) Shared() domain.SharedState {
	st := s.Snapshot()
	return domain.SharedState{
		Competitors: st.Competitors,
		CourseTimes: st.CourseTimes,
		Rounds:      st.Rounds,
	}
}

// Persisted is the durable subset; UI selection is never stored.
func (s *Store) Persisted() domain.PersistedState {
	st := s.Snapshot()
	return domain.PersistedState{
		Version:     domain.PersistedStateVersion,
		Rounds:      st.Rounds,
		CourseTimes: st.CourseTimes,
		Competitors: st.Competitors,
		LiveRoundID: st.LiveRoundID,
	}
}

func (s *Store) Rounds() []domain.Round {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Round(nil), s.state.Rounds...)
}

func (s *Store) Round(id string) (domain.Round, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Round(id)
}

// RoundByName resolves a display name, ignoring case.
func (s *Store) RoundByName(name string) (domain.Round, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return roundByName(&s.state, name)
}

func (s *Store) Competitor(id string) (domain.Competitor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := competitorIndex(&s.state, id); i >= 0 {
		return s.state.Competitors[i].Clone(), true
	}
	return domain.Competitor{}, false
}

func (s *Store) CurrentRoundID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentRoundID
}

// Ranking is derived on every read and never stored.
func (s *Store) Ranking(roundID string, size domain.SizeClass) []domain.RankedCompetitor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ranking.Rank(runorder.Members(s.state.Competitors, roundID, size))
}

func (s *Store) RunningOrder(roundID string, size domain.SizeClass) []domain.Competitor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneCompetitors(runorder.Members(s.state.Competitors, roundID, size))
}

func (s *Store) NowRunning(roundID string) (*domain.Competitor, []domain.Competitor) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return runorder.NowRunning(s.state.Competitors, roundID)
}

// Queue lists the round's pending runs across all sizes.
func (s *Store) Queue(roundID string) []domain.Competitor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return runorder.Queue(s.state.Competitors, roundID)
}

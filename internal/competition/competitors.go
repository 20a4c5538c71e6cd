package competition

import (
	"fmt"
	"slices"
	"strings"

	"agility-scorer/internal/domain"
	"agility-scorer/internal/runorder"
	"agility-scorer/internal/scoring"
)

type NewCompetitor struct {
	RoundID string
	Size    domain.SizeClass
	DogID   string
	DogName string
	Breed   string
	Handler string
	Icon    string
}

type ScoreResult struct {
	Competitor domain.Competitor
	Outcome    scoring.Outcome
}

// AddCompetitor enters a dog at the end of its (round, size) group.
func (s *Store) AddCompetitor(in NewCompetitor) (domain.Competitor, error) {
	var added domain.Competitor
	err := s.commit("competitor.add", true, OriginLocal, func(st *domain.State) error {
		if roundIndex(st, in.RoundID) < 0 {
			return fmt.Errorf("%w: %s", domain.ErrRoundNotFound, in.RoundID)
		}
		if !in.Size.Valid() {
			return fmt.Errorf("%w: size %q", domain.ErrInvalidCompetitor, in.Size)
		}
		name := strings.TrimSpace(in.DogName)
		if name == "" {
			return fmt.Errorf("%w: dog name is empty", domain.ErrInvalidCompetitor)
		}
		id, err := s.newID()
		if err != nil {
			return fmt.Errorf("failed to generate competitor id: %w", err)
		}
		dogID := strings.TrimSpace(in.DogID)
		if dogID == "" {
			dogID = domain.DogIDFromName(name)
		}
		added = domain.Competitor{
			ID:       id,
			RoundID:  in.RoundID,
			Size:     in.Size,
			DogID:    dogID,
			DogName:  name,
			Breed:    strings.TrimSpace(in.Breed),
			Handler:  strings.TrimSpace(in.Handler),
			RunOrder: runorder.NextRunOrder(st.Competitors, in.RoundID, in.Size),
		}
		if icon := strings.TrimSpace(in.Icon); icon != "" {
			added.Icon = domain.Ptr(icon)
		}
		st.Competitors = append(st.Competitors, added)
		return nil
	})
	return added, err
}

// RemoveCompetitor deletes the entry and closes the gap in its group.
func (s *Store) RemoveCompetitor(id string) error {
	return s.commit("competitor.remove", true, OriginLocal, func(st *domain.State) error {
		i := competitorIndex(st, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrCompetitorNotFound, id)
		}
		gone := st.Competitors[i]
		st.Competitors = slices.Delete(st.Competitors, i, i+1)
		st.Competitors = runorder.Compact(st.Competitors, gone.RoundID, gone.Size)
		return nil
	})
}

func (s *Store) SaveScore(id string, in scoring.ScoreInput) (ScoreResult, error) {
	var res ScoreResult
	err := s.commit("competitor.score", true, OriginLocal, func(st *domain.State) error {
		if err := scoring.ValidateInput(in); err != nil {
			return err
		}
		i := competitorIndex(st, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrCompetitorNotFound, id)
		}
		c := st.Competitors[i]
		scored, outcome := scoring.ApplyScore(c, in, st.CourseTime(c.RoundID))
		st.Competitors[i] = scored
		res = ScoreResult{Competitor: scored.Clone(), Outcome: outcome}
		return nil
	})
	return res, err
}

func (s *Store) Eliminate(id string) (domain.Competitor, error) {
	var out domain.Competitor
	err := s.commit("competitor.eliminate", true, OriginLocal, func(st *domain.State) error {
		i := competitorIndex(st, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrCompetitorNotFound, id)
		}
		st.Competitors[i] = scoring.Eliminate(st.Competitors[i])
		out = st.Competitors[i].Clone()
		return nil
	})
	return out, err
}

// UpdateIcon sets the icon; an empty icon falls back to the default.
func (s *Store) UpdateIcon(id, icon string) error {
	icon = strings.TrimSpace(icon)
	return s.commit("competitor.icon", true, OriginLocal, func(st *domain.State) error {
		i := competitorIndex(st, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrCompetitorNotFound, id)
		}
		if icon == "" {
			st.Competitors[i].Icon = nil
			return nil
		}
		st.Competitors[i].Icon = domain.Ptr(icon)
		return nil
	})
}

// Reorder sets the complete running order of one group.
func (s *Store) Reorder(roundID string, size domain.SizeClass, orderedIDs []string) error {
	return s.commit("runorder.apply", true, OriginLocal, func(st *domain.State) error {
		out, err := runorder.Apply(st.Competitors, roundID, size, orderedIDs)
		if err != nil {
			return err
		}
		st.Competitors = out
		return nil
	})
}

// MoveBefore is the drag and drop reorder.
func (s *Store) MoveBefore(draggedID, targetID string) error {
	return s.commit("runorder.move", true, OriginLocal, func(st *domain.State) error {
		out, err := runorder.MoveBefore(st.Competitors, draggedID, targetID)
		if err != nil {
			return err
		}
		st.Competitors = out
		return nil
	})
}

func (s *Store) Randomize(roundID string, size domain.SizeClass) error {
	return s.commit("runorder.randomize", true, OriginLocal, func(st *domain.State) error {
		if roundIndex(st, roundID) < 0 {
			return fmt.Errorf("%w: %s", domain.ErrRoundNotFound, roundID)
		}
		st.Competitors = runorder.Randomize(st.Competitors, roundID, size, s.rng)
		return nil
	})
}

func competitorIndex(st *domain.State, id string) int {
	return slices.IndexFunc(st.Competitors, func(c domain.Competitor) bool { return c.ID == id })
}

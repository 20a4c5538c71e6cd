package competition

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"agility-scorer/internal/constants"
	"agility-scorer/internal/domain"
	"agility-scorer/internal/scoring"
)

func (s *Store) AddRound(name string, ct domain.CourseTime) (domain.Round, error) {
	name = strings.TrimSpace(name)
	var added domain.Round
	err := s.commit("round.add", true, OriginLocal, func(st *domain.State) error {
		if name == "" {
			return fmt.Errorf("%w: name is empty", domain.ErrInvalidRound)
		}
		if err := scoring.ValidateCourseTime(ct); err != nil {
			return err
		}
		if _, taken := roundByName(st, name); taken {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateRound, name)
		}
		id, err := s.newID()
		if err != nil {
			return fmt.Errorf("failed to generate round id: %w", err)
		}
		added = domain.Round{
			ID:           id,
			Name:         name,
			Abbreviation: defaultAbbreviation(name),
			Position:     len(st.Rounds),
		}
		st.Rounds = append(st.Rounds, added)
		st.CourseTimes[id] = ct
		return nil
	})
	return added, err
}

// RenameRound changes only the display name; everything else refers to the id.
func (s *Store) RenameRound(id, name string) error {
	name = strings.TrimSpace(name)
	return s.commit("round.rename", true, OriginLocal, func(st *domain.State) error {
		i := roundIndex(st, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrRoundNotFound, id)
		}
		if name == "" {
			return fmt.Errorf("%w: name is empty", domain.ErrInvalidRound)
		}
		if other, taken := roundByName(st, name); taken && other.ID != id {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateRound, name)
		}
		st.Rounds[i].Name = name
		return nil
	})
}

func (s *Store) DeleteRound(id string) error {
	return s.commit("round.delete", true, OriginLocal, func(st *domain.State) error {
		i := roundIndex(st, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrRoundNotFound, id)
		}
		for _, c := range st.Competitors {
			if c.RoundID == id {
				return fmt.Errorf("%w: %s", domain.ErrRoundInUse, st.Rounds[i].Name)
			}
		}
		st.Rounds = slices.Delete(st.Rounds, i, i+1)
		renumberRounds(st.Rounds)
		delete(st.CourseTimes, id)
		if st.CurrentRoundID == id {
			st.CurrentRoundID = ""
		}
		if st.LiveRoundID == id {
			st.LiveRoundID = ""
		}
		return nil
	})
}

// SetAbbreviation stores at most four runes; an empty value restores the default.
func (s *Store) SetAbbreviation(id, abbr string) error {
	abbr = strings.TrimSpace(abbr)
	return s.commit("round.abbreviation", true, OriginLocal, func(st *domain.State) error {
		i := roundIndex(st, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrRoundNotFound, id)
		}
		if abbr == "" {
			st.Rounds[i].Abbreviation = defaultAbbreviation(st.Rounds[i].Name)
			return nil
		}
		st.Rounds[i].Abbreviation = domain.TruncateRunes(abbr, constants.AbbreviationMaxRunes)
		return nil
	})
}

// MoveRound places the round at position, clamped to the valid range.
func (s *Store) MoveRound(id string, position int) error {
	return s.commit("round.move", true, OriginLocal, func(st *domain.State) error {
		i := roundIndex(st, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrRoundNotFound, id)
		}
		position = max(0, min(position, len(st.Rounds)-1))
		r := st.Rounds[i]
		st.Rounds = slices.Insert(slices.Delete(st.Rounds, i, i+1), position, r)
		renumberRounds(st.Rounds)
		return nil
	})
}

// UpdateCourseTime re-derives every timed competitor of the round.
func (s *Store) UpdateCourseTime(id string, ct domain.CourseTime) error {
	return s.commit("course_time.update", true, OriginLocal, func(st *domain.State) error {
		if roundIndex(st, id) < 0 {
			return fmt.Errorf("%w: %s", domain.ErrRoundNotFound, id)
		}
		if err := scoring.ValidateCourseTime(ct); err != nil {
			return err
		}
		st.CourseTimes[id] = ct
		st.Competitors = scoring.Recompute(st.Competitors, id, ct)
		return nil
	})
}

func (s *Store) SetCurrentRound(id string) error {
	return s.commit("round.current", false, OriginLocal, func(st *domain.State) error {
		if id != "" && roundIndex(st, id) < 0 {
			return fmt.Errorf("%w: %s", domain.ErrRoundNotFound, id)
		}
		st.CurrentRoundID = id
		return nil
	})
}

func (s *Store) SetLiveRound(id string) error {
	return s.commit("round.live", false, OriginLocal, func(st *domain.State) error {
		if id != "" && roundIndex(st, id) < 0 {
			return fmt.Errorf("%w: %s", domain.ErrRoundNotFound, id)
		}
		st.LiveRoundID = id
		return nil
	})
}

func roundIndex(st *domain.State, id string) int {
	return slices.IndexFunc(st.Rounds, func(r domain.Round) bool { return r.ID == id })
}

func roundByName(st *domain.State, name string) (domain.Round, bool) {
	for _, r := range st.Rounds {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return domain.Round{}, false
}

func defaultAbbreviation(name string) string {
	return domain.TruncateRunes(strings.ReplaceAll(name, " ", ""), constants.AbbreviationMaxRunes)
}

func renumberRounds(rs []domain.Round) {
	for i := range rs {
		rs[i].Position = i
	}
}

func sortRounds(rs []domain.Round) {
	slices.SortStableFunc(rs, func(a, b domain.Round) int {
		return cmp.Compare(a.Position, b.Position)
	})
	renumberRounds(rs)
}

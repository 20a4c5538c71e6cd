package competition

import (
	"fmt"
	"slices"
	"strings"

	"agility-scorer/internal/constants"
	"agility-scorer/internal/domain"
	"agility-scorer/internal/runorder"
	"agility-scorer/internal/scoring"
)

// Import replaces competitors and course times wholesale. Rounds are left
// alone; use ReconcileRounds for those. Either everything applies or nothing.
func (s *Store) Import(competitors []domain.Competitor, courseTimes map[string]domain.CourseTime) error {
	return s.commit("bulk.import", true, OriginLocal, func(st *domain.State) error {
		if err := validateImport(competitors, courseTimes); err != nil {
			return err
		}
		st.Competitors = runorder.CompactAll(competitors)
		st.CourseTimes = make(map[string]domain.CourseTime, len(courseTimes))
		for k, v := range courseTimes {
			st.CourseTimes[k] = v
		}
		return nil
	})
}

// ReconcileRounds adds rounds that are not known by id. A clashing name gets
// a numeric suffix.
func (s *Store) ReconcileRounds(rounds []domain.Round) error {
	incoming := append([]domain.Round(nil), rounds...)
	sortRounds(incoming)
	return s.commit("bulk.reconcile_rounds", true, OriginLocal, func(st *domain.State) error {
		for _, r := range incoming {
			if r.ID == "" || roundIndex(st, r.ID) >= 0 {
				continue
			}
			name := strings.TrimSpace(r.Name)
			if name == "" {
				name = r.ID
			}
			base := name
			for n := 2; ; n++ {
				if _, taken := roundByName(st, name); !taken {
					break
				}
				name = fmt.Sprintf("%s (%d)", base, n)
			}
			abbr := r.Abbreviation
			if abbr == "" {
				abbr = defaultAbbreviation(name)
			}
			st.Rounds = append(st.Rounds, domain.Round{
				ID:           r.ID,
				Name:         name,
				Abbreviation: domain.TruncateRunes(abbr, constants.AbbreviationMaxRunes),
				Position:     len(st.Rounds),
			})
			if _, ok := st.CourseTimes[r.ID]; !ok {
				st.CourseTimes[r.ID] = domain.CourseTime{}
			}
		}
		return nil
	})
}

// ReplaceShared overwrites the replicated part of the state with a remote copy.
func (s *Store) ReplaceShared(shared domain.SharedState) error {
	return s.commit("sync.apply", true, OriginRemote, func(st *domain.State) error {
		st.Rounds = append([]domain.Round(nil), shared.Rounds...)
		sortRounds(st.Rounds)
		st.Competitors = domain.CloneCompetitors(shared.Competitors)
		st.CourseTimes = make(map[string]domain.CourseTime, len(shared.CourseTimes))
		for k, v := range shared.CourseTimes {
			st.CourseTimes[k] = v
		}
		if roundIndex(st, st.CurrentRoundID) < 0 {
			st.CurrentRoundID = reconcileCurrentRound(*st)
		}
		if roundIndex(st, st.LiveRoundID) < 0 {
			st.LiveRoundID = ""
		}
		return nil
	})
}

func (s *Store) ClearAll() error {
	return s.commit("bulk.clear", true, OriginLocal, func(st *domain.State) error {
		*st = domain.State{CourseTimes: map[string]domain.CourseTime{}}
		return nil
	})
}

func validateImport(competitors []domain.Competitor, courseTimes map[string]domain.CourseTime) error {
	seen := make(map[string]bool, len(competitors))
	for i, c := range competitors {
		switch {
		case c.ID == "":
			return fmt.Errorf("%w: competitor %d has no id", domain.ErrInvalidImport, i)
		case seen[c.ID]:
			return fmt.Errorf("%w: duplicate competitor id %s", domain.ErrInvalidImport, c.ID)
		case c.RoundID == "":
			return fmt.Errorf("%w: competitor %s has no round", domain.ErrInvalidImport, c.ID)
		case !c.Size.Valid():
			return fmt.Errorf("%w: competitor %s has size %q", domain.ErrInvalidImport, c.ID, c.Size)
		}
		seen[c.ID] = true
		in := scoring.ScoreInput{CourseFaults: c.CourseFaults, Refusals: c.Refusals, Time: c.Time}
		if err := scoring.ValidateInput(in); err != nil {
			return fmt.Errorf("%w: competitor %s: %v", domain.ErrInvalidImport, c.ID, err)
		}
	}
	ids := make([]string, 0, len(courseTimes))
	for id := range courseTimes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if err := scoring.ValidateCourseTime(courseTimes[id]); err != nil {
			return fmt.Errorf("%w: round %s: %v", domain.ErrInvalidImport, id, err)
		}
	}
	return nil
}

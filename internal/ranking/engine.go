package ranking

import (
	"cmp"
	"slices"

	"agility-scorer/internal/domain"
)

// Rank orders one (round, size) group. Clear rounds come first by time,
// then faulted rounds by total fault and time; both receive consecutive ranks.
// Eliminated and then pending entries follow unranked in their input order.
// The caller is responsible for restricting the input to a single group.
func Rank(competitors []domain.Competitor) []domain.RankedCompetitor {
	var clear, faulted, eliminated, pending []domain.Competitor
	for _, c := range competitors {
		switch {
		case c.Eliminated:
			eliminated = append(eliminated, c)
		case c.TotalFault == nil:
			pending = append(pending, c)
		case *c.TotalFault == 0:
			clear = append(clear, c)
		default:
			faulted = append(faulted, c)
		}
	}

	slices.SortStableFunc(clear, func(a, b domain.Competitor) int {
		return cmp.Compare(timeOf(a), timeOf(b))
	})
	slices.SortStableFunc(faulted, func(a, b domain.Competitor) int {
		if c := cmp.Compare(*a.TotalFault, *b.TotalFault); c != 0 {
			return c
		}
		return cmp.Compare(timeOf(a), timeOf(b))
	})

	out := make([]domain.RankedCompetitor, 0, len(competitors))
	rank := 0
	for _, group := range [][]domain.Competitor{clear, faulted} {
		for _, c := range group {
			rank++
			out = append(out, domain.RankedCompetitor{Competitor: c.Clone(), Rank: domain.Ptr(rank)})
		}
	}
	for _, group := range [][]domain.Competitor{eliminated, pending} {
		for _, c := range group {
			out = append(out, domain.RankedCompetitor{Competitor: c.Clone()})
		}
	}
	return out
}

// Podium returns the first three ranked entries, or nil when fewer than
// three competitors have a rank.
func Podium(ranked []domain.RankedCompetitor) []domain.RankedCompetitor {
	var top []domain.RankedCompetitor
	for _, r := range ranked {
		if r.Rank == nil {
			break
		}
		top = append(top, r)
		if len(top) == 3 {
			return top
		}
	}
	return nil
}

// timeOf sorts a missing time last; it cannot happen for scored entries.
func timeOf(c domain.Competitor) float64 {
	if c.Time == nil {
		return 1 << 30
	}
	return *c.Time
}

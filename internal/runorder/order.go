package runorder

import (
	"cmp"
	"fmt"
	"slices"

	"agility-scorer/internal/domain"
)

const UpNextCount = 3

// Source is the randomness used by Randomize; *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// Members returns the (round, size) group sorted by run order.
func Members(cs []domain.Competitor, roundID string, size domain.SizeClass) []domain.Competitor {
	var out []domain.Competitor
	for _, c := range cs {
		if c.RoundID == roundID && c.Size == size {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Competitor) int {
		return cmp.Compare(a.RunOrder, b.RunOrder)
	})
	return out
}

func NextRunOrder(cs []domain.Competitor, roundID string, size domain.SizeClass) int {
	highest := 0
	for _, c := range cs {
		if c.RoundID == roundID && c.Size == size && c.RunOrder > highest {
			highest = c.RunOrder
		}
	}
	return highest + 1
}

// Compact renumbers a group to 1..n keeping its relative order.
func Compact(cs []domain.Competitor, roundID string, size domain.SizeClass) []domain.Competitor {
	members := Members(cs, roundID, size)
	order := make([]string, len(members))
	for i, m := range members {
		order[i] = m.ID
	}
	return assign(cs, order)
}

// CompactAll compacts every group present in cs.
func CompactAll(cs []domain.Competitor) []domain.Competitor {
	type key struct {
		round string
		size  domain.SizeClass
	}
	seen := make(map[key]bool)
	out := domain.CloneCompetitors(cs)
	for _, c := range cs {
		k := key{c.RoundID, c.Size}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = Compact(out, k.round, k.size)
	}
	return out
}

// MoveBefore moves dragged to the index the target held in the group and
// renumbers the group. Both must share round and size.
func MoveBefore(cs []domain.Competitor, draggedID, targetID string) ([]domain.Competitor, error) {
	dragged, ok := find(cs, draggedID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCompetitorNotFound, draggedID)
	}
	target, ok := find(cs, targetID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCompetitorNotFound, targetID)
	}
	if dragged.RoundID != target.RoundID || dragged.Size != target.Size {
		return nil, domain.ErrCrossSizeReorder
	}
	if draggedID == targetID {
		return domain.CloneCompetitors(cs), nil
	}

	members := Members(cs, dragged.RoundID, dragged.Size)
	order := make([]string, 0, len(members))
	from, to := -1, -1
	for i, m := range members {
		order = append(order, m.ID)
		switch m.ID {
		case draggedID:
			from = i
		case targetID:
			to = i
		}
	}
	order = slices.Delete(order, from, from+1)
	order = slices.Insert(order, to, draggedID)
	return assign(cs, order), nil
}

// Apply sets the group's order to exactly orderedIDs.
func Apply(cs []domain.Competitor, roundID string, size domain.SizeClass, orderedIDs []string) ([]domain.Competitor, error) {
	members := Members(cs, roundID, size)
	if len(members) != len(orderedIDs) {
		return nil, fmt.Errorf("%w: got %d ids for %d members", domain.ErrInvalidOrder, len(orderedIDs), len(members))
	}
	inGroup := make(map[string]bool, len(members))
	for _, m := range members {
		inGroup[m.ID] = true
	}
	for _, id := range orderedIDs {
		if !inGroup[id] {
			if c, ok := find(cs, id); ok && (c.RoundID != roundID || c.Size != size) {
				return nil, fmt.Errorf("%w: %s", domain.ErrCrossSizeReorder, id)
			}
			return nil, fmt.Errorf("%w: %s listed twice or unknown", domain.ErrInvalidOrder, id)
		}
		delete(inGroup, id)
	}
	return assign(cs, orderedIDs), nil
}

// Randomize shuffles a group of two or more with Fisher–Yates.
func Randomize(cs []domain.Competitor, roundID string, size domain.SizeClass, src Source) []domain.Competitor {
	members := Members(cs, roundID, size)
	if len(members) < 2 {
		return domain.CloneCompetitors(cs)
	}
	order := make([]string, len(members))
	for i, m := range members {
		order[i] = m.ID
	}
	for i := len(order) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return assign(cs, order)
}

// Queue is the round's remaining runs across all sizes, by size then run order.
func Queue(cs []domain.Competitor, roundID string) []domain.Competitor {
	var out []domain.Competitor
	for _, c := range cs {
		if c.RoundID == roundID && c.Pending() {
			out = append(out, c.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Competitor) int {
		if c := cmp.Compare(a.Size.Order(), b.Size.Order()); c != 0 {
			return c
		}
		return cmp.Compare(a.RunOrder, b.RunOrder)
	})
	return out
}

// NowRunning returns the head of the round queue and the entries after it.
func NowRunning(cs []domain.Competitor, roundID string) (*domain.Competitor, []domain.Competitor) {
	q := Queue(cs, roundID)
	if len(q) == 0 {
		return nil, nil
	}
	next := q[1:]
	if len(next) > UpNextCount {
		next = next[:UpNextCount]
	}
	return &q[0], next
}

func assign(cs []domain.Competitor, order []string) []domain.Competitor {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i + 1
	}
	out := domain.CloneCompetitors(cs)
	for i := range out {
		if p, ok := pos[out[i].ID]; ok {
			out[i].RunOrder = p
		}
	}
	return out
}

func find(cs []domain.Competitor, id string) (domain.Competitor, bool) {
	for _, c := range cs {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Competitor{}, false
}

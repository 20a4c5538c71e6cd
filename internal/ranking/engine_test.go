package ranking

import (
	"testing"

	"agility-scorer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(id string, total int, time float64) domain.Competitor {
	return domain.Competitor{ID: id, TotalFault: domain.Ptr(total), Time: domain.Ptr(time)}
}

func ids(ranked []domain.RankedCompetitor) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.ID
	}
	return out
}

func ranks(ranked []domain.RankedCompetitor) []any {
	out := make([]any, len(ranked))
	for i, r := range ranked {
		if r.Rank == nil {
			out[i] = nil
			continue
		}
		out[i] = *r.Rank
	}
	return out
}

func TestRank_ScenarioC(t *testing.T) {
	got := Rank([]domain.Competitor{
		scored("t30", 0, 30.0),
		scored("t28", 0, 28.5),
		scored("t20", 5, 20.0),
	})

	assert.Equal(t, []string{"t28", "t30", "t20"}, ids(got))
	assert.Equal(t, []any{1, 2, 3}, ranks(got))
}

func TestRank_GroupOrder(t *testing.T) {
	got := Rank([]domain.Competitor{
		{ID: "pending-1"},
		{ID: "elim-1", Eliminated: true},
		scored("faulted", 5, 31),
		{ID: "elim-2", Eliminated: true, TotalFault: domain.Ptr(0), Time: domain.Ptr(10.0)},
		scored("clear", 0, 40),
		{ID: "pending-2"},
	})

	assert.Equal(t, []string{"clear", "faulted", "elim-1", "elim-2", "pending-1", "pending-2"}, ids(got))
	assert.Equal(t, []any{1, 2, nil, nil, nil, nil}, ranks(got))
}

func TestRank_FaultedTieBreakByTime(t *testing.T) {
	got := Rank([]domain.Competitor{
		scored("a", 10, 35),
		scored("b", 5, 50),
		scored("c", 5, 44),
		scored("d", 10, 33),
	})
	assert.Equal(t, []string{"c", "b", "d", "a"}, ids(got))
}

func TestRank_EqualTimesKeepInputOrder(t *testing.T) {
	got := Rank([]domain.Competitor{
		scored("first", 0, 30),
		scored("second", 0, 30),
	})
	assert.Equal(t, []string{"first", "second"}, ids(got))
	assert.Equal(t, []any{1, 2}, ranks(got))
}

func TestRank_DoesNotAliasInput(t *testing.T) {
	in := []domain.Competitor{scored("a", 0, 30)}
	got := Rank(in)
	*got[0].TotalFault = 99
	assert.Equal(t, 0, *in[0].TotalFault)
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}

func TestPodium(t *testing.T) {
	two := Rank([]domain.Competitor{scored("a", 0, 30), scored("b", 0, 31), {ID: "c", Eliminated: true}})
	assert.Nil(t, Podium(two))

	four := Rank([]domain.Competitor{scored("a", 0, 30), scored("b", 0, 31), scored("c", 4, 29), scored("d", 5, 20)})
	podium := Podium(four)
	require.Len(t, podium, 3)
	assert.Equal(t, []string{"a", "b", "c"}, ids(podium))
}

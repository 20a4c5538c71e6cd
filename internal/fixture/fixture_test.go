package fixture

import (
	"bytes"
	"strings"
	"testing"

	"agility-scorer/internal/competition"
	"agility-scorer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
rounds:
  - name: Agility 1
    abbreviation: AG1
    sct: 40
    mct: 56
    entries:
      - dog: Rex
        breed: Border Collie
        handler: Alice
        size: l
      - dog: Pip
        handler: Bob
        size: S
        icon: "🐩"
  - name: Jumping
    sct: 35
    mct: 50
`

func TestReadAndApply(t *testing.T) {
	f, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, f.Rounds, 2)

	store, err := competition.New(nil, zerolog.Nop())
	require.NoError(t, err)

	sum, err := Apply(store, f)
	require.NoError(t, err)
	assert.Equal(t, Summary{RoundsAdded: 2, EntriesAdded: 2}, sum)

	r, ok := store.RoundByName("agility 1")
	require.True(t, ok)
	assert.Equal(t, "AG1", r.Abbreviation)
	assert.Equal(t, domain.CourseTime{SCT: 40, MCT: 56}, store.Snapshot().CourseTime(r.ID))

	large := store.RunningOrder(r.ID, domain.SizeLarge)
	require.Len(t, large, 1)
	assert.Equal(t, "Border Collie", large[0].Breed)
	assert.Equal(t, "dog-rex", large[0].DogID)

	small := store.RunningOrder(r.ID, domain.SizeSmall)
	require.Len(t, small, 1)
	assert.Equal(t, "🐩", small[0].DisplayIcon())

	// applying again reuses rounds and appends entries
	sum, err = Apply(store, f)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.RoundsAdded)
	assert.Len(t, store.RunningOrder(r.ID, domain.SizeLarge), 2)
	assert.Equal(t, 2, store.RunningOrder(r.ID, domain.SizeLarge)[1].RunOrder)
}

func TestRead_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":  "rounds:\n  - name: A\n    colour: red\n",
		"missing name":   "rounds:\n  - sct: 10\n",
		"duplicate name": "rounds:\n  - name: A\n  - name: a\n",
		"bad size":       "rounds:\n  - name: A\n    entries:\n      - dog: Rex\n        size: XL\n",
		"no dog":         "rounds:\n  - name: A\n    entries:\n      - size: S\n",
		"not yaml":       "rounds: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(doc))
			assert.ErrorIs(t, err, domain.ErrInvalidImport)
		})
	}
}

func TestRead_Empty(t *testing.T) {
	f, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Rounds)
}

func TestWriteFromState(t *testing.T) {
	f, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	store, err := competition.New(nil, zerolog.Nop())
	require.NoError(t, err)
	_, err = Apply(store, f)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FromState(store.Snapshot())))

	again, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, again.Rounds, 2)
	assert.Equal(t, "Agility 1", again.Rounds[0].Name)
	require.Len(t, again.Rounds[0].Entries, 2)
	assert.Equal(t, "Pip", again.Rounds[0].Entries[0].Dog, "small before large")
	assert.Equal(t, "Rex", again.Rounds[0].Entries[1].Dog)
}

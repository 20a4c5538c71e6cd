package export

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"
	"time"

	"agility-scorer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var exportDate = time.Date(2026, 6, 14, 15, 30, 0, 0, time.UTC)

func scored(id, round string, size domain.SizeClass, order int, name string, total int, t float64) domain.Competitor {
	return domain.Competitor{
		ID: id, RoundID: round, Size: size, RunOrder: order, DogName: name, Handler: "H " + name,
		CourseFaults: domain.Ptr(total), Refusals: domain.Ptr(0), Time: domain.Ptr(t),
		TimeFault: domain.Ptr(0), TotalFault: domain.Ptr(total),
	}
}

func sampleState() domain.State {
	return domain.State{
		Rounds: []domain.Round{
			{ID: "r1", Name: "Agility 1", Abbreviation: "Agil", Position: 0},
			{ID: "r2", Name: "Jumping", Abbreviation: "Jump", Position: 1},
		},
		CourseTimes: map[string]domain.CourseTime{
			"r1": {SCT: 40, MCT: 56},
			"r2": {SCT: 35, MCT: 50},
		},
		Competitors: []domain.Competitor{
			scored("a", "r1", domain.SizeLarge, 1, "Rex", 0, 38.2),
			scored("b", "r1", domain.SizeLarge, 2, "Bella", 5, 36.0),
			scored("c", "r1", domain.SizeLarge, 3, "Max", 0, 35.1),
			{ID: "d", RoundID: "r1", Size: domain.SizeLarge, RunOrder: 4, DogName: "Luna"},
			scored("e", "r1", domain.SizeSmall, 1, "Pip", 0, 41.0),
			{ID: "f", RoundID: "r2", Size: domain.SizeMedium, RunOrder: 1, DogName: "Kai", Eliminated: true},
		},
	}
}

func TestSections(t *testing.T) {
	st := sampleState()

	all := Sections(st, Scope{})
	require.Len(t, all, 3)
	assert.Equal(t, domain.SizeSmall, all[0].Size, "sizes in class order")
	assert.Equal(t, domain.SizeLarge, all[1].Size)
	assert.Equal(t, "r2", all[2].Round.ID)

	large := all[1]
	require.Len(t, large.Ranked, 4)
	assert.Equal(t, "c", large.Ranked[0].ID)
	assert.Equal(t, "a", large.Ranked[1].ID)
	assert.Equal(t, "b", large.Ranked[2].ID)
	assert.Nil(t, large.Ranked[3].Rank)

	scoped := Sections(st, Scope{RoundID: "r1", Size: domain.SizeSmall})
	require.Len(t, scoped, 1)
	assert.Equal(t, "e", scoped[0].Ranked[0].ID)

	assert.Empty(t, Sections(st, Scope{RoundID: "r2", Size: domain.SizeLarge}))
}

func TestCells(t *testing.T) {
	ranked := Sections(sampleState(), Scope{RoundID: "r1", Size: domain.SizeLarge})[0].Ranked

	assert.Equal(t,
		[]string{"1", "L", "3", "Max", "", "H Max", "0", "0", "0", "0", "35.10", "Done"},
		Cells(ranked[0]))
	assert.Equal(t,
		[]string{"-", "L", "4", "Luna", "", "", "", "", "", "", "", "Pending"},
		Cells(ranked[3]))
}

func TestLayout(t *testing.T) {
	l := DefaultLayout()
	require.Len(t, l.Columns, len(Columns))
	last := l.Columns[len(l.Columns)-1]
	assert.Equal(t, l.Width-l.Margin, last.X+last.Width, "columns fill the content width")

	assert.Equal(t, 120.0+32*5+48, l.Height(4, false))
	assert.Equal(t, 120.0+180+32*5+48, l.Height(4, true))

	slots := l.PodiumSlots()
	assert.Equal(t, []int{2, 1, 3}, []int{slots[0].Place, slots[1].Place, slots[2].Place})
	assert.Greater(t, slots[1].Height, slots[0].Height)
	assert.Greater(t, slots[0].Height, slots[2].Height)
}

func TestRenderImage_DeterministicWithPodium(t *testing.T) {
	section := Sections(sampleState(), Scope{RoundID: "r1", Size: domain.SizeLarge})[0]

	first, err := RenderImage(section, exportDate)
	require.NoError(t, err)
	second, err := RenderImage(section, exportDate)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second), "same input renders identical bytes")

	img, err := png.Decode(bytes.NewReader(first))
	require.NoError(t, err)
	l := DefaultLayout()
	assert.Equal(t, int(l.Width), img.Bounds().Dx())
	assert.Equal(t, int(l.Height(4, true)), img.Bounds().Dy())
}

func TestRenderImage_NoPodiumBelowThreeRanked(t *testing.T) {
	section := Sections(sampleState(), Scope{RoundID: "r1", Size: domain.SizeSmall})[0]
	out, err := RenderImage(section, exportDate)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, int(DefaultLayout().Height(1, false)), img.Bounds().Dy())
}

func TestRenderImages(t *testing.T) {
	images, err := RenderImages(context.Background(), sampleState(), Scope{}, exportDate)
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, "agility-1-S.png", images[0].Name)
	assert.Equal(t, "agility-1-L.png", images[1].Name)
	assert.Equal(t, "jumping-M.png", images[2].Name)
	for _, img := range images {
		assert.NotEmpty(t, img.PNG)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RenderImages(ctx, sampleState(), Scope{}, exportDate)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteSpreadsheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSpreadsheet(&buf, sampleState(), Scope{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Agility 1", "Jumping"}, f.GetSheetList())

	rows, err := f.GetRows("Agility 1")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "Pip", rows[1][3], "small group first")
	assert.Equal(t, "Max", rows[2][3])
	assert.Equal(t, "1", rows[2][0])
	assert.Equal(t, "Pending", rows[5][11])

	rows, err = f.GetRows("Jumping")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Eliminated", rows[1][11])
}

func TestWriteSpreadsheet_EmptyScope(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSpreadsheet(&buf, domain.State{}, Scope{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Results"}, f.GetSheetList())
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{"sheet1": true}
	assert.Equal(t, "A-B", sheetName("A/B", used))
	assert.Equal(t, "Sheet1 (2)", sheetName("Sheet1", used))
	long := sheetName(strings.Repeat("x", 40), used)
	assert.Len(t, []rune(long), maxSheetName)
	again := sheetName(strings.Repeat("x", 40), used)
	assert.Len(t, []rune(again), maxSheetName)
	assert.NotEqual(t, long, again)
}

func TestWriteDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, sampleState(), Scope{}, exportDate))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	var empty bytes.Buffer
	require.NoError(t, WriteDocument(&empty, domain.State{}, Scope{}, exportDate))
	assert.True(t, bytes.HasPrefix(empty.Bytes(), []byte("%PDF-")))
}

package service

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agility-scorer/internal/competition"
	"agility-scorer/internal/database"
	"agility-scorer/internal/domain"
	"agility-scorer/internal/export"
	"agility-scorer/internal/repository"
	"agility-scorer/internal/scoring"
	"agility-scorer/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportDate = time.Date(2026, 5, 17, 14, 30, 0, 0, time.UTC)

func newService(t *testing.T, persister competition.Persister, remote session.Remote, device string) *ScoreboardService {
	t.Helper()
	store, err := competition.New(persister, zerolog.Nop())
	require.NoError(t, err)
	mgr := session.NewManager(store, remote, session.Options{DeviceID: device, Debounce: 10 * time.Millisecond}, zerolog.Nop())
	t.Cleanup(mgr.Close)

	svc := NewScoreboardService(store, mgr, zerolog.Nop())
	svc.now = func() time.Time { return exportDate }
	return svc
}

func seed(t *testing.T, svc *ScoreboardService) (domain.Round, []domain.Competitor) {
	t.Helper()
	store := svc.Store()
	r, err := store.AddRound("Agility 1", domain.CourseTime{SCT: 40, MCT: 56})
	require.NoError(t, err)
	var out []domain.Competitor
	for _, name := range []string{"Rex", "Bella", "Pip"} {
		c, err := store.AddCompetitor(competition.NewCompetitor{RoundID: r.ID, Size: domain.SizeLarge, DogName: name, Handler: "Alice"})
		require.NoError(t, err)
		out = append(out, c)
	}
	return r, out
}

func TestEnterScore_PersistsToSQLite(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "agility.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewStateRepository(db, zerolog.Nop())

	svc := newService(t, repo, nil, "dev-1")
	r, cs := seed(t, svc)

	res, err := svc.EnterScore(cs[0].ID, scoring.ScoreInput{Time: domain.Ptr(45.7)})
	require.NoError(t, err)
	assert.Equal(t, scoring.OutcomeSaved, res.Outcome)
	assert.Equal(t, 5, *res.Competitor.TotalFault)

	res, err = svc.EnterScore(cs[1].ID, scoring.ScoreInput{Time: domain.Ptr(60.0)})
	require.NoError(t, err)
	assert.Equal(t, scoring.OutcomeEliminated, res.Outcome)

	_, err = svc.EnterScore(cs[2].ID, scoring.ScoreInput{Refusals: domain.Ptr(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidScore)

	reopened := newService(t, repo, nil, "dev-1")
	c, ok := reopened.Store().Competitor(cs[0].ID)
	require.True(t, ok)
	assert.Equal(t, 5, *c.TimeFault)
	c, ok = reopened.Store().Competitor(cs[1].ID)
	require.True(t, ok)
	assert.True(t, c.Eliminated)
	assert.Equal(t, domain.CourseTime{SCT: 40, MCT: 56}, reopened.Store().Snapshot().CourseTime(r.ID))
}

func TestReorderAndMoveBefore(t *testing.T) {
	svc := newService(t, nil, nil, "dev-1")
	r, cs := seed(t, svc)

	require.NoError(t, svc.Reorder(r.ID, domain.SizeLarge, []string{cs[2].ID, cs[0].ID, cs[1].ID}))
	require.NoError(t, svc.MoveBefore(cs[1].ID, cs[2].ID))

	var names []string
	for _, c := range svc.Store().RunningOrder(r.ID, domain.SizeLarge) {
		names = append(names, c.DogName)
	}
	assert.Equal(t, []string{"Bella", "Pip", "Rex"}, names)

	err := svc.Reorder(r.ID, domain.SizeLarge, []string{cs[0].ID})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := newService(t, nil, nil, "dev-1")
	_, cs := seed(t, src)
	_, err := src.EnterScore(cs[0].ID, scoring.ScoreInput{CourseFaults: domain.Ptr(5), Time: domain.Ptr(38.2)})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.ExportSnapshot(&buf, export.Scope{}))

	dst := newService(t, nil, nil, "dev-2")
	snap, err := dst.ImportSnapshot(&buf)
	require.NoError(t, err)
	assert.True(t, exportDate.Equal(snap.ExportDate))

	want, got := src.Store().Snapshot(), dst.Store().Snapshot()
	assert.ElementsMatch(t, want.Competitors, got.Competitors)
	assert.Equal(t, want.CourseTimes, got.CourseTimes)
	assert.Equal(t, want.Rounds, got.Rounds)
}

func TestImportSnapshot_RejectsWithoutChanges(t *testing.T) {
	svc := newService(t, nil, nil, "dev-1")
	_, cs := seed(t, svc)
	before := svc.Store().Snapshot()

	bad := `{"competitors":[{"id":"x","round_id":"missing","size":"L","dog_name":"Ghost","run_order":1}],"rounds":[],"courseTimeConfig":{}}`
	_, err := svc.ImportSnapshot(strings.NewReader(bad))
	assert.ErrorIs(t, err, domain.ErrInvalidImport)

	_, err = svc.ImportSnapshot(strings.NewReader("{"))
	assert.ErrorIs(t, err, domain.ErrInvalidImport)

	assert.Equal(t, before, svc.Store().Snapshot())
	_, ok := svc.Store().Competitor(cs[0].ID)
	assert.True(t, ok)
}

func TestExports(t *testing.T) {
	svc := newService(t, nil, nil, "dev-1")
	r, cs := seed(t, svc)
	for i, c := range cs {
		_, err := svc.EnterScore(c.ID, scoring.ScoreInput{Time: domain.Ptr(30.0 + float64(i))})
		require.NoError(t, err)
	}

	var xlsx, pdf, yml bytes.Buffer
	require.NoError(t, svc.ExportSpreadsheet(&xlsx, export.Scope{}))
	assert.Equal(t, "PK", xlsx.String()[:2])
	require.NoError(t, svc.ExportDocument(&pdf, export.Scope{RoundID: r.ID}))
	assert.True(t, strings.HasPrefix(pdf.String(), "%PDF"))
	require.NoError(t, svc.ExportFixture(&yml))
	assert.Contains(t, yml.String(), "name: Agility 1")

	images, err := svc.ExportImages(context.Background(), export.Scope{})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, domain.SizeLarge, images[0].Section.Size)
	assert.NotEmpty(t, images[0].PNG)
}

func TestImportFixture(t *testing.T) {
	svc := newService(t, nil, nil, "dev-1")
	doc := "rounds:\n  - name: Jumping\n    sct: 35\n    mct: 50\n    entries:\n      - dog: Rex\n        size: M\n"

	sum, err := svc.ImportFixture(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.RoundsAdded)
	assert.Equal(t, 1, sum.EntriesAdded)

	_, err = svc.ImportFixture(strings.NewReader("rounds:\n  - name: \"\"\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidImport)
}

func TestSessionLifecycle(t *testing.T) {
	remote := session.NewMemoryRemote()
	host := newService(t, nil, remote, "dev-host")
	viewer := newService(t, nil, remote, "dev-viewer")
	_, cs := seed(t, host)
	ctx := context.Background()

	code, err := host.CreateSession(ctx)
	require.NoError(t, err)
	status, gotCode, _ := host.SessionStatus()
	assert.Equal(t, session.StatusConnected, status)
	assert.Equal(t, code, gotCode)

	require.NoError(t, viewer.JoinSession(ctx, strings.ToLower(code)))
	assert.Len(t, viewer.Store().Snapshot().Competitors, 3)

	_, err = host.EnterScore(cs[0].ID, scoring.ScoreInput{Time: domain.Ptr(39.0)})
	require.NoError(t, err)
	host.LeaveSession()

	c, ok := viewer.Store().Competitor(cs[0].ID)
	require.True(t, ok)
	require.NotNil(t, c.TotalFault, "queued push flushed on leave")
	assert.Equal(t, 0, *c.TotalFault)

	status, _, _ = host.SessionStatus()
	assert.Equal(t, session.StatusOff, status)

	err = viewer.JoinSession(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionDisabled(t *testing.T) {
	svc := newService(t, nil, nil, "dev-1")
	device, role := svc.Device()
	assert.Equal(t, "dev-1", device)
	assert.Equal(t, session.RoleHost, role)

	_, err := svc.CreateSession(context.Background())
	assert.ErrorIs(t, err, domain.ErrSyncDisabled)
}

func TestClear(t *testing.T) {
	remote := session.NewMemoryRemote()
	svc := newService(t, nil, remote, "dev-1")
	seed(t, svc)
	code, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.Clear())
	assert.Empty(t, svc.Store().Rounds())
	status, _, _ := svc.SessionStatus()
	assert.Equal(t, session.StatusOff, status)

	rec, err := remote.Fetch(context.Background(), code)
	require.NoError(t, err)
	assert.Len(t, rec.State.Competitors, 3, "clear is not replicated")
}

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"agility-scorer/internal/competition"
	"agility-scorer/internal/domain"
	"agility-scorer/internal/rpc"
	"agility-scorer/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRelay(t *testing.T) (*httptest.Server, *rpc.RelayClient) {
	t.Helper()
	relay := NewRelayServer(session.NewMemoryRemote(), zerolog.Nop())
	ts := httptest.NewServer(NewHandler(relay, zerolog.Nop()))
	t.Cleanup(ts.Close)
	return ts, rpc.NewRelayClient(ts.Client(), ts.URL, zerolog.Nop())
}

func rec(code, device, dog string) domain.SessionRecord {
	return domain.SessionRecord{
		Code:     code,
		DeviceID: device,
		State: domain.SharedState{
			Rounds:      []domain.Round{{ID: "r1", Name: "Agility 1"}},
			CourseTimes: map[string]domain.CourseTime{"r1": {SCT: 40, MCT: 56}},
			Competitors: []domain.Competitor{{ID: "c1", RoundID: "r1", Size: domain.SizeIntermediate, DogName: dog, RunOrder: 1}},
		},
	}
}

func TestRelay_CreateGetPush(t *testing.T) {
	_, client := setupRelay(t)
	ctx := context.Background()

	require.NoError(t, client.Create(ctx, rec("QWE234", "dev-1", "Rex")))
	assert.ErrorIs(t, client.Create(ctx, rec("QWE234", "dev-2", "Rex")), domain.ErrSessionExists)

	got, err := client.Fetch(ctx, "QWE234")
	require.NoError(t, err)
	assert.Equal(t, "Rex", got.State.Competitors[0].DogName)
	assert.Equal(t, domain.SizeIntermediate, got.State.Competitors[0].Size)

	require.NoError(t, client.Push(ctx, rec("QWE234", "dev-1", "Bella")))
	got, err = client.Fetch(ctx, "QWE234")
	require.NoError(t, err)
	assert.Equal(t, "Bella", got.State.Competitors[0].DogName)

	_, err = client.Fetch(ctx, "NOPE22")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, client.Push(ctx, rec("NOPE22", "dev-1", "x")), domain.ErrSessionNotFound)
}

func TestRelay_RejectsIncompleteRecords(t *testing.T) {
	_, client := setupRelay(t)
	err := client.Create(context.Background(), domain.SessionRecord{Code: "ABCDEF"})
	assert.Error(t, err)
	_, err = client.Fetch(context.Background(), " ")
	assert.Error(t, err)
}

func TestRelay_Watch(t *testing.T) {
	_, client := setupRelay(t)
	ctx := context.Background()
	require.NoError(t, client.Create(ctx, rec("QWE234", "dev-1", "Rex")))

	var (
		mu   sync.Mutex
		seen []string
	)
	sub, err := client.Subscribe(ctx, "QWE234", func(r domain.SessionRecord) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, r.State.Competitors[0].DogName)
	})
	require.NoError(t, err)

	require.NoError(t, client.Push(ctx, rec("QWE234", "dev-1", "Bella")))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == "Bella"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sub.Close())

	_, err = client.Subscribe(ctx, "NOPE22", func(domain.SessionRecord) {})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRelay_RequestIDHeader(t *testing.T) {
	ts, _ := setupRelay(t)
	resp, err := http.Post(ts.URL+rpc.GetSessionProcedure, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	health, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusNoContent, health.StatusCode)
}

func TestRelay_ManagersReplicateThroughServer(t *testing.T) {
	_, client := setupRelay(t)

	hostStore, err := competition.New(nil, zerolog.Nop())
	require.NoError(t, err)
	viewerStore, err := competition.New(nil, zerolog.Nop())
	require.NoError(t, err)

	host := session.NewManager(hostStore, client, session.Options{DeviceID: "host", Debounce: 10 * time.Millisecond}, zerolog.Nop())
	defer host.Close()
	viewer := session.NewManager(viewerStore, client, session.Options{DeviceID: "viewer", Role: session.RoleViewer}, zerolog.Nop())
	defer viewer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	code, err := host.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, viewer.Join(ctx, code))

	r, err := hostStore.AddRound("Jumping", domain.CourseTime{SCT: 35, MCT: 50})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := viewerStore.Round(r.ID)
		return ok
	}, 3*time.Second, 20*time.Millisecond)
}

package fx

import (
	"net/http"
	"testing"

	"agility-scorer/internal/api"
	"agility-scorer/internal/config"
	"agility-scorer/internal/redisstore"
	"agility-scorer/internal/rpc"
	"agility-scorer/internal/service"
	"agility-scorer/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestModulesResolve(t *testing.T) {
	t.Setenv("SYNC_BACKEND", "off")
	require.NoError(t, fx.ValidateApp(LocalModule, fx.Invoke(func(*service.ScoreboardService) {})))
	require.NoError(t, fx.ValidateApp(RelayModule, fx.Invoke(func(http.Handler) {})))
}

func TestProvideRemote(t *testing.T) {
	mr := miniredis.RunT(t)
	cases := []struct {
		cfg  config.Config
		want any
	}{
		{config.Config{SyncBackend: config.BackendRedis, RedisAddr: mr.Addr()}, &redisstore.Remote{}},
		{config.Config{SyncBackend: config.BackendRelay, RelayURL: "http://relay.test"}, &rpc.RelayClient{}},
		{config.Config{SyncBackend: config.BackendHosted, HostedURL: "http://hosted.test", HostedAPIKey: "k"}, &api.HostedClient{}},
	}
	for _, tc := range cases {
		t.Run(tc.cfg.SyncBackend, func(t *testing.T) {
			lc := fxtest.NewLifecycle(t)
			remote, err := ProvideRemote(lc, &tc.cfg, zerolog.Nop())
			require.NoError(t, err)
			assert.IsType(t, tc.want, remote)
			lc.RequireStart().RequireStop()
		})
	}

	remote, err := ProvideRemote(fxtest.NewLifecycle(t), &config.Config{SyncBackend: config.BackendOff}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, remote)

	_, err = ProvideRemote(fxtest.NewLifecycle(t), &config.Config{SyncBackend: "pigeon"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestProvideRelayBackend_Memory(t *testing.T) {
	remote := ProvideRelayBackend(fxtest.NewLifecycle(t), &config.Config{}, zerolog.Nop())
	assert.IsType(t, &session.MemoryRemote{}, remote)
}

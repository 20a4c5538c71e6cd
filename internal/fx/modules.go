package fx

import (
	"context"
	"fmt"
	"net/http"

	"agility-scorer/internal/api"
	"agility-scorer/internal/competition"
	"agility-scorer/internal/config"
	"agility-scorer/internal/constants"
	"agility-scorer/internal/database"
	"agility-scorer/internal/logger"
	"agility-scorer/internal/redisstore"
	"agility-scorer/internal/repository"
	"agility-scorer/internal/rpc"
	"agility-scorer/internal/server"
	"agility-scorer/internal/service"
	"agility-scorer/internal/session"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideStore(repo *repository.StateRepository, logger zerolog.Logger) (*competition.Store, error) {
	return competition.New(repo, logger)
}

// ProvideRemote picks the session backend from SYNC_BACKEND. "off" yields a
// nil Remote, which the manager treats as sync disabled.
func ProvideRemote(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (session.Remote, error) {
	switch cfg.SyncBackend {
	case config.BackendOff:
		return nil, nil
	case config.BackendRedis:
		return provideRedisRemote(lc, cfg, logger), nil
	case config.BackendRelay:
		return rpc.NewRelayClient(http.DefaultClient, cfg.RelayURL, logger), nil
	case config.BackendHosted:
		return api.NewHostedClient(cfg, logger), nil
	}
	return nil, fmt.Errorf("unknown sync backend %q", cfg.SyncBackend)
}

// ProvideRelayBackend stores relay sessions in Redis when REDIS_ADDR is set,
// in process memory otherwise.
func ProvideRelayBackend(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) session.Remote {
	if cfg.RedisAddr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, relay sessions are kept in memory")
		return session.NewMemoryRemote()
	}
	return provideRedisRemote(lc, cfg, logger)
}

func provideRedisRemote(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) session.Remote {
	client := redisstore.NewClient(cfg)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable yet")
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return redisstore.NewRemote(client, cfg.SessionTTL, logger)
}

func ProvideManager(
	lc fx.Lifecycle,
	store *competition.Store,
	remote session.Remote,
	settings *repository.SettingsRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) (*session.Manager, error) {
	role, err := session.ParseRole(cfg.DeviceRole)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()
	deviceID, err := settings.DeviceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device id: %w", err)
	}

	m := session.NewManager(store, remote, session.Options{
		DeviceID: deviceID,
		Role:     role,
		Debounce: cfg.SyncDebounce,
	}, logger)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			m.Flush()
			m.Close()
			return nil
		},
	})
	return m, nil
}

var common = fx.Options(
	config.Module,
	logger.Module,
)

// LocalModule is the operator side: local store, sync manager and service.
var LocalModule = fx.Options(
	common,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewStateRepository),
	fx.Provide(repository.NewSettingsRepository),
	// state + sync
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRemote),
	fx.Provide(ProvideManager),
	// svc
	fx.Provide(service.NewScoreboardService),
)

// RelayModule serves session records to devices over connect.
var RelayModule = fx.Options(
	common,
	fx.Provide(ProvideRelayBackend),
	fx.Provide(server.NewRelayServer),
	fx.Provide(server.NewHandler),
)

package main

import (
	"context"
	"fmt"
	"os"

	"agility-scorer/internal/config"
	fxmodules "agility-scorer/internal/fx"
	"agility-scorer/internal/repository"
	"agility-scorer/internal/service"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

const sessionCodeKey = "session_code"

// env is what a command gets once the local application has started.
type env struct {
	svc      *service.ScoreboardService
	settings *repository.SettingsRepository
	cfg      *config.Config
	logger   zerolog.Logger
}

type action func(c *cli.Context, e *env) error

// withEnv starts the local application around fn. When resume is set and a
// session code was saved, the session is rejoined first so the command sees
// and replicates the shared state.
func withEnv(resume bool, fn action) cli.ActionFunc {
	return func(c *cli.Context) error {
		var e env
		verbose := c.Bool(verboseFlag)
		app := fx.New(
			fxmodules.LocalModule,
			fx.Decorate(func(l zerolog.Logger) zerolog.Logger {
				l = l.Output(os.Stderr)
				if !verbose {
					l = l.Level(zerolog.WarnLevel)
				}
				return l
			}),
			fx.Populate(&e.svc, &e.settings, &e.cfg, &e.logger),
			fx.NopLogger,
		)

		startCtx, cancel := context.WithTimeout(c.Context, app.StartTimeout())
		defer cancel()
		if err := app.Start(startCtx); err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
			defer cancel()
			if err := app.Stop(stopCtx); err != nil {
				e.logger.Error().Err(err).Msg("failed to stop cleanly")
			}
		}()

		if resume {
			e.resumeSession(c.Context)
		}
		return fn(c, &e)
	}
}

func (e *env) savedSession(ctx context.Context) (string, error) {
	code, _, err := e.settings.Get(ctx, sessionCodeKey)
	return code, err
}

func (e *env) saveSession(ctx context.Context, code string) error {
	return e.settings.Set(ctx, sessionCodeKey, code)
}

// resumeSession is best effort; commands still run against local state.
func (e *env) resumeSession(ctx context.Context) {
	if e.cfg.SyncBackend == config.BackendOff {
		return
	}
	code, err := e.savedSession(ctx)
	if err != nil || code == "" {
		return
	}
	if err := e.svc.JoinSession(ctx, code); err != nil {
		e.logger.Warn().Err(err).Str("code", code).Msg("could not rejoin session, working offline")
	}
}

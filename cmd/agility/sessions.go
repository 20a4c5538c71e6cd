package main

import (
	"fmt"

	"agility-scorer/internal/competition"
	"agility-scorer/internal/session"

	"github.com/urfave/cli/v2"
)

func sessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Share this device's competition with other devices",
		Subcommands: []*cli.Command{
			{
				Name:  "host",
				Usage: "Start a session from the local state and print its code",
				Action: withEnv(false, func(c *cli.Context, e *env) error {
					code, err := e.svc.CreateSession(c.Context)
					if err != nil {
						return err
					}
					if err := e.saveSession(c.Context, code); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, code)
					return nil
				}),
			},
			{
				Name:      "join",
				Usage:     "Replace the local state with a session's and stay in it",
				ArgsUsage: "CODE",
				Action: withEnv(false, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					if err := e.svc.JoinSession(c.Context, c.Args().First()); err != nil {
						return err
					}
					_, code, _ := e.svc.SessionStatus()
					if err := e.saveSession(c.Context, code); err != nil {
						return err
					}
					st := e.svc.Store().Snapshot()
					fmt.Fprintf(c.App.Writer, "joined %s: %d rounds, %d competitors\n", code, len(st.Rounds), len(st.Competitors))
					return nil
				}),
			},
			{
				Name:  "follow",
				Usage: "Stay connected and print the queue whenever the session changes",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					status, code, err := e.svc.SessionStatus()
					if status != session.StatusConnected {
						if err != nil {
							return err
						}
						return cli.Exit("not in a session; use session host or session join first", 1)
					}

					store := e.svc.Store()
					unsubscribe := store.Subscribe(func(ch competition.Change) {
						if ch.Origin != competition.OriginRemote {
							return
						}
						roundID := store.CurrentRoundID()
						if roundID == "" {
							return
						}
						now, next := store.NowRunning(roundID)
						fmt.Fprintln(c.App.Writer)
						_ = printQueue(c.App.Writer, now, next)
					})
					defer unsubscribe()

					fmt.Fprintf(c.App.Writer, "following %s, interrupt to stop\n", code)
					<-c.Context.Done()
					return nil
				}),
			},
			{
				Name:  "leave",
				Usage: "Stop rejoining the saved session",
				Action: withEnv(false, func(c *cli.Context, e *env) error {
					return e.saveSession(c.Context, "")
				}),
			},
			{
				Name:  "status",
				Usage: "Show the saved session and whether it can be reached",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					status, code, err := e.svc.SessionStatus()
					saved, _ := e.savedSession(c.Context)
					device, role := e.svc.Device()
					fmt.Fprintf(c.App.Writer, "backend: %s\ndevice: %s (%s)\nsaved code: %s\nstatus: %s %s\n",
						e.cfg.SyncBackend, device, role, valueOr(saved, "none"), status, code)
					if err != nil {
						fmt.Fprintf(c.App.Writer, "last error: %v\n", err)
					}
					return nil
				}),
			},
		},
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

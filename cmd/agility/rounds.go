package main

import (
	"fmt"
	"strconv"

	"agility-scorer/internal/domain"

	"github.com/urfave/cli/v2"
)

func roundCommand() *cli.Command {
	return &cli.Command{
		Name:  "round",
		Usage: "Manage rounds and their course times",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List rounds in order",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					st := e.svc.Store().Snapshot()
					tw := newTable(c.App.Writer)
					fmt.Fprintln(tw, "Pos\tID\tName\tAbbr\tSCT\tMCT\tEntries")
					for _, r := range st.Rounds {
						ct := st.CourseTime(r.ID)
						n := 0
						for _, comp := range st.Competitors {
							if comp.RoundID == r.ID {
								n++
							}
						}
						marker := ""
						if r.ID == st.CurrentRoundID {
							marker = " *"
						}
						fmt.Fprintf(tw, "%d\t%s\t%s%s\t%s\t%.2f\t%.2f\t%d\n", r.Position+1, r.ID, r.Name, marker, r.Abbreviation, ct.SCT, ct.MCT, n)
					}
					return tw.Flush()
				}),
			},
			{
				Name:      "add",
				Usage:     "Add a round",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "sct", Usage: "Standard course time in seconds"},
					&cli.Float64Flag{Name: "mct", Usage: "Maximum course time in seconds, 0 for none"},
				},
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					r, err := e.svc.Store().AddRound(c.Args().First(), domain.CourseTime{SCT: c.Float64("sct"), MCT: c.Float64("mct")})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "added round %s (%s)\n", r.Name, r.ID)
					return nil
				}),
			},
			{
				Name:      "rename",
				Usage:     "Rename a round",
				ArgsUsage: "ROUND NAME",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					r, err := resolveRound(e.svc.Store(), c.Args().Get(0))
					if err != nil {
						return err
					}
					return e.svc.Store().RenameRound(r.ID, c.Args().Get(1))
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a round without entries",
				ArgsUsage: "ROUND",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					r, err := resolveRound(e.svc.Store(), c.Args().First())
					if err != nil {
						return err
					}
					return e.svc.Store().DeleteRound(r.ID)
				}),
			},
			{
				Name:      "abbr",
				Usage:     "Set the short label shown on narrow displays",
				ArgsUsage: "ROUND ABBR",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					r, err := resolveRound(e.svc.Store(), c.Args().Get(0))
					if err != nil {
						return err
					}
					return e.svc.Store().SetAbbreviation(r.ID, c.Args().Get(1))
				}),
			},
			{
				Name:      "move",
				Usage:     "Move a round to a 1-based position",
				ArgsUsage: "ROUND POSITION",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					r, err := resolveRound(e.svc.Store(), c.Args().Get(0))
					if err != nil {
						return err
					}
					pos, err := strconv.Atoi(c.Args().Get(1))
					if err != nil {
						return fmt.Errorf("position must be a number: %w", err)
					}
					return e.svc.Store().MoveRound(r.ID, pos-1)
				}),
			},
			{
				Name:      "times",
				Usage:     "Set SCT and MCT; scored runs are recomputed",
				ArgsUsage: "ROUND SCT MCT",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 3); err != nil {
						return err
					}
					r, err := resolveRound(e.svc.Store(), c.Args().Get(0))
					if err != nil {
						return err
					}
					sct, err := strconv.ParseFloat(c.Args().Get(1), 64)
					if err != nil {
						return fmt.Errorf("SCT must be a number: %w", err)
					}
					mct, err := strconv.ParseFloat(c.Args().Get(2), 64)
					if err != nil {
						return fmt.Errorf("MCT must be a number: %w", err)
					}
					return e.svc.Store().UpdateCourseTime(r.ID, domain.CourseTime{SCT: sct, MCT: mct})
				}),
			},
			{
				Name:      "live",
				Usage:     "Mark the round being run now",
				ArgsUsage: "ROUND",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					r, err := resolveRound(e.svc.Store(), c.Args().First())
					if err != nil {
						return err
					}
					if err := e.svc.Store().SetLiveRound(r.ID); err != nil {
						return err
					}
					return e.svc.Store().SetCurrentRound(r.ID)
				}),
			},
		},
	}
}

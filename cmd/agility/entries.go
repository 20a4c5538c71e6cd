package main

import (
	"fmt"

	"agility-scorer/internal/competition"
	"agility-scorer/internal/domain"

	"github.com/urfave/cli/v2"
)

func entryCommand() *cli.Command {
	return &cli.Command{
		Name:  "entry",
		Usage: "Manage competitors and running order",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "Show the running order of a round",
				ArgsUsage: "ROUND",
				Flags:     scopeFlags()[1:],
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					store := e.svc.Store()
					r, err := resolveRound(store, c.Args().First())
					if err != nil {
						return err
					}
					sizes := domain.AllSizes
					if v := c.String(sizeFlag); v != "" {
						size, err := domain.ParseSize(v)
						if err != nil {
							return err
						}
						sizes = []domain.SizeClass{size}
					}
					var cs []domain.Competitor
					for _, size := range sizes {
						cs = append(cs, store.RunningOrder(r.ID, size)...)
					}
					return printCompetitors(c.App.Writer, cs)
				}),
			},
			{
				Name:      "add",
				Usage:     "Enter a dog at the end of its size group",
				ArgsUsage: "ROUND SIZE DOG",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "handler", Usage: "Handler name"},
					&cli.StringFlag{Name: "breed", Usage: "Breed"},
					&cli.StringFlag{Name: "icon", Usage: "Emoji shown next to the dog"},
					&cli.StringFlag{Name: "dog-id", Usage: "Identity shared by the same dog across rounds"},
				},
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 3); err != nil {
						return err
					}
					r, err := resolveRound(e.svc.Store(), c.Args().Get(0))
					if err != nil {
						return err
					}
					size, err := domain.ParseSize(c.Args().Get(1))
					if err != nil {
						return err
					}
					added, err := e.svc.Store().AddCompetitor(competition.NewCompetitor{
						RoundID: r.ID,
						Size:    size,
						DogID:   c.String("dog-id"),
						DogName: c.Args().Get(2),
						Breed:   c.String("breed"),
						Handler: c.String("handler"),
						Icon:    c.String("icon"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s %s runs #%d in %s %s (%s)\n",
						added.DisplayIcon(), added.DogName, added.RunOrder, r.Name, size.Label(), added.ID)
					return nil
				}),
			},
			{
				Name:      "remove",
				Usage:     "Withdraw a competitor",
				ArgsUsage: "ID",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					return e.svc.Store().RemoveCompetitor(c.Args().First())
				}),
			},
			{
				Name:      "icon",
				Usage:     "Set a competitor's icon; empty restores the default",
				ArgsUsage: "ID [ICON]",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if c.Args().Len() < 1 || c.Args().Len() > 2 {
						return requireArgs(c, 2)
					}
					return e.svc.Store().UpdateIcon(c.Args().Get(0), c.Args().Get(1))
				}),
			},
			{
				Name:      "eliminate",
				Usage:     "Eliminate a competitor",
				ArgsUsage: "ID",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					comp, err := e.svc.Store().Eliminate(c.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s eliminated\n", comp.DogName)
					return nil
				}),
			},
			{
				Name:      "reorder",
				Usage:     "Set the full running order of a size group",
				ArgsUsage: "ROUND SIZE ID...",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if c.Args().Len() < 3 {
						return requireArgs(c, 3)
					}
					r, err := resolveRound(e.svc.Store(), c.Args().Get(0))
					if err != nil {
						return err
					}
					size, err := domain.ParseSize(c.Args().Get(1))
					if err != nil {
						return err
					}
					return e.svc.Reorder(r.ID, size, c.Args().Slice()[2:])
				}),
			},
			{
				Name:      "move",
				Usage:     "Move a competitor to the place another one holds",
				ArgsUsage: "ID TARGET_ID",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					return e.svc.MoveBefore(c.Args().Get(0), c.Args().Get(1))
				}),
			},
			{
				Name:      "randomize",
				Usage:     "Shuffle the running order of a size group",
				ArgsUsage: "ROUND SIZE",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					r, err := resolveRound(e.svc.Store(), c.Args().Get(0))
					if err != nil {
						return err
					}
					size, err := domain.ParseSize(c.Args().Get(1))
					if err != nil {
						return err
					}
					if err := e.svc.Store().Randomize(r.ID, size); err != nil {
						return err
					}
					return printCompetitors(c.App.Writer, e.svc.Store().RunningOrder(r.ID, size))
				}),
			},
		},
	}
}

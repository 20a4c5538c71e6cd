package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"agility-scorer/internal/domain"
	"agility-scorer/internal/export"
	"agility-scorer/internal/scoring"

	"github.com/urfave/cli/v2"
)

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "score",
		Usage:     "Record a run",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "faults", Aliases: []string{"f"}, Usage: "Course faults"},
			&cli.IntFlag{Name: "refusals", Aliases: []string{"r"}, Usage: "Refusals"},
			&cli.Float64Flag{Name: "time", Aliases: []string{"t"}, Usage: "Run time in seconds"},
		},
		Action: withEnv(true, func(c *cli.Context, e *env) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			var in scoring.ScoreInput
			if c.IsSet("faults") {
				in.CourseFaults = domain.Ptr(c.Int("faults"))
			}
			if c.IsSet("refusals") {
				in.Refusals = domain.Ptr(c.Int("refusals"))
			}
			if c.IsSet("time") {
				in.Time = domain.Ptr(c.Float64("time"))
			}

			res, err := e.svc.EnterScore(c.Args().First(), in)
			if err != nil {
				return err
			}
			comp := res.Competitor
			if res.Outcome == scoring.OutcomeEliminated {
				fmt.Fprintf(c.App.Writer, "%s eliminated: over maximum course time\n", comp.DogName)
				return nil
			}
			if comp.TotalFault == nil && comp.Eliminated {
				fmt.Fprintf(c.App.Writer, "%s saved without a time, still eliminated\n", comp.DogName)
				return nil
			}
			if comp.TotalFault == nil {
				fmt.Fprintf(c.App.Writer, "%s saved without a time, still pending\n", comp.DogName)
				return nil
			}
			fmt.Fprintf(c.App.Writer, "%s saved: %d total faults (%d time faults)\n",
				comp.DogName, *comp.TotalFault, *comp.TimeFault)
			return nil
		}),
	}
}

func rankingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ranking",
		Usage: "Print results tables",
		Flags: scopeFlags(),
		Action: withEnv(true, func(c *cli.Context, e *env) error {
			scope, err := readScope(c, e.svc.Store())
			if err != nil {
				return err
			}
			return printSections(c.App.Writer, export.Sections(e.svc.Store().Snapshot(), scope))
		}),
	}
}

func queueCommand() *cli.Command {
	return &cli.Command{
		Name:      "queue",
		Usage:     "Show who is running now and who is next",
		ArgsUsage: "[ROUND]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "List every pending run, not just the next few"},
		},
		Action: withEnv(true, func(c *cli.Context, e *env) error {
			store := e.svc.Store()
			roundID := store.CurrentRoundID()
			if ref := c.Args().First(); ref != "" {
				r, err := resolveRound(store, ref)
				if err != nil {
					return err
				}
				roundID = r.ID
			}
			if roundID == "" {
				fmt.Fprintln(c.App.Writer, "no round has entries yet")
				return nil
			}
			if c.Bool("all") {
				return printCompetitors(c.App.Writer, store.Queue(roundID))
			}
			now, next := store.NowRunning(roundID)
			return printQueue(c.App.Writer, now, next)
		}),
	}
}

func printQueue(w io.Writer, now *domain.Competitor, next []domain.Competitor) error {
	if now == nil {
		_, err := fmt.Fprintln(w, "all runs complete")
		return err
	}
	fmt.Fprintf(w, "now running: %s %s (%s, %s)\n", now.DisplayIcon(), now.DogName, now.Handler, now.Size.Label())
	if len(next) == 0 {
		return nil
	}
	fmt.Fprintln(w, "up next:")
	return printCompetitors(w, next)
}

func exportCommand() *cli.Command {
	outputFlags := func(def string) []cli.Flag {
		return append(scopeFlags(), &cli.StringFlag{
			Name:    outputFlag,
			Aliases: []string{"o"},
			Usage:   "Where to write the result. Can be a file path or \"-\" (for stdout).",
			Value:   def,
		})
	}
	writeTo := func(c *cli.Context, write func(io.Writer) error) error {
		out := openOutput(c, c.String(outputFlag))
		err := write(out)
		return errors.Join(err, out.Close())
	}

	return &cli.Command{
		Name:  "export",
		Usage: "Export results",
		Subcommands: []*cli.Command{
			{
				Name:  "xlsx",
				Usage: "Spreadsheet, one sheet per round",
				Flags: outputFlags("results.xlsx"),
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					scope, err := readScope(c, e.svc.Store())
					if err != nil {
						return err
					}
					return writeTo(c, func(w io.Writer) error { return e.svc.ExportSpreadsheet(w, scope) })
				}),
			},
			{
				Name:  "pdf",
				Usage: "Document, one landscape page per round and size",
				Flags: outputFlags("results.pdf"),
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					scope, err := readScope(c, e.svc.Store())
					if err != nil {
						return err
					}
					return writeTo(c, func(w io.Writer) error { return e.svc.ExportDocument(w, scope) })
				}),
			},
			{
				Name:  "png",
				Usage: "One image per round and size, written into a directory",
				Flags: outputFlags("."),
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					scope, err := readScope(c, e.svc.Store())
					if err != nil {
						return err
					}
					dir := c.String(outputFlag)
					if dir == stdoutCLIName {
						return cli.Exit("png export needs a directory", 2)
					}
					images, err := e.svc.ExportImages(c.Context, scope)
					if err != nil {
						return err
					}
					for _, img := range images {
						path := filepath.Join(dir, img.Name)
						if err := writeFile(path, img.PNG); err != nil {
							return err
						}
						fmt.Fprintln(c.App.Writer, path)
					}
					return nil
				}),
			},
			{
				Name:  "json",
				Usage: "Snapshot for backup and restore",
				Flags: outputFlags("backup.json"),
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					scope, err := readScope(c, e.svc.Store())
					if err != nil {
						return err
					}
					return writeTo(c, func(w io.Writer) error { return e.svc.ExportSnapshot(w, scope) })
				}),
			},
			{
				Name:  "yaml",
				Usage: "Rounds and entries as a fixture file",
				Flags: outputFlags(stdoutCLIName)[2:],
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					return writeTo(c, e.svc.ExportFixture)
				}),
			},
		},
	}
}

func writeFile(path string, data []byte) error {
	f := newLazyFile(path)
	_, err := f.Write(data)
	return errors.Join(err, f.Close())
}

func importCommand() *cli.Command {
	open := func(c *cli.Context) (io.ReadCloser, error) {
		if err := requireArgs(c, 1); err != nil {
			return nil, err
		}
		path := c.Args().First()
		if path == stdoutCLIName {
			return io.NopCloser(c.App.Reader), nil
		}
		return os.Open(path)
	}

	return &cli.Command{
		Name:  "import",
		Usage: "Load a backup or a fixture",
		Subcommands: []*cli.Command{
			{
				Name:      "json",
				Usage:     "Restore a snapshot; replaces competitors and course times",
				ArgsUsage: "FILE",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					r, err := open(c)
					if err != nil {
						return err
					}
					defer r.Close()
					snap, err := e.svc.ImportSnapshot(r)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "restored %d competitors in %d rounds from %s\n",
						len(snap.Competitors), len(snap.Rounds), snap.ExportDate.Format("2006-01-02 15:04"))
					return nil
				}),
			},
			{
				Name:      "yaml",
				Usage:     "Add rounds and entries from a fixture",
				ArgsUsage: "FILE",
				Action: withEnv(true, func(c *cli.Context, e *env) error {
					r, err := open(c)
					if err != nil {
						return err
					}
					defer r.Close()
					sum, err := e.svc.ImportFixture(r)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "added %d rounds and %d entries\n", sum.RoundsAdded, sum.EntriesAdded)
					return nil
				}),
			},
		},
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every round, entry and score on this device",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "Do not ask for confirmation"},
		},
		Action: withEnv(false, func(c *cli.Context, e *env) error {
			if !c.Bool("yes") {
				return cli.Exit("refusing to clear without --yes", 2)
			}
			if err := e.svc.Clear(); err != nil {
				return err
			}
			if err := e.saveSession(c.Context, ""); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "cleared")
			return nil
		}),
	}
}

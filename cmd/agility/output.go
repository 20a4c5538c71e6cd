package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"agility-scorer/internal/competition"
	"agility-scorer/internal/domain"
	"agility-scorer/internal/export"

	"github.com/urfave/cli/v2"
)

// lazyFile opens its file on the first write, so a failed export leaves no
// empty or truncated file behind.
type lazyFile struct {
	path string
	file *os.File
}

func newLazyFile(path string) *lazyFile {
	return &lazyFile{path: path}
}

func (f *lazyFile) Write(p []byte) (int, error) {
	if f.file == nil {
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return 0, err
		}
		file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return 0, err
		}
		f.file = file
	}
	return f.file.Write(p)
}

func (f *lazyFile) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openOutput(c *cli.Context, path string) io.WriteCloser {
	if path == stdoutCLIName {
		return nopCloser{c.App.Writer}
	}
	return newLazyFile(path)
}

func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: roundFlag, Aliases: []string{"r"}, Usage: "Round name or id (default: all rounds)"},
		&cli.StringFlag{Name: sizeFlag, Aliases: []string{"s"}, Usage: "Size class S, M, I or L (default: all sizes)"},
	}
}

func readScope(c *cli.Context, store *competition.Store) (export.Scope, error) {
	var scope export.Scope
	if ref := c.String(roundFlag); ref != "" {
		r, err := resolveRound(store, ref)
		if err != nil {
			return scope, err
		}
		scope.RoundID = r.ID
	}
	if v := c.String(sizeFlag); v != "" {
		size, err := domain.ParseSize(v)
		if err != nil {
			return scope, err
		}
		scope.Size = size
	}
	return scope, nil
}

// resolveRound accepts an id or a name.
func resolveRound(store *competition.Store, ref string) (domain.Round, error) {
	if r, ok := store.Round(ref); ok {
		return r, nil
	}
	if r, ok := store.RoundByName(ref); ok {
		return r, nil
	}
	return domain.Round{}, fmt.Errorf("%w: %s", domain.ErrRoundNotFound, ref)
}

func requireArgs(c *cli.Context, n int) error {
	if c.Args().Len() != n {
		return cli.Exit(fmt.Sprintf("usage: %s %s %s", c.App.Name, c.Command.FullName(), c.Command.ArgsUsage), 2)
	}
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printSections(w io.Writer, sections []export.Section) error {
	if len(sections) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}
	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s / %s  (SCT %s, MCT %s)\n", s.Round.Name, s.Size.Label(),
			export.SecondsText(s.CourseTime.SCT), export.SecondsText(s.CourseTime.MCT))
		tw := newTable(w)
		for j, col := range export.Columns {
			if j > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, col)
		}
		fmt.Fprintln(tw)
		for _, rc := range s.Ranked {
			for j, cell := range export.Cells(rc) {
				if j > 0 {
					fmt.Fprint(tw, "\t")
				}
				fmt.Fprint(tw, cell)
			}
			fmt.Fprintln(tw)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func printCompetitors(w io.Writer, cs []domain.Competitor) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tRun\tSize\tDog\tHandler\tStatus")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s %s\t%s\t%s\n", c.ID, c.RunOrder, c.Size, c.DisplayIcon(), c.DogName, c.Handler, c.Status())
	}
	return tw.Flush()
}

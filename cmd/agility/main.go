package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

const (
	verboseFlag   = "verbose"
	outputFlag    = "output"
	roundFlag     = "round"
	sizeFlag      = "size"
	stdoutCLIName = "-"
)

var build string
var semanticVersion = "v0.3.0" + build

func newApp() *cli.App {
	return &cli.App{
		Name:    "agility",
		Usage:   "Run an agility trial: entries, running order, scores, results and live sessions",
		Version: semanticVersion,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    verboseFlag,
				Aliases: []string{"v"},
				Usage:   "Log at the configured LOG_LEVEL instead of warnings only",
			},
		},
		Commands: []*cli.Command{
			roundCommand(),
			entryCommand(),
			scoreCommand(),
			rankingCommand(),
			queueCommand(),
			exportCommand(),
			importCommand(),
			sessionCommand(),
			clearCommand(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

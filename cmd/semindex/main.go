package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/semindex/internal/config"
	"github.com/kailas-cloud/semindex/internal/version"
)

// errReported marks failures already rendered as a notification banner.
var errReported = errors.New("reported")

func main() {
	app := &cli.Command{
		Name:    "semindex",
		Usage:   "Search a semantic index from the terminal",
		Version: fmt.Sprintf("%s (%s)", version.Version, version.Commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "Configuration environment, reads config/<env>.yaml",
				Value: config.GetEnv(),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log remote calls and search outcomes to stderr",
			},
		},
		Commands: []*cli.Command{
			searchCommand(),
			contentCommand(),
			facetsCommand(),
			watchCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		}
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "spread-arbitrage"
	app.Usage = "buy on the cheaper of two venues and sell on the dearer one when the spread clears a threshold"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "path to a TOML config file",
			EnvVar: "CONFIG",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "override the configured log level",
		},
		cli.BoolFlag{
			Name:  "dry-run, d",
			Usage: "read real prices but fill orders locally",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "watch",
			Usage:  "run one invocation and exit (0 completed or skipped, 1 aborted, 2 partial failure)",
			Action: watchAction,
		},
		{
			Name:   "serve",
			Usage:  "serve POST /watch until interrupted",
			Action: serveAction,
		},
		{
			Name:  "order",
			Usage: "show the status of a live order on a venue (not available with --dry-run)",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "venue", Usage: "kraken or bitstamp"},
				cli.StringFlag{Name: "id", Usage: "venue order id"},
			},
			Action: orderAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
